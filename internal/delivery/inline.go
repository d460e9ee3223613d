package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tribunal-dev/tribunal/internal/core"
	"github.com/tribunal-dev/tribunal/internal/report"
)

// InlineLimit caps the number of inline comments a single run may require.
// A review needing more than this is delivered as summary-only and blocked,
// so a runaway reviewer can never spam a pull request.
const InlineLimit = 150

// inlineMarker tags a posted inline comment with the finding fingerprint it
// delivers, so comments remain attributable even if the record is lost.
func inlineMarker(fingerprint string) string {
	return fmt.Sprintf("<!-- tribunal:inline:v1 fp=%s -->", fingerprint)
}

// InlinePoster posts one review comment anchored at a diff position and
// returns its id.
type InlinePoster interface {
	CreateReviewComment(ctx context.Context, prNumber int, commitSHA, path string, position int, body string) (int64, error)
}

// InlineDeliverer posts blocking findings as inline review comments with
// cross-run dedup via the delivery record.
type InlineDeliverer struct {
	poster InlinePoster
	store  RecordStore
	logger *slog.Logger
}

// NewInlineDeliverer wires an inline deliverer.
func NewInlineDeliverer(poster InlinePoster, store RecordStore, logger *slog.Logger) *InlineDeliverer {
	return &InlineDeliverer{poster: poster, store: store, logger: logger}
}

type plannedComment struct {
	finding     core.Finding
	fingerprint string
	position    int
}

// Deliver posts inline comments for the report's surviving blocking findings.
//
// Gates run before any comment is posted, so delivery is all-or-nothing:
// exceeding the inline cap or holding an unmappable blocking finding blocks
// the run with zero inline comments placed. Findings already recorded under
// the same fingerprint are skipped; record entries whose finding disappeared
// are marked resolved, never deleted.
func (d *InlineDeliverer) Deliver(ctx context.Context, rep *core.ReviewReport, pm *PositionMap, repoFull string, prNumber int, runID string) error {
	candidates := SelectInline(rep.Findings)

	if len(candidates) > InlineLimit {
		return core.Blocked(fmt.Sprintf(
			"review requires %d inline comments, over the limit of %d; see the summary comment",
			len(candidates), InlineLimit))
	}

	// Resolve every anchor before posting anything.
	planned := make([]plannedComment, 0, len(candidates))
	for _, f := range candidates {
		pos, ok := pm.AnchorPosition(f.CodeLocation.Path, f.CodeLocation.LineRange.Start, f.CodeLocation.LineRange.End)
		if !ok {
			return core.Blocked(fmt.Sprintf(
				"blocking finding %q targets %s:%d-%d, which is not visible in the diff",
				f.Title, f.CodeLocation.Path, f.CodeLocation.LineRange.Start, f.CodeLocation.LineRange.End))
		}
		planned = append(planned, plannedComment{
			finding:     f,
			fingerprint: report.Fingerprint(f),
			position:    pos,
		})
	}

	rec, err := d.store.Load(ctx, repoFull, prNumber)
	if err != nil {
		return core.ExecFailureWrap("loading delivery record", err)
	}

	seen := make(map[string]bool, len(planned))
	for _, pc := range planned {
		seen[pc.fingerprint] = true

		if entry, ok := rec.Entries[pc.fingerprint]; ok {
			entry.LastSeenRun = runID
			entry.Resolved = false
			rec.Entries[pc.fingerprint] = entry
			d.logger.Debug("inline comment already delivered",
				"fingerprint", pc.fingerprint, "comment_id", entry.CommentID)
			continue
		}

		commentID, err := d.poster.CreateReviewComment(ctx, prNumber, rep.HeadSHA,
			pc.finding.CodeLocation.Path, pc.position, inlineBody(pc.finding, pc.fingerprint))
		if err != nil {
			// Persist what was posted so far so a retry does not repost it.
			if saveErr := d.store.Save(ctx, rec); saveErr != nil {
				d.logger.Error("saving delivery record after post failure", "error", saveErr)
			}
			return core.ExecFailureWrap("posting inline comment", err)
		}
		rec.Entries[pc.fingerprint] = core.DeliveryEntry{CommentID: commentID, LastSeenRun: runID}
		d.logger.Info("inline comment posted",
			"path", pc.finding.CodeLocation.Path,
			"position", pc.position,
			"priority", pc.finding.Priority.String(),
		)
	}

	for fp, entry := range rec.Entries {
		if !seen[fp] && !entry.Resolved {
			entry.Resolved = true
			rec.Entries[fp] = entry
		}
	}

	if err := d.store.Save(ctx, rec); err != nil {
		return core.ExecFailureWrap("saving delivery record", err)
	}
	return nil
}

func inlineBody(f core.Finding, fingerprint string) string {
	var sb strings.Builder
	sb.WriteString(inlineMarker(fingerprint))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "**[%s] %s**", f.Priority, f.Title)
	if f.Aspect != "" {
		fmt.Fprintf(&sb, " _(%s)_", f.Aspect)
	}
	sb.WriteString("\n\n")
	if f.Body != "" {
		sb.WriteString(strings.TrimRight(f.Body, "\n"))
		sb.WriteString("\n")
	}
	if len(f.Sources) > 0 {
		fmt.Fprintf(&sb, "\n<sub>evidence: %s</sub>\n", strings.Join(f.Sources, ", "))
	}
	return sb.String()
}
