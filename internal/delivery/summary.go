package delivery

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tribunal-dev/tribunal/internal/core"
	"github.com/tribunal-dev/tribunal/internal/report"
)

// IssueComment is the slice of a pull-request comment the summary publisher
// needs.
type IssueComment struct {
	ID   int64
	Body string
}

// SummaryPoster manages top-level pull-request comments.
type SummaryPoster interface {
	ListIssueComments(ctx context.Context, prNumber int) ([]IssueComment, error)
	CreateIssueComment(ctx context.Context, prNumber int, body string) (int64, error)
	EditIssueComment(ctx context.Context, commentID int64, body string) error
	DeleteIssueComment(ctx context.Context, commentID int64) error
}

// PublishSummary upserts the managed summary comment: the marker-bearing
// comment is edited in place, or created if absent. If earlier runs raced
// and left duplicates, the newest survives and the rest are deleted, so the
// pull request converges back to exactly one summary.
func PublishSummary(ctx context.Context, poster SummaryPoster, prNumber int, rep *core.ReviewReport, logger *slog.Logger) error {
	body := report.RenderSummaryComment(rep)

	comments, err := poster.ListIssueComments(ctx, prNumber)
	if err != nil {
		return core.ExecFailureWrap("listing pull request comments", err)
	}

	var managed []IssueComment
	for _, c := range comments {
		if strings.Contains(c.Body, report.SummaryMarker) {
			managed = append(managed, c)
		}
	}

	if len(managed) == 0 {
		id, err := poster.CreateIssueComment(ctx, prNumber, body)
		if err != nil {
			return core.ExecFailureWrap("creating summary comment", err)
		}
		logger.Info("summary comment created", "comment_id", id)
		return nil
	}

	keep := managed[0]
	for _, c := range managed[1:] {
		if c.ID > keep.ID {
			keep = c
		}
	}
	for _, c := range managed {
		if c.ID == keep.ID {
			continue
		}
		if err := poster.DeleteIssueComment(ctx, c.ID); err != nil {
			logger.Warn("deleting duplicate summary comment", "comment_id", c.ID, "error", err)
		}
	}

	if err := poster.EditIssueComment(ctx, keep.ID, body); err != nil {
		return core.ExecFailureWrap("updating summary comment", err)
	}
	logger.Info("summary comment updated", "comment_id", keep.ID)
	return nil
}
