package report

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/tribunal-dev/tribunal/internal/core"
)

// SummaryMarker identifies the managed summary comment on a pull request.
// Delivery finds and replaces the comment carrying this marker instead of
// posting a new one. The version suffix lets a future format change coexist
// with old comments.
const SummaryMarker = "<!-- tribunal:summary:v1 -->"

func statusEmoji(s core.Status) string {
	switch s {
	case core.StatusApproved:
		return "✅"
	case core.StatusApprovedWithNits:
		return "🟡"
	case core.StatusQuestion:
		return "❓"
	case core.StatusBlocked:
		return "⛔"
	default:
		return "•"
	}
}

// RenderMarkdown renders the full report as standalone markdown, suitable
// for terminal display (via glamour) or artifact storage.
func RenderMarkdown(rep *core.ReviewReport) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Review: %s %s\n\n", statusEmoji(rep.Status), rep.Status)
	if rep.HeadSHA != "" {
		fmt.Fprintf(&sb, "`%s` at `%s`\n\n", rep.ScopeID, shortSHA(rep.HeadSHA))
	}

	writeAspectTable(&sb, rep)
	writeFindings(&sb, rep)
	writeQuestions(&sb, rep)
	writeStatsFooter(&sb, rep)

	return sb.String()
}

// RenderSummaryComment renders the pull-request summary comment body. The
// marker goes first so replacement lookup works on a body prefix scan.
func RenderSummaryComment(rep *core.ReviewReport) string {
	return SummaryMarker + "\n" + RenderMarkdown(rep)
}

func writeAspectTable(sb *strings.Builder, rep *core.ReviewReport) {
	if len(rep.AspectStatuses) == 0 {
		return
	}
	aspects := make([]string, 0, len(rep.AspectStatuses))
	for a := range rep.AspectStatuses {
		aspects = append(aspects, a)
	}
	sort.Strings(aspects)

	sb.WriteString("| Aspect | Status |\n|---|---|\n")
	for _, a := range aspects {
		s := rep.AspectStatuses[a]
		note := ""
		if slices.Contains(rep.Stats.TimedOut, a) {
			note = " (timed out)"
		} else if slices.Contains(rep.Stats.SchemaFailed, a) {
			note = " (reviewer failed)"
		}
		fmt.Fprintf(sb, "| %s | %s %s%s |\n", a, statusEmoji(s), s, note)
	}
	sb.WriteString("\n")
}

func writeFindings(sb *strings.Builder, rep *core.ReviewReport) {
	var blocking, advisory []core.Finding
	for _, f := range rep.Findings {
		if f.Priority.Blocking() {
			blocking = append(blocking, f)
		} else {
			advisory = append(advisory, f)
		}
	}

	if len(blocking) > 0 {
		sb.WriteString("### Blocking findings\n\n")
		for _, f := range blocking {
			writeFinding(sb, f)
		}
	}

	if len(advisory) > 0 {
		fmt.Fprintf(sb, "<details>\n<summary>Advisory findings (%d)</summary>\n\n", len(advisory))
		for _, f := range advisory {
			writeFinding(sb, f)
		}
		sb.WriteString("</details>\n\n")
	}
}

func writeFinding(sb *strings.Builder, f core.Finding) {
	loc := fmt.Sprintf("%s:%d", f.CodeLocation.Path, f.CodeLocation.LineRange.Start)
	if f.CodeLocation.LineRange.End > f.CodeLocation.LineRange.Start {
		loc = fmt.Sprintf("%s-%d", loc, f.CodeLocation.LineRange.End)
	}
	fmt.Fprintf(sb, "- **[%s]** `%s` — %s", f.Priority, loc, f.Title)
	if f.Aspect != "" {
		fmt.Fprintf(sb, " _(%s)_", f.Aspect)
	}
	if f.Downgraded() {
		fmt.Fprintf(sb, "\n  > downgraded from %s: evidence citations did not resolve against the reviewed context", *f.OriginalPriority)
	}
	sb.WriteString("\n")
	if f.Body != "" {
		for _, line := range strings.Split(strings.TrimRight(f.Body, "\n"), "\n") {
			fmt.Fprintf(sb, "  %s\n", line)
		}
	}
	sb.WriteString("\n")
}

func writeQuestions(sb *strings.Builder, rep *core.ReviewReport) {
	if len(rep.Questions) == 0 {
		return
	}
	sb.WriteString("### Questions\n\n")
	for _, q := range rep.Questions {
		fmt.Fprintf(sb, "- %s\n", q)
	}
	sb.WriteString("\n")
}

func writeStatsFooter(sb *strings.Builder, rep *core.ReviewReport) {
	t := rep.Stats.Totals
	fmt.Fprintf(sb, "<sub>%d findings · %d verified · %d downgraded",
		t.TotalFindings, t.Verified, t.Downgraded)
	if rep.Stats.BundleWarning > 0 {
		fmt.Fprintf(sb, " · %d bundle warnings", rep.Stats.BundleWarning)
	}
	sb.WriteString("</sub>\n")
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
