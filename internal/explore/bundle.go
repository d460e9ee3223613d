package explore

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tribunal-dev/tribunal/internal/bundle"
	"github.com/tribunal-dev/tribunal/internal/core"
)

// ToolBundle is the redacted provenance extension produced by a passed
// exploration: (path, line range) spans only, no text. Findings may cite
// these spans exactly like ordinary bundle spans.
type ToolBundle struct {
	Spans    []core.ProvenanceSpan
	Warnings []bundle.Warning
}

// RedactedBundle converts the reviewer-visible tool bundle text into
// exploration provenance. A Blocked audit yields an empty bundle: nothing
// obtained through a policy violation may serve as evidence.
func RedactedBundle(audit *AuditResult, bundleText, sourceID string) *ToolBundle {
	if audit != nil && audit.Blocked() {
		return &ToolBundle{}
	}
	tb := &ToolBundle{}
	for path, lines := range parseBundleIndex(bundleText) {
		norm, err := normalizeRelPath(path)
		if err != nil || checkForbiddenPath(norm) != nil {
			tb.Warnings = append(tb.Warnings, bundle.Warning{Kind: "tool_bundle_src_skipped", Path: path})
			continue
		}
		tb.Spans = append(tb.Spans, runsToSpans(norm, sourceID, lines)...)
	}
	return tb
}

// RenderToolBundle materializes the reviewer-visible tool bundle from a
// passed audit: one "# SRC:" block per successfully read file, with every
// line numbered. Reads that fail (file gone from the worktree, unreadable)
// are silently absent; they granted no evidence.
func RenderToolBundle(events []ToolEvent, read func(path string) (string, error)) string {
	var sb strings.Builder
	seen := make(map[string]bool)
	for _, ev := range events {
		if ev.Kind != EventRead || ev.Path == "" || seen[ev.Path] {
			continue
		}
		seen[ev.Path] = true
		content, err := read(ev.Path)
		if err != nil {
			continue
		}
		sb.WriteString("# SRC: " + ev.Path + "\n")
		normalized := strings.ReplaceAll(content, "\r\n", "\n")
		for i, text := range strings.Split(strings.TrimRight(normalized, "\n"), "\n") {
			sb.WriteString("L" + strconv.Itoa(i+1) + ": " + text + "\n")
		}
	}
	return sb.String()
}

var srcHeaderRe = regexp.MustCompile(`^# SRC: (.+)$`)
var srcLineRe = regexp.MustCompile(`^L(\d+):`)

// parseBundleIndex scans "# SRC: path" blocks with "L<n>:" lines and
// collects the line numbers seen per path. Unrecognized lines are ignored.
func parseBundleIndex(text string) map[string][]int {
	index := make(map[string][]int)
	current := ""
	for _, raw := range strings.Split(text, "\n") {
		if m := srcHeaderRe.FindStringSubmatch(raw); m != nil {
			current = strings.TrimSpace(m[1])
			continue
		}
		if current == "" {
			continue
		}
		if m := srcLineRe.FindStringSubmatch(raw); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 {
				continue
			}
			index[current] = append(index[current], n)
		}
	}
	return index
}

// runsToSpans collapses a line-number set into contiguous spans.
func runsToSpans(path, sourceID string, lines []int) []core.ProvenanceSpan {
	if len(lines) == 0 {
		return nil
	}
	uniq := append([]int(nil), lines...)
	sort.Ints(uniq)

	var spans []core.ProvenanceSpan
	start, end := uniq[0], uniq[0]
	flush := func() {
		spans = append(spans, core.ProvenanceSpan{
			SourceID:  sourceID,
			Path:      path,
			LineStart: start,
			LineEnd:   end,
			Category:  core.SpanExplore,
		})
	}
	for _, n := range uniq[1:] {
		switch {
		case n == end || n == end+1:
			end = n
		default:
			flush()
			start, end = n, n
		}
	}
	flush()
	return spans
}
