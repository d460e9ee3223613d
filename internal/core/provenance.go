package core

import (
	"fmt"
	"sort"
)

// SpanCategory tags where a provenance span came from.
type SpanCategory string

const (
	SpanDiff      SpanCategory = "diff"
	SpanReference SpanCategory = "reference"
	SpanExplore   SpanCategory = "explore"
)

// ProvenanceSpan addresses a contiguous range of text that was shown to a
// reviewer, or of a file read during exploration. Immutable once created.
type ProvenanceSpan struct {
	SourceID  string       `json:"source_id"`
	Path      string       `json:"path"`
	LineStart int          `json:"line_start"`
	LineEnd   int          `json:"line_end"`
	Category  SpanCategory `json:"category"`
}

// Ref renders the span in the reference form reviewers are asked to cite.
func (s ProvenanceSpan) Ref() string {
	return fmt.Sprintf("%s#L%d-L%d", s.Path, s.LineStart, s.LineEnd)
}

// ProvenanceIndex is the run's provenance map: the sole ground truth against
// which reviewer claims are checked. It is append-only; exploration extends
// it, nothing ever removes from it.
type ProvenanceIndex struct {
	byPath map[string][]ProvenanceSpan
}

// NewProvenanceIndex builds an index over the given spans.
func NewProvenanceIndex(spans []ProvenanceSpan) *ProvenanceIndex {
	idx := &ProvenanceIndex{byPath: make(map[string][]ProvenanceSpan)}
	idx.Add(spans...)
	return idx
}

// Add appends spans to the index.
func (idx *ProvenanceIndex) Add(spans ...ProvenanceSpan) {
	for _, s := range spans {
		if s.Path == "" || s.LineStart < 1 || s.LineEnd < s.LineStart {
			continue
		}
		idx.byPath[s.Path] = append(idx.byPath[s.Path], s)
	}
}

// HasPath reports whether any span covers the path.
func (idx *ProvenanceIndex) HasPath(path string) bool {
	return len(idx.byPath[path]) > 0
}

// Contains reports whether some single span of the path fully contains the
// inclusive line range.
func (idx *ProvenanceIndex) Contains(path string, start, end int) bool {
	for _, s := range idx.byPath[path] {
		if s.LineStart <= start && end <= s.LineEnd {
			return true
		}
	}
	return false
}

// Paths returns the indexed paths in sorted order.
func (idx *ProvenanceIndex) Paths() []string {
	out := make([]string, 0, len(idx.byPath))
	for p := range idx.byPath {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// SpansFor returns the spans recorded for a path.
func (idx *ProvenanceIndex) SpansFor(path string) []ProvenanceSpan {
	return idx.byPath[path]
}
