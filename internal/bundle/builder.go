package bundle

import (
	"fmt"
	"strings"

	"github.com/tribunal-dev/tribunal/internal/core"
)

// Limits are the line-count ceilings applied while assembling a bundle.
// All limits count the "# SRC:" header line as well as content lines.
type Limits struct {
	MaxTotalLines     int
	MaxFileLines      int
	MaxReferenceLines int
}

// DefaultLimits returns the standard budgets.
func DefaultLimits() Limits {
	return Limits{
		MaxTotalLines:     1500,
		MaxFileLines:      400,
		MaxReferenceLines: 600,
	}
}

// ReferenceDoc is one resolved reference document, in recency order: callers
// pass the most recently referenced documents first, and truncation under the
// reference budget eats from the tail.
type ReferenceDoc struct {
	Path    string
	Content string
}

// Excerpt is one labeled block of the bundle with its provenance span.
type Excerpt struct {
	Category core.SpanCategory
	Path     string
	Lines    []SrcLine
	Span     core.ProvenanceSpan
}

// Bundle is the assembled, size-bounded context given to every reviewer.
type Bundle struct {
	Excerpts []Excerpt
	Warnings []Warning
}

// Spans returns the provenance spans of all excerpts.
func (b *Bundle) Spans() []core.ProvenanceSpan {
	out := make([]core.ProvenanceSpan, 0, len(b.Excerpts))
	for _, e := range b.Excerpts {
		out = append(out, e.Span)
	}
	return out
}

// Index builds the provenance index over the bundle's spans.
func (b *Bundle) Index() *core.ProvenanceIndex {
	return core.NewProvenanceIndex(b.Spans())
}

// Text renders the bundle in its wire form: a "# SRC: path" header per
// excerpt followed by "L<n>: text" lines. Reviewer claims must cite these
// headers verbatim, so the format is part of the contract.
func (b *Bundle) Text() string {
	var sb strings.Builder
	for _, e := range b.Excerpts {
		fmt.Fprintf(&sb, "# SRC: %s\n", sanitizeLine(e.Path))
		for _, ln := range e.Lines {
			fmt.Fprintf(&sb, "L%d: %s\n", ln.Number, sanitizeLine(ln.Text))
		}
	}
	return sb.String()
}

// TotalLines counts header and content lines across all excerpts.
func (b *Bundle) TotalLines() int {
	n := 0
	for _, e := range b.Excerpts {
		n += 1 + len(e.Lines)
	}
	return n
}

// Build assembles a bundle from diff blocks and reference documents under the
// given limits. Budgets apply in order: per-file cap, reference subtotal cap,
// then the global cap (which trims reference excerpts before diff excerpts).
// Every truncation or drop produces one warning carrying the original and
// retained sizes.
func Build(scopeID string, blocks []SrcBlock, refs []ReferenceDoc, limits Limits) *Bundle {
	b := &Bundle{}

	diffExcerpts := buildDiffExcerpts(scopeID, blocks, limits.MaxFileLines, &b.Warnings)
	refExcerpts := buildReferenceExcerpts(scopeID, refs, limits.MaxReferenceLines, &b.Warnings)

	b.Excerpts = append(b.Excerpts, diffExcerpts...)
	b.Excerpts = append(b.Excerpts, refExcerpts...)

	applyGlobalCap(b, limits.MaxTotalLines)
	return b
}

func buildDiffExcerpts(scopeID string, blocks []SrcBlock, maxFileLines int, warnings *[]Warning) []Excerpt {
	// Group block indices by path, preserving input order.
	byPath := make(map[string][]int)
	var order []string
	for i, blk := range blocks {
		if blk.Path == "" || len(blk.Lines) == 0 {
			*warnings = append(*warnings, Warning{Kind: "context_bundle_block_skipped_empty", Path: blk.Path})
			continue
		}
		if _, ok := byPath[blk.Path]; !ok {
			order = append(order, blk.Path)
		}
		byPath[blk.Path] = append(byPath[blk.Path], i)
	}

	var out []Excerpt
	for _, path := range order {
		kept := make([][]SrcLine, 0, len(byPath[path]))
		for _, i := range byPath[path] {
			kept = append(kept, blocks[i].Lines)
		}

		// Trim the longest hunks first until the file fits its budget. Hunks
		// are already centered on changed lines, so trimming tail lines of
		// the largest excerpt keeps the lines nearest to the change.
		for fileCost(kept) > maxFileLines {
			li := largestIndex(kept)
			over := fileCost(kept) - maxFileLines
			keep := len(kept[li]) - over
			original := len(kept[li])
			if keep < 1 {
				*warnings = append(*warnings, Warning{
					Kind: "context_bundle_file_truncated", Path: path,
					OriginalLines: original, RetainedLines: 0,
				})
				kept = append(kept[:li], kept[li+1:]...)
				continue
			}
			kept[li] = kept[li][:keep]
			*warnings = append(*warnings, Warning{
				Kind: "context_bundle_file_truncated", Path: path,
				OriginalLines: original, RetainedLines: keep,
			})
		}

		for _, lines := range kept {
			out = append(out, newExcerpt(scopeID, core.SpanDiff, path, lines))
		}
	}
	return out
}

func buildReferenceExcerpts(scopeID string, refs []ReferenceDoc, maxRefLines int, warnings *[]Warning) []Excerpt {
	var out []Excerpt
	remaining := maxRefLines
	for _, doc := range refs {
		if doc.Path == "" {
			continue
		}
		lines := referenceLines(doc.Content)
		cost := 1 + len(lines)
		switch {
		case cost <= remaining:
			remaining -= cost
		case remaining >= 2:
			keep := remaining - 1
			*warnings = append(*warnings, Warning{
				Kind: "context_bundle_reference_truncated", Path: doc.Path,
				OriginalLines: len(lines), RetainedLines: keep,
			})
			lines = lines[:keep]
			remaining = 0
		default:
			*warnings = append(*warnings, Warning{
				Kind: "context_bundle_reference_truncated", Path: doc.Path,
				OriginalLines: len(lines), RetainedLines: 0,
			})
			continue
		}
		out = append(out, newExcerpt(scopeID, core.SpanReference, doc.Path, lines))
	}
	return out
}

// applyGlobalCap trims excerpts from the tail until the bundle fits. The
// assembly order places reference excerpts after diff excerpts, so references
// are sacrificed first.
func applyGlobalCap(b *Bundle, maxTotal int) {
	for b.TotalLines() > maxTotal && len(b.Excerpts) > 0 {
		last := len(b.Excerpts) - 1
		e := &b.Excerpts[last]
		over := b.TotalLines() - maxTotal
		keep := len(e.Lines) - over
		original := len(e.Lines)
		if keep < 1 {
			b.Warnings = append(b.Warnings, Warning{
				Kind: "context_bundle_total_truncated", Path: e.Path,
				OriginalLines: original, RetainedLines: 0,
			})
			b.Excerpts = b.Excerpts[:last]
			continue
		}
		e.Lines = e.Lines[:keep]
		e.Span.LineEnd = e.Lines[keep-1].Number
		b.Warnings = append(b.Warnings, Warning{
			Kind: "context_bundle_total_truncated", Path: e.Path,
			OriginalLines: original, RetainedLines: keep,
		})
	}
}

func newExcerpt(scopeID string, cat core.SpanCategory, path string, lines []SrcLine) Excerpt {
	span := core.ProvenanceSpan{
		SourceID: scopeID,
		Path:     path,
		Category: cat,
	}
	if len(lines) > 0 {
		span.LineStart = lines[0].Number
		span.LineEnd = lines[len(lines)-1].Number
	}
	return Excerpt{Category: cat, Path: path, Lines: lines, Span: span}
}

func referenceLines(content string) []SrcLine {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	raw := strings.Split(strings.TrimRight(normalized, "\n"), "\n")
	out := make([]SrcLine, len(raw))
	for i, text := range raw {
		out[i] = SrcLine{Number: i + 1, Text: text}
	}
	return out
}

func fileCost(blocks [][]SrcLine) int {
	n := 0
	for _, b := range blocks {
		n += 1 + len(b)
	}
	return n
}

func largestIndex(blocks [][]SrcLine) int {
	best := 0
	for i := range blocks {
		if len(blocks[i]) > len(blocks[best]) {
			best = i
		}
	}
	return best
}
