// Package bundle builds the provenance-tagged context bundle that reviewers
// receive as their sole grounding material. It extracts the new-side content
// of a unified diff, attaches reference documents, and applies line budgets
// with deterministic truncation.
package bundle

import (
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// SrcLine is a single line on the new (HEAD) side of a diff hunk.
type SrcLine struct {
	Number int
	Text   string
}

// SrcBlock is one hunk's worth of new-side lines for a single file.
// Line numbers inside a block are contiguous: deletions do not exist on the
// new side and context/additions increment together.
type SrcBlock struct {
	Path  string
	Lines []SrcLine
}

// Warning records a non-fatal bundling event: a skipped file, a truncated
// excerpt, a dropped block. Every lossy decision emits exactly one warning;
// nothing is ever lost silently.
type Warning struct {
	Kind          string
	Path          string
	OriginalLines int
	RetainedLines int
}

func (w Warning) String() string {
	s := fmt.Sprintf("%s path=%s", w.Kind, sanitizeLine(w.Path))
	if w.OriginalLines > 0 || w.RetainedLines > 0 {
		s += fmt.Sprintf(" original_lines=%d retained_lines=%d", w.OriginalLines, w.RetainedLines)
	}
	return s
}

// ParseDiff extracts new-side blocks from a unified diff. Deleted and binary
// files are skipped with a warning; claims must be checkable against what
// currently exists, so old-side content is never shown.
func ParseDiff(raw string) ([]SrcBlock, []Warning, error) {
	files, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing diff: %w", err)
	}

	var blocks []SrcBlock
	var warnings []Warning

	for _, f := range files {
		path := f.NewName
		if path == "" {
			path = f.OldName
		}
		if path == "" {
			warnings = append(warnings, Warning{Kind: "diff_parse_skipped_unnamed"})
			continue
		}
		if f.IsDelete {
			warnings = append(warnings, Warning{Kind: "diff_parse_skipped_deleted", Path: path})
			continue
		}
		if f.IsBinary {
			warnings = append(warnings, Warning{Kind: "diff_parse_skipped_binary", Path: path})
			continue
		}
		if len(f.TextFragments) == 0 {
			// Rename-only and mode-only sections carry no hunks.
			warnings = append(warnings, Warning{Kind: "diff_parse_skipped_no_hunks", Path: path})
			continue
		}

		for _, frag := range f.TextFragments {
			block := SrcBlock{Path: path}
			lineNo := int(frag.NewPosition)
			for _, ln := range frag.Lines {
				switch ln.Op {
				case gitdiff.OpAdd, gitdiff.OpContext:
					block.Lines = append(block.Lines, SrcLine{
						Number: lineNo,
						Text:   strings.TrimSuffix(ln.Line, "\n"),
					})
					lineNo++
				case gitdiff.OpDelete:
					// Old-side only; not part of the bundle.
				}
			}
			if len(block.Lines) > 0 {
				blocks = append(blocks, block)
			}
		}
	}

	return blocks, warnings, nil
}

// sanitizeLine returns a single-line, log-safe representation. It prevents
// path or control-character injection into "# SRC:" headers and warnings.
func sanitizeLine(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 32 || r == 127:
			b.WriteString(fmt.Sprintf(`\x%02x`, r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
