// Package delivery maps findings onto pull-request surfaces and posts them
// idempotently: at most one inline comment per finding identity across runs,
// and exactly one managed summary comment per pull request.
package delivery

import (
	"bytes"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// PositionMap resolves (path, new-file line) pairs to review-comment diff
// positions: the line-offset scheme counting from each file's first hunk
// header, where the first header itself is position zero and every later
// header consumes a position.
type PositionMap struct {
	byPath map[string]map[int]int
}

// BuildPositionMap computes the position map for a raw unified diff.
func BuildPositionMap(rawDiff []byte) (*PositionMap, error) {
	files, _, err := gitdiff.Parse(bytes.NewReader(rawDiff))
	if err != nil {
		return nil, err
	}
	return buildPositionMap(files), nil
}

func buildPositionMap(files []*gitdiff.File) *PositionMap {
	pm := &PositionMap{byPath: make(map[string]map[int]int)}
	for _, f := range files {
		if f.IsBinary || len(f.TextFragments) == 0 {
			continue
		}
		path := f.NewName
		if path == "" {
			path = f.OldName
		}
		lines := make(map[int]int)

		pos := 0
		for i, frag := range f.TextFragments {
			if i > 0 {
				pos++ // later hunk headers consume a position
			}
			newLine := int(frag.NewPosition)
			for _, ln := range frag.Lines {
				pos++
				switch ln.Op {
				case gitdiff.OpAdd, gitdiff.OpContext:
					lines[newLine] = pos
					newLine++
				}
			}
		}
		pm.byPath[path] = lines
	}
	return pm
}

// Position returns the diff position for a new-file line, if the line is
// visible in the diff.
func (pm *PositionMap) Position(path string, line int) (int, bool) {
	pos, ok := pm.byPath[path][line]
	return pos, ok
}

// AnchorPosition picks the comment anchor for an inclusive line range: the
// last line of the range that is visible in the diff. Comments read best
// attached to the end of the region they discuss.
func (pm *PositionMap) AnchorPosition(path string, start, end int) (int, bool) {
	for line := end; line >= start; line-- {
		if pos, ok := pm.Position(path, line); ok {
			return pos, true
		}
	}
	return 0, false
}
