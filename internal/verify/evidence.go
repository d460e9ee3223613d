package verify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tribunal-dev/tribunal/internal/core"
)

// Downgrade reasons recorded in run stats. A finding fails verification for
// exactly one reason, checked in this order.
const (
	ReasonMissingSources   = "missing_sources"
	ReasonInvalidSources   = "invalid_sources"
	ReasonUnresolvedSource = "unresolved_source"
	ReasonPathMismatch     = "path_mismatch"
)

// SourceRef is a parsed citation of the form "path#Lstart-Lend". The line
// range is optional; a bare path cites the whole excerpt.
type SourceRef struct {
	Path  string
	Start int
	End   int
	// HasRange reports whether the citation carried an explicit line range.
	HasRange bool
}

var sourceRefRe = regexp.MustCompile(`^(.+?)#L(\d+)(?:-L(\d+))?$`)

// ParseSourceRef parses a source citation. Accepted forms are "path",
// "path#L10" and "path#L10-L20"; anything else is invalid.
func ParseSourceRef(s string) (SourceRef, bool) {
	if s == "" {
		return SourceRef{}, false
	}
	if m := sourceRefRe.FindStringSubmatch(s); m != nil {
		start, err := strconv.Atoi(m[2])
		if err != nil || start < 1 {
			return SourceRef{}, false
		}
		end := start
		if m[3] != "" {
			end, err = strconv.Atoi(m[3])
			if err != nil || end < start {
				return SourceRef{}, false
			}
		}
		return SourceRef{Path: m[1], Start: start, End: end, HasRange: true}, true
	}
	if strings.Contains(s, "#") {
		// A "#" marks a malformed range, not a path character.
		return SourceRef{}, false
	}
	return SourceRef{Path: s}, true
}

// Resolve checks a parsed citation against the provenance index. A ranged
// citation must be fully contained in a single span of its path; a bare path
// citation resolves if the path appears in the bundle at all.
func (r SourceRef) Resolve(idx *core.ProvenanceIndex) bool {
	if !r.HasRange {
		return idx.HasPath(r.Path)
	}
	return idx.Contains(r.Path, r.Start, r.End)
}

// VerifyFinding checks a finding's citations against the provenance of what
// the reviewer was actually shown. A finding is verified only when at least
// one citation resolves and at least one resolved citation names the same
// path as the finding's code location. Otherwise the failure reason is
// returned.
func VerifyFinding(f core.Finding, idx *core.ProvenanceIndex) (bool, string) {
	if len(f.Sources) == 0 {
		return false, ReasonMissingSources
	}

	anyParsed := false
	anyResolved := false
	for _, raw := range f.Sources {
		ref, ok := ParseSourceRef(raw)
		if !ok {
			continue
		}
		anyParsed = true
		if !ref.Resolve(idx) {
			continue
		}
		anyResolved = true
		if ref.Path == f.CodeLocation.Path {
			return true, ""
		}
	}

	switch {
	case !anyParsed:
		return false, ReasonInvalidSources
	case !anyResolved:
		return false, ReasonUnresolvedSource
	default:
		return false, ReasonPathMismatch
	}
}
