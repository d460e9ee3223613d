// Package aspects runs the fixed set of review dimensions in parallel
// against one immutable context bundle. Each aspect is fully isolated: a
// timeout or malformed response degrades that aspect to a structured
// failure without touching its siblings.
package aspects

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tribunal-dev/tribunal/internal/core"
)

// DefaultAspects is the standard review set, in declaration order. The
// order is load-bearing: pooled findings and fingerprint-relevant output
// follow it.
var DefaultAspects = []string{
	"correctness",
	"readability",
	"testing",
	"test-audit",
	"security",
	"performance",
	"refactoring",
}

var aspectRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// NormalizeAspect canonicalizes an aspect id: lowercase, hyphens for
// underscores, validated against the id grammar.
func NormalizeAspect(value string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(value))
	a = strings.ReplaceAll(a, "_", "-")
	if !aspectRe.MatchString(a) {
		return "", core.ExecFailure(fmt.Sprintf("invalid aspect %q", value))
	}
	return a, nil
}

// ValidateSelection normalizes a requested aspect list and rejects
// duplicates and ids outside the known set.
func ValidateSelection(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return nil, core.ExecFailure("no aspects to run")
	}

	known := make(map[string]bool, len(DefaultAspects))
	for _, a := range DefaultAspects {
		known[a] = true
	}

	seen := make(map[string]bool, len(requested))
	out := make([]string, 0, len(requested))
	for _, raw := range requested {
		a, err := NormalizeAspect(raw)
		if err != nil {
			return nil, err
		}
		if seen[a] {
			return nil, core.ExecFailure(fmt.Sprintf("duplicate aspect %q", a))
		}
		if !known[a] {
			return nil, core.ExecFailure(fmt.Sprintf("unknown aspect %q", a))
		}
		seen[a] = true
		out = append(out, a)
	}
	return out, nil
}
