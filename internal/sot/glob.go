// Package sot resolves and bundles reference documents (the project's
// "source of truth": PRDs, decisions, governance docs) against a glob
// allow-list. Availability is best-effort: an unreadable document is a
// warning, never a fatal error.
package sot

import (
	"path"
	"sort"
	"strings"
)

// NormalizeRepoPath normalizes a repo-relative path: forward slashes only,
// no leading "./" or "/", collapsed separators. Paths containing dot
// segments are rejected (empty result) to avoid allow-list bypasses.
func NormalizeRepoPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	for strings.HasPrefix(p, "/") {
		p = p[1:]
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}

	segs := strings.Split(p, "/")
	out := segs[:0]
	for _, s := range segs {
		if s == "" {
			continue
		}
		if s == "." || s == ".." {
			return ""
		}
		out = append(out, s)
	}
	return strings.Join(out, "/")
}

// MatchGlob matches a repo-relative path against a glob pattern.
// "*" and "?" do not cross directory boundaries; a full "**" segment matches
// zero or more path segments.
func MatchGlob(p, pattern string) bool {
	pn := NormalizeRepoPath(p)
	pat := NormalizeRepoPath(pattern)
	if pat == "" {
		return false
	}

	pathSegs := strings.Split(pn, "/")
	patSegs := strings.Split(pat, "/")
	if pn == "" {
		pathSegs = nil
	}
	return matchSegs(pathSegs, patSegs)
}

func matchSegs(pathSegs, patSegs []string) bool {
	if len(patSegs) == 0 {
		return len(pathSegs) == 0
	}
	if patSegs[0] == "**" {
		if matchSegs(pathSegs, patSegs[1:]) {
			return true
		}
		return len(pathSegs) > 0 && matchSegs(pathSegs[1:], patSegs)
	}
	if len(pathSegs) == 0 {
		return false
	}
	ok, err := path.Match(patSegs[0], pathSegs[0])
	if err != nil || !ok {
		return false
	}
	return matchSegs(pathSegs[1:], patSegs[1:])
}

// FilterPaths returns the sorted, unique paths matching any pattern.
func FilterPaths(paths, patterns []string) []string {
	pats := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if n := NormalizeRepoPath(p); n != "" {
			pats = append(pats, n)
		}
	}
	if len(pats) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	for _, raw := range paths {
		p := NormalizeRepoPath(raw)
		if p == "" {
			continue
		}
		for _, pat := range pats {
			if MatchGlob(p, pat) {
				seen[p] = struct{}{}
				break
			}
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
