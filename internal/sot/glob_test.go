package sot

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRepoPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"docs/prd/spec.md", "docs/prd/spec.md"},
		{"./docs/spec.md", "docs/spec.md"},
		{"/docs/spec.md", "docs/spec.md"},
		{"docs//spec.md", "docs/spec.md"},
		{"docs\\spec.md", "docs/spec.md"},
		{"  docs/spec.md  ", "docs/spec.md"},
		{"docs/../secrets.md", ""},
		{"./.", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeRepoPath(tt.in), "input %q", tt.in)
	}
}

func TestMatchGlob(t *testing.T) {
	tests := []struct {
		path    string
		pattern string
		want    bool
	}{
		{"README.md", "README.md", true},
		{"docs/a.md", "docs/*.md", true},
		{"docs/sub/a.md", "docs/*.md", false},
		{"docs/sub/a.md", "docs/**/*.md", true},
		{"docs/a.md", "docs/**/*.md", true},
		{"a/b/c/d.md", "**/*.md", true},
		{"d.md", "**/*.md", true},
		{"d.txt", "**/*.md", false},
		{"docs/a.md", "", false},
		{"docs/../a.md", "docs/*.md", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchGlob(tt.path, tt.pattern),
			"path %q pattern %q", tt.path, tt.pattern)
	}
}

func TestFilterPaths(t *testing.T) {
	paths := []string{
		"README.md",
		"docs/prd/feature.md",
		"docs/prd/feature.md", // duplicate collapses
		"internal/main.go",
		"docs/decisions.md",
	}
	got := FilterPaths(paths, DefaultAllowlist())
	assert.Equal(t, []string{"README.md", "docs/decisions.md", "docs/prd/feature.md"}, got)

	assert.Nil(t, FilterPaths(paths, nil))
	assert.Nil(t, FilterPaths(paths, []string{"../escape/**"}))
}

type fakeSource map[string]string

func (f fakeSource) FileContent(_ context.Context, path string) (string, error) {
	content, ok := f[path]
	if !ok {
		return "", errors.New("unavailable")
	}
	return content, nil
}

func TestCollect(t *testing.T) {
	src := fakeSource{
		"README.md":         "# Project",
		"docs/decisions.md": "decided",
	}
	candidates := []string{"README.md", "docs/decisions.md", "docs/glossary.md", "main.go"}

	docs, warnings := Collect(context.Background(), src, candidates, DefaultAllowlist(), slog.Default())

	require.Len(t, docs, 2)
	assert.Equal(t, "README.md", docs[0].Path)
	assert.Equal(t, "# Project", docs[0].Content)
	assert.Equal(t, "docs/decisions.md", docs[1].Path)

	// glossary.md matched the allow-list but could not be fetched.
	require.Len(t, warnings, 1)
	assert.Equal(t, "reference_fetch_failed", warnings[0].Kind)
	assert.Equal(t, "docs/glossary.md", warnings[0].Path)
}
