package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.in), tt.in)
	}
}

func TestLoadRepoConfig(t *testing.T) {
	dir := t.TempDir()
	content := `
aspects:
  - correctness
  - security
sot_paths:
  - "docs/**/*.md"
custom_instructions:
  - "Flag any use of unsafe."
explore: true
explore_aspects:
  - security
explore_paths:
  - "internal/**"
  - "pkg/**"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tribunal.yml"), []byte(content), 0o644))

	cfg, err := LoadRepoConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"correctness", "security"}, cfg.Aspects)
	assert.Equal(t, []string{"docs/**/*.md"}, cfg.SoTPaths)
	assert.True(t, cfg.Explore)
	assert.Equal(t, []string{"security"}, cfg.ExploreAspects)
	assert.Equal(t, []string{"internal/**", "pkg/**"}, cfg.ExplorePaths)
}

func TestLoadRepoConfig_Missing(t *testing.T) {
	cfg, err := LoadRepoConfig(t.TempDir())
	require.ErrorIs(t, err, ErrConfigNotFound)
	require.NotNil(t, cfg, "defaults are usable even when the file is absent")
	assert.Empty(t, cfg.Aspects)
	assert.False(t, cfg.Explore)
}

func TestLoadRepoConfig_Malformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tribunal.yml"), []byte("aspects: {not: [valid"), 0o644))

	_, err := LoadRepoConfig(dir)
	require.ErrorIs(t, err, ErrConfigParsing)
}
