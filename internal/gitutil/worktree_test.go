package gitutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	for path, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
		_, err = wt.Add(path)
		require.NoError(t, err)
	}

	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func TestOpenWorktree(t *testing.T) {
	dir := initTestRepo(t, map[string]string{
		"main.go":          "package main\n",
		"docs/adr/001.md":  "# decision\n",
		"internal/util.go": "package internal\n",
	})

	// untracked file must not appear in the index
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("x"), 0o644))

	w, err := OpenWorktree(dir)
	require.NoError(t, err)
	require.NotEmpty(t, w.HeadSHA)

	assert.True(t, w.IsTracked("main.go"))
	assert.True(t, w.IsTracked("docs/adr/001.md"))
	assert.False(t, w.IsTracked("scratch.txt"))
	assert.False(t, w.IsTracked("missing.go"))

	assert.Equal(t, []string{"docs/adr/001.md", "internal/util.go", "main.go"}, w.Paths())
}

func TestWorktreeFileContent(t *testing.T) {
	dir := initTestRepo(t, map[string]string{"a.txt": "hello\n"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loose.txt"), []byte("x"), 0o644))

	w, err := OpenWorktree(dir)
	require.NoError(t, err)

	content, err := w.FileContent(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", content)

	_, err = w.FileContent(context.Background(), "loose.txt")
	assert.Error(t, err, "untracked files are refused")
}
