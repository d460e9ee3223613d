package gitutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Worktree is a checked-out repository together with the set of paths tracked
// at its HEAD commit. The tracked set is the authority for what a reviewer may
// read or cite: untracked files, ignored files, and anything outside the tree
// do not exist as far as the pipeline is concerned.
type Worktree struct {
	Root    string
	HeadSHA string

	tracked map[string]struct{}
}

// OpenWorktree loads the tracked-file index from the HEAD tree of the
// repository at root.
func OpenWorktree(root string) (*Worktree, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", root, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to load HEAD commit %s: %w", head.Hash(), err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load HEAD tree: %w", err)
	}

	tracked := make(map[string]struct{})
	err = tree.Files().ForEach(func(f *object.File) error {
		tracked[f.Name] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk HEAD tree: %w", err)
	}

	return &Worktree{
		Root:    root,
		HeadSHA: head.Hash().String(),
		tracked: tracked,
	}, nil
}

// IsTracked reports whether the repo-relative path exists in the HEAD tree.
func (w *Worktree) IsTracked(path string) bool {
	_, ok := w.tracked[path]
	return ok
}

// Paths returns all tracked repo-relative paths in sorted order.
func (w *Worktree) Paths() []string {
	out := make([]string, 0, len(w.tracked))
	for p := range w.tracked {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// FileContent reads a tracked file from the worktree. Untracked paths are
// refused rather than read, so the content surface matches the tracked index.
func (w *Worktree) FileContent(_ context.Context, path string) (string, error) {
	if !w.IsTracked(path) {
		return "", fmt.Errorf("%s is not tracked at HEAD", path)
	}
	data, err := os.ReadFile(filepath.Join(w.Root, filepath.FromSlash(path)))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}
