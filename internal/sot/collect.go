package sot

import (
	"context"
	"log/slog"

	"github.com/tribunal-dev/tribunal/internal/bundle"
)

// ContentSource supplies raw reference-document text on demand during
// bundling. The GitHub contents API and a local worktree both satisfy it.
type ContentSource interface {
	FileContent(ctx context.Context, path string) (string, error)
}

// Collect resolves the allow-list against the candidate path set and fetches
// the matching documents. A path that cannot be fetched is recorded as a
// warning and skipped; reference availability is best-effort.
func Collect(ctx context.Context, src ContentSource, candidates, allowlist []string, logger *slog.Logger) ([]bundle.ReferenceDoc, []bundle.Warning) {
	matched := FilterPaths(candidates, allowlist)

	var docs []bundle.ReferenceDoc
	var warnings []bundle.Warning

	for _, p := range matched {
		content, err := src.FileContent(ctx, p)
		if err != nil {
			logger.Warn("reference document unavailable", "path", p, "error", err)
			warnings = append(warnings, bundle.Warning{Kind: "reference_fetch_failed", Path: p})
			continue
		}
		docs = append(docs, bundle.ReferenceDoc{Path: p, Content: content})
	}
	return docs, warnings
}
