package github

import (
	"context"

	"github.com/tribunal-dev/tribunal/internal/delivery"
)

// PRAdapter binds a Client to one repository and pull request, exposing the
// narrow posting and content interfaces the delivery and bundling layers
// consume.
type PRAdapter struct {
	client Client
	owner  string
	repo   string
	ref    string
}

// NewPRAdapter returns an adapter scoped to owner/repo at the given ref.
func NewPRAdapter(client Client, owner, repo, ref string) *PRAdapter {
	return &PRAdapter{client: client, owner: owner, repo: repo, ref: ref}
}

// CreateReviewComment posts an inline review comment on the pull request.
func (a *PRAdapter) CreateReviewComment(ctx context.Context, prNumber int, commitSHA, path string, position int, body string) (int64, error) {
	return a.client.CreateReviewComment(ctx, a.owner, a.repo, prNumber, commitSHA, path, position, body)
}

// ListIssueComments lists the top-level comments on the pull request.
func (a *PRAdapter) ListIssueComments(ctx context.Context, prNumber int) ([]delivery.IssueComment, error) {
	comments, err := a.client.ListIssueComments(ctx, a.owner, a.repo, prNumber)
	if err != nil {
		return nil, err
	}
	out := make([]delivery.IssueComment, len(comments))
	for i, c := range comments {
		out[i] = delivery.IssueComment{ID: c.ID, Body: c.Body}
	}
	return out, nil
}

// CreateIssueComment posts a new top-level comment on the pull request.
func (a *PRAdapter) CreateIssueComment(ctx context.Context, prNumber int, body string) (int64, error) {
	return a.client.CreateIssueComment(ctx, a.owner, a.repo, prNumber, body)
}

// EditIssueComment replaces the body of a top-level comment.
func (a *PRAdapter) EditIssueComment(ctx context.Context, commentID int64, body string) error {
	return a.client.EditIssueComment(ctx, a.owner, a.repo, commentID, body)
}

// DeleteIssueComment removes a top-level comment.
func (a *PRAdapter) DeleteIssueComment(ctx context.Context, commentID int64) error {
	return a.client.DeleteIssueComment(ctx, a.owner, a.repo, commentID)
}

// FileContent fetches file content at the adapter's ref via the contents API,
// for deployments that bundle reference docs without a local clone.
func (a *PRAdapter) FileContent(ctx context.Context, path string) (string, error) {
	return a.client.FileContent(ctx, a.owner, a.repo, a.ref, path)
}
