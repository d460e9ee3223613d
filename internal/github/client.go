// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"
)

// IssueComment is the subset of a pull-request comment the delivery layer
// works with.
type IssueComment struct {
	ID   int64
	Body string
}

// Client defines the set of GitHub operations the pipeline needs: pull
// request input, comment delivery, and check-run status.
type Client interface {
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
	GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error)

	ListIssueComments(ctx context.Context, owner, repo string, number int) ([]IssueComment, error)
	CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) (int64, error)
	EditIssueComment(ctx context.Context, owner, repo string, commentID int64, body string) error
	DeleteIssueComment(ctx context.Context, owner, repo string, commentID int64) error

	CreateReviewComment(ctx context.Context, owner, repo string, number int, commitSHA, path string, position int, body string) (int64, error)

	FileContent(ctx context.Context, owner, repo, ref, path string) (string, error)

	CreateCheckRun(ctx context.Context, owner, repo string, opts github.CreateCheckRunOptions) (*github.CheckRun, error)
	UpdateCheckRun(ctx context.Context, owner, repo string, checkRunID int64, opts github.UpdateCheckRunOptions) (*github.CheckRun, error)
}

type gitHubClient struct {
	client *github.Client
	logger *slog.Logger
}

// NewGitHubClient wraps the official go-github client to provide a focused,
// testable interface for application-specific GitHub operations.
func NewGitHubClient(client *github.Client, logger *slog.Logger) Client {
	return &gitHubClient{client: client, logger: logger}
}

// NewPATClient creates a new GitHub client authenticated with a Personal Access Token (PAT).
// This is useful for CLI tools or local development where an App installation is not available.
func NewPATClient(ctx context.Context, token string, logger *slog.Logger) Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)
	return &gitHubClient{client: client, logger: logger}
}

// GetPullRequest retrieves a single pull request by its number.
func (g *gitHubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		g.logger.Error("failed to get pull request", "owner", owner, "repo", repo, "pr", number, "error", err)
		return nil, err
	}
	return pr, nil
}

// GetPullRequestDiff retrieves the unified diff of a pull request.
func (g *gitHubClient) GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	diff, _, err := g.client.PullRequests.GetRaw(ctx, owner, repo, number, github.RawOptions{
		Type: github.Diff,
	})
	if err != nil {
		g.logger.Error("failed to get pull request diff", "owner", owner, "repo", repo, "pr", number, "error", err)
		return "", err
	}
	return diff, nil
}

// ListIssueComments retrieves all top-level comments on a pull request,
// following pagination.
func (g *gitHubClient) ListIssueComments(ctx context.Context, owner, repo string, number int) ([]IssueComment, error) {
	var all []IssueComment
	opts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100}}

	for {
		comments, resp, err := g.client.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			g.logger.Error("failed to list comments", "owner", owner, "repo", repo, "pr", number, "error", err)
			return nil, err
		}
		for _, c := range comments {
			all = append(all, IssueComment{ID: c.GetID(), Body: c.GetBody()})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// CreateIssueComment creates a new top-level comment on a pull request.
func (g *gitHubClient) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) (int64, error) {
	comment, _, err := g.client.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{Body: &body})
	if err != nil {
		g.logger.Error("failed to create comment", "owner", owner, "repo", repo, "pr", number, "error", err)
		return 0, err
	}
	return comment.GetID(), nil
}

// EditIssueComment replaces the body of an existing top-level comment.
func (g *gitHubClient) EditIssueComment(ctx context.Context, owner, repo string, commentID int64, body string) error {
	_, _, err := g.client.Issues.EditComment(ctx, owner, repo, commentID, &github.IssueComment{Body: &body})
	if err != nil {
		g.logger.Error("failed to edit comment", "owner", owner, "repo", repo, "comment_id", commentID, "error", err)
	}
	return err
}

// DeleteIssueComment removes a top-level comment.
func (g *gitHubClient) DeleteIssueComment(ctx context.Context, owner, repo string, commentID int64) error {
	_, err := g.client.Issues.DeleteComment(ctx, owner, repo, commentID)
	if err != nil {
		g.logger.Error("failed to delete comment", "owner", owner, "repo", repo, "comment_id", commentID, "error", err)
	}
	return err
}

// CreateReviewComment posts an inline review comment anchored by diff
// position against the given commit.
func (g *gitHubClient) CreateReviewComment(ctx context.Context, owner, repo string, number int, commitSHA, path string, position int, body string) (int64, error) {
	comment := &github.PullRequestComment{
		Body:     &body,
		CommitID: &commitSHA,
		Path:     &path,
		Position: &position,
	}
	created, _, err := g.client.PullRequests.CreateComment(ctx, owner, repo, number, comment)
	if err != nil {
		g.logger.Error("failed to create review comment",
			"owner", owner, "repo", repo, "pr", number, "path", path, "position", position, "error", err)
		return 0, err
	}
	return created.GetID(), nil
}

// FileContent fetches the raw content of a repository file at a ref.
func (g *gitHubClient) FileContent(ctx context.Context, owner, repo, ref, path string) (string, error) {
	file, _, _, err := g.client.Repositories.GetContents(ctx, owner, repo, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return "", err
	}
	if file == nil {
		return "", fmt.Errorf("%s is not a file", path)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decoding content of %s: %w", path, err)
	}
	return content, nil
}

// CreateCheckRun creates a new check run.
func (g *gitHubClient) CreateCheckRun(ctx context.Context, owner, repo string, opts github.CreateCheckRunOptions) (*github.CheckRun, error) {
	checkRun, _, err := g.client.Checks.CreateCheckRun(ctx, owner, repo, opts)
	if err != nil {
		g.logger.Error("failed to create check run", "owner", owner, "repo", repo, "error", err)
		return nil, err
	}
	return checkRun, nil
}

// UpdateCheckRun updates an existing check run.
func (g *gitHubClient) UpdateCheckRun(ctx context.Context, owner, repo string, checkRunID int64, opts github.UpdateCheckRunOptions) (*github.CheckRun, error) {
	checkRun, _, err := g.client.Checks.UpdateCheckRun(ctx, owner, repo, checkRunID, opts)
	if err != nil {
		g.logger.Error("failed to update check run", "owner", owner, "repo", repo, "checkRunID", checkRunID, "error", err)
	}
	return checkRun, err
}
