// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v73/github"

	"github.com/tribunal-dev/tribunal/internal/core"
)

// CheckRunName is the name under which the review check run appears on the
// pull request.
const CheckRunName = "Tribunal Review"

// StatusUpdater manages the GitHub Check Run that mirrors the lifecycle of a
// review: created in progress when a run starts, completed with a conclusion
// derived from the report status.
type StatusUpdater interface {
	InProgress(ctx context.Context, event *core.GitHubEvent, title, summary string) (int64, error)
	Completed(ctx context.Context, event *core.GitHubEvent, checkRunID int64, status core.Status, title, summary string) error
	Failed(ctx context.Context, event *core.GitHubEvent, checkRunID int64, title, summary string) error
}

type statusUpdater struct {
	client Client
}

// NewStatusUpdater creates and returns a new instance of a statusUpdater.
func NewStatusUpdater(client Client) StatusUpdater {
	return &statusUpdater{client: client}
}

// InProgress creates a new GitHub Check Run with an "in_progress" status.
func (s *statusUpdater) InProgress(ctx context.Context, event *core.GitHubEvent, title, summary string) (int64, error) {
	opts := github.CreateCheckRunOptions{
		Name:    CheckRunName,
		HeadSHA: event.HeadSHA,
		Status:  github.Ptr("in_progress"),
		Output: &github.CheckRunOutput{
			Title:   &title,
			Summary: &summary,
		},
	}
	checkRun, err := s.client.CreateCheckRun(ctx, event.RepoOwner, event.RepoName, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to create check run: %w", err)
	}
	return checkRun.GetID(), nil
}

// Completed updates the check run with the conclusion for a finished review.
func (s *statusUpdater) Completed(ctx context.Context, event *core.GitHubEvent, checkRunID int64, status core.Status, title, summary string) error {
	return s.complete(ctx, event, checkRunID, ConclusionFor(status), title, summary)
}

// Failed marks the check run as failed without a report, for runs that
// aborted before producing one.
func (s *statusUpdater) Failed(ctx context.Context, event *core.GitHubEvent, checkRunID int64, title, summary string) error {
	return s.complete(ctx, event, checkRunID, "failure", title, summary)
}

func (s *statusUpdater) complete(ctx context.Context, event *core.GitHubEvent, checkRunID int64, conclusion, title, summary string) error {
	now := time.Now()
	opts := github.UpdateCheckRunOptions{
		Status:      github.Ptr("completed"),
		Conclusion:  &conclusion,
		CompletedAt: &github.Timestamp{Time: now},
		Output: &github.CheckRunOutput{
			Title:   &title,
			Summary: &summary,
		},
	}
	_, err := s.client.UpdateCheckRun(ctx, event.RepoOwner, event.RepoName, checkRunID, opts)
	return err
}

// ConclusionFor maps a report status to a check-run conclusion. A blocked
// review fails the check; open questions surface as neutral so they gate on
// human judgement rather than CI.
func ConclusionFor(status core.Status) string {
	switch status {
	case core.StatusApproved, core.StatusApprovedWithNits:
		return "success"
	case core.StatusQuestion:
		return "neutral"
	case core.StatusBlocked:
		return "failure"
	default:
		return "neutral"
	}
}
