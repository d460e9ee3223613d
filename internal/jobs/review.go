// Package jobs defines background tasks such as automated code reviews.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tribunal-dev/tribunal/internal/config"
	"github.com/tribunal-dev/tribunal/internal/core"
	"github.com/tribunal-dev/tribunal/internal/github"
	"github.com/tribunal-dev/tribunal/internal/storage"
)

// ReviewJob runs the review pipeline for webhook-triggered events: it
// authenticates as the App installation, mirrors progress onto a check run,
// and persists the run for audit.
type ReviewJob struct {
	cfg      *config.Config
	pipeline *Pipeline
	store    storage.Store
	logger   *slog.Logger
}

// NewReviewJob creates a new ReviewJob. The store may be nil for deployments
// without a database.
func NewReviewJob(cfg *config.Config, pipeline *Pipeline, store storage.Store, logger *slog.Logger) core.Job {
	if cfg == nil {
		panic("config cannot be nil")
	}
	if pipeline == nil {
		panic("pipeline cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &ReviewJob{cfg: cfg, pipeline: pipeline, store: store, logger: logger}
}

// Run executes the review job for a given GitHub event.
func (j *ReviewJob) Run(ctx context.Context, event *core.GitHubEvent) error {
	if err := j.validateInputs(ctx, event); err != nil {
		j.logger.Error("input validation failed", "error", err)
		return fmt.Errorf("input validation failed: %w", err)
	}

	j.logger.Info("starting review job", "repo", event.RepoFullName, "pr", event.PRNumber)

	gh, token, err := github.CreateInstallationClient(ctx, j.cfg, event.InstallationID, j.logger)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	pr, err := gh.GetPullRequest(ctx, event.RepoOwner, event.RepoName, event.PRNumber)
	if err != nil {
		return fmt.Errorf("failed to get PR details: %w", err)
	}
	if pr.GetHead() == nil || pr.GetHead().GetSHA() == "" {
		return fmt.Errorf("PR %d has no valid head SHA", event.PRNumber)
	}
	event.HeadSHA = pr.GetHead().GetSHA()

	status := github.NewStatusUpdater(gh)
	checkRunID, err := status.InProgress(ctx, event, "Review", "Review in progress...")
	if err != nil {
		return fmt.Errorf("failed to set in-progress status: %w", err)
	}

	rep, runErr := j.pipeline.Run(ctx, event, gh, token)

	if rep != nil {
		j.persistRun(ctx, event, rep)
	}

	switch {
	case runErr == nil:
		title := fmt.Sprintf("Review: %s", rep.Status)
		if err := status.Completed(ctx, event, checkRunID, rep.Status, title, rep.OverallExplanation); err != nil {
			j.logger.Error("failed to update completion status", "error", err)
			return fmt.Errorf("failed to update completion status: %w", err)
		}
		j.logger.Info("review job completed", "repo", event.RepoFullName, "pr", event.PRNumber, "status", string(rep.Status))
		return nil

	case isBlocked(runErr):
		if err := status.Completed(ctx, event, checkRunID, core.StatusBlocked, "Review: Blocked", runErr.Error()); err != nil {
			j.logger.Error("failed to update blocked status", "error", err)
		}
		return runErr

	default:
		if err := status.Failed(ctx, event, checkRunID, "Review Failed", runErr.Error()); err != nil {
			j.logger.Error("failed to update failure status", "error", err)
		}
		return runErr
	}
}

// persistRun stores the finished run when a database is configured. The
// previous run for the same PR is the comparison point: a status transition
// is worth a log line, the rest of cross-run dedup lives in the delivery
// record.
func (j *ReviewJob) persistRun(ctx context.Context, event *core.GitHubEvent, rep *core.ReviewReport) {
	if j.store == nil {
		return
	}
	if prev, err := j.store.GetLatestRunForPR(ctx, event.RepoFullName, event.PRNumber); err == nil {
		if prev.Status != string(rep.Status) {
			j.logger.Info("review status changed since last run",
				"repo", event.RepoFullName, "pr", event.PRNumber,
				"from", prev.Status, "to", string(rep.Status))
		}
	}
	raw, err := json.Marshal(rep)
	if err != nil {
		j.logger.Error("failed to marshal report for storage", "error", err)
		return
	}
	record := &core.RunRecord{
		RepoFullName: event.RepoFullName,
		PRNumber:     event.PRNumber,
		HeadSHA:      event.HeadSHA,
		Status:       string(rep.Status),
		ReportJSON:   string(raw),
	}
	if err := j.store.SaveRun(ctx, record); err != nil {
		j.logger.Error("failed to persist run", "error", err)
	}
}

// validateInputs ensures the event contains all required fields.
func (j *ReviewJob) validateInputs(ctx context.Context, event *core.GitHubEvent) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.RepoOwner == "" {
		return fmt.Errorf("repository owner cannot be empty")
	}
	if event.RepoName == "" {
		return fmt.Errorf("repository name cannot be empty")
	}
	if event.RepoFullName == "" {
		return fmt.Errorf("repository full name cannot be empty")
	}
	if event.RepoCloneURL == "" {
		return fmt.Errorf("repository clone URL cannot be empty")
	}
	if event.PRNumber <= 0 {
		return fmt.Errorf("pull request number must be positive, got: %d", event.PRNumber)
	}
	if event.InstallationID <= 0 {
		return fmt.Errorf("installation ID must be positive, got: %d", event.InstallationID)
	}
	return nil
}

func isBlocked(err error) bool {
	var blocked *core.BlockedError
	return errors.As(err, &blocked)
}
