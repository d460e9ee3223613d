package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tribunal-dev/tribunal/internal/config"
	"github.com/tribunal-dev/tribunal/internal/core"
	"github.com/tribunal-dev/tribunal/internal/github"
	"github.com/tribunal-dev/tribunal/internal/gitutil"
	"github.com/tribunal-dev/tribunal/internal/jobs"
	"github.com/tribunal-dev/tribunal/internal/logger"
	"github.com/tribunal-dev/tribunal/internal/storage"
)

var verbose bool

// Color definitions
var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

var reviewCmd = &cobra.Command{
	Use:   "review [pr-url]",
	Short: "Review a GitHub pull request and deliver the report",
	Long: `Review a GitHub pull request.

The review command fetches the PR diff, builds a bounded context bundle from
the change and the repository's reference documents, runs the aspect
reviewers, verifies their evidence, and posts the resulting report back to
the pull request.

Examples:
  tribunal review https://github.com/owner/repo/pull/123
  tribunal review --verbose https://github.com/owner/repo/pull/123`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	reviewCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	prURL := args[0]
	start := time.Now()

	cfg, err := config.LoadConfig()
	if err != nil {
		return core.ExecFailureWrap("loading configuration", err)
	}
	log := newCLILogger(cfg)

	owner, repoName, prNumber, err := gitutil.ParsePullRequestURL(prURL)
	if err != nil {
		return core.ExecFailureWrap("invalid PR URL, expected https://github.com/owner/repo/pull/123", err)
	}

	token := cfg.GitHub.Token
	if githubToken != "" {
		token = githubToken
	}
	if token == "" {
		return core.ExecFailure("GITHUB_TOKEN is not set")
	}

	titleColor.Println("Tribunal review")
	dimColor.Printf("  target: %s\n", prURL)

	gh := github.NewPATClient(ctx, token, log)
	pr, err := gh.GetPullRequest(ctx, owner, repoName, prNumber)
	if err != nil {
		return core.ExecFailureWrap("fetching pull request", err)
	}

	event := &core.GitHubEvent{
		RepoOwner:    owner,
		RepoName:     repoName,
		RepoFullName: fmt.Sprintf("%s/%s", owner, repoName),
		RepoCloneURL: pr.GetBase().GetRepo().GetCloneURL(),
		PRNumber:     prNumber,
		PRTitle:      pr.GetTitle(),
		HeadSHA:      pr.GetHead().GetSHA(),
	}

	records := storage.NewFileRecordStore(cfg.ArtifactDir)
	pipeline := jobs.NewPipeline(cfg, gitutil.NewClient(log), records, log)

	rep, runErr := pipeline.Run(ctx, event, gh, token)
	if verbose {
		dimColor.Printf("  elapsed: %s\n", time.Since(start).Round(time.Millisecond))
	}

	if rep != nil {
		printReport(rep)
	}
	if runErr != nil {
		errorColor.Printf("\nreview did not complete: %v\n", runErr)
		return runErr
	}
	if rep.Status == core.StatusBlocked {
		return core.Blocked("review blocked: " + rep.OverallExplanation)
	}
	return nil
}

func newCLILogger(cfg *config.Config) *slog.Logger {
	return logger.NewLogger(logger.Config{
		Level:  cfg.LogLevel.String(),
		Format: "text",
		Output: "stderr",
	}, nil)
}

func printReport(rep *core.ReviewReport) {
	fmt.Println()
	switch rep.Status {
	case core.StatusApproved, core.StatusApprovedWithNits:
		successColor.Printf("status: %s\n", rep.Status)
	case core.StatusQuestion:
		warnColor.Printf("status: %s\n", rep.Status)
	default:
		errorColor.Printf("status: %s\n", rep.Status)
	}
	dimColor.Printf("scope:  %s\n", rep.ScopeID)

	blocking, advisory := 0, 0
	for _, f := range rep.Findings {
		if f.Priority.Blocking() {
			blocking++
		} else {
			advisory++
		}
	}
	fmt.Printf("findings: %d blocking, %d advisory, %d questions\n",
		blocking, advisory, len(rep.Questions))

	if rep.OverallExplanation != "" {
		fmt.Println()
		fmt.Println(rep.OverallExplanation)
	}
	dimColor.Println("\nthe full report was posted to the pull request; use `tribunal render` on the stored report.json for a local view")
}
