// Package core defines the data model shared by every stage of the review
// pipeline: priorities, findings, reports, provenance spans, and the
// contracts between the event source and the job runner.
package core

import (
	"fmt"
	"strings"

	"github.com/google/go-github/v73/github"
)

// GitHubEvent is the internal view of a webhook event that triggers a run.
type GitHubEvent struct {
	RepoOwner    string
	RepoName     string
	RepoFullName string
	RepoCloneURL string

	PRNumber int
	PRTitle  string
	HeadSHA  string

	Commenter      string
	InstallationID int64
}

// EventFromIssueComment transforms a raw GitHub IssueCommentEvent into the
// internal representation. It acts as an anti-corruption layer: the payload
// is validated before any job is dispatched, and only "/review" commands on
// pull requests pass through.
func EventFromIssueComment(event *github.IssueCommentEvent) (*GitHubEvent, error) {
	if !event.GetIssue().IsPullRequest() {
		return nil, fmt.Errorf("comment is not on a pull request")
	}

	if !strings.EqualFold(strings.TrimSpace(event.GetComment().GetBody()), "/review") {
		return nil, fmt.Errorf("comment is not a review command")
	}

	repo := event.GetRepo()
	if repo == nil || repo.GetOwner() == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return nil, fmt.Errorf("repository or owner information is missing from the event")
	}

	prNumber := event.GetIssue().GetNumber()
	if prNumber <= 0 {
		return nil, fmt.Errorf("invalid pull request number: %d", prNumber)
	}

	if event.GetComment().GetUser() == nil || event.GetComment().GetUser().GetLogin() == "" {
		return nil, fmt.Errorf("commenter information is missing from the event")
	}

	if event.GetInstallation() == nil || event.GetInstallation().GetID() == 0 {
		return nil, fmt.Errorf("installation ID is missing from the event")
	}

	return &GitHubEvent{
		RepoOwner:      repo.GetOwner().GetLogin(),
		RepoName:       repo.GetName(),
		RepoFullName:   repo.GetFullName(),
		RepoCloneURL:   repo.GetCloneURL(),
		InstallationID: event.GetInstallation().GetID(),
		PRNumber:       prNumber,
		PRTitle:        event.GetIssue().GetTitle(),
		Commenter:      event.GetComment().GetUser().GetLogin(),
	}, nil
}
