package delivery

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribunal-dev/tribunal/internal/core"
	"github.com/tribunal-dev/tribunal/internal/report"
)

type fakeSummaryPoster struct {
	comments []IssueComment
	nextID   int64
	created  int
	edited   []int64
	deleted  []int64
}

func (p *fakeSummaryPoster) ListIssueComments(_ context.Context, _ int) ([]IssueComment, error) {
	return append([]IssueComment(nil), p.comments...), nil
}

func (p *fakeSummaryPoster) CreateIssueComment(_ context.Context, _ int, body string) (int64, error) {
	p.nextID++
	p.created++
	p.comments = append(p.comments, IssueComment{ID: p.nextID, Body: body})
	return p.nextID, nil
}

func (p *fakeSummaryPoster) EditIssueComment(_ context.Context, id int64, body string) error {
	p.edited = append(p.edited, id)
	for i := range p.comments {
		if p.comments[i].ID == id {
			p.comments[i].Body = body
		}
	}
	return nil
}

func (p *fakeSummaryPoster) DeleteIssueComment(_ context.Context, id int64) error {
	p.deleted = append(p.deleted, id)
	return nil
}

func summaryReport() *core.ReviewReport {
	return &core.ReviewReport{ScopeID: "acme/widgets#42@abc", Status: core.StatusApproved}
}

func TestPublishSummary_CreatesThenUpdates(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	poster := &fakeSummaryPoster{
		nextID:   1,
		comments: []IssueComment{{ID: 1, Body: "unrelated human comment"}},
	}

	require.NoError(t, PublishSummary(context.Background(), poster, 42, summaryReport(), logger))
	assert.Equal(t, 1, poster.created)

	require.NoError(t, PublishSummary(context.Background(), poster, 42, summaryReport(), logger))
	assert.Equal(t, 1, poster.created, "second publish edits, never creates")
	assert.Equal(t, []int64{2}, poster.edited)
	assert.Empty(t, poster.deleted)
}

func TestPublishSummary_DeduplicatesRacedComments(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	marked := report.SummaryMarker + "\nold body"
	poster := &fakeSummaryPoster{
		nextID: 10,
		comments: []IssueComment{
			{ID: 3, Body: marked},
			{ID: 5, Body: "human comment"},
			{ID: 7, Body: marked},
		},
	}

	require.NoError(t, PublishSummary(context.Background(), poster, 42, summaryReport(), logger))

	assert.Equal(t, []int64{3}, poster.deleted, "older duplicate removed")
	assert.Equal(t, []int64{7}, poster.edited, "newest marked comment survives")
	assert.Equal(t, 0, poster.created)
}
