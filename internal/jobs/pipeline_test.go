package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribunal-dev/tribunal/internal/artifacts"
	"github.com/tribunal-dev/tribunal/internal/bundle"
	"github.com/tribunal-dev/tribunal/internal/config"
	"github.com/tribunal-dev/tribunal/internal/core"
	"github.com/tribunal-dev/tribunal/internal/github"
	"github.com/tribunal-dev/tribunal/internal/report"
)

type fakeWorktree struct {
	files map[string]string
}

func (f *fakeWorktree) IsTracked(path string) bool {
	_, ok := f.files[path]
	return ok
}

func (f *fakeWorktree) FileContent(_ context.Context, path string) (string, error) {
	content, ok := f.files[path]
	if !ok {
		return "", fmt.Errorf("not tracked: %s", path)
	}
	return content, nil
}

func testBundle(t *testing.T) *bundle.Bundle {
	t.Helper()
	blocks := []bundle.SrcBlock{{
		Path: "main.go",
		Lines: []bundle.SrcLine{
			{Number: 1, Text: "package main"},
			{Number: 2, Text: "func main() {"},
			{Number: 3, Text: "}"},
		},
	}}
	return bundle.Build("scope", blocks, nil, bundle.DefaultLimits())
}

func testPipeline(t *testing.T) (*Pipeline, *artifacts.Writer) {
	t.Helper()
	logger := slog.Default()
	cfg := &config.Config{ArtifactDir: t.TempDir()}
	aw, err := artifacts.NewWriter(cfg.ArtifactDir, "scope", logger)
	require.NoError(t, err)
	return NewPipeline(cfg, nil, nil, logger), aw
}

func finding(path string, start, end int) core.Finding {
	return core.Finding{
		Title:    "issue in " + path,
		Body:     "body",
		Priority: core.PriorityP1,
		Sources:  []string{fmt.Sprintf("%s#L%d-L%d", path, start, end)},
		CodeLocation: core.CodeLocation{
			Path:      path,
			LineRange: core.LineRange{Start: start, End: end},
		},
	}
}

func TestAuditAndVerify_BundleCitationSurvives(t *testing.T) {
	p, aw := testPipeline(t)
	wt := &fakeWorktree{files: map[string]string{"main.go": "package main\nfunc main() {\n}"}}

	outcomes := []report.AspectOutcome{{
		Aspect: "correctness",
		Result: &core.AspectResult{
			Aspect:   "correctness",
			Status:   core.StatusBlocked,
			Findings: []core.Finding{finding("main.go", 1, 3)},
		},
	}}

	p.auditAndVerify(context.Background(), outcomes, nil, testBundle(t), wt, "scope", aw, slog.Default())

	require.NotNil(t, outcomes[0].Result)
	require.Len(t, outcomes[0].Result.Findings, 1)
	assert.True(t, outcomes[0].Result.Findings[0].Verified)
	assert.Equal(t, core.PriorityP1, outcomes[0].Result.Findings[0].Priority)
}

func TestAuditAndVerify_ExploredFileExtendsEvidence(t *testing.T) {
	p, aw := testPipeline(t)
	wt := &fakeWorktree{files: map[string]string{
		"main.go": "package main",
		"util.go": "package main\nfunc helper() {}",
	}}

	trace := []string{
		`{"type":"tool_use","tool":"read","input":{"path":"util.go"}}`,
	}
	outcomes := []report.AspectOutcome{{
		Aspect: "security",
		Result: &core.AspectResult{
			Aspect:   "security",
			Status:   core.StatusBlocked,
			Findings: []core.Finding{finding("util.go", 1, 2)},
		},
	}}

	p.auditAndVerify(context.Background(), outcomes, map[string][]string{"security": trace},
		testBundle(t), wt, "scope", aw, slog.Default())

	require.NotNil(t, outcomes[0].Result)
	assert.True(t, outcomes[0].Result.Findings[0].Verified)
}

func TestAuditAndVerify_NoTraceMeansBundleOnlyEvidence(t *testing.T) {
	p, aw := testPipeline(t)
	wt := &fakeWorktree{files: map[string]string{"util.go": "package main"}}

	outcomes := []report.AspectOutcome{{
		Aspect: "security",
		Result: &core.AspectResult{
			Aspect:   "security",
			Status:   core.StatusBlocked,
			Findings: []core.Finding{finding("util.go", 1, 1)},
		},
	}}

	p.auditAndVerify(context.Background(), outcomes, nil, testBundle(t), wt, "scope", aw, slog.Default())

	require.NotNil(t, outcomes[0].Result)
	f := outcomes[0].Result.Findings[0]
	assert.False(t, f.Verified)
	assert.Equal(t, core.PriorityP3, f.Priority)
	require.NotNil(t, f.OriginalPriority)
	assert.Equal(t, core.PriorityP1, *f.OriginalPriority)
}

func TestAuditAndVerify_ViolationVoidsResult(t *testing.T) {
	p, aw := testPipeline(t)
	wt := &fakeWorktree{files: map[string]string{"main.go": "package main"}}

	trace := []string{
		`{"type":"tool_use","tool":"bash","input":{"command":"rm -rf /tmp/x"}}`,
	}
	outcomes := []report.AspectOutcome{{
		Aspect: "testing",
		Result: &core.AspectResult{
			Aspect: "testing",
			Status: core.StatusApproved,
		},
	}}

	p.auditAndVerify(context.Background(), outcomes, map[string][]string{"testing": trace},
		testBundle(t), wt, "scope", aw, slog.Default())

	assert.Nil(t, outcomes[0].Result)
	assert.Error(t, outcomes[0].Err)
	assert.True(t, outcomes[0].Failed())
}

func TestAuditAndVerify_CorruptTraceVoidsResult(t *testing.T) {
	p, aw := testPipeline(t)
	wt := &fakeWorktree{files: map[string]string{"main.go": "package main"}}

	trace := []string{`{"type":"tool_use","tool":`}
	outcomes := []report.AspectOutcome{{
		Aspect: "testing",
		Result: &core.AspectResult{Aspect: "testing", Status: core.StatusApproved},
	}}

	p.auditAndVerify(context.Background(), outcomes, map[string][]string{"testing": trace},
		testBundle(t), wt, "scope", aw, slog.Default())

	assert.Nil(t, outcomes[0].Result)
	assert.Error(t, outcomes[0].Err)
}

// stalledClient blocks the diff fetch until the run context expires.
type stalledClient struct {
	github.Client
}

func (c *stalledClient) GetPullRequestDiff(ctx context.Context, _, _ string, _ int) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRun_GlobalBudgetCancelsStalledRun(t *testing.T) {
	cfg := &config.Config{ArtifactDir: t.TempDir()}
	cfg.Runner.RunTimeout = 20 * time.Millisecond
	p := NewPipeline(cfg, nil, nil, slog.Default())

	event := &core.GitHubEvent{
		RepoOwner:    "acme",
		RepoName:     "widgets",
		RepoFullName: "acme/widgets",
		PRNumber:     7,
		HeadSHA:      "abcdef1234567890",
	}

	start := time.Now()
	_, err := p.Run(context.Background(), event, &stalledClient{}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExploreEnv(t *testing.T) {
	repoCfg := core.DefaultRepoConfig()
	repoCfg.Explore = true
	assert.Equal(t, []string{"TRIBUNAL_EXPLORE=1"}, exploreEnv(repoCfg))

	repoCfg.ExplorePaths = []string{"internal/**", "docs/**"}
	assert.Equal(t, []string{
		"TRIBUNAL_EXPLORE=1",
		"TRIBUNAL_EXPLORE_PATHS=internal/**,docs/**",
	}, exploreEnv(repoCfg))
}

func TestShortSHA(t *testing.T) {
	assert.Equal(t, "abcdef123456", shortSHA("abcdef1234567890abcdef"))
	assert.Equal(t, "abc", shortSHA("abc"))
}
