package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tribunal-dev/tribunal/internal/artifacts"
	"github.com/tribunal-dev/tribunal/internal/aspects"
	"github.com/tribunal-dev/tribunal/internal/bundle"
	"github.com/tribunal-dev/tribunal/internal/config"
	"github.com/tribunal-dev/tribunal/internal/core"
	"github.com/tribunal-dev/tribunal/internal/delivery"
	"github.com/tribunal-dev/tribunal/internal/explore"
	"github.com/tribunal-dev/tribunal/internal/github"
	"github.com/tribunal-dev/tribunal/internal/gitutil"
	"github.com/tribunal-dev/tribunal/internal/llm"
	"github.com/tribunal-dev/tribunal/internal/report"
	"github.com/tribunal-dev/tribunal/internal/sot"
	"github.com/tribunal-dev/tribunal/internal/verify"
)

const cloneTimeout = 2 * time.Minute

// Pipeline runs one review end to end: bundle the change, fan out the aspect
// reviewers, audit their exploration, verify their evidence, aggregate the
// report, and deliver it. Everything untrusted passes through a gate before
// it can influence what gets posted.
type Pipeline struct {
	cfg     *config.Config
	git     *gitutil.Client
	records delivery.RecordStore
	logger  *slog.Logger
}

// NewPipeline wires a pipeline over its collaborators.
func NewPipeline(cfg *config.Config, git *gitutil.Client, records delivery.RecordStore, logger *slog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, git: git, records: records, logger: logger}
}

// Run executes the review for one pull request and returns the report. The
// returned error distinguishes a blocked review (core.BlockedError) from an
// execution failure; a non-nil report may accompany either.
func (p *Pipeline) Run(ctx context.Context, event *core.GitHubEvent, gh github.Client, token string) (*core.ReviewReport, error) {
	// The whole run shares one wall-clock budget; every stage below,
	// including the aspect fan-out, inherits it.
	if p.cfg.Runner.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Runner.RunTimeout)
		defer cancel()
	}

	if event.HeadSHA == "" {
		pr, err := gh.GetPullRequest(ctx, event.RepoOwner, event.RepoName, event.PRNumber)
		if err != nil {
			return nil, core.ExecFailureWrap("fetching pull request", err)
		}
		if pr.GetHead() == nil || pr.GetHead().GetSHA() == "" {
			return nil, core.ExecFailure(fmt.Sprintf("PR %d has no valid head SHA", event.PRNumber))
		}
		event.HeadSHA = pr.GetHead().GetSHA()
	}

	scopeID := fmt.Sprintf("%s#%d@%s", event.RepoFullName, event.PRNumber, shortSHA(event.HeadSHA))
	runID := scopeID
	logger := p.logger.With("scope", scopeID)

	rawDiff, err := gh.GetPullRequestDiff(ctx, event.RepoOwner, event.RepoName, event.PRNumber)
	if err != nil {
		return nil, core.ExecFailureWrap("fetching pull request diff", err)
	}
	blocks, warnings, err := bundle.ParseDiff(rawDiff)
	if err != nil {
		return nil, core.ExecFailureWrap("parsing pull request diff", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, cloneTimeout)
	repoPath, cleanup, err := p.git.CloneAndCheckoutTemp(cloneCtx, event.RepoCloneURL, event.HeadSHA, token)
	cancel()
	if err != nil {
		return nil, core.ExecFailureWrap("cloning repository", err)
	}
	defer cleanup()

	wt, err := gitutil.OpenWorktree(repoPath)
	if err != nil {
		return nil, core.ExecFailureWrap("indexing worktree", err)
	}

	repoCfg, err := config.LoadRepoConfig(repoPath)
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, core.ExecFailureWrap("loading repository config", err)
	}

	allowlist := repoCfg.SoTPaths
	if len(allowlist) == 0 {
		allowlist = sot.DefaultAllowlist()
	}
	refs, sotWarnings := sot.Collect(ctx, wt, wt.Paths(), allowlist, logger)
	warnings = append(warnings, sotWarnings...)

	bnd := bundle.Build(scopeID, blocks, refs, bundle.DefaultLimits())
	warnings = append(warnings, bnd.Warnings...)
	bundleText := bnd.Text()

	aw, err := artifacts.NewWriter(p.cfg.ArtifactDir, runID, logger)
	if err != nil {
		return nil, core.ExecFailureWrap("preparing artifact directory", err)
	}
	if err := aw.WriteBundle(bundleText); err != nil {
		return nil, core.ExecFailureWrap("writing bundle artifact", err)
	}
	if len(warnings) > 0 {
		lines := make([]string, len(warnings))
		for i, w := range warnings {
			lines[i] = w.String()
		}
		if err := aw.WriteText("warnings.txt", strings.Join(lines, "\n")+"\n"); err != nil {
			logger.Error("writing warnings artifact", "error", err)
		}
	}

	selected := aspects.DefaultAspects
	if len(repoCfg.Aspects) > 0 {
		selected, err = aspects.ValidateSelection(repoCfg.Aspects)
		if err != nil {
			return nil, err
		}
	}

	instructions := strings.Join(repoCfg.CustomInstructions, "\n")
	if instructions != "" {
		if err := aw.WriteSoT(instructions); err != nil {
			logger.Error("writing instructions artifact", "error", err)
		}
	}

	outcomes, traces, err := p.runAspects(ctx, scopeID, bundleText, instructions, repoCfg, selected)
	if err != nil {
		return nil, err
	}

	p.auditAndVerify(ctx, outcomes, traces, bnd, wt, scopeID, aw, logger)

	rep := report.Aggregate(scopeID, event.HeadSHA, outcomes, len(warnings))
	if err := aw.WriteJSON("report.json", rep); err != nil {
		logger.Error("writing report artifact", "error", err)
	}
	if err := aw.WriteText("report.md", report.RenderMarkdown(rep)); err != nil {
		logger.Error("writing report artifact", "error", err)
	}

	if err := p.deliver(ctx, gh, event, rep, rawDiff, runID, logger); err != nil {
		return rep, err
	}

	logger.Info("review completed", "status", string(rep.Status), "findings", len(rep.Findings))
	return rep, nil
}

// runAspects fans the selected reviewers out and collects their outcomes plus
// the raw tool traces they emitted.
func (p *Pipeline) runAspects(ctx context.Context, scopeID, bundleText, instructions string, repoCfg *core.RepoConfig, selected []string) ([]report.AspectOutcome, map[string][]string, error) {
	prompts, err := llm.LoadPrompts(selected)
	if err != nil {
		return nil, nil, core.ExecFailureWrap("loading prompts", err)
	}

	runner := llm.NewRunner(p.cfg.Runner.Bin, p.cfg.Runner.Agent, p.cfg.Runner.Model, p.logger)
	reviewer := llm.NewAspectReviewer(runner, prompts)

	if repoCfg.Explore {
		env := exploreEnv(repoCfg)
		reviewer.EnvFor = func(aspect string) []string {
			if !repoCfg.MayExplore(aspect) {
				return nil
			}
			return env
		}
	}

	var mu sync.Mutex
	traces := make(map[string][]string)
	reviewer.TraceSink = func(aspect string, lines []string) {
		mu.Lock()
		traces[aspect] = lines
		mu.Unlock()
	}

	orch := aspects.NewOrchestrator(reviewer, p.logger)
	orch.AspectTimeout = p.cfg.Runner.AspectTimeout
	if p.cfg.MaxWorkers > 0 {
		orch.MaxParallel = p.cfg.MaxWorkers
	}

	outcomes := orch.Run(ctx, scopeID, bundleText, instructions, selected)
	return outcomes, traces, nil
}

// worktreeIndex is the slice of a checked-out worktree the audit stage
// needs: the tracked-path set and read access to tracked files.
type worktreeIndex interface {
	explore.TrackedIndex
	FileContent(ctx context.Context, path string) (string, error)
}

// auditAndVerify applies the post-hoc exploration audit and the evidence
// policy to every aspect outcome. A policy violation voids the aspect's
// result entirely; evidence each aspect legally explored extends only its own
// verification surface.
func (p *Pipeline) auditAndVerify(ctx context.Context, outcomes []report.AspectOutcome, traces map[string][]string, bnd *bundle.Bundle, wt worktreeIndex, scopeID string, aw *artifacts.Writer, logger *slog.Logger) {
	pol := explore.NewPolicy(wt)

	for i := range outcomes {
		o := &outcomes[i]
		idx := bnd.Index()

		if lines := traces[o.Aspect]; len(lines) > 0 {
			if err := aw.WriteAspectTrace(o.Aspect, lines); err != nil {
				logger.Error("writing trace artifact", "aspect", o.Aspect, "error", err)
			}

			events, err := explore.ParseTrace(strings.NewReader(strings.Join(lines, "\n")))
			if err != nil {
				o.Result = nil
				o.Err = err
				continue
			}
			audit := pol.Audit(events)
			if audit.Blocked() {
				logger.Warn("aspect blocked by exploration audit",
					"aspect", o.Aspect, "violations", len(audit.Violations))
				o.Result = nil
				o.Err = audit.Err()
				continue
			}

			toolText := explore.RenderToolBundle(events, func(path string) (string, error) {
				return wt.FileContent(ctx, path)
			})
			if toolText != "" {
				if err := aw.WriteText(fmt.Sprintf("tool-bundle-%s.txt", o.Aspect), toolText); err != nil {
					logger.Error("writing tool bundle artifact", "aspect", o.Aspect, "error", err)
				}
			}
			tb := explore.RedactedBundle(audit, toolText, scopeID)
			idx.Add(tb.Spans...)
		}

		if o.Result == nil {
			continue
		}
		res, stats := verify.ApplyPolicyToResult(o.Result, idx, logger)
		o.Result = res
		o.Stats = stats

		if data, err := core.MarshalIndent(res); err == nil {
			if err := aw.WriteAspectPayload(o.Aspect, data); err != nil {
				logger.Error("writing aspect artifact", "aspect", o.Aspect, "error", err)
			}
		}
	}
}

// deliver publishes the summary comment and the inline comments. The summary
// always lands first so a blocked inline delivery still leaves the full
// report on the pull request.
func (p *Pipeline) deliver(ctx context.Context, gh github.Client, event *core.GitHubEvent, rep *core.ReviewReport, rawDiff, runID string, logger *slog.Logger) error {
	adapter := github.NewPRAdapter(gh, event.RepoOwner, event.RepoName, event.HeadSHA)

	if err := delivery.PublishSummary(ctx, adapter, event.PRNumber, rep, logger); err != nil {
		return err
	}

	pm, err := delivery.BuildPositionMap([]byte(rawDiff))
	if err != nil {
		return core.ExecFailureWrap("mapping diff positions", err)
	}

	deliverer := delivery.NewInlineDeliverer(adapter, p.records, logger)
	return deliverer.Deliver(ctx, rep, pm, event.RepoFullName, event.PRNumber, runID)
}

// exploreEnv assembles the environment an exploring reviewer receives: the
// enable switch plus the path allow-list it is asked to stay within.
func exploreEnv(repoCfg *core.RepoConfig) []string {
	env := []string{"TRIBUNAL_EXPLORE=1"}
	if len(repoCfg.ExplorePaths) > 0 {
		env = append(env, "TRIBUNAL_EXPLORE_PATHS="+strings.Join(repoCfg.ExplorePaths, ","))
	}
	return env
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
