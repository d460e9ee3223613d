package aspects

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tribunal-dev/tribunal/internal/core"
	"github.com/tribunal-dev/tribunal/internal/report"
	"github.com/tribunal-dev/tribunal/internal/verify"
)

// Reviewer produces one aspect's raw review payload: the bytes expected to
// hold exactly one JSON result object. No retries happen above this
// interface; a malformed response is terminal for the aspect.
type Reviewer interface {
	ReviewAspect(ctx context.Context, req Request) ([]byte, error)
}

// Request is the immutable input handed to a reviewer for one aspect.
type Request struct {
	Aspect  string
	ScopeID string
	Bundle  string
	SoT     string
}

// Orchestrator fans the aspect set out over a bounded worker pool and
// gathers schema-gated results.
type Orchestrator struct {
	reviewer Reviewer
	logger   *slog.Logger

	// MaxParallel bounds concurrent reviewer invocations.
	MaxParallel int
	// AspectTimeout bounds each aspect individually; zero means the run
	// budget (the caller's context) is the only bound.
	AspectTimeout time.Duration
}

// NewOrchestrator wires an orchestrator with the default bounds.
func NewOrchestrator(reviewer Reviewer, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		reviewer:    reviewer,
		logger:      logger,
		MaxParallel: 8,
	}
}

// Run executes the selected aspects in parallel against the same bundle and
// returns one outcome per aspect, in declaration order. A failing or
// timed-out aspect yields a structured failure outcome; siblings are never
// cancelled by it. Only the caller's context (the global run budget) cancels
// the whole set.
func (o *Orchestrator) Run(ctx context.Context, scopeID, bundleText, sot string, selected []string) []report.AspectOutcome {
	outcomes := make([]report.AspectOutcome, len(selected))

	g := new(errgroup.Group)
	if o.MaxParallel > 0 {
		g.SetLimit(o.MaxParallel)
	}

	for i, aspect := range selected {
		g.Go(func() error {
			outcomes[i] = o.runOne(ctx, Request{
				Aspect:  aspect,
				ScopeID: scopeID,
				Bundle:  bundleText,
				SoT:     sot,
			})
			return nil
		})
	}
	// Workers only record outcomes, they never return errors.
	_ = g.Wait()

	return outcomes
}

func (o *Orchestrator) runOne(ctx context.Context, req Request) report.AspectOutcome {
	outcome := report.AspectOutcome{Aspect: req.Aspect}

	runCtx := ctx
	if o.AspectTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.AspectTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := o.reviewer.ReviewAspect(runCtx, req)
	if err != nil {
		outcome.Err = err
		outcome.TimedOut = errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(runCtx.Err(), context.DeadlineExceeded)
		o.logger.Error("aspect reviewer failed",
			"aspect", req.Aspect, "timed_out", outcome.TimedOut,
			"duration", time.Since(start), "error", err)
		return outcome
	}
	// A cancelled task contributes no findings, even if it raced to produce
	// output.
	if runCtx.Err() != nil {
		outcome.Err = core.ExecFailureWrap("aspect cancelled", runCtx.Err())
		outcome.TimedOut = errors.Is(runCtx.Err(), context.DeadlineExceeded)
		return outcome
	}

	result, err := verify.DecodeAspectResult(raw, req.Aspect, req.ScopeID)
	if err != nil {
		outcome.Err = err
		o.logger.Error("aspect result rejected at schema gate",
			"aspect", req.Aspect, "error", err)
		return outcome
	}

	outcome.Result = result
	o.logger.Info("aspect completed",
		"aspect", req.Aspect,
		"status", string(result.Status),
		"findings", len(result.Findings),
		"duration", time.Since(start),
	)
	return outcome
}
