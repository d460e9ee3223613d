package llm

import (
	"context"

	"github.com/tribunal-dev/tribunal/internal/aspects"
)

// AspectReviewer adapts the runner + prompt set to the orchestrator's
// reviewer contract: render, invoke, hand back the raw payload.
type AspectReviewer struct {
	runner  *Runner
	prompts *PromptSet

	// EnvFor supplies per-aspect environment entries (exploration and
	// hybrid-access switches). Nil means no extra environment.
	EnvFor func(aspect string) []string
	// TraceSink receives the raw tool_use trace lines of each invocation,
	// for the post-hoc exploration audit. Nil discards them.
	TraceSink func(aspect string, lines []string)
}

// NewAspectReviewer wires a reviewer over a runner and prompt set.
func NewAspectReviewer(runner *Runner, prompts *PromptSet) *AspectReviewer {
	return &AspectReviewer{runner: runner, prompts: prompts}
}

func (r *AspectReviewer) ReviewAspect(ctx context.Context, req aspects.Request) ([]byte, error) {
	prompt, err := r.prompts.Render(req.Aspect, req.ScopeID, req.Bundle, req.SoT)
	if err != nil {
		return nil, err
	}

	var env []string
	if r.EnvFor != nil {
		env = r.EnvFor(req.Aspect)
	}

	out, err := r.runner.Run(ctx, prompt, env)
	if err != nil {
		return nil, err
	}
	if r.TraceSink != nil && len(out.ToolTrace) > 0 {
		r.TraceSink(req.Aspect, out.ToolTrace)
	}
	return out.Payload, nil
}
