package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/tribunal-dev/tribunal/internal/core"
)

// Runner executes the reviewer binary headlessly: prompt on stdin, JSONL
// events on stdout. One invocation per aspect, no retries.
type Runner struct {
	Bin   string
	Agent string
	Model string

	logger *slog.Logger
}

// NewRunner builds a runner for the given binary. An empty bin falls back
// to "opencode" on PATH.
func NewRunner(bin, agent, model string, logger *slog.Logger) *Runner {
	if bin == "" {
		bin = "opencode"
	}
	return &Runner{Bin: bin, Agent: agent, Model: model, logger: logger}
}

func (r *Runner) args() []string {
	args := []string{"run", "--format", "json"}
	if r.Agent != "" {
		args = append(args, "--agent", r.Agent)
	}
	if r.Model != "" {
		args = append(args, "-m", r.Model)
	}
	return args
}

// Run invokes the reviewer with the rendered prompt and extra environment
// entries ("KEY=VALUE"), honoring ctx for the timeout. A missing binary is
// a Blocked condition (user-fixable); everything else is an execution
// failure for the owning aspect.
func (r *Runner) Run(ctx context.Context, prompt string, extraEnv []string) (*ExtractedOutput, error) {
	cmd := exec.CommandContext(ctx, r.Bin, r.args()...)
	cmd.Stdin = strings.NewReader(prompt)
	cmd.Env = append(os.Environ(), extraEnv...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r.logger.Debug("reviewer process finished",
		"bin", r.Bin, "duration", time.Since(start), "error", err)

	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, core.Blocked(fmt.Sprintf("%q is required; install it and ensure it is on PATH", r.Bin))
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(RedactSecrets(stderr.String()))
		if msg == "" {
			msg = fmt.Sprintf("reviewer process failed: %v", err)
		}
		return nil, core.ExecFailure(truncateTail(msg, 2000))
	}

	out, err := Extract(&stdout)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func truncateTail(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	keep := maxChars - 20
	return "... [truncated]" + s[len(s)-keep:]
}
