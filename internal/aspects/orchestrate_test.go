package aspects

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribunal-dev/tribunal/internal/core"
)

func TestValidateSelection(t *testing.T) {
	got, err := ValidateSelection([]string{"Correctness", "test_audit"})
	require.NoError(t, err)
	assert.Equal(t, []string{"correctness", "test-audit"}, got)

	_, err = ValidateSelection(nil)
	assert.Error(t, err)
	_, err = ValidateSelection([]string{"correctness", "correctness"})
	assert.Error(t, err)
	_, err = ValidateSelection([]string{"vibes"})
	assert.Error(t, err)
	_, err = ValidateSelection([]string{"bad aspect!"})
	assert.Error(t, err)
}

type scriptedReviewer struct {
	payloads map[string]string
	delays   map[string]time.Duration
}

func approvedPayload(scopeID string) string {
	return fmt.Sprintf(`{"schema_version":1,"scope_id":%q,"status":"Approved","findings":[],"questions":[],"overall_explanation":"ok"}`, scopeID)
}

func (r *scriptedReviewer) ReviewAspect(ctx context.Context, req Request) ([]byte, error) {
	if d := r.delays[req.Aspect]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []byte(r.payloads[req.Aspect]), nil
}

func TestRun_IsolatesFailures(t *testing.T) {
	scope := "acme/widgets#1@abc"
	reviewer := &scriptedReviewer{
		payloads: map[string]string{
			"correctness": approvedPayload(scope),
			"security":    `this is not json`,
			"testing":     approvedPayload(scope),
		},
	}

	o := NewOrchestrator(reviewer, slog.New(slog.DiscardHandler))
	outcomes := o.Run(context.Background(), scope, "bundle", "", []string{"correctness", "security", "testing"})

	require.Len(t, outcomes, 3)
	assert.Equal(t, "correctness", outcomes[0].Aspect, "outcomes keep declaration order")
	assert.False(t, outcomes[0].Failed())
	assert.Equal(t, core.StatusApproved, outcomes[0].Result.Status)

	assert.True(t, outcomes[1].Failed(), "schema failure is fatal to the aspect")
	assert.Equal(t, core.ExitExecFailure, core.ExitCodeFor(outcomes[1].Err))

	assert.False(t, outcomes[2].Failed(), "siblings are unaffected")
}

func TestRun_AspectTimeout(t *testing.T) {
	scope := "acme/widgets#1@abc"
	reviewer := &scriptedReviewer{
		payloads: map[string]string{
			"correctness": approvedPayload(scope),
			"performance": approvedPayload(scope),
		},
		delays: map[string]time.Duration{"performance": time.Second},
	}

	o := NewOrchestrator(reviewer, slog.New(slog.DiscardHandler))
	o.AspectTimeout = 20 * time.Millisecond

	outcomes := o.Run(context.Background(), scope, "bundle", "", []string{"correctness", "performance"})

	assert.False(t, outcomes[0].Failed())
	require.True(t, outcomes[1].Failed())
	assert.True(t, outcomes[1].TimedOut)
}
