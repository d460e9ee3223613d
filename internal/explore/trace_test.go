package explore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribunal-dev/tribunal/internal/core"
)

func TestParseTrace(t *testing.T) {
	trace := strings.Join([]string{
		`runner starting up`, // non-JSON noise, skipped
		`{"type":"tool_use","tool":"read","input":{"path":"internal/cache/cache.go"}}`,
		`{"type":"tool_use","tool":"grep","input":{"pattern":"TODO","include":"*.go"}}`,
		`{"type":"tool_use","tool":"bash","input":{"command":"git --no-pager status"}}`,
		`{"type":"text","part":{"text":"done"}}`, // not a tool event
		``,
	}, "\n")

	events, err := ParseTrace(strings.NewReader(trace))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, ToolEvent{Kind: EventRead, Path: "internal/cache/cache.go"}, events[0])
	assert.Equal(t, EventSearch, events[1].Kind)
	assert.Equal(t, "*.go", events[1].Include)
	assert.Equal(t, "git --no-pager status", events[2].Command)
}

func TestParseTrace_CorruptJSONFails(t *testing.T) {
	_, err := ParseTrace(strings.NewReader(`{"type":"tool_use","tool":`))
	require.Error(t, err)
	assert.Equal(t, core.ExitExecFailure, core.ExitCodeFor(err))
}

func TestRedactedBundle(t *testing.T) {
	text := strings.Join([]string{
		"# SRC: internal/cache/cache.go",
		"L40: func warm() {",
		"L41: \tc.entries = nil",
		"L42: }",
		"L90: var x int",
		"# SRC: ../outside.go",
		"L1: nope",
	}, "\n")

	tb := RedactedBundle(&AuditResult{}, text, "scope")
	require.Len(t, tb.Spans, 2, "contiguous runs collapse into spans")

	assert.Equal(t, core.ProvenanceSpan{
		SourceID: "scope", Path: "internal/cache/cache.go",
		LineStart: 40, LineEnd: 42, Category: core.SpanExplore,
	}, tb.Spans[0])
	assert.Equal(t, 90, tb.Spans[1].LineStart)

	require.Len(t, tb.Warnings, 1, "traversal paths are dropped with a warning")
	assert.Equal(t, "../outside.go", tb.Warnings[0].Path)
}

func TestRenderToolBundle(t *testing.T) {
	events := []ToolEvent{
		{Kind: EventRead, Path: "a.go"},
		{Kind: EventRead, Path: "a.go"}, // repeat reads render once
		{Kind: EventSearch, Pattern: "TODO", Include: "*.go"},
		{Kind: EventRead, Path: "missing.go"},
	}
	read := func(path string) (string, error) {
		if path == "a.go" {
			return "package a\r\nvar X = 1\n", nil
		}
		return "", core.ExecFailure("no such file")
	}

	got := RenderToolBundle(events, read)
	assert.Equal(t, "# SRC: a.go\nL1: package a\nL2: var X = 1\n", got)
}

func TestRedactedBundle_EmptyWhenBlocked(t *testing.T) {
	blocked := &AuditResult{Violations: []Violation{{Err: core.Blocked("x")}}}
	tb := RedactedBundle(blocked, "# SRC: a.go\nL1: text", "scope")
	assert.Empty(t, tb.Spans, "a blocked exploration contributes no provenance")
}
