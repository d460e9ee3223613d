package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	for i, name := range []string{"P0", "P1", "P2", "P3"} {
		p, err := ParsePriority(name)
		require.NoError(t, err)
		assert.Equal(t, Priority(i), p)
	}
	_, err := ParsePriority("P4")
	assert.Error(t, err)
	_, err = ParsePriority("p0")
	assert.Error(t, err)
}

func TestPriorityClasses(t *testing.T) {
	assert.True(t, PriorityP0.Blocking())
	assert.True(t, PriorityP1.Blocking())
	assert.False(t, PriorityP2.Blocking())
	assert.False(t, PriorityP3.Blocking())

	assert.Equal(t, "blocking", PriorityP1.Class())
	assert.Equal(t, "advisory", PriorityP2.Class())
}

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCodeFor(nil))
	assert.Equal(t, ExitBlocked, ExitCodeFor(Blocked("inline cap exceeded")))
	assert.Equal(t, ExitExecFailure, ExitCodeFor(ExecFailure("bad input")))
	assert.Equal(t, ExitExecFailure, ExitCodeFor(assert.AnError))
}

func TestRecomputeStatus(t *testing.T) {
	tests := []struct {
		name      string
		findings  []Finding
		questions []string
		want      Status
	}{
		{"empty", nil, nil, StatusApproved},
		{"advisory only", []Finding{{Priority: PriorityP3}}, nil, StatusApprovedWithNits},
		{"question wins over nits", []Finding{{Priority: PriorityP2}}, []string{"why?"}, StatusQuestion},
		{"blocking wins over question", []Finding{{Priority: PriorityP0}}, []string{"why?"}, StatusBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecomputeStatus(tt.findings, tt.questions))
		})
	}
}

func TestProvenanceIndex(t *testing.T) {
	idx := NewProvenanceIndex([]ProvenanceSpan{
		{SourceID: "s", Path: "a.go", LineStart: 10, LineEnd: 20, Category: SpanDiff},
		{SourceID: "s", Path: "a.go", LineStart: 40, LineEnd: 50, Category: SpanDiff},
	})

	assert.True(t, idx.HasPath("a.go"))
	assert.False(t, idx.HasPath("b.go"))

	assert.True(t, idx.Contains("a.go", 10, 20))
	assert.True(t, idx.Contains("a.go", 12, 15))
	// A range straddling two spans is not covered by a single one.
	assert.False(t, idx.Contains("a.go", 15, 45))
	assert.False(t, idx.Contains("a.go", 9, 10))

	// Invalid spans are dropped on Add.
	idx.Add(ProvenanceSpan{Path: "", LineStart: 1, LineEnd: 2})
	idx.Add(ProvenanceSpan{Path: "c.go", LineStart: 5, LineEnd: 3})
	assert.False(t, idx.HasPath("c.go"))

	idx.Add(ProvenanceSpan{SourceID: "x", Path: "b.go", LineStart: 1, LineEnd: 3, Category: SpanExplore})
	assert.Equal(t, []string{"a.go", "b.go"}, idx.Paths())
}

func TestRepoConfigMayExplore(t *testing.T) {
	cfg := DefaultRepoConfig()
	assert.False(t, cfg.MayExplore("security"))

	cfg.Explore = true
	assert.True(t, cfg.MayExplore("security"))
	assert.True(t, cfg.MayExplore("testing"))

	cfg.ExploreAspects = []string{"security"}
	assert.True(t, cfg.MayExplore("security"))
	assert.False(t, cfg.MayExplore("testing"))
}
