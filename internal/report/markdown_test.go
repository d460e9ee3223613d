package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tribunal-dev/tribunal/internal/core"
)

func TestRenderSummaryComment(t *testing.T) {
	orig := core.PriorityP0
	rep := &core.ReviewReport{
		ScopeID: "acme/widgets#42@abc",
		HeadSHA: "abcdef0123456789abcdef",
		Status:  core.StatusBlocked,
		AspectStatuses: map[string]core.Status{
			"correctness": core.StatusBlocked,
			"readability": core.StatusApproved,
		},
		Findings: []core.Finding{
			{
				Title: "off-by-one", Priority: core.PriorityP1, Aspect: "correctness", Verified: true,
				Body:         "loop bound excludes the final element",
				CodeLocation: core.CodeLocation{Path: "a.go", LineRange: core.LineRange{Start: 3, End: 5}},
			},
			{
				Title: "speculative race", Priority: core.PriorityP3, Aspect: "correctness",
				OriginalPriority: &orig,
				CodeLocation:     core.CodeLocation{Path: "b.go", LineRange: core.LineRange{Start: 9, End: 9}},
			},
		},
		Questions: []string{"should the cache be bounded?"},
	}
	rep.Stats.Totals = core.VerifyStats{TotalFindings: 2, Verified: 1, Downgraded: 1}

	body := RenderSummaryComment(rep)

	assert.True(t, strings.HasPrefix(body, SummaryMarker), "marker must lead the body")
	assert.Contains(t, body, "Blocked")
	assert.Contains(t, body, "`a.go:3-5`")
	assert.Contains(t, body, "### Blocking findings")
	assert.Contains(t, body, "<details>")
	assert.Contains(t, body, "downgraded from P0")
	assert.Contains(t, body, "should the cache be bounded?")
	assert.Contains(t, body, "abcdef012345")
	assert.NotContains(t, body, "abcdef0123456789abcdef", "sha is shortened")
}
