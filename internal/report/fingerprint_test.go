package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tribunal-dev/tribunal/internal/core"
)

func fpFinding(mut func(*core.Finding)) core.Finding {
	f := core.Finding{
		Title:        "Nil map write in cache warmup",
		Body:         "warm() writes before allocation",
		Priority:     core.PriorityP0,
		Aspect:       "correctness",
		CodeLocation: core.CodeLocation{Path: "internal/cache/cache.go", LineRange: core.LineRange{Start: 44, End: 46}},
	}
	if mut != nil {
		mut(&f)
	}
	return f
}

func TestFingerprint_Stability(t *testing.T) {
	base := Fingerprint(fpFinding(nil))
	assert.True(t, strings.HasPrefix(base, FingerprintPrefix))

	// Stable under cosmetic variation.
	same := []func(*core.Finding){
		func(f *core.Finding) { f.Body = "completely different body" },
		func(f *core.Finding) { f.Title = "  nil MAP   write in\tcache warmup " },
		func(f *core.Finding) { f.Priority = core.PriorityP1 }, // same class
		func(f *core.Finding) { f.Verified = true },
		func(f *core.Finding) { f.Sources = []string{"x#L1-L2"} },
	}
	for i, mut := range same {
		assert.Equal(t, base, Fingerprint(fpFinding(mut)), "case %d should not change identity", i)
	}

	// Changed under identity-relevant variation.
	diff := []func(*core.Finding){
		func(f *core.Finding) { f.Title = "another defect entirely" },
		func(f *core.Finding) { f.Aspect = "security" },
		func(f *core.Finding) { f.CodeLocation.Path = "internal/cache/lru.go" },
		func(f *core.Finding) { f.CodeLocation.LineRange.Start = 45 },
		func(f *core.Finding) { f.Priority = core.PriorityP2 }, // class change
	}
	for i, mut := range diff {
		assert.NotEqual(t, base, Fingerprint(fpFinding(mut)), "case %d should change identity", i)
	}
}
