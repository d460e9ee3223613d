package verify

import (
	"log/slog"

	"github.com/tribunal-dev/tribunal/internal/core"
)

// DowngradeTarget is the priority assigned to unverified findings.
const DowngradeTarget = core.PriorityP3

// ApplyPolicy runs the evidence check over an aspect's findings and applies
// the downgrade policy: an unverified finding above the target priority is
// downgraded to it, with its original priority preserved for display. No
// finding is ever dropped here. The returned stats carry the per-reason
// downgrade counts.
//
// After this function, every finding at P0-P2 has Verified=true.
func ApplyPolicy(findings []core.Finding, idx *core.ProvenanceIndex, logger *slog.Logger) ([]core.Finding, core.VerifyStats) {
	out := core.CloneFindings(findings)
	var stats core.VerifyStats

	for i := range out {
		f := &out[i]
		verified, reason := VerifyFinding(*f, idx)
		f.Verified = verified

		stats.TotalFindings++
		if verified {
			stats.Verified++
			continue
		}
		stats.Unverified++
		if stats.UnverifiedReason == nil {
			stats.UnverifiedReason = make(map[string]int)
		}
		stats.UnverifiedReason[reason]++

		if f.Priority < DowngradeTarget {
			orig := f.Priority
			f.OriginalPriority = &orig
			f.Priority = DowngradeTarget
			stats.Downgraded++
			logger.Info("finding downgraded: citations do not resolve",
				"aspect", f.Aspect,
				"title", f.Title,
				"path", f.CodeLocation.Path,
				"from", orig.String(),
				"to", DowngradeTarget.String(),
				"reason", reason,
			)
		}
	}
	return out, stats
}

// ApplyPolicyToResult applies the downgrade policy to an aspect result and
// recomputes its status from the surviving payload. A result that was Blocked
// solely on unverified P0/P1 findings settles to a weaker status.
func ApplyPolicyToResult(res *core.AspectResult, idx *core.ProvenanceIndex, logger *slog.Logger) (*core.AspectResult, core.VerifyStats) {
	findings, stats := ApplyPolicy(res.Findings, idx, logger)
	out := &core.AspectResult{
		Aspect:             res.Aspect,
		Status:             core.RecomputeStatus(findings, res.Questions),
		Findings:           findings,
		Questions:          res.Questions,
		OverallExplanation: res.OverallExplanation,
	}
	return out, stats
}
