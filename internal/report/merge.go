// Package report aggregates per-aspect reviewer verdicts into a single
// immutable review report, and renders it for humans. Aggregation never
// reinterprets a verdict: it pools findings as-is and combines statuses by
// fixed precedence.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/tribunal-dev/tribunal/internal/core"
)

// AspectOutcome is what the orchestrator hands the aggregator for one
// aspect: either a policy-checked result, or the failure that replaced it.
type AspectOutcome struct {
	Aspect string
	Result *core.AspectResult
	Stats  core.VerifyStats

	// Err is set when the aspect produced no usable result. A failed aspect
	// counts as Blocked: silence is never approval.
	Err      error
	TimedOut bool
}

// Failed reports whether the aspect produced no usable result.
func (o AspectOutcome) Failed() bool {
	return o.Err != nil || o.Result == nil
}

// statusRank orders statuses by precedence for aggregation. Higher wins.
func statusRank(s core.Status) int {
	switch s {
	case core.StatusBlocked:
		return 3
	case core.StatusQuestion:
		return 2
	case core.StatusApprovedWithNits:
		return 1
	default:
		return 0
	}
}

// CombineStatuses folds aspect statuses by precedence:
// Blocked > Question > Approved with nits > Approved.
func CombineStatuses(statuses []core.Status) core.Status {
	combined := core.StatusApproved
	for _, s := range statuses {
		if statusRank(s) > statusRank(combined) {
			combined = s
		}
	}
	return combined
}

// Aggregate merges aspect outcomes into one report. Outcomes must arrive in
// aspect declaration order; pooled findings and questions preserve that
// order, so the report is deterministic for a given set of inputs.
func Aggregate(scopeID, headSHA string, outcomes []AspectOutcome, bundleWarnings int) *core.ReviewReport {
	rep := &core.ReviewReport{
		ScopeID:        scopeID,
		HeadSHA:        headSHA,
		AspectStatuses: make(map[string]core.Status, len(outcomes)),
		GeneratedAt:    time.Now().UTC(),
	}
	rep.Stats.Aspects = make(map[string]core.VerifyStats, len(outcomes))
	rep.Stats.BundleWarning = bundleWarnings

	var statuses []core.Status
	var explanations []string

	for _, o := range outcomes {
		if o.Failed() {
			// A failed aspect gates the review exactly like a block.
			rep.AspectStatuses[o.Aspect] = core.StatusBlocked
			statuses = append(statuses, core.StatusBlocked)
			if o.TimedOut {
				rep.Stats.TimedOut = append(rep.Stats.TimedOut, o.Aspect)
				explanations = append(explanations, fmt.Sprintf("%s: reviewer timed out", o.Aspect))
			} else {
				rep.Stats.SchemaFailed = append(rep.Stats.SchemaFailed, o.Aspect)
				explanations = append(explanations, fmt.Sprintf("%s: reviewer failed (%v)", o.Aspect, o.Err))
			}
			continue
		}

		res := o.Result
		rep.AspectStatuses[o.Aspect] = res.Status
		rep.Stats.Aspects[o.Aspect] = o.Stats
		rep.Stats.Totals.Accumulate(o.Stats)
		statuses = append(statuses, res.Status)

		for _, f := range res.Findings {
			f.Aspect = o.Aspect
			rep.Findings = append(rep.Findings, f)
		}
		rep.Questions = append(rep.Questions, res.Questions...)
		if res.OverallExplanation != "" {
			explanations = append(explanations, fmt.Sprintf("%s: %s", o.Aspect, res.OverallExplanation))
		}
	}

	rep.Status = CombineStatuses(statuses)
	rep.OverallExplanation = strings.Join(explanations, "\n")
	return rep
}
