package delivery

import "github.com/tribunal-dev/tribunal/internal/core"

// SelectInline picks the findings that get inline comments: surviving P0/P1
// only. The policy stage guarantees every one of them is verified, and
// downgraded findings can never reach a blocking priority, so no further
// filtering is needed here. Order is preserved from the report.
func SelectInline(findings []core.Finding) []core.Finding {
	var out []core.Finding
	for _, f := range findings {
		if f.Priority.Blocking() {
			out = append(out, f)
		}
	}
	return out
}
