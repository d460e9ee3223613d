package core

import (
	"encoding/json"
	"fmt"
)

// Status is a reviewer's verdict for one aspect, and the aggregate verdict
// of the whole review.
type Status string

const (
	StatusApproved         Status = "Approved"
	StatusApprovedWithNits Status = "Approved with nits"
	StatusBlocked          Status = "Blocked"
	StatusQuestion         Status = "Question"
)

// ParseStatus validates the wire representation of a status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusApproved, StatusApprovedWithNits, StatusBlocked, StatusQuestion:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// LineRange is an inclusive 1-based line range.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Valid reports whether the range is well-formed.
func (r LineRange) Valid() bool {
	return r.Start >= 1 && r.End >= r.Start
}

// CodeLocation points a finding at a region of the repository.
type CodeLocation struct {
	Path      string    `json:"repo_relative_path"`
	LineRange LineRange `json:"line_range"`
}

// Finding is a single reviewer claim about the change. It is created by a
// reviewer, mutated only by the evidence/policy stage (which may lower
// Priority and record OriginalPriority), and immutable after that.
type Finding struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Priority Priority `json:"priority"`

	// Sources are provenance references of the form "path" or
	// "path#Lstart-Lend", reproduced from the context shown to the reviewer.
	Sources []string `json:"sources"`

	CodeLocation CodeLocation `json:"code_location"`

	// Aspect is stamped by the aggregator when findings are pooled.
	Aspect string `json:"aspect,omitempty"`

	// Verified is set by the evidence check.
	Verified bool `json:"verified"`

	// OriginalPriority records the pre-downgrade priority when the policy
	// stage lowered an unverified finding.
	OriginalPriority *Priority `json:"original_priority,omitempty"`
}

// Downgraded reports whether the policy stage lowered this finding.
func (f *Finding) Downgraded() bool {
	return f.OriginalPriority != nil
}

// AspectResult is one reviewer's verdict for one review dimension.
//
// Invariants (enforced at the schema gate, never reinterpreted):
//   - Approved: no findings, no questions
//   - Approved with nits: no P0/P1 findings, no questions
//   - Blocked: at least one P0/P1 finding
//   - Question: at least one question
type AspectResult struct {
	Aspect             string    `json:"aspect"`
	Status             Status    `json:"status"`
	Findings           []Finding `json:"findings"`
	Questions          []string  `json:"questions"`
	OverallExplanation string    `json:"overall_explanation"`
}

// CheckInvariants verifies the status/payload cross-field rules.
func (r *AspectResult) CheckInvariants() error {
	blocking := 0
	for i := range r.Findings {
		if r.Findings[i].Priority.Blocking() {
			blocking++
		}
	}
	switch r.Status {
	case StatusApproved:
		if len(r.Findings) > 0 || len(r.Questions) > 0 {
			return fmt.Errorf("status %q requires no findings and no questions", r.Status)
		}
	case StatusApprovedWithNits:
		if blocking > 0 {
			return fmt.Errorf("status %q forbids P0/P1 findings", r.Status)
		}
		if len(r.Questions) > 0 {
			return fmt.Errorf("status %q forbids questions", r.Status)
		}
	case StatusBlocked:
		if blocking == 0 {
			return fmt.Errorf("status %q requires at least one P0/P1 finding", r.Status)
		}
	case StatusQuestion:
		if len(r.Questions) == 0 {
			return fmt.Errorf("status %q requires at least one question", r.Status)
		}
	default:
		return fmt.Errorf("unknown status %q", r.Status)
	}
	return nil
}

// RecomputeStatus derives the status implied by a findings/questions payload.
// Used after policy downgrades so the declared status keeps satisfying the
// cross-field invariants.
func RecomputeStatus(findings []Finding, questions []string) Status {
	for i := range findings {
		if findings[i].Priority.Blocking() {
			return StatusBlocked
		}
	}
	if len(questions) > 0 {
		return StatusQuestion
	}
	if len(findings) > 0 {
		return StatusApprovedWithNits
	}
	return StatusApproved
}

// CloneFindings deep-copies a findings slice so policy application never
// mutates the caller's payload.
func CloneFindings(in []Finding) []Finding {
	if in == nil {
		return nil
	}
	out := make([]Finding, len(in))
	copy(out, in)
	for i := range out {
		if in[i].Sources != nil {
			out[i].Sources = append([]string(nil), in[i].Sources...)
		}
		if in[i].OriginalPriority != nil {
			op := *in[i].OriginalPriority
			out[i].OriginalPriority = &op
		}
	}
	return out
}

// MarshalIndent is a convenience for artifact writes.
func MarshalIndent(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
