// Package verify is the trust pipeline between raw reviewer output and the
// typed review model: a strict schema gate, an evidence check against the
// run's provenance, and a deterministic downgrade policy. After this package
// runs, no unverifiable strong claim survives with its original priority.
package verify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tribunal-dev/tribunal/internal/core"
)

// AspectResultSchemaVersion is the reviewer output contract version.
const AspectResultSchemaVersion = 1

// The wire types mirror the reviewer output contract exactly. Raw output is
// never deserialized speculatively into the core model: it must pass this
// gate first, including rejection of any unknown field at any nesting level.
type aspectResultWire struct {
	SchemaVersion      int           `json:"schema_version"`
	ScopeID            string        `json:"scope_id"`
	Status             string        `json:"status"`
	Findings           []findingWire `json:"findings"`
	Questions          []string      `json:"questions"`
	OverallExplanation string        `json:"overall_explanation"`
}

type findingWire struct {
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Priority     string            `json:"priority"`
	Sources      []string          `json:"sources"`
	CodeLocation *codeLocationWire `json:"code_location"`
}

type codeLocationWire struct {
	Path      string         `json:"repo_relative_path"`
	LineRange *lineRangeWire `json:"line_range"`
}

type lineRangeWire struct {
	Start *int `json:"start"`
	End   *int `json:"end"`
}

// DecodeAspectResult validates a raw reviewer payload against the closed
// output contract and promotes it to the typed model. Any violation is an
// execution failure for the owning aspect: unknown fields, wrong enum
// values, a missing scope id, or a status inconsistent with its own payload.
func DecodeAspectResult(raw []byte, aspect, expectedScopeID string) (*core.AspectResult, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var wire aspectResultWire
	if err := dec.Decode(&wire); err != nil {
		return nil, core.ExecFailureWrap("review payload is not a valid result object", err)
	}
	// Exactly one JSON value.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, core.ExecFailure("review payload contains trailing data")
	}

	if wire.SchemaVersion != AspectResultSchemaVersion {
		return nil, core.ExecFailure(fmt.Sprintf("unsupported schema_version %d", wire.SchemaVersion))
	}
	if wire.ScopeID != expectedScopeID {
		return nil, core.ExecFailure(fmt.Sprintf("scope_id mismatch: expected %q, got %q", expectedScopeID, wire.ScopeID))
	}

	status, err := core.ParseStatus(wire.Status)
	if err != nil {
		return nil, core.ExecFailureWrap("invalid status", err)
	}

	result := &core.AspectResult{
		Aspect:             aspect,
		Status:             status,
		Questions:          wire.Questions,
		OverallExplanation: wire.OverallExplanation,
	}
	for i, fw := range wire.Findings {
		f, err := promoteFinding(fw)
		if err != nil {
			return nil, core.ExecFailureWrap(fmt.Sprintf("findings[%d]", i), err)
		}
		result.Findings = append(result.Findings, f)
	}

	if err := result.CheckInvariants(); err != nil {
		return nil, core.ExecFailureWrap("status/payload mismatch", err)
	}
	return result, nil
}

func promoteFinding(fw findingWire) (core.Finding, error) {
	var f core.Finding

	if fw.Title == "" {
		return f, fmt.Errorf("title is required")
	}
	priority, err := core.ParsePriority(fw.Priority)
	if err != nil {
		return f, err
	}
	if fw.CodeLocation == nil {
		return f, fmt.Errorf("code_location is required")
	}
	if fw.CodeLocation.Path == "" {
		return f, fmt.Errorf("code_location.repo_relative_path is required")
	}
	lr := fw.CodeLocation.LineRange
	if lr == nil || lr.Start == nil || lr.End == nil {
		return f, fmt.Errorf("code_location.line_range start and end are required")
	}
	rng := core.LineRange{Start: *lr.Start, End: *lr.End}
	if !rng.Valid() {
		return f, fmt.Errorf("code_location.line_range end must be >= start >= 1")
	}

	f = core.Finding{
		Title:    fw.Title,
		Body:     fw.Body,
		Priority: priority,
		Sources:  fw.Sources,
		CodeLocation: core.CodeLocation{
			Path:      fw.CodeLocation.Path,
			LineRange: rng,
		},
	}
	return f, nil
}
