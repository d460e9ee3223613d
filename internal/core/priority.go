package core

import (
	"encoding/json"
	"fmt"
)

// Priority is the ordered severity of a finding. P0 is the most severe.
// The ordering is load-bearing: policy downgrades only ever move a finding
// toward P3, never back up.
type Priority int

const (
	PriorityP0 Priority = iota
	PriorityP1
	PriorityP2
	PriorityP3
)

var priorityNames = [...]string{"P0", "P1", "P2", "P3"}

// ParsePriority converts the wire representation ("P0".."P3") into a Priority.
func ParsePriority(s string) (Priority, error) {
	for i, name := range priorityNames {
		if s == name {
			return Priority(i), nil
		}
	}
	return PriorityP3, fmt.Errorf("unknown priority %q", s)
}

func (p Priority) String() string {
	if p < PriorityP0 || p > PriorityP3 {
		return fmt.Sprintf("Priority(%d)", int(p))
	}
	return priorityNames[p]
}

// Blocking reports whether the priority gates the overall review status.
func (p Priority) Blocking() bool {
	return p == PriorityP0 || p == PriorityP1
}

// Class groups priorities for fingerprinting: P0/P1 are "blocking", P2/P3
// are "advisory". A downgrade inside the same class keeps the fingerprint
// stable across runs.
func (p Priority) Class() string {
	if p.Blocking() {
		return "blocking"
	}
	return "advisory"
}

func (p Priority) MarshalJSON() ([]byte, error) {
	if p < PriorityP0 || p > PriorityP3 {
		return nil, fmt.Errorf("cannot marshal invalid priority %d", int(p))
	}
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
