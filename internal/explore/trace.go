// Package explore audits a reviewer's recorded tool-execution trace after
// the run completes. Exploration cannot be sandboxed at execution time; the
// safety boundary is this post-hoc audit (fail-closed on any violation) plus
// redaction before persistence: only (path, line range) provenance survives,
// never file contents or command output.
package explore

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/tribunal-dev/tribunal/internal/core"
)

// EventKind classifies a recorded tool invocation.
type EventKind string

const (
	EventRead   EventKind = "read"
	EventSearch EventKind = "search"
	EventShell  EventKind = "shell"
)

// ToolEvent is one structured entry of the tool trace. Output payloads are
// stripped before the trace is persisted, so an event carries only what the
// tool was asked to do.
type ToolEvent struct {
	Kind EventKind

	// Path is set for read events.
	Path string
	// Pattern and Include are set for search events.
	Pattern string
	Include string
	// Command is set for shell events.
	Command string
}

// traceLine is the JSONL wire shape of one trace event.
type traceLine struct {
	Type  string `json:"type"`
	Tool  string `json:"tool"`
	Input struct {
		Path     string `json:"path"`
		FilePath string `json:"file_path"`
		Pattern  string `json:"pattern"`
		Include  string `json:"include"`
		Command  string `json:"command"`
	} `json:"input"`
}

// ParseTrace reads a JSONL tool trace. Non-JSON lines are skipped (runner
// logs can interleave); a line that looks like JSON but does not parse is an
// execution failure, since a corrupt trace cannot be audited.
func ParseTrace(r io.Reader) ([]ToolEvent, error) {
	var events []ToolEvent

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var tl traceLine
		if err := json.Unmarshal([]byte(line), &tl); err != nil {
			return nil, core.ExecFailureWrap("tool trace contains an invalid JSONL event", err)
		}
		if tl.Type != "tool_use" {
			continue
		}
		ev, ok := eventFromLine(tl)
		if !ok {
			continue
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, core.ExecFailureWrap("reading tool trace", err)
	}
	return events, nil
}

func eventFromLine(tl traceLine) (ToolEvent, bool) {
	path := tl.Input.Path
	if path == "" {
		path = tl.Input.FilePath
	}
	switch tl.Tool {
	case "read", "view":
		return ToolEvent{Kind: EventRead, Path: path}, true
	case "grep", "glob", "search":
		return ToolEvent{Kind: EventSearch, Pattern: tl.Input.Pattern, Include: tl.Input.Include, Path: path}, true
	case "bash", "shell":
		return ToolEvent{Kind: EventShell, Command: tl.Input.Command}, true
	}
	return ToolEvent{}, false
}
