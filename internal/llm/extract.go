// Package llm invokes the external reviewer process and turns its JSONL
// event stream into a raw result payload plus a tool trace. Nothing here
// interprets review content; trust decisions happen downstream.
package llm

import (
	"bufio"
	"encoding/json"
	"io"
	"regexp"
	"strings"

	"github.com/tribunal-dev/tribunal/internal/core"
)

// ExtractedOutput is what a reviewer run leaves behind: the final text
// payload (expected to be one JSON object) and the raw tool_use event lines
// for the exploration audit.
type ExtractedOutput struct {
	Payload   []byte
	ToolTrace []string
}

// Extract scans a JSONL event stream. Non-JSON lines are runner noise and
// skipped; a line that looks like JSON but fails to parse is an execution
// failure. The payload is the last "text" event's part text; tool_use
// events are collected verbatim for the trace audit.
func Extract(r io.Reader) (*ExtractedOutput, error) {
	type eventLine struct {
		Type string `json:"type"`
		Part struct {
			Text string `json:"text"`
		} `json:"part"`
	}

	out := &ExtractedOutput{}
	sawEvent := false
	var lastText *string

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var ev eventLine
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, core.ExecFailureWrap("reviewer returned an invalid JSONL event", err)
		}
		sawEvent = true
		switch ev.Type {
		case "tool_use":
			out.ToolTrace = append(out.ToolTrace, line)
		case "text":
			t := ev.Part.Text
			lastText = &t
		}
	}
	if err := sc.Err(); err != nil {
		return nil, core.ExecFailureWrap("reading reviewer output", err)
	}

	if !sawEvent {
		return nil, core.ExecFailure("reviewer returned no JSON events")
	}
	if lastText == nil {
		return nil, core.ExecFailure("reviewer events contained no final text output")
	}
	out.Payload = []byte(*lastText)
	return out, nil
}

var redactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._\-]+`),
	regexp.MustCompile(`(?im)\b([A-Z0-9_]{2,64}_(?:TOKEN|KEY|SECRET))\b\s*[:=]\s*\S+`),
	regexp.MustCompile(`(?im)\b(api[_-]?key|token|secret)\b\s*[:=]\s*\S+`),
}

// RedactSecrets scrubs obvious credential shapes before any reviewer output
// is written to an artifact or log.
func RedactSecrets(text string) string {
	if text == "" {
		return text
	}
	out := redactPatterns[0].ReplaceAllString(text, "Bearer <REDACTED>")
	out = redactPatterns[1].ReplaceAllString(out, "$1=<REDACTED>")
	out = redactPatterns[2].ReplaceAllString(out, "$1=<REDACTED>")
	return out
}
