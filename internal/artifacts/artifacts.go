// Package artifacts persists the intermediate products of a review run so
// every verdict can be audited after the fact: the exact bundle the reviewers
// saw, each raw payload, the verification outcome, and the final report.
package artifacts

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Writer lays out one run's artifacts under <base>/<runID>/.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates the run directory and returns a writer for it.
func NewWriter(baseDir, runID string, logger *slog.Logger) (*Writer, error) {
	dir := filepath.Join(baseDir, sanitize(runID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact directory: %w", err)
	}
	return &Writer{dir: dir, logger: logger}, nil
}

// Dir returns the run's artifact directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteBundle stores the context bundle exactly as rendered for reviewers.
func (w *Writer) WriteBundle(bundle string) error {
	return w.write("bundle.md", []byte(bundle))
}

// WriteSoT stores the source-of-truth block appended to prompts.
func (w *Writer) WriteSoT(sot string) error {
	return w.write("sot.md", []byte(sot))
}

// WriteAspectPayload stores the raw payload an aspect reviewer returned,
// before any validation.
func (w *Writer) WriteAspectPayload(aspect string, payload []byte) error {
	return w.write(fmt.Sprintf("aspect-%s.json", sanitize(aspect)), payload)
}

// WriteAspectTrace stores the tool_use event lines of one reviewer invocation.
func (w *Writer) WriteAspectTrace(aspect string, lines []string) error {
	data := strings.Join(lines, "\n")
	if data != "" {
		data += "\n"
	}
	return w.write(fmt.Sprintf("trace-%s.jsonl", sanitize(aspect)), []byte(data))
}

// WriteText stores a plain-text artifact under name.
func (w *Writer) WriteText(name, content string) error {
	return w.write(sanitize(name), []byte(content))
}

// WriteJSON marshals v with indentation and stores it under name.
func (w *Writer) WriteJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}
	return w.write(name, data)
}

// write lands content through a temp file and rename, so a crashed run never
// leaves a truncated artifact behind.
func (w *Writer) write(name string, data []byte) error {
	tmp, err := os.CreateTemp(w.dir, "."+name+".tmp")
	if err != nil {
		return fmt.Errorf("creating temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing artifact %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing artifact %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(w.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storing artifact %s: %w", name, err)
	}
	w.logger.Debug("artifact written", "name", name, "bytes", len(data))
	return nil
}

// sanitize keeps artifact names to one path segment.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	return strings.ReplaceAll(s, string(os.PathSeparator), "_")
}
