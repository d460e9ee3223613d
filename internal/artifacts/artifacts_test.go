package artifacts

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	base := t.TempDir()
	w, err := NewWriter(base, "acme/widgets#3@abcdef", slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	require.NoError(t, w.WriteBundle("# SRC: a.go\nL1: x\n"))
	require.NoError(t, w.WriteAspectPayload("security", []byte(`{"status":"Approved"}`)))
	require.NoError(t, w.WriteAspectTrace("security", []string{`{"type":"tool_use"}`}))
	require.NoError(t, w.WriteJSON("report.json", map[string]string{"status": "Approved"}))

	// run id path separators must not escape the base directory
	assert.Equal(t, filepath.Join(base, "acme_widgets#3@abcdef"), w.Dir())

	data, err := os.ReadFile(filepath.Join(w.Dir(), "bundle.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# SRC: a.go")

	data, err = os.ReadFile(filepath.Join(w.Dir(), "trace-security.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, "{\"type\":\"tool_use\"}\n", string(data))

	entries, err := os.ReadDir(w.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, filepath.Ext(e.Name()) == ".tmp", "no temp files left behind")
	}
}
