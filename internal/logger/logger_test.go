package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: "info", Format: "text"}, &buf)

	log.Debug("hidden")
	log.Info("review started", "pr", 7)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, `msg="review started"`)
	assert.Contains(t, out, "pr=7")
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: "debug", Format: "json"}, &buf)

	log.Debug("trace parsed", "events", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "trace parsed", entry["msg"])
	assert.Equal(t, float64(3), entry["events"])
}

func TestNewLogger_BadLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: "bogus", Format: "text"}, &buf)

	log.Debug("hidden")
	log.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
