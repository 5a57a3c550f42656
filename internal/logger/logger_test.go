package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text")
	t.Cleanup(func() { InitWithWriter(&bytes.Buffer{}, "INFO", "text") })

	Debug("debug line")
	Info("info line")
	Warn("warn line", "user", "alice")
	Error("error line")

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, "warn line")
	assert.Contains(t, out, "user=alice")
	assert.Contains(t, out, "error line")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "DEBUG", "json")
	t.Cleanup(func() { InitWithWriter(&bytes.Buffer{}, "INFO", "text") })

	Info("session registered", "user", "bob", "transport", "tcp")

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &rec))
	assert.Equal(t, "session registered", rec["msg"])
	assert.Equal(t, "bob", rec["user"])
	assert.Equal(t, "INFO", rec["level"])
}

func TestInvalidSettingsAreIgnored(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")
	t.Cleanup(func() { InitWithWriter(&bytes.Buffer{}, "INFO", "text") })

	SetLevel("LOUD")
	SetFormat("xml")

	Debug("hidden")
	Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "level=INFO msg=shown")
}

func TestWithBindsFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")
	t.Cleanup(func() { InitWithWriter(&bytes.Buffer{}, "INFO", "text") })

	With("session_id", "abc").Info("hello")
	assert.Contains(t, buf.String(), "session_id=abc")
}

func TestInitRejectsUnwritablePath(t *testing.T) {
	err := Init(Config{Output: t.TempDir() + "/missing/dir/log.txt"})
	require.Error(t, err)
}
