package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-events/internal/config"
)

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func TestLoggerWritesJSONLines(t *testing.T) {
	var terminal bytes.Buffer
	file := &bufferCloser{}
	l := New(&terminal, file, INFO)

	l.Info("event", "created")
	l.LogSecurity("LOGIN", "bad password")

	lines := strings.Split(strings.TrimSpace(file.String()), "\n")
	require.Len(t, lines, 2)

	var first LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "INFO", first.Level)
	assert.Equal(t, "EVENT", first.Category)
	assert.Equal(t, "created", first.Message)
	assert.Equal(t, "logger_test.go", first.File)

	var second LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "WARN", second.Level)
	assert.Equal(t, "SECURITY", second.Category)
	assert.Contains(t, terminal.String(), "bad password")
}

func TestLoggerFiltersBelowMinLevel(t *testing.T) {
	file := &bufferCloser{}
	l := New(&bytes.Buffer{}, file, WARN)

	l.Debug("x", "debug")
	l.Info("x", "info")
	l.Error("x", "error")

	assert.NotContains(t, file.String(), "\"info\"")
	assert.Contains(t, file.String(), "\"error\"")
}

func TestFatalExits(t *testing.T) {
	l := New(&bytes.Buffer{}, nil, INFO)
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatal("config", "missing secret")

	assert.Equal(t, 1, code)
}

func TestNewLoggerCreatesFile(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(config.LogConfig{Dir: dir, Level: "DEBUG", Service: "events-test"})
	l.Close()

	matches, err := filepath.Glob(filepath.Join(dir, "events-test-*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Logging system initialized")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, INFO, ParseLevel("bogus"))
}

func TestNilAndNopLoggersAreSafe(t *testing.T) {
	var l *Logger
	l.Info("x", "nil receiver")
	NewNop().Error("x", "discarded")
}
