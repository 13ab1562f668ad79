package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/query-runner/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"invalid", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "INFO", InfoLevel.String())
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
	assert.Equal(t, "UNKNOWN", LogLevel(999).String())
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, WarnLevel, "text", false)
	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Errorf("error %d", 42)

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error 42")
}

func TestJSONFormatWithFields(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, DebugLevel, "json", false)
	logger.WithFields(map[string]any{"title": "Select All Customers", "rows": 5}).
		ErrorWithErr("execution applied", errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))

	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "execution applied", entry["msg"])
	assert.Equal(t, "Select All Customers", entry["title"])
	assert.EqualValues(t, 5, entry["rows"])
	assert.Equal(t, "boom", entry["error"])
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer

	parent := NewWithWriter(&buf, InfoLevel, "text", false)
	child := parent.WithField("component", "simulator")

	parent.Info("from parent")
	child.Info("from child")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "component=simulator")
	assert.Contains(t, lines[1], "component=simulator")
}

func TestWithErrorNil(t *testing.T) {
	logger := NewNopLogger()
	assert.Same(t, logger, logger.WithError(nil))
}

func TestNewLoggerFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "app.log")

	logger, err := NewLogger(config.LoggingConfig{
		Level:  "debug",
		Format: "text",
		Output: "file",
		File:   logPath,
	})
	require.NoError(t, err)

	logger.Debugf("written to %s", "file")
	require.NoError(t, logger.WithField("k", "v").Close())
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestNewLoggerErrors(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Output: "file"})
	assert.ErrorContains(t, err, "log file path is required")

	_, err = NewLogger(config.LoggingConfig{Output: "syslog"})
	assert.ErrorContains(t, err, "invalid log output")
}

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, DebugLevel, "text", false)

	err := LoggerMiddleware(logger, "export", func() error { return nil })
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Operation completed successfully")
	assert.Contains(t, buf.String(), "operation=export")

	buf.Reset()

	failure := errors.New("disk full")
	err = LoggerMiddleware(logger, "export", func() error { return failure })
	assert.ErrorIs(t, err, failure)
	assert.Contains(t, buf.String(), "Operation failed")
}

func TestGetLoggerBeforeInitialization(t *testing.T) {
	assert.NotNil(t, GetLogger())
}
