package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Writer: &buf,
		Format: "json",
		Level:  slog.LevelInfo,
	})

	log.Info("hello", "key", "value")

	out := buf.String()
	assert.Contains(t, out, `"msg":"hello"`)
	assert.Contains(t, out, `"key":"value"`)
}

func TestNew_ProductionDefaultsToJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Writer:      &buf,
		Environment: "production",
	})

	log.Info("probe")
	assert.True(t, strings.HasPrefix(buf.String(), "{"), "production logs should be JSON")
}

func TestNew_PrettyFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Writer: &buf,
		Format: "pretty",
		Level:  slog.LevelDebug,
	})

	log.Debug("launching", "port", 8080)

	out := buf.String()
	assert.Contains(t, out, "DBG")
	assert.Contains(t, out, "launching")
	assert.Contains(t, out, "port=8080")
}

func TestPrettyHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Writer: &buf,
		Format: "pretty",
		Level:  slog.LevelWarn,
	})

	log.Info("hidden")
	log.Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestPrettyHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Writer: &buf,
		Format: "pretty",
	})

	log.With("request_id", "abc").Info("handled")
	assert.Contains(t, buf.String(), "request_id=abc")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "input %q", tt.in)
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Writer: &buf,
		Format: "json",
	})

	log.WithError(assert.AnError).Error("operation failed")

	out := buf.String()
	require.Contains(t, out, "operation failed")
	assert.Contains(t, out, assert.AnError.Error())
}
