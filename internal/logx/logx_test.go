package logx

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"), "unrecognized levels default to info")
}

func TestParseLevelFiltersBelowConfiguredLevel(t *testing.T) {
	// New writes JSON to stderr when no file is configured, so this does
	// not call New: it wires parseLevel's result into the same kind of JSON
	// handler New builds, over a buffer, and checks the level filter.
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: parseLevel("warn")})
	logger := slog.New(handler)

	logger.Debug("should be filtered out")
	logger.Warn("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should be filtered out")
	assert.Contains(t, out, "should appear")
}

func TestNewDefaultsToStderrWriter(t *testing.T) {
	logger := New(Options{Level: "info"})
	assert.NotNil(t, logger)
}
