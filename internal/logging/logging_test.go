package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/reconciler/internal/logging"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for in, want := range tests {
		assert.Equal(t, want, logging.ParseLevel(in), in)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger := logging.New(&buf, "warn", "json")
	logger.Info("dropped")
	logger.Warn("skipped record", "id", "T1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "skipped record", entry["msg"])
	assert.Equal(t, "T1", entry["id"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer

	logging.New(&buf, "debug", "text").Debug("phase done", "phase", "exact_id")

	assert.Contains(t, buf.String(), "msg=\"phase done\"")
	assert.Contains(t, buf.String(), "phase=exact_id")
}
