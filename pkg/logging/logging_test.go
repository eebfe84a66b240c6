package logging_test

import (
	"bytes"
	"encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willbeason/loan-prep/pkg/logging"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tcs := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for input, want := range tcs {
		assert.Equal(t, want, logging.ParseLevel(input), input)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New("prepare-loans", "warn", logging.FormatJSON, &buf)

	logger.Info("hidden")
	logger.Warn("shown", slog.Int("rows", 3))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "prepare-loans", line["service"])
	assert.Equal(t, 3.0, line["rows"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New("column-stats", "debug", "TEXT", &buf)

	logger.Debug("profiling")

	assert.Contains(t, buf.String(), "msg=profiling")
	assert.Contains(t, buf.String(), "service=column-stats")
}
