package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blepad/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.input), "parseLevel(%q)", tt.input)
	}
}

func TestOpenOutput_Standard(t *testing.T) {
	w, closer, err := openOutput("stdout")
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, w)
	assert.NoError(t, closer())

	w, _, err = openOutput("")
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, w)

	w, _, err = openOutput("discard")
	require.NoError(t, err)
	assert.Equal(t, io.Discard, w)
}

func TestNew_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "blepad.log")
	log, closer, err := New(config.LoggerConfig{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	log.Debug("connected", "id", "aa:bb")
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "connected", entry["msg"])
	assert.Equal(t, "aa:bb", entry["id"])
}

func TestNew_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blepad.log")
	log, closer, err := New(config.LoggerConfig{Level: "warn", Format: "text", Output: path})
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown")
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}
