package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)
}

func TestProductionConfig(t *testing.T) {
	cfg := ProductionConfig()

	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "info", cfg.Level)
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(&Config{
		Level:      "debug",
		Format:     "json",
		Output:     path,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	require.NoError(t, err)

	log.Info("listing posted", zap.String("platform", "ebay"))
	require.NoError(t, Sync(log))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"listing posted"`)
	assert.Contains(t, string(content), `"platform":"ebay"`)
	assert.Contains(t, string(content), `"level":"info"`)
}

func TestNew_LevelFiltersEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(&Config{
		Level:      "warn",
		Format:     "json",
		Output:     path,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept")
	require.NoError(t, Sync(log))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "dropped")
	assert.Contains(t, string(content), "kept")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "debug"},
		{"info", "info"},
		{"warn", "warn"},
		{"error", "error"},
		{"ERROR", "error"},
		{"nonsense", "info"}, // unknown levels fall back to info
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in).String(), "level %q", tt.in)
	}
}

func TestNew_UnwritableFileFallsBackToStdout(t *testing.T) {
	log, err := New(&Config{
		Level:      "info",
		Format:     "json",
		Output:     "/nonexistent-dir/app.log",
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	require.NoError(t, err)
	assert.NotPanics(t, func() { log.Info("still alive") })
}
