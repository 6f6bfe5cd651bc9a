package telemetry

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "ycstress.log")

	old := slog.Default()
	defer slog.SetDefault(old)

	InitLogger(true, logFile)
	slog.Info("session started", "tests", 3)
	slog.Debug("debug enabled")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "session started")
	assert.Contains(t, string(data), "debug enabled")
}

func TestInitFileLoggerOnly(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "tui.log")

	old := slog.Default()
	defer slog.SetDefault(old)

	InitFileLogger(false, logFile)
	slog.Info("line delivered")
	slog.Debug("should be filtered at info level")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "line delivered")
	assert.NotContains(t, string(data), "should be filtered")
}

func TestInitFileLoggerBadPathDiscards(t *testing.T) {
	old := slog.Default()
	defer slog.SetDefault(old)

	InitFileLogger(false, filepath.Join(string(os.PathSeparator), "no-such-dir", "x", "y.log"))
	// Must not panic and must swallow output.
	slog.Info("goes nowhere")
}

func TestMultiHandlerFanOut(t *testing.T) {
	dir := t.TempDir()
	f1, err := os.Create(filepath.Join(dir, "a.log"))
	require.NoError(t, err)
	f2, err := os.Create(filepath.Join(dir, "b.log"))
	require.NoError(t, err)

	h := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(f1, nil),
		slog.NewJSONHandler(f2, nil),
	}}
	logger := slog.New(h)
	logger.Info("fan out")

	require.NoError(t, f1.Close())
	require.NoError(t, f2.Close())

	for _, name := range []string{"a.log", "b.log"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Contains(t, string(data), "fan out")
	}

	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
}
