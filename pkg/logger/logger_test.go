package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInit(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "server.log")

	require.NoError(t, Init(logPath, "info"))

	Info("test message", zap.String("key", "value"))
	require.NoError(t, Sync())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "test message")
	assert.Contains(t, string(data), `"key":"value"`)
}

func TestInit_LevelFiltering(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "server.log")

	require.NoError(t, Init(logPath, "warn"))

	Info("below threshold")
	Warn("at threshold")
	require.NoError(t, Sync())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "below threshold")
	assert.Contains(t, string(data), "at threshold")
}

func TestInit_UnknownLevelFallsBackToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "server.log")

	require.NoError(t, Init(logPath, "verbose"))

	Debug("debug line")
	Info("info line")
	require.NoError(t, Sync())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "debug line")
	assert.Contains(t, string(data), "info line")
}

func TestFatal_TestMode(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "server.log")
	require.NoError(t, Init(logPath, "info"))

	SetTestMode(true)
	defer SetTestMode(false)

	// Must not exit the process
	Fatal("fatal in test mode")
	require.NoError(t, Sync())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fatal in test mode")
}
