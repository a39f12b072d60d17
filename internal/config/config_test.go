package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "file:clinic.db?cache=shared&mode=rwc", cfg.Database.DSN)
	assert.Equal(t, "memory", cfg.Bus.Driver)
	assert.Equal(t, "clinic.changes", cfg.Bus.Exchange)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TokenExpiry)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"server": {"port": 9090, "host": "0.0.0.0"},
		"database": {"dsn": "file:other.db"},
		"bus": {"driver": "amqp", "url": "amqp://localhost:5672/", "exchange": "other.changes"},
		"logging": {"level": "debug"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "file:other.db", cfg.Database.DSN)
	assert.Equal(t, "amqp", cfg.Bus.Driver)
	assert.Equal(t, "other.changes", cfg.Bus.Exchange)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Fields the file omits keep their defaults
	assert.Equal(t, 24*time.Hour, cfg.JWT.TokenExpiry)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("relative path rejected", func(t *testing.T) {
		_, err := LoadConfig("config.json")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "absolute")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	t.Run("directory instead of file", func(t *testing.T) {
		_, err := LoadConfig(t.TempDir())
		assert.Error(t, err)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0600))

	t.Setenv("CLINIC_DB_DSN", "file:env.db")
	t.Setenv("CLINIC_BUS_URL", "amqp://broker:5672/")
	t.Setenv("CLINIC_JWT_SECRET", "env-secret")
	t.Setenv("CLINIC_LOG_PATH", "/var/log/clinic/server.log")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file:env.db", cfg.Database.DSN)
	// A bus URL in the environment switches the driver to amqp
	assert.Equal(t, "amqp", cfg.Bus.Driver)
	assert.Equal(t, "amqp://broker:5672/", cfg.Bus.URL)
	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, "/var/log/clinic/server.log", cfg.Logging.Path)
}
