package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "database:\n  driver: sqlite\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "maintenance.db", cfg.Database.DSN)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, "warn", cfg.Database.LogLevel)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 24*time.Hour, cfg.Alerts.Cooldown)
	assert.Equal(t, 3600, cfg.Push.TTL)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
}

func TestLoad_KeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  dsn: "host=localhost dbname=maint"
alerts:
  cooldown_hours: 6
  include_due_soon: true
worker_pool:
  size: 4
metrics:
  textfile: /tmp/maint.prom
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "host=localhost dbname=maint", cfg.Database.DSN)
	assert.Equal(t, 6*time.Hour, cfg.Alerts.Cooldown)
	assert.True(t, cfg.Alerts.IncludeDueSoon)
	assert.Equal(t, 4, cfg.WorkerPool.Size)
	assert.Equal(t, "/tmp/maint.prom", cfg.Metrics.Textfile)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigureLogging_RejectsUnknownLevel(t *testing.T) {
	assert.Error(t, ConfigureLogging(LogConfig{Level: "chatty"}))
	assert.NoError(t, ConfigureLogging(LogConfig{Level: "debug", Format: "json"}))
}
