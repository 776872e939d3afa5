package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/workflow.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Workflow.CacheExpiry)
	assert.True(t, cfg.Workflow.SeedDefault)
	assert.Equal(t, "exports", cfg.Storage.ExportDir)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  path: /var/lib/workflow/db.sqlite
  busy_timeout: 2s
workflow:
  cache_expiry: 1m
  seed_default: false
logger:
  format: console
`)
	t.Setenv("DATABASE_URL", "sqlite:/tmp/override.db")
	t.Setenv("STORAGE_EXPORT_DIR", "/srv/exports")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/var/lib/workflow/db.sqlite", cfg.Database.Path)
	assert.Equal(t, "sqlite:/tmp/override.db", cfg.Database.URL)
	assert.Equal(t, 2*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, time.Minute, cfg.Workflow.CacheExpiry)
	assert.False(t, cfg.Workflow.SeedDefault)
	assert.Equal(t, "/srv/exports", cfg.Storage.ExportDir)
	assert.Equal(t, "console", cfg.Logger.Format)

	cc := cfg.ToContainerConfig()
	assert.Equal(t, cfg.Database.URL, cc.Database.URL)
	assert.Equal(t, time.Minute, cc.Workflow.CacheExpiry)
	assert.NoError(t, cc.Validate())

	lc := cfg.ToLoggerConfig("workflow")
	assert.Equal(t, "workflow", lc.Service)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad port", "server:\n  port: 0\n", "server.port"},
		{"bad format", "logger:\n  format: xml\n", "logger.format"},
		{"zero cache", "workflow:\n  cache_expiry: 0s\n", "cache_expiry"},
		{"negative pool", "database:\n  max_open_conns: -1\n", "pool sizes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}
