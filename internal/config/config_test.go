package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "https://formcraft.app/forms", cfg.Publish.BaseURL)
	assert.Equal(t, 2*time.Hour, cfg.Sessions.IdleTimeout)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Auth.Enabled)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	yaml := []byte(`
server:
  port: 9090
store:
  driver: sqlite
  path: /tmp/forms
  name: builder
  mock_latency: 250ms
webhook:
  url: http://hooks.local/publish
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o644))
	t.Setenv("FORMCRAFT_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Store.IsSQLite())
	assert.Equal(t, "/tmp/forms/builder.db", cfg.Store.DSN())
	assert.Equal(t, 250*time.Millisecond, cfg.Store.MockLatency)
	assert.Equal(t, "http://hooks.local/publish", cfg.Webhook.URL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDSN_Postgres(t *testing.T) {
	d := StoreConfig{Driver: "postgres", User: "u", Password: "p", Host: "db", Port: 5433, Name: "forms"}
	assert.Equal(t, "postgres://u:p@db:5433/forms?sslmode=disable", d.DSN())
}
