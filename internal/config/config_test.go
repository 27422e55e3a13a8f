package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// chdirTemp runs the test from an empty directory so ./config.yaml is absent
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

const validYAML = `
server:
  host: "127.0.0.1"
  port: 9090
  shutdown_timeout: "5s"
  queue_size: 10

auth:
  api_key: "secret"

import:
  batch_size: 250
  send_timeout: "15s"
  max_retries: 2
  delay_time: "500ms"
  max_concurrent_requests: 8

delivery:
  gzip: true
  refresh_url: "https://ui.example.com/refresh"

input:
  allowed_base_dir: "/srv/import"

log:
  level: "debug"
  format: "console"
`

func TestLoad_ValidYAML(t *testing.T) {
	path := writeYAML(t, t.TempDir(), validYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 10, cfg.Server.QueueSize)
	assert.Equal(t, "secret", cfg.Auth.APIKey)
	assert.True(t, cfg.Delivery.Gzip)
	assert.Equal(t, "https://ui.example.com/refresh", cfg.Delivery.RefreshURL)
	assert.Equal(t, "/srv/import", cfg.Input.AllowedBaseDir)
	assert.Equal(t, "console", cfg.Log.Format)

	d := cfg.Import.Defaults()
	assert.Equal(t, 250, d.BatchSize)
	assert.Equal(t, 15*time.Second, d.SendTimeout)
	assert.Equal(t, 2, d.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, d.DelayTime)
	assert.Equal(t, 8, d.MaxConcurrentRequests)
}

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 1000, cfg.Server.QueueSize)
	assert.Empty(t, cfg.Auth.APIKey)
	assert.Equal(t, "/data/incoming", cfg.Input.AllowedBaseDir)
	assert.False(t, cfg.Log.Caller)

	d := cfg.Import.Defaults()
	assert.Equal(t, 100, d.BatchSize)
	assert.Equal(t, 30*time.Second, d.SendTimeout)
	assert.Equal(t, 3, d.MaxRetries)
	assert.Equal(t, time.Second, d.DelayTime)
	assert.Equal(t, 5, d.MaxConcurrentRequests)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeYAML(t, t.TempDir(), validYAML)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("IMPORT_BATCH_SIZE", "42")
	t.Setenv("API_KEY", "from-env")
	t.Setenv("LOG_CALLER", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Log.Caller)
	assert.Equal(t, 42, cfg.Import.BatchSize)
	assert.Equal(t, "from-env", cfg.Auth.APIKey)
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
}

func TestValidate(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	chdirTemp(t)

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"zero batch size", func(c *Config) { c.Import.BatchSize = 0 }, "batch_size"},
		{"zero concurrency", func(c *Config) { c.Import.MaxConcurrentRequests = 0 }, "max_concurrent_requests"},
		{"negative retries", func(c *Config) { c.Import.MaxRetries = -1 }, "max_retries"},
		{"zero retries", func(c *Config) { c.Import.MaxRetries = 0 }, "max_retries"},
		{"zero delay", func(c *Config) { c.Import.DelayTime = 0 }, "delay_time"},
		{"relative refresh url", func(c *Config) { c.Delivery.RefreshURL = "/refresh" }, "refresh_url"},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"empty base dir", func(c *Config) { c.Input.AllowedBaseDir = " " }, "allowed_base_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_RejectsZeroRetrySettings(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	chdirTemp(t)

	t.Setenv("IMPORT_MAX_RETRIES", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_retries")

	t.Setenv("IMPORT_MAX_RETRIES", "2")
	t.Setenv("IMPORT_DELAY_TIME", "0s")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delay_time")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"GET", "POST"}, SplitList(" GET, ,POST "))
	assert.Nil(t, SplitList(""))
}
