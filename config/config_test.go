package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
listen: 127.0.0.1:9000
privileged: true
interval: 500ms
history_size: 10
settings:
  backend: redis
  redis_addr: redis://localhost:6379/1
events:
  redis_addr: redis://localhost:6379/1
  buffer: 16
`

func TestLoadDefaults(t *testing.T) {
	assert := assert.New(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(":8080", cfg.Listen)
	assert.Equal("0.0.0.0", cfg.Bind4)
	assert.Equal("::", cfg.Bind6)
	assert.False(cfg.Privileged)
	assert.Equal(2*time.Second, cfg.Interval)
	assert.Equal(2*time.Second, cfg.Timeout)
	assert.Equal(5*time.Second, cfg.StopTimeout)
	assert.EqualValues(8, cfg.PayloadSize)
	assert.Equal(50, cfg.HistorySize)
	assert.Equal(BackendFile, cfg.Settings.Backend)
	assert.Equal("pingwatch.yaml", cfg.Settings.Path)
	assert.Equal("pingwatch:hosts", cfg.Settings.RedisKey)
	assert.Empty(cfg.Events.RedisAddr)
	assert.Equal("ping-result", cfg.Events.RedisChannel)
	assert.Equal(64, cfg.Events.Buffer)
}

func TestLoadFile(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "pingwatchd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal("127.0.0.1:9000", cfg.Listen)
	assert.True(cfg.Privileged)
	assert.Equal(500*time.Millisecond, cfg.Interval)
	assert.Equal(10, cfg.HistorySize)
	assert.Equal(BackendRedis, cfg.Settings.Backend)
	assert.Equal("redis://localhost:6379/1", cfg.Settings.RedisAddr)
	assert.Equal(16, cfg.Events.Buffer)

	// untouched keys keep their defaults
	assert.Equal("::", cfg.Bind6)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("PINGWATCH_LISTEN", ":9999")
	t.Setenv("PINGWATCH_STOP_TIMEOUT", "1s")
	t.Setenv("PINGWATCH_SETTINGS_PATH", "/var/lib/pingwatch/hosts.yaml")

	path := filepath.Join(t.TempDir(), "pingwatchd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: :7000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Listen)
	assert.Equal(t, time.Second, cfg.StopTimeout)
	assert.Equal(t, "/var/lib/pingwatch/hosts.yaml", cfg.Settings.Path)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")

	t.Setenv("PINGWATCH_SETTINGS_BACKEND", "sqlite")
	t.Setenv("PINGWATCH_INTERVAL", "0s")
	_, err = Load("")
	assert.ErrorContains(t, err, `unknown settings.backend "sqlite"`)
	assert.ErrorContains(t, err, "interval must be positive")
}

func TestValidateRedis(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Settings.Backend = BackendRedis
	assert.ErrorContains(t, cfg.Validate(), "settings.redis_addr is required")

	cfg.Bind4, cfg.Bind6 = "", ""
	assert.ErrorContains(t, cfg.Validate(), "need at least one")
}
