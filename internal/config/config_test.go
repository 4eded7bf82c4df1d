package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.Error(t, err, "explicit CONFIG_PATH must exist")

	t.Setenv("CONFIG_PATH", "")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Engine.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Engine.BackoffMin)
	assert.Equal(t, 10*time.Second, cfg.Engine.BackoffMax)
	assert.Equal(t, 25, cfg.Engine.MaxSteps)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 5000, cfg.Analysis.SizeThreshold)
	assert.Equal(t, 2112, cfg.Observability.MetricsPort)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orderscope.yaml")
	data := []byte(`
engine:
  max_attempts: 5
  backoff_min: 1s
  backoff_max: 30s
cache:
  ttl: 10m
  redis_addr: "localhost:6379"
analysis:
  always: true
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Engine.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Engine.BackoffMin)
	assert.Equal(t, 30*time.Second, cfg.Engine.BackoffMax)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.True(t, cfg.Analysis.Always)
	// Untouched fields keep defaults.
	assert.Equal(t, 25, cfg.Engine.MaxSteps)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ORDERSCOPE_ENGINE_MAX_ATTEMPTS", "7")
	t.Setenv("ORDERSCOPE_CACHE_REDIS_ADDR", "redis:6380")
	t.Setenv("ORDERSCOPE_OBSERVABILITY_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Engine.MaxAttempts)
	assert.Equal(t, "redis:6380", cfg.Cache.RedisAddr)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ORDERSCOPE_ENGINE_MAX_ATTEMPTS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_attempts")
}
