package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	// Clear relevant env vars
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	// Set environment variables
	os.Setenv("MATERNAL_DATA_DIR", "/tmp/test-maternal")
	os.Setenv("MATERNAL_CACHE_MAX_ITEMS", "500")
	os.Setenv("MATERNAL_CACHE_TTL", "12h")
	os.Setenv("MATERNAL_HTTP_PORT", "9090")
	os.Setenv("MATERNAL_LOG_LEVEL", "debug")

	defer clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-maternal", cfg.DataDir)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLiteConfig_VisitDBPath(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.maternal-risk"}

	path := cfg.VisitDBPath()

	assert.Equal(t, "/home/user/.maternal-risk/visits.db", path)
}

func TestLiteConfig_ExportDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.maternal-risk"}

	path := cfg.ExportDir()

	assert.Equal(t, "/home/user/.maternal-risk/exports", path)
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	cfg := &LiteConfig{DataDir: filepath.Join(tmpDir, "maternal")}

	err = cfg.EnsureDataDir()
	require.NoError(t, err)

	// Verify directories exist
	_, err = os.Stat(cfg.DataDir)
	assert.NoError(t, err)

	_, err = os.Stat(cfg.ExportDir())
	assert.NoError(t, err)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"MATERNAL_DATA_DIR",
		"MATERNAL_CACHE_MAX_ITEMS",
		"MATERNAL_CACHE_TTL",
		"MATERNAL_HTTP_PORT",
		"MATERNAL_LOG_LEVEL",
		"MATERNAL_LOG_FORMAT",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}
