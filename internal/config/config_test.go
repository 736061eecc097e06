package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/filter"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/optimizer"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, BackendSQLite, cfg.Cache.Backend)

	maxAge, err := cfg.CacheMaxAge()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, maxAge)

	chunk, minSize, err := cfg.HashSizes()
	require.NoError(t, err)
	assert.Equal(t, 8*1024, chunk)
	assert.Equal(t, int64(100), minSize)

	debounce, err := cfg.Debounce()
	require.NoError(t, err)
	assert.Equal(t, time.Second, debounce)

	th, err := cfg.AuditThresholds()
	require.NoError(t, err)
	assert.Equal(t, optimizer.DefaultThresholds(), th)
}

func TestLoadConfigValidFile(t *testing.T) {
	path := writeConfig(t, `workers: 4
batch_size: 50
log_level: debug
cache:
  backend: memory
  max_age: 10m
monitor:
  debounce: 250ms
filters:
  min_size: 1KB
  exclude: ["*.iso"]
thresholds:
  large_file: 1GB
  backup_patterns: ['\.orig$']
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, BackendMemory, cfg.Cache.Backend)
	assert.True(t, cfg.Cache.Enabled, "unset keys keep defaults")
	assert.Equal(t, "1KB", cfg.Filters.MinSize)
	assert.Equal(t, []string{"*.iso"}, cfg.Filters.Exclude)

	debounce, err := cfg.Debounce()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, debounce)

	th, err := cfg.AuditThresholds()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<30), th.LargeFile)
	assert.Equal(t, 30*24*time.Hour, th.TempMaxAge)
	assert.Equal(t, []string{`\.orig$`}, th.BackupPatterns)
}

func TestLoadConfigFileNotExists(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigMalformed(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "workers: [unclosed\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfigFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".dirstat"), 0755))
	require.NoError(t, os.WriteFile(Path(dir), []byte("log_level: warn\n"), 0644))

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Filters.Include = []string{"*.go"}

	workers := 2
	cacheOn := false
	large := "5MB"
	minAge := "7d"
	cfg.MergeWithFlags(Overrides{
		Workers:      &workers,
		CacheEnabled: &cacheOn,
		LargeFile:    &large,
		MinAge:       &minAge,
		Exclude:      []string{"vendor/*"},
	})

	assert.Equal(t, 2, cfg.Workers)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "5MB", cfg.Thresholds.LargeFile)
	assert.Equal(t, "7d", cfg.Filters.MinAge)
	assert.Equal(t, []string{"vendor/*"}, cfg.Filters.Exclude)
	assert.Equal(t, []string{"*.go"}, cfg.Filters.Include, "unset flags keep file values")
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		configErr bool
	}{
		{"negative workers", func(c *Config) { c.Workers = -1 }, false},
		{"negative batch", func(c *Config) { c.BatchSize = -5 }, false},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"bad backend", func(c *Config) { c.Cache.Backend = "redis" }, false},
		{"bad max age", func(c *Config) { c.Cache.MaxAge = "soon" }, true},
		{"bad chunk size", func(c *Config) { c.Hash.ChunkSize = "big" }, true},
		{"bad debounce", func(c *Config) { c.Monitor.Debounce = "-1s" }, true},
		{"bad filter size", func(c *Config) { c.Filters.MinSize = "10 parsecs" }, true},
		{"inverted size range", func(c *Config) { c.Filters.MinSize, c.Filters.MaxSize = "2MB", "1MB" }, true},
		{"bad large file", func(c *Config) { c.Thresholds.LargeFile = "huge" }, true},
		{"overflowing large file", func(c *Config) { c.Thresholds.LargeFile = "9999999999TB" }, true},
		{"overflowing temp age", func(c *Config) { c.Thresholds.TempMaxAge = "999999999999y" }, true},
		{"overflowing filter age", func(c *Config) { c.Filters.MaxAge = "9223372037s" }, true},
		{"bad backup regex", func(c *Config) { c.Thresholds.BackupPatterns = []string{"("} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.configErr, filter.IsConfigError(err))
		})
	}
}

func TestConfigErrorNamesField(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Thresholds.TempMaxAge = "forever"
	err := cfg.Validate()

	var ce *filter.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "thresholds.temp_max_age", ce.Field)
}

func TestCacheDir(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join("/data", ".dirstat_cache"), cfg.CacheDir("/data"))

	cfg.Cache.Dir = "/var/cache/dirstat"
	assert.Equal(t, "/var/cache/dirstat", cfg.CacheDir("/data"))

	cfg.Cache.Dir = ""
	assert.Equal(t, filepath.Join("/data", ".dirstat_cache"), cfg.CacheDir("/data"))
}
