package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/cache"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/filter"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/logger"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/optimizer"
)

// Cache backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// CacheConfig controls result memoization
type CacheConfig struct {
	// Enabled turns the results cache on
	Enabled bool `yaml:"enabled"`

	// Backend is "sqlite" (persisted under Dir) or "memory"
	Backend string `yaml:"backend"`

	// Dir holds the persisted store. Relative paths are taken from the
	// audited root; empty means <root>/.dirstat_cache
	Dir string `yaml:"dir"`

	// MaxAge is how long an entry stays fresh, e.g. "1h"
	MaxAge string `yaml:"max_age"`
}

// HashConfig controls the content hasher
type HashConfig struct {
	ChunkSize string `yaml:"chunk_size"` // read buffer, e.g. "8KB"
	MinSize   string `yaml:"min_size"`   // files smaller than this are never hashed
}

// MonitorConfig controls the change monitor
type MonitorConfig struct {
	// Debounce is the event window, e.g. "1s" or "500ms"
	Debounce string `yaml:"debounce"`
}

// ThresholdsConfig holds the per-bucket audit thresholds
type ThresholdsConfig struct {
	LargeFile          string   `yaml:"large_file"`
	TempMaxAge         string   `yaml:"temp_max_age"`
	CompressionMinSize string   `yaml:"compression_min_size"`
	DuplicateMinSize   string   `yaml:"duplicate_min_size"`
	BackupPatterns     []string `yaml:"backup_patterns"`
}

// Config represents dirstat configuration options
type Config struct {
	// Workers is the scan pool size (0 = one per CPU)
	Workers int `yaml:"workers"`

	// BatchSize is the number of files handed to a worker at once (0 = default)
	BatchSize int `yaml:"batch_size"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	Cache      CacheConfig      `yaml:"cache"`
	Hash       HashConfig       `yaml:"hash"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Filters    filter.Options   `yaml:"filters"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Workers:   0,
		BatchSize: 0,
		LogLevel:  "info",
		Cache: CacheConfig{
			Enabled: true,
			Backend: BackendSQLite,
			Dir:     cache.DefaultDirName,
			MaxAge:  "1h",
		},
		Hash: HashConfig{
			ChunkSize: "8KB",
			MinSize:   "100B",
		},
		Monitor: MonitorConfig{
			Debounce: "1s",
		},
		Thresholds: ThresholdsConfig{
			LargeFile:          "100MB",
			TempMaxAge:         "30d",
			CompressionMinSize: "1KB",
			DuplicateMinSize:   "1KB",
		},
	}
}

// Path returns the configuration file location for dir.
func Path(dir string) string {
	return filepath.Join(dir, ".dirstat", "config.yaml")
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// Keys absent from the file keep their defaults; a malformed file is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// LoadConfigFromDir loads configuration from .dirstat/config.yaml in the specified directory.
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(Path(dir))
}

// Overrides carries command-line values. Nil pointers and nil slices mean
// the flag was not given.
type Overrides struct {
	Workers      *int
	BatchSize    *int
	LogLevel     *string
	CacheEnabled *bool
	LargeFile    *string
	TempMaxAge   *string

	MinAge     *string
	MaxAge     *string
	MinSize    *string
	MaxSize    *string
	Extensions []string
	Include    []string
	Exclude    []string
}

// MergeWithFlags merges CLI flags into the configuration.
// Flags take precedence over config file settings.
func (c *Config) MergeWithFlags(o Overrides) {
	if o.Workers != nil {
		c.Workers = *o.Workers
	}
	if o.BatchSize != nil {
		c.BatchSize = *o.BatchSize
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.CacheEnabled != nil {
		c.Cache.Enabled = *o.CacheEnabled
	}
	if o.LargeFile != nil {
		c.Thresholds.LargeFile = *o.LargeFile
	}
	if o.TempMaxAge != nil {
		c.Thresholds.TempMaxAge = *o.TempMaxAge
	}

	if o.MinAge != nil {
		c.Filters.MinAge = *o.MinAge
	}
	if o.MaxAge != nil {
		c.Filters.MaxAge = *o.MaxAge
	}
	if o.MinSize != nil {
		c.Filters.MinSize = *o.MinSize
	}
	if o.MaxSize != nil {
		c.Filters.MaxSize = *o.MaxSize
	}
	if o.Extensions != nil {
		c.Filters.Extensions = o.Extensions
	}
	if o.Include != nil {
		c.Filters.Include = o.Include
	}
	if o.Exclude != nil {
		c.Filters.Exclude = o.Exclude
	}
}

// Validate validates the configuration values. Malformed sizes, durations
// and patterns are reported as a wrapped *filter.ConfigError.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size must be >= 0, got %d", c.BatchSize)
	}
	if !logger.IsValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}
	if c.Cache.Backend != BackendSQLite && c.Cache.Backend != BackendMemory {
		return fmt.Errorf("invalid cache.backend %q, must be %q or %q", c.Cache.Backend, BackendSQLite, BackendMemory)
	}

	if _, err := c.CacheMaxAge(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, _, err := c.HashSizes(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Debounce(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Filters.Build(""); err != nil {
		return fmt.Errorf("invalid filters: %w", err)
	}
	th, err := c.AuditThresholds()
	if err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}
	if _, err := optimizer.CompileBackupPatterns(th.BackupPatterns); err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}
	return nil
}

// CacheMaxAge parses cache.max_age.
func (c *Config) CacheMaxAge() (time.Duration, error) {
	return parseDuration("cache.max_age", c.Cache.MaxAge)
}

// CacheDir resolves cache.dir against root.
func (c *Config) CacheDir(root string) string {
	dir := c.Cache.Dir
	if dir == "" {
		dir = cache.DefaultDirName
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return filepath.Clean(dir)
}

// HashSizes parses hash.chunk_size and hash.min_size.
func (c *Config) HashSizes() (chunk int, minSize int64, err error) {
	cs, err := parseSize("hash.chunk_size", c.Hash.ChunkSize)
	if err != nil {
		return 0, 0, err
	}
	ms, err := parseSize("hash.min_size", c.Hash.MinSize)
	if err != nil {
		return 0, 0, err
	}
	return int(cs), ms, nil
}

// Debounce parses monitor.debounce.
func (c *Config) Debounce() (time.Duration, error) {
	return parseDuration("monitor.debounce", c.Monitor.Debounce)
}

// AuditThresholds converts the thresholds section.
func (c *Config) AuditThresholds() (optimizer.Thresholds, error) {
	var th optimizer.Thresholds
	var err error
	if th.LargeFile, err = parseSize("thresholds.large_file", c.Thresholds.LargeFile); err != nil {
		return th, err
	}
	if th.TempMaxAge, err = parseDuration("thresholds.temp_max_age", c.Thresholds.TempMaxAge); err != nil {
		return th, err
	}
	if th.CompressionMinSize, err = parseSize("thresholds.compression_min_size", c.Thresholds.CompressionMinSize); err != nil {
		return th, err
	}
	if th.DuplicateMinSize, err = parseSize("thresholds.duplicate_min_size", c.Thresholds.DuplicateMinSize); err != nil {
		return th, err
	}
	th.BackupPatterns = c.Thresholds.BackupPatterns
	return th, nil
}

func parseSize(field, s string) (int64, error) {
	v, err := filter.ParseSize(s)
	if err != nil {
		var ce *filter.ConfigError
		if errors.As(err, &ce) {
			ce.Field = field
		}
		return 0, err
	}
	return v, nil
}

// parseDuration accepts the filter syntax ("30d", "2w") and Go durations
// ("500ms", "1h30m").
func parseDuration(field, s string) (time.Duration, error) {
	d, err := filter.ParseDuration(s)
	if err == nil {
		return d, nil
	}
	if d, perr := time.ParseDuration(s); perr == nil && d >= 0 {
		return d, nil
	}
	var ce *filter.ConfigError
	if errors.As(err, &ce) {
		ce.Field = field
	}
	return 0, err
}
