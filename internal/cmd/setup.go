package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/cache"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/config"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/hasher"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/logger"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/metrics"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/optimizer"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/scanner"
)

// addAuditFlags registers the flags shared by audit and monitor.
func addAuditFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "Path to config file (default: <path>/.dirstat/config.yaml)")
	f.String("log-level", "", "Log level: trace, debug, info, warn, error")

	f.String("min-age", "", "Only files at least this old (e.g. 30d, 2w, 1y)")
	f.String("max-age", "", "Only files at most this old")
	f.String("min-size", "", "Only files at least this large (e.g. 500KB)")
	f.String("max-size", "", "Only files at most this large (e.g. 1GB)")
	f.StringSlice("include", nil, "Glob patterns a file must match (repeatable)")
	f.StringSlice("exclude", nil, "Glob patterns that exclude a file (repeatable)")
	f.StringSlice("ext", nil, "Allowed file extensions (e.g. .log,.txt)")

	f.Int("jobs", 0, "Parallel scan workers (0 = one per CPU)")
	f.Int("batch-size", 0, "Files per worker batch (0 = default)")
	f.Bool("cache", false, "Use the results cache (overrides config)")
	f.Bool("no-cache", false, "Do not use the results cache (overrides config)")

	f.String("large-threshold", "", "Size at which a file counts as large (e.g. 100MB)")
	f.String("temp-max-age", "", "Age after which temp files are reported (e.g. 30d)")
	f.String("output", "", "Write the JSON report to this file")
}

// overridesFromFlags collects the flags the user actually set.
func overridesFromFlags(cmd *cobra.Command) (config.Overrides, error) {
	f := cmd.Flags()
	var o config.Overrides

	if f.Changed("cache") && f.Changed("no-cache") {
		return o, fmt.Errorf("cannot use both --cache and --no-cache")
	}

	str := func(name string) *string {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetString(name)
		return &v
	}
	slice := func(name string) []string {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetStringSlice(name)
		if v == nil {
			v = []string{}
		}
		return v
	}
	num := func(name string) *int {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetInt(name)
		return &v
	}

	o.LogLevel = str("log-level")
	o.Workers = num("jobs")
	o.BatchSize = num("batch-size")
	o.LargeFile = str("large-threshold")
	o.TempMaxAge = str("temp-max-age")
	o.MinAge = str("min-age")
	o.MaxAge = str("max-age")
	o.MinSize = str("min-size")
	o.MaxSize = str("max-size")
	o.Include = slice("include")
	o.Exclude = slice("exclude")
	o.Extensions = slice("ext")

	switch {
	case f.Changed("cache"):
		v, _ := f.GetBool("cache")
		o.CacheEnabled = &v
	case f.Changed("no-cache"):
		v, _ := f.GetBool("no-cache")
		v = !v
		o.CacheEnabled = &v
	}
	return o, nil
}

// rootArg returns the audited directory from args, defaulting to ".".
func rootArg(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	return scanner.ResolveRoot(root)
}

// loadConfig loads the config for root, applies flag overrides and validates.
func loadConfig(cmd *cobra.Command, root string) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(root)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	overrides, err := overridesFromFlags(cmd)
	if err != nil {
		return nil, err
	}
	cfg.MergeWithFlags(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// session is everything one command invocation needs to audit a root.
type session struct {
	root     string
	cacheDir string
	cfg      *config.Config
	log      logger.Logger
	scanner  *scanner.Scanner
	cache    *cache.ResultsCache
	opt      *optimizer.Optimizer
}

// openSession wires the scanner, hasher, cache and optimizer for root from
// cfg. m may be nil.
func openSession(root string, cfg *config.Config, log logger.Logger, m *metrics.Metrics) (*session, error) {
	s := &session{
		root:     root,
		cacheDir: cfg.CacheDir(root),
		cfg:      cfg,
		log:      log,
	}

	chunk, minSize, err := cfg.HashSizes()
	if err != nil {
		return nil, err
	}
	s.scanner = scanner.New(
		scanner.WithWorkers(cfg.Workers),
		scanner.WithBatchSize(cfg.BatchSize),
		scanner.WithSkipDirs(s.cacheDir),
		scanner.WithLogger(s.log),
		scanner.WithMetrics(m),
	)
	opts := []optimizer.Option{
		optimizer.WithCacheDir(s.cacheDir),
		optimizer.WithScanner(s.scanner),
		optimizer.WithHasher(hasher.New(hasher.WithChunkSize(chunk), hasher.WithMinSize(minSize))),
		optimizer.WithLogger(s.log),
		optimizer.WithMetrics(m),
	}

	if cfg.Cache.Enabled {
		rc, err := s.openCache(m)
		if err != nil {
			return nil, err
		}
		s.cache = rc
		opts = append(opts, optimizer.WithCache(rc))
	}

	o, err := optimizer.New(root, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	if !cfg.Filters.IsZero() {
		if err := o.SetFilters(cfg.Filters); err != nil {
			s.Close()
			return nil, err
		}
	}
	s.opt = o
	return s, nil
}

func (s *session) openCache(m *metrics.Metrics) (*cache.ResultsCache, error) {
	maxAge, err := s.cfg.CacheMaxAge()
	if err != nil {
		return nil, err
	}

	var backend cache.Backend
	switch s.cfg.Cache.Backend {
	case config.BackendMemory:
		backend = cache.NewMemoryBackend()
	default:
		sb, err := cache.OpenSQLite(filepath.Join(s.cacheDir, cache.DBFileName))
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		backend = sb
	}

	return cache.New(backend,
		cache.WithMaxAge(maxAge),
		cache.WithLogger(s.log),
		cache.WithMetrics(m),
	), nil
}

// Close releases the cache store.
func (s *session) Close() {
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.log.Warnf("failed to close cache: %v", err)
		}
	}
}
