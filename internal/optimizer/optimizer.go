// Package optimizer classifies the files under a root into storage
// optimization buckets and estimates the bytes each bucket could recover.
//
// Every Find* operation runs an independent scan through the shared
// scanner, replaces its in-memory bucket with the fresh result and, except
// for temp files, memoizes the result in the results cache. Cache keys
// identify the operation, its parameters, the active filter and the root;
// they do not fingerprint subtree content, so a cached result may be stale
// until the change monitor (ApplyChange) or the caller invalidates it, or
// it ages past the cache's maximum age.
//
// Bucket state and cache writes are serialized by one coarse mutex. Scans
// themselves run outside it; only installing a result takes the lock.
package optimizer

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/cache"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/filter"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/hasher"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/logger"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/metrics"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/scanner"
)

// Optimizer audits one directory tree.
type Optimizer struct {
	root     string
	cacheDir string

	cache   *cache.ResultsCache
	scanner *scanner.Scanner
	hasher  *hasher.Hasher
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	filterMu sync.RWMutex
	filter   *filter.Filter

	// mu guards state and orders cache writes against ApplyChange.
	mu    sync.Mutex
	state buckets
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithCache enables memoization through c. Without it every call rescans.
func WithCache(c *cache.ResultsCache) Option {
	return func(o *Optimizer) {
		o.cache = c
	}
}

// WithScanner sets the scanner used for every scan.
func WithScanner(s *scanner.Scanner) Option {
	return func(o *Optimizer) {
		o.scanner = s
	}
}

// WithHasher sets the content hasher used for duplicate detection.
func WithHasher(h *hasher.Hasher) Option {
	return func(o *Optimizer) {
		o.hasher = h
	}
}

// WithCacheDir moves the cache directory, which scans and ApplyChange
// ignore. The default is <root>/.dirstat_cache; relative paths are taken
// from the root.
func WithCacheDir(dir string) Option {
	return func(o *Optimizer) {
		if dir == "" {
			return
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(o.root, dir)
		}
		o.cacheDir = filepath.Clean(dir)
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Optimizer) {
		o.log = l
	}
}

// WithMetrics records scan durations and bucket sizes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Optimizer) {
		o.metrics = m
	}
}

// WithClock overrides the time source used for file ages.
func WithClock(now func() time.Time) Option {
	return func(o *Optimizer) {
		o.now = now
	}
}

// New creates an Optimizer for root, which must be an existing directory.
func New(root string, opts ...Option) (*Optimizer, error) {
	abs, err := scanner.ResolveRoot(root)
	if err != nil {
		return nil, err
	}

	o := &Optimizer{
		root:     abs,
		cacheDir: filepath.Join(abs, cache.DefaultDirName),
		log:      logger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.scanner == nil {
		o.scanner = scanner.New(scanner.WithSkipDirs(o.cacheDir), scanner.WithLogger(o.log), scanner.WithMetrics(o.metrics))
	}
	if o.hasher == nil {
		o.hasher = hasher.New()
	}

	f, err := filter.New(filter.Criteria{Base: abs}, filter.WithClock(o.now))
	if err != nil {
		return nil, err
	}
	o.filter = f
	o.state.reset()
	return o, nil
}

// Root returns the absolute root directory.
func (o *Optimizer) Root() string {
	return o.root
}

// CacheDir returns the directory holding the persisted cache, which scans skip.
func (o *Optimizer) CacheDir() string {
	return o.cacheDir
}

// SetFilters replaces the active filter. Malformed values return a
// *filter.ConfigError and leave the previous filter in place. Every
// in-memory bucket is reset since it was computed under the old filter.
func (o *Optimizer) SetFilters(opts filter.Options) error {
	f, err := opts.Build(o.root, filter.WithClock(o.now))
	if err != nil {
		return fmt.Errorf("set filters: %w", err)
	}

	o.filterMu.Lock()
	o.filter = f
	o.filterMu.Unlock()

	o.mu.Lock()
	o.state.reset()
	o.mu.Unlock()

	if desc := f.Describe(); len(desc) > 0 {
		o.log.Debugf("active filters: %v", desc)
	}
	return nil
}

// Filter returns the active filter.
func (o *Optimizer) Filter() *filter.Filter {
	o.filterMu.RLock()
	defer o.filterMu.RUnlock()
	return o.filter
}

// matchFunc adapts a function to scanner.Matcher.
type matchFunc func(path string, size int64, modTime time.Time) bool

func (f matchFunc) MatchInfo(path string, size int64, modTime time.Time) bool {
	return f(path, size, modTime)
}

// matcher combines the active filter, the cache directory exclusion and an
// operation specific predicate evaluated last.
func (o *Optimizer) matcher(extra matchFunc) scanner.Matcher {
	flt := o.Filter()
	return matchFunc(func(path string, size int64, modTime time.Time) bool {
		if o.inCacheDir(path) {
			return false
		}
		if !flt.MatchInfo(path, size, modTime) {
			return false
		}
		return extra == nil || extra(path, size, modTime)
	})
}

func (o *Optimizer) inCacheDir(path string) bool {
	return path == o.cacheDir || strings.HasPrefix(path, o.cacheDir+string(filepath.Separator))
}

// key builds the cache key for op under the active filter.
func (o *Optimizer) key(op string, params ...cache.Param) string {
	params = append(params, cache.Param{Name: "filter", Value: cache.Fingerprint(o.Filter().String())})
	return cache.Key(op, o.root, params...)
}

func (o *Optimizer) cacheGet(key string, dst interface{}) bool {
	if o.cache == nil {
		return false
	}
	if o.cache.Get(key, dst) {
		o.log.Debugf("cache hit: %s", cache.Operation(key))
		return true
	}
	return false
}

// install runs apply under the coarse lock and then stores value in the
// cache under key, when key is non-empty.
func (o *Optimizer) install(key string, value interface{}, apply func(*buckets)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	apply(&o.state)
	if key != "" && o.cache != nil {
		o.cache.Set(key, value)
	}
	o.publish()
}

// publish pushes bucket sizes to metrics. Caller holds mu.
func (o *Optimizer) publish() {
	if o.metrics == nil {
		return
	}
	for bucket, size := range o.state.sizes() {
		o.metrics.SetBucketBytes(bucket, size)
	}
}

func (o *Optimizer) observe(op string, start time.Time) {
	o.metrics.ObserveScan(op, time.Since(start))
}
