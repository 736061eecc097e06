// Package cache memoizes expensive scan results.
//
// Values are JSON encoded, compressed with zstd and handed to a Backend:
// an in-process map or a SQLite file under the scan root. Entries older
// than the configured maximum age are treated as absent. Every failure of
// the backend or the codec degrades to a cache miss; the cache never
// returns an error to its callers.
package cache

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/logger"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/metrics"
)

// DefaultMaxAge is how long an entry stays fresh.
const DefaultMaxAge = time.Hour

// Shared codecs. EncodeAll and DecodeAll are safe for concurrent use.
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

// ResultsCache is a TTL memoization layer over a Backend.
type ResultsCache struct {
	backend Backend
	maxAge  time.Duration
	now     func() time.Time
	log     logger.Logger
	metrics *metrics.Metrics

	// mu is held exclusively by Invalidate so a key listed for removal
	// cannot be rewritten before it is deleted.
	mu sync.RWMutex
}

// Option configures a ResultsCache.
type Option func(*ResultsCache)

// WithMaxAge sets the freshness window. Non-positive values keep the default.
func WithMaxAge(d time.Duration) Option {
	return func(c *ResultsCache) {
		if d > 0 {
			c.maxAge = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *ResultsCache) {
		c.now = now
	}
}

// WithLogger sets the logger used for backend failures.
func WithLogger(l logger.Logger) Option {
	return func(c *ResultsCache) {
		c.log = l
	}
}

// WithMetrics records hits and misses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *ResultsCache) {
		c.metrics = m
	}
}

// New wraps backend. A nil backend gets a fresh MemoryBackend.
func New(backend Backend, opts ...Option) *ResultsCache {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	c := &ResultsCache{
		backend: backend,
		maxAge:  DefaultMaxAge,
		now:     time.Now,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxAge returns the freshness window.
func (c *ResultsCache) MaxAge() time.Duration {
	return c.maxAge
}

// Get decodes the fresh entry stored under key into dst and reports whether
// it did. Absent, stale and undecodable entries all report false.
func (c *ResultsCache) Get(key string, dst interface{}) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hit := c.get(key, dst)
	c.metrics.CacheLookup(Operation(key), hit)
	return hit
}

func (c *ResultsCache) get(key string, dst interface{}) bool {
	e, ok, err := c.backend.Get(key)
	if err != nil {
		c.log.Debugf("cache get %s: %v", key, err)
		return false
	}
	if !ok {
		return false
	}
	if c.now().Sub(e.StoredAt) > c.maxAge {
		if err := c.backend.Delete(key); err != nil {
			c.log.Debugf("cache expire %s: %v", key, err)
		}
		return false
	}

	raw, err := decoder.DecodeAll(e.Value, nil)
	if err != nil {
		c.log.Debugf("cache decompress %s: %v", key, err)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Debugf("cache decode %s: %v", key, err)
		return false
	}
	return true
}

// Set stores value under key with the current timestamp. Failures are logged
// and otherwise ignored.
func (c *ResultsCache) Set(key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Debugf("cache encode %s: %v", key, err)
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	e := Entry{
		Key:      key,
		Value:    encoder.EncodeAll(raw, nil),
		StoredAt: c.now(),
	}
	if err := c.backend.Set(e); err != nil {
		c.log.Debugf("cache set %s: %v", key, err)
	}
}

// Invalidate removes every entry whose key contains pattern and returns the
// number removed. An empty pattern clears the cache.
func (c *ResultsCache) Invalidate(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.backend.Keys()
	if err != nil {
		c.log.Debugf("cache list keys: %v", err)
		return 0
	}

	if pattern == "" {
		if err := c.backend.Clear(); err != nil {
			c.log.Debugf("cache clear: %v", err)
			return 0
		}
		c.metrics.Invalidated(len(keys))
		return len(keys)
	}

	removed := 0
	for _, k := range keys {
		if !strings.Contains(k, pattern) {
			continue
		}
		if err := c.backend.Delete(k); err != nil {
			c.log.Debugf("cache delete %s: %v", k, err)
			continue
		}
		removed++
	}
	c.metrics.Invalidated(removed)
	return removed
}

// Prune drops expired entries when the backend supports bulk removal.
func (c *ResultsCache) Prune() int {
	p, ok := c.backend.(Pruner)
	if !ok {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := p.Prune(c.now().Add(-c.maxAge))
	if err != nil {
		c.log.Debugf("cache prune: %v", err)
		return 0
	}
	return n
}

// Len returns the number of stored entries, fresh or not.
func (c *ResultsCache) Len() int {
	keys, err := c.backend.Keys()
	if err != nil {
		return 0
	}
	return len(keys)
}

// Close releases the backend.
func (c *ResultsCache) Close() error {
	return c.backend.Close()
}
