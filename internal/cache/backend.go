package cache

import (
	"errors"
	"time"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("cache backend closed")

// Entry is one stored result. Value is opaque to the backend.
type Entry struct {
	Key      string
	Value    []byte
	StoredAt time.Time
}

// Backend stores cache entries. Implementations must be safe for concurrent
// use, and each mutation of a single key must be atomic.
type Backend interface {
	// Get returns the entry for key. A missing key is (Entry{}, false, nil).
	Get(key string) (Entry, bool, error)
	Set(e Entry) error
	Delete(key string) error
	Clear() error
	Keys() ([]string, error)
	Close() error
}

// Pruner is implemented by backends that can drop expired entries in bulk.
type Pruner interface {
	Prune(cutoff time.Time) (int, error)
}
