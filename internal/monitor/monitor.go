// Package monitor keeps audit results current while a tree changes.
//
// A Monitor reads change events from a Source and batches them into
// windows: the first event after a quiet period opens a window of the
// configured debounce length, and when it closes every distinct path seen
// during it is handed to the Handler once. Sources may deliver duplicates
// and out of order; the Handler is expected to act on current disk state.
package monitor

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/logger"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/metrics"
)

// DefaultDebounce is the default window length.
const DefaultDebounce = time.Second

// Source delivers filesystem events. Errors may return nil when the source
// never reports errors.
type Source interface {
	Events() <-chan Event
	Errors() <-chan error
}

// Handler applies one changed path.
type Handler interface {
	ApplyChange(path string)
}

// Monitor dispatches debounced change events to a Handler.
type Monitor struct {
	source   Source
	handler  Handler
	debounce time.Duration
	log      logger.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	pending []string
	seen    map[string]bool

	// dispatchMu keeps windows from interleaving when Flush is called
	// while Run is dispatching.
	dispatchMu sync.Mutex
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithDebounce sets the window length. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) {
		m.log = l
	}
}

// WithMetrics counts received events and dispatched paths.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Monitor) {
		m.metrics = mt
	}
}

// New creates a Monitor reading from source and dispatching to handler.
func New(source Source, handler Handler, opts ...Option) *Monitor {
	m := &Monitor{
		source:   source,
		handler:  handler,
		debounce: DefaultDebounce,
		log:      logger.Nop(),
		seen:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Debounce returns the window length.
func (m *Monitor) Debounce() time.Duration {
	return m.debounce
}

// Run is the intake loop. It returns when ctx is done or the source's
// event channel closes, dispatching whatever is pending first.
func (m *Monitor) Run(ctx context.Context) error {
	events := m.source.Events()
	errs := m.source.Errors()

	var timer *time.Timer
	var window <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			m.Flush()
			return nil

		case ev, ok := <-events:
			if !ok {
				m.Flush()
				return nil
			}
			m.metrics.MonitorEvent()
			m.log.Debugf("event %s %s", ev.Kind, ev.Path)
			m.enqueue(ev.Path)
			if window == nil {
				timer = time.NewTimer(m.debounce)
				window = timer.C
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			m.log.Warnf("watch error: %v", err)

		case <-window:
			window = nil
			m.Flush()
		}
	}
}

func (m *Monitor) enqueue(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[path] {
		return
	}
	m.seen[path] = true
	m.pending = append(m.pending, path)
}

// Pending returns the number of distinct paths waiting for dispatch.
func (m *Monitor) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Flush dispatches every pending path now, in first-seen order. Paths that
// are directories are skipped; a path that no longer exists is still
// dispatched so the handler can forget it.
func (m *Monitor) Flush() {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	m.mu.Lock()
	paths := m.pending
	m.pending = nil
	m.seen = make(map[string]bool)
	m.mu.Unlock()

	if len(paths) == 0 {
		return
	}

	dispatched := 0
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			continue
		}
		m.handler.ApplyChange(p)
		m.metrics.MonitorDispatch()
		dispatched++
	}
	m.log.Debugf("dispatched %d of %d changed paths", dispatched, len(paths))
}
