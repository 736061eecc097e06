// Package scanner runs per-file work over a directory tree on a bounded
// worker pool.
//
// The walk runs on the calling goroutine. Every file accepted by the Matcher
// is appended to the current batch; full batches are handed to an errgroup
// limited to the worker count, which also provides backpressure on the walk.
// Each batch writes into its own result slot, and slots are concatenated in
// walk order once the pool drains, so output order never depends on
// scheduling.
//
// Failure isolation:
//   - an error or panic while processing a file drops that file
//   - a panic escaping a batch drops that batch's results
//   - cancellation is checked before each batch starts and ends the scan
//     with ctx.Err()
package scanner

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/logger"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/metrics"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/models"
)

// DefaultBatchSize is the number of files handed to a worker at once.
const DefaultBatchSize = 100

// Matcher decides from walk metadata whether a file takes part in a scan.
// *filter.Filter implements it.
type Matcher interface {
	MatchInfo(path string, size int64, modTime time.Time) bool
}

// Processor turns one file into a result. ok=false skips the file without
// counting it as a failure.
type Processor[R any] interface {
	Process(ctx context.Context, rec models.FileRecord) (result R, ok bool, err error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc[R any] func(ctx context.Context, rec models.FileRecord) (R, bool, error)

// Process calls f.
func (f ProcessorFunc[R]) Process(ctx context.Context, rec models.FileRecord) (R, bool, error) {
	return f(ctx, rec)
}

// Scanner holds pool configuration. It is safe to run several scans with
// the same Scanner concurrently.
type Scanner struct {
	workers   int
	batchSize int
	skipDirs  []string
	log       logger.Logger
	metrics   *metrics.Metrics
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithWorkers sets the pool size. 1 processes batches sequentially.
// Non-positive values keep the default of GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithBatchSize sets how many files go to a worker at once.
// Non-positive values keep the default.
func WithBatchSize(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithSkipDirs adds absolute directory paths pruned from every walk.
func WithSkipDirs(dirs ...string) Option {
	return func(s *Scanner) {
		s.skipDirs = append(s.skipDirs, dirs...)
	}
}

// WithLogger sets the logger for scan statistics and dropped files.
func WithLogger(l logger.Logger) Option {
	return func(s *Scanner) {
		s.log = l
	}
}

// WithMetrics records scanned and failed files.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) {
		s.metrics = m
	}
}

// New creates a Scanner.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		workers:   runtime.GOMAXPROCS(0),
		batchSize: DefaultBatchSize,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Workers returns the pool size.
func (s *Scanner) Workers() int {
	return s.workers
}

// BatchSize returns the batch size.
func (s *Scanner) BatchSize() int {
	return s.batchSize
}

// SkipDirs returns the directories pruned from every walk.
func (s *Scanner) SkipDirs() []string {
	return append([]string(nil), s.skipDirs...)
}

// Stats counts what one scan saw.
type Stats struct {
	Seen    atomic.Int64 // regular files walked
	Matched atomic.Int64 // files accepted by the matcher
	Bytes   atomic.Int64 // bytes of matched files
	Skipped atomic.Int64 // unreadable directories and vanished entries
	Failed  atomic.Int64 // files dropped by processing errors or panics

	startTime time.Time
}

func (st *Stats) String() string {
	return fmt.Sprintf("walked %d files, matched %d (%s), skipped %d, failed %d in %.2fs",
		st.Seen.Load(), st.Matched.Load(), humanize.IBytes(uint64(st.Bytes.Load())),
		st.Skipped.Load(), st.Failed.Load(), time.Since(st.startTime).Seconds())
}

// Process walks root, feeds every file accepted by m to proc on the worker
// pool and returns the collected results in walk order. A nil matcher
// accepts every file.
//
// Only configuration problems (bad root) and cancellation are returned as
// errors; per-file failures are logged and dropped.
func Process[R any](ctx context.Context, s *Scanner, root string, m Matcher, proc Processor[R]) ([]R, error) {
	results, _, err := ProcessWithStats(ctx, s, root, m, proc)
	return results, err
}

// ProcessWithStats is Process that also returns the scan statistics.
func ProcessWithStats[R any](ctx context.Context, s *Scanner, root string, m Matcher, proc Processor[R]) ([]R, *Stats, error) {
	stats := &Stats{startTime: time.Now()}

	g := new(errgroup.Group)
	g.SetLimit(s.workers)

	// Slots are appended only by the walking goroutine; each worker writes
	// through its own pointer.
	var slots []*[]R
	batch := make([]models.FileRecord, 0, s.batchSize)

	dispatch := func(recs []models.FileRecord) {
		slot := new([]R)
		slots = append(slots, slot)
		g.Go(func() error {
			runBatch(ctx, s, recs, proc, slot, stats)
			return nil
		})
	}

	walkOpts := WalkOptions{
		SkipDirs: s.skipDirs,
		OnError: func(path string, err error) {
			stats.Skipped.Add(1)
			s.log.Debugf("skipping %s: %v", path, err)
		},
	}

	walkErr := Walk(ctx, root, walkOpts, func(rec models.FileRecord) error {
		stats.Seen.Add(1)
		if m != nil && !m.MatchInfo(rec.Path, rec.Size, rec.ModTime) {
			return nil
		}
		stats.Matched.Add(1)
		stats.Bytes.Add(rec.Size)

		batch = append(batch, rec)
		if len(batch) >= s.batchSize {
			dispatch(batch)
			batch = make([]models.FileRecord, 0, s.batchSize)
		}
		return nil
	})
	if walkErr == nil && len(batch) > 0 {
		dispatch(batch)
	}

	// Wait even on failure so no worker outlives the call.
	_ = g.Wait()

	if walkErr != nil {
		if ctx.Err() != nil {
			return nil, stats, ctx.Err()
		}
		return nil, stats, walkErr
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	var out []R
	for _, slot := range slots {
		out = append(out, *slot...)
	}

	s.log.Debugf("scan of %s: %s", root, stats)
	return out, stats, nil
}

// runBatch processes recs into slot. A panic escaping the loop discards
// everything the batch produced.
func runBatch[R any](ctx context.Context, s *Scanner, recs []models.FileRecord, proc Processor[R], slot *[]R, stats *Stats) {
	if ctx.Err() != nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			*slot = nil
			s.metrics.BatchDropped()
			s.log.Warnf("dropped batch of %d files after panic: %v", len(recs), r)
		}
	}()

	results := make([]R, 0, len(recs))
	for _, rec := range recs {
		res, ok, err := processOne(ctx, proc, rec)
		if err != nil {
			stats.Failed.Add(1)
			s.metrics.FileFailed()
			s.log.Debugf("skipping %s: %v", rec.Path, err)
			continue
		}
		s.metrics.FileScanned()
		if ok {
			results = append(results, res)
		}
	}
	*slot = results
}

// processOne runs proc on one record, turning a panic into an error.
func processOne[R any](ctx context.Context, proc Processor[R], rec models.FileRecord) (res R, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			res, ok, err = zero, false, fmt.Errorf("panic processing %s: %v", rec.Path, r)
		}
	}()
	return proc.Process(ctx, rec)
}
