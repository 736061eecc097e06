package optimizer

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/models"
)

// Thresholds parameterizes a full audit.
type Thresholds struct {
	LargeFile          int64         // FindLargeFiles threshold in bytes
	TempMaxAge         time.Duration // FindTempFiles age cutoff
	CompressionMinSize int64         // FindCompressionCandidates minimum size
	DuplicateMinSize   int64         // FindDuplicates minimum size, <= 0 for the hasher default
	BackupPatterns     []string      // FindOldBackups expressions, empty for the defaults
}

// DefaultThresholds returns the thresholds used when nothing is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LargeFile:          100 << 20,
		TempMaxAge:         30 * 24 * time.Hour,
		CompressionMinSize: 1 << 10,
		DuplicateMinSize:   1 << 10,
	}
}

// Audit runs every classification with th and returns the resulting report.
func (o *Optimizer) Audit(ctx context.Context, th Thresholds) (*models.Report, error) {
	start := time.Now()

	if _, err := o.FindOldBackups(ctx, th.BackupPatterns); err != nil {
		return nil, err
	}
	if _, err := o.FindDuplicates(ctx, th.DuplicateMinSize); err != nil {
		return nil, err
	}
	if _, err := o.FindLargeFiles(ctx, th.LargeFile); err != nil {
		return nil, err
	}
	if _, err := o.FindTempFiles(ctx, th.TempMaxAge); err != nil {
		return nil, err
	}
	if _, err := o.FindCompressionCandidates(ctx, th.CompressionMinSize); err != nil {
		return nil, err
	}

	report, err := o.GenerateReport(ctx)
	if err != nil {
		return nil, err
	}
	o.log.Debugf("audit of %s finished in %s", o.root, time.Since(start).Round(time.Millisecond))
	return report, nil
}

// EstimateSavings computes recoverable bytes from the current buckets:
// every duplicate but the keeper, temp files and backups in full, and half
// of each compression candidate. Buckets never computed contribute zero.
func (o *Optimizer) EstimateSavings() models.Savings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.savingsLocked()
}

func (o *Optimizer) savingsLocked() models.Savings {
	var s models.Savings
	for _, g := range o.state.dup.groups() {
		s.Duplicates += g.Reclaimable()
	}
	s.TempFiles = sumSizes(o.state.temp)
	s.OldBackups = sumSizes(o.state.backups)
	for _, sp := range o.state.compression {
		s.Compression += sp.Size / 2
	}
	return s
}

// GenerateReport aggregates the current buckets, the size histogram and the
// savings estimate. The histogram is computed if no scan has produced it yet.
func (o *Optimizer) GenerateReport(ctx context.Context) (*models.Report, error) {
	o.mu.Lock()
	haveDist := o.state.dist != nil
	o.mu.Unlock()
	if !haveDist {
		if _, err := o.distribution(ctx); err != nil {
			return nil, err
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	st := &o.state
	report := &models.Report{
		RunID:            uuid.NewString(),
		Root:             o.root,
		GeneratedAt:      o.now(),
		Buckets:          make(map[string]models.BucketSummary, len(models.Buckets)),
		DuplicateGroups:  st.dup.groups(),
		SizeDistribution: make(map[int64]int),
		Savings:          o.savingsLocked(),
	}
	if report.DuplicateGroups == nil {
		report.DuplicateGroups = []models.DuplicateGroup{}
	}

	// The histogram may have been dropped by a concurrent change; report it empty.
	if st.dist != nil {
		report.TotalFiles = st.dist.Files
		report.TotalSize = st.dist.Bytes
		report.SizeDistribution = copyHistogram(st.dist.Histogram)
	}

	var dupFiles []models.SizedPath
	for _, g := range report.DuplicateGroups {
		for _, p := range g.Paths {
			dupFiles = append(dupFiles, models.SizedPath{Path: p, Size: g.Size})
		}
	}
	sortByPath(dupFiles)

	report.Buckets[models.BucketDuplicates] = summarize(dupFiles)
	report.Buckets[models.BucketLargeFiles] = summarize(st.large)
	report.Buckets[models.BucketTempFiles] = summarize(st.temp)
	report.Buckets[models.BucketOldBackups] = summarize(st.backups)
	report.Buckets[models.BucketCompression] = summarize(st.compression)
	return report, nil
}

func summarize(list []models.SizedPath) models.BucketSummary {
	files := append([]models.SizedPath{}, list...)
	return models.BucketSummary{
		Count: len(files),
		Size:  sumSizes(files),
		Files: files,
	}
}

// SortedHistogramKeys returns the histogram buckets in ascending order.
func SortedHistogramKeys(h map[int64]int) []int64 {
	keys := make([]int64, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
