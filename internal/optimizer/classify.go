package optimizer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/cache"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/models"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/scanner"
)

// sized is the stat-only processor: every scheduled file is kept as is.
func sized(_ context.Context, rec models.FileRecord) (models.SizedPath, bool, error) {
	return models.SizedPath{Path: rec.Path, Size: rec.Size}, true, nil
}

func (o *Optimizer) scanSized(ctx context.Context, extra matchFunc, proc scanner.ProcessorFunc[models.SizedPath]) ([]models.SizedPath, error) {
	if proc == nil {
		proc = sized
	}
	out, err := scanner.Process[models.SizedPath](ctx, o.scanner, o.root, o.matcher(extra), proc)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.SizedPath{}
	}
	return out, nil
}

func (o *Optimizer) relative(path string) string {
	if rel, err := filepath.Rel(o.root, path); err == nil {
		return rel
	}
	return path
}

// FindLargeFiles returns filtered files of at least threshold bytes, largest
// first with ties ordered by path.
func (o *Optimizer) FindLargeFiles(ctx context.Context, threshold int64) ([]models.SizedPath, error) {
	key := o.key(models.BucketLargeFiles, cache.P("threshold", threshold))

	var files []models.SizedPath
	if !o.cacheGet(key, &files) {
		defer o.observe(models.BucketLargeFiles, time.Now())

		var err error
		files, err = o.scanSized(ctx, func(_ string, size int64, _ time.Time) bool {
			return size >= threshold
		}, nil)
		if err != nil {
			return nil, err
		}
		sortBySizeDesc(files)
	} else {
		key = ""
	}

	o.install(key, files, func(b *buckets) {
		b.large = append([]models.SizedPath(nil), files...)
		b.largeThreshold = threshold
		b.largeReady = true
	})
	return files, nil
}

// FindTempFiles returns filtered files with a temporary name that were last
// modified more than maxAge ago, ordered by path. Results are never cached
// since temp files churn.
func (o *Optimizer) FindTempFiles(ctx context.Context, maxAge time.Duration) ([]models.SizedPath, error) {
	defer o.observe(models.BucketTempFiles, time.Now())

	now := o.now()
	files, err := o.scanSized(ctx, func(path string, _ int64, modTime time.Time) bool {
		return IsTempFile(o.relative(path)) && now.Sub(modTime) > maxAge
	}, nil)
	if err != nil {
		return nil, err
	}
	sortByPath(files)

	o.install("", nil, func(b *buckets) {
		b.temp = append([]models.SizedPath(nil), files...)
		b.tempMaxAge = maxAge
		b.tempReady = true
	})
	return files, nil
}

// FindCompressionCandidates returns filtered files of at least minSize bytes
// with a compressible extension whose leading sample looks compressible,
// ordered by path.
func (o *Optimizer) FindCompressionCandidates(ctx context.Context, minSize int64) ([]models.SizedPath, error) {
	key := o.key(models.BucketCompression, cache.P("min_size", minSize))

	var files []models.SizedPath
	if !o.cacheGet(key, &files) {
		defer o.observe(models.BucketCompression, time.Now())

		var err error
		files, err = o.scanSized(ctx, func(path string, size int64, _ time.Time) bool {
			return size >= minSize && HasCompressibleExtension(path)
		}, sampleFile)
		if err != nil {
			return nil, err
		}
		sortByPath(files)
	} else {
		key = ""
	}

	o.install(key, files, func(b *buckets) {
		b.compression = append([]models.SizedPath(nil), files...)
		b.compressionMinSize = minSize
		b.compressionReady = true
	})
	return files, nil
}

// sampleFile is the compression processor.
func sampleFile(_ context.Context, rec models.FileRecord) (models.SizedPath, bool, error) {
	sample, err := readSample(rec.Path)
	if err != nil {
		return models.SizedPath{}, false, fmt.Errorf("sample %s: %w", rec.Path, err)
	}
	if !Compressible(sample) {
		return models.SizedPath{}, false, nil
	}
	return models.SizedPath{Path: rec.Path, Size: rec.Size}, true, nil
}

// FindOldBackups returns filtered files whose base name matches one of the
// regular expressions, ordered by path. An empty list selects
// DefaultBackupPatterns; an invalid expression is a *filter.ConfigError.
func (o *Optimizer) FindOldBackups(ctx context.Context, patterns []string) ([]models.SizedPath, error) {
	compiled, err := CompileBackupPatterns(patterns)
	if err != nil {
		return nil, err
	}
	key := o.key(models.BucketOldBackups, cache.Param{Name: "patterns", Value: cache.FingerprintList(patternStrings(compiled))})

	var files []models.SizedPath
	if !o.cacheGet(key, &files) {
		defer o.observe(models.BucketOldBackups, time.Now())

		files, err = o.scanSized(ctx, func(path string, _ int64, _ time.Time) bool {
			return matchesAny(compiled, filepath.Base(path))
		}, nil)
		if err != nil {
			return nil, err
		}
		sortByPath(files)
	} else {
		key = ""
	}

	o.install(key, files, func(b *buckets) {
		b.backups = append([]models.SizedPath(nil), files...)
		b.backupPatterns = compiled
		b.backupsReady = true
	})
	return files, nil
}

// SizeDistribution returns how many filtered files fall into each size
// bucket, keyed by size rounded down to a multiple of 1 KiB.
func (o *Optimizer) SizeDistribution(ctx context.Context) (map[int64]int, error) {
	d, err := o.distribution(ctx)
	if err != nil {
		return nil, err
	}
	return copyHistogram(d.Histogram), nil
}

func (o *Optimizer) distribution(ctx context.Context) (*distribution, error) {
	key := o.key("size_distribution")

	var d distribution
	if !o.cacheGet(key, &d) {
		defer o.observe("size_distribution", time.Now())

		sizes, err := scanner.Process[int64](ctx, o.scanner, o.root, o.matcher(nil),
			scanner.ProcessorFunc[int64](func(_ context.Context, rec models.FileRecord) (int64, bool, error) {
				return rec.Size, true, nil
			}))
		if err != nil {
			return nil, err
		}

		d = distribution{Histogram: make(map[int64]int)}
		for _, size := range sizes {
			d.Histogram[histogramBucket(size)]++
			d.Files++
			d.Bytes += size
		}
	} else {
		key = ""
	}
	if d.Histogram == nil {
		d.Histogram = make(map[int64]int)
	}

	o.install(key, d, func(b *buckets) {
		dc := d
		dc.Histogram = copyHistogram(d.Histogram)
		b.dist = &dc
	})
	return &d, nil
}

func copyHistogram(h map[int64]int) map[int64]int {
	out := make(map[int64]int, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
