package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/cache"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/hasher"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/models"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/scanner"
)

// FindDuplicates groups filtered files by content digest and returns every
// group with at least two members. minSize <= 0 uses the hasher's default;
// zero-byte files never take part.
//
// Members are in walk order and the first one is the keeper. Groups are
// ordered by reclaimable bytes, largest first.
func (o *Optimizer) FindDuplicates(ctx context.Context, minSize int64) ([]models.DuplicateGroup, error) {
	if minSize <= 0 {
		minSize = o.hasher.MinSize()
	}
	key := o.key(models.BucketDuplicates, cache.P("min_size", minSize))

	var cached []models.DuplicateGroup
	if o.cacheGet(key, &cached) {
		o.install("", nil, func(b *buckets) {
			b.dup = indexFromGroups(cached)
			b.dupMinSize = minSize
			b.dupReady = true
		})
		return cached, nil
	}

	defer o.observe(models.BucketDuplicates, time.Now())

	m := o.matcher(func(_ string, size int64, _ time.Time) bool {
		return !o.hasher.Exempt(size, minSize)
	})
	hashed, err := scanner.Process[models.FileRecord](ctx, o.scanner, o.root, m, scanner.ProcessorFunc[models.FileRecord](o.hashFile))
	if err != nil {
		return nil, err
	}

	idx := newDupIndex()
	for _, rec := range hashed {
		idx.add(rec.Path, rec.Digest, rec.Size)
	}
	groups := idx.groups()
	if groups == nil {
		groups = []models.DuplicateGroup{}
	}

	o.install(key, groups, func(b *buckets) {
		b.dup = idx
		b.dupMinSize = minSize
		b.dupReady = true
	})
	o.log.Debugf("duplicates: %d groups from %d hashed files", len(groups), len(hashed))
	return groups, nil
}

// hashFile is the hashing processor. Unreadable files fail so the scanner
// drops them.
func (o *Optimizer) hashFile(_ context.Context, rec models.FileRecord) (models.FileRecord, bool, error) {
	digest := o.hasher.Digest(rec.Path)
	if !hasher.IsValid(digest) {
		return rec, false, fmt.Errorf("hash %s: unreadable", rec.Path)
	}
	rec.Digest = digest
	return rec, true, nil
}

// indexFromGroups rebuilds a digest index from cached groups. Files that
// were unique at caching time are not known to it.
func indexFromGroups(groups []models.DuplicateGroup) dupIndex {
	idx := newDupIndex()
	for _, g := range groups {
		for _, p := range g.Paths {
			idx.add(p, g.Digest, g.Size)
		}
	}
	return idx
}
