package optimizer

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/models"
)

// buckets is the in-memory result of the most recent call of each
// operation, together with the parameters it was computed with so that
// ApplyChange can classify a single file the same way.
type buckets struct {
	dup        dupIndex
	dupMinSize int64
	dupReady   bool

	large          []models.SizedPath
	largeThreshold int64
	largeReady     bool

	temp       []models.SizedPath
	tempMaxAge time.Duration
	tempReady  bool

	backups        []models.SizedPath
	backupPatterns []*regexp.Regexp
	backupsReady   bool

	compression        []models.SizedPath
	compressionMinSize int64
	compressionReady   bool

	// dist is nil until SizeDistribution runs, and dropped on any change.
	dist *distribution
}

func (b *buckets) reset() {
	*b = buckets{dup: newDupIndex()}
}

// remove drops path from every bucket.
func (b *buckets) remove(path string) {
	b.dup.remove(path)
	b.large = without(b.large, path)
	b.temp = without(b.temp, path)
	b.backups = without(b.backups, path)
	b.compression = without(b.compression, path)
}

// removeTree drops path and everything below it from every bucket.
func (b *buckets) removeTree(path string) {
	prefix := path + string(filepath.Separator)
	under := func(p string) bool {
		return p == path || strings.HasPrefix(p, prefix)
	}

	for p := range b.dup.digestOf {
		if under(p) {
			b.dup.remove(p)
		}
	}
	b.large = withoutFunc(b.large, under)
	b.temp = withoutFunc(b.temp, under)
	b.backups = withoutFunc(b.backups, under)
	b.compression = withoutFunc(b.compression, under)
}

// sizes returns the total bytes per computed bucket.
func (b *buckets) sizes() map[string]int64 {
	out := make(map[string]int64)
	if b.dupReady {
		var total int64
		for _, g := range b.dup.groups() {
			total += g.Size * int64(len(g.Paths))
		}
		out[models.BucketDuplicates] = total
	}
	if b.largeReady {
		out[models.BucketLargeFiles] = sumSizes(b.large)
	}
	if b.tempReady {
		out[models.BucketTempFiles] = sumSizes(b.temp)
	}
	if b.backupsReady {
		out[models.BucketOldBackups] = sumSizes(b.backups)
	}
	if b.compressionReady {
		out[models.BucketCompression] = sumSizes(b.compression)
	}
	return out
}

// distribution is the size histogram of the filtered tree.
type distribution struct {
	Histogram map[int64]int `json:"histogram"`
	Files     int           `json:"files"`
	Bytes     int64         `json:"bytes"`
}

// histogramBucket rounds size down to a multiple of 1 KiB.
func histogramBucket(size int64) int64 {
	return (size / 1024) * 1024
}

// dupIndex maps content digests to the files sharing them. Paths under a
// digest are kept in discovery order; the first one is the keeper.
type dupIndex struct {
	byDigest map[string][]string
	size     map[string]int64
	digestOf map[string]string
}

func newDupIndex() dupIndex {
	return dupIndex{
		byDigest: make(map[string][]string),
		size:     make(map[string]int64),
		digestOf: make(map[string]string),
	}
}

// add appends path under digest unless it is already recorded there.
func (d *dupIndex) add(path, digest string, size int64) {
	if d.digestOf[path] == digest {
		return
	}
	d.remove(path)
	d.byDigest[digest] = append(d.byDigest[digest], path)
	d.size[digest] = size
	d.digestOf[path] = digest
}

func (d *dupIndex) remove(path string) {
	digest, ok := d.digestOf[path]
	if !ok {
		return
	}
	delete(d.digestOf, path)

	paths := d.byDigest[digest]
	for i, p := range paths {
		if p == path {
			paths = append(paths[:i:i], paths[i+1:]...)
			break
		}
	}
	if len(paths) == 0 {
		delete(d.byDigest, digest)
		delete(d.size, digest)
		return
	}
	d.byDigest[digest] = paths
}

// groups returns every digest with two or more files, largest reclaimable
// size first, then by digest.
func (d *dupIndex) groups() []models.DuplicateGroup {
	var out []models.DuplicateGroup
	for digest, paths := range d.byDigest {
		if len(paths) < 2 {
			continue
		}
		out = append(out, models.DuplicateGroup{
			Digest: digest,
			Size:   d.size[digest],
			Paths:  append([]string(nil), paths...),
		})
	}
	sortGroups(out)
	return out
}

func sortGroups(groups []models.DuplicateGroup) {
	sort.Slice(groups, func(i, j int) bool {
		ri, rj := groups[i].Reclaimable(), groups[j].Reclaimable()
		if ri != rj {
			return ri > rj
		}
		return groups[i].Digest < groups[j].Digest
	})
}

func without(list []models.SizedPath, path string) []models.SizedPath {
	for i, sp := range list {
		if sp.Path == path {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

func withoutFunc(list []models.SizedPath, drop func(string) bool) []models.SizedPath {
	out := make([]models.SizedPath, 0, len(list))
	for _, sp := range list {
		if !drop(sp.Path) {
			out = append(out, sp)
		}
	}
	return out
}

func sumSizes(list []models.SizedPath) int64 {
	var total int64
	for _, sp := range list {
		total += sp.Size
	}
	return total
}

// sortBySizeDesc orders by size descending, ties by path.
func sortBySizeDesc(list []models.SizedPath) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Size != list[j].Size {
			return list[i].Size > list[j].Size
		}
		return list[i].Path < list[j].Path
	})
}

func sortByPath(list []models.SizedPath) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].Path < list[j].Path
	})
}

// insertSorted adds sp to list keeping order, replacing any entry for the same path.
func insertSorted(list []models.SizedPath, sp models.SizedPath, sortFn func([]models.SizedPath)) []models.SizedPath {
	list = append(without(list, sp.Path), sp)
	sortFn(list)
	return list
}
