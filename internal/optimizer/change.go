package optimizer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/hasher"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/models"
)

// ApplyChange brings cached and in-memory results up to date after path
// changed on disk, without a rescan.
//
// Cache entries referencing path or any of its ancestors up to the root are
// invalidated. The file is then dropped from every bucket and, if it still
// exists as a regular file accepted by the active filter, classified again
// into each bucket that has been computed, using that bucket's parameters.
// The outcome depends only on the current disk state, so repeated or
// reordered calls for the same path converge.
func (o *Optimizer) ApplyChange(path string) {
	abs, err := filepath.Abs(path)
	if err != nil || !o.contains(abs) || o.inCacheDir(abs) {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cache != nil {
		removed := 0
		for p := abs; ; p = filepath.Dir(p) {
			removed += o.cache.Invalidate(p)
			if p == o.root || p == filepath.Dir(p) {
				break
			}
		}
		if removed > 0 {
			o.log.Debugf("invalidated %d cache entries for %s", removed, abs)
		}
	}

	st := &o.state
	st.dist = nil

	info, err := os.Lstat(abs)
	if err != nil {
		// Gone: it may have been a directory, so drop everything below it too.
		st.removeTree(abs)
		o.publish()
		return
	}
	if !info.Mode().IsRegular() || !o.Filter().MatchInfo(abs, info.Size(), info.ModTime()) {
		st.remove(abs)
		o.publish()
		return
	}

	rec := models.FileRecord{Path: abs, Size: info.Size(), ModTime: info.ModTime()}
	sp := models.SizedPath{Path: abs, Size: rec.Size}

	if st.dupReady {
		o.reclassifyDuplicate(rec)
	}
	if st.largeReady {
		st.large = without(st.large, abs)
		if rec.Size >= st.largeThreshold {
			st.large = insertSorted(st.large, sp, sortBySizeDesc)
		}
	}
	if st.tempReady {
		st.temp = without(st.temp, abs)
		if IsTempFile(o.relative(abs)) && rec.Age(o.now()) > st.tempMaxAge {
			st.temp = insertSorted(st.temp, sp, sortByPath)
		}
	}
	if st.backupsReady {
		st.backups = without(st.backups, abs)
		if matchesAny(st.backupPatterns, filepath.Base(abs)) {
			st.backups = insertSorted(st.backups, sp, sortByPath)
		}
	}
	if st.compressionReady {
		st.compression = without(st.compression, abs)
		if rec.Size >= st.compressionMinSize && HasCompressibleExtension(abs) {
			if sample, err := readSample(abs); err == nil && Compressible(sample) {
				st.compression = insertSorted(st.compression, sp, sortByPath)
			}
		}
	}
	o.publish()
}

// reclassifyDuplicate rehashes rec and moves it to the matching digest.
// An unchanged digest keeps the file's position, so a touched keeper stays
// the keeper. Caller holds mu.
func (o *Optimizer) reclassifyDuplicate(rec models.FileRecord) {
	idx := &o.state.dup
	if o.hasher.Exempt(rec.Size, o.state.dupMinSize) {
		idx.remove(rec.Path)
		return
	}
	digest := o.hasher.Digest(rec.Path)
	if !hasher.IsValid(digest) {
		idx.remove(rec.Path)
		return
	}
	idx.add(rec.Path, digest, rec.Size)
}

func (o *Optimizer) contains(abs string) bool {
	return abs == o.root || strings.HasPrefix(abs, o.root+string(filepath.Separator))
}
