package optimizer

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/filter"
)

// SampleSize is how much of a file's head is read to judge compressibility.
const SampleSize = 4096

// EntropyThreshold is the normalized Shannon entropy below which a sample
// is considered compressible.
const EntropyThreshold = 0.75

var tempSuffixes = []string{".tmp", ".temp", ".cache", ".log", ".swp"}

var tempBaseNames = map[string]bool{
	".DS_Store": true,
	"Thumbs.db": true,
}

var tempDirNames = map[string]bool{
	".pytest_cache": true,
	"__pycache__":   true,
	"node_modules":  true,
}

// IsTempFile reports whether rel, a slash or OS separated path relative to
// the scan root, names a temporary or cache file.
func IsTempFile(rel string) bool {
	rel = filepath.ToSlash(rel)
	base := rel[strings.LastIndex(rel, "/")+1:]

	lower := strings.ToLower(base)
	for _, suffix := range tempSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	if tempBaseNames[base] {
		return true
	}

	dirs := strings.Split(rel, "/")
	dirs = dirs[:len(dirs)-1]
	for i, d := range dirs {
		if tempDirNames[d] {
			return true
		}
		if d == ".git" && i+1 < len(dirs) && dirs[i+1] == "objects" {
			return true
		}
	}
	return false
}

var compressibleExtensions = map[string]bool{
	".txt":    true,
	".log":    true,
	".csv":    true,
	".json":   true,
	".xml":    true,
	".html":   true,
	".md":     true,
	".yml":    true,
	".yaml":   true,
	".conf":   true,
	".config": true,
	".ini":    true,
}

// HasCompressibleExtension reports whether path has an extension that
// usually compresses well.
func HasCompressibleExtension(path string) bool {
	return compressibleExtensions[strings.ToLower(filepath.Ext(path))]
}

// Compressible judges a content sample: text-like MIME types compress well,
// and so does anything with low byte entropy. An empty sample is not
// compressible.
func Compressible(sample []byte) bool {
	if len(sample) == 0 {
		return false
	}
	if isTextLike(mimetype.Detect(sample)) {
		return true
	}
	return NormalizedEntropy(sample) < EntropyThreshold
}

func isTextLike(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") || strings.HasPrefix(m.String(), "text/") {
			return true
		}
	}
	return false
}

// NormalizedEntropy returns the Shannon entropy of data in bits per byte
// divided by 8, so 0 is a single repeated byte and 1 is uniform noise.
func NormalizedEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var counts [256]int
	for _, b := range data {
		counts[b]++
	}

	n := float64(len(data))
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h / 8
}

// readSample reads up to SampleSize bytes from the head of path.
func readSample(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, SampleSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

// DefaultBackupPatterns match common backup naming schemes against a base name.
var DefaultBackupPatterns = []string{
	`\.bak$`,
	`\.backup$`,
	`\.old$`,
	`\.\d{8}$`,
	`~$`,
}

// CompileBackupPatterns compiles regular expressions matched against base
// names. An empty list selects DefaultBackupPatterns.
func CompileBackupPatterns(patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		patterns = DefaultBackupPatterns
	}
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &filter.ConfigError{Field: "backup pattern", Value: p, Err: err}
		}
		out = append(out, re)
	}
	return out, nil
}

func matchesAny(patterns []*regexp.Regexp, name string) bool {
	for _, re := range patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func patternStrings(patterns []*regexp.Regexp) []string {
	out := make([]string, len(patterns))
	for i, re := range patterns {
		out[i] = re.String()
	}
	return out
}
