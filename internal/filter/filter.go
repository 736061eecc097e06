// Package filter implements the composable file predicate used to decide
// which files take part in a scan.
//
// A Filter is built once from Criteria and is immutable afterwards, so it
// can be shared by every scan worker without locking. Evaluation runs the
// cheapest checks first and stops at the first rejection:
//
//  1. size bounds (inclusive)
//  2. age bounds (inclusive)
//  3. extension allow-list
//  4. exclude patterns (any match rejects)
//  5. include patterns (when present, at least one must match)
//
// Patterns follow gitignore conventions: a pattern without a slash matches
// the base name at any depth, a pattern containing a slash is anchored to
// the filter base directory, "**" spans directories, and a pattern that
// matches a parent directory matches everything below it.
package filter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/moby/patternmatcher"
)

// Criteria holds the filter configuration. Nil bounds are unconstrained.
type Criteria struct {
	SizeMin    *int64
	SizeMax    *int64
	AgeMin     *time.Duration
	AgeMax     *time.Duration
	Extensions []string
	Include    []string
	Exclude    []string

	// Base is the directory patterns with a slash are anchored to.
	// Usually the scan root.
	Base string
}

// Filter is an immutable, compiled Criteria.
type Filter struct {
	criteria   Criteria
	extensions map[string]bool
	include    *patternmatcher.PatternMatcher
	exclude    *patternmatcher.PatternMatcher
	now        func() time.Time
}

// FilterOption customizes a Filter.
type FilterOption func(*Filter)

// WithClock overrides the time source used for age checks.
func WithClock(now func() time.Time) FilterOption {
	return func(f *Filter) {
		f.now = now
	}
}

// MatchAll returns a filter that accepts every regular file.
func MatchAll() *Filter {
	f, _ := New(Criteria{})
	return f
}

// New compiles criteria into a Filter. Malformed patterns return a *ConfigError.
func New(c Criteria, opts ...FilterOption) (*Filter, error) {
	f := &Filter{
		criteria: copyCriteria(c),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}

	if c.SizeMin != nil && c.SizeMax != nil && *c.SizeMin > *c.SizeMax {
		return nil, &ConfigError{
			Field: "size range",
			Value: fmt.Sprintf("%d..%d", *c.SizeMin, *c.SizeMax),
			Err:   fmt.Errorf("minimum exceeds maximum"),
		}
	}
	if c.AgeMin != nil && c.AgeMax != nil && *c.AgeMin > *c.AgeMax {
		return nil, &ConfigError{
			Field: "age range",
			Value: fmt.Sprintf("%s..%s", *c.AgeMin, *c.AgeMax),
			Err:   fmt.Errorf("minimum exceeds maximum"),
		}
	}

	if len(c.Extensions) > 0 {
		f.extensions = make(map[string]bool, len(c.Extensions))
		for _, ext := range c.Extensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			f.extensions[ext] = true
		}
	}

	var err error
	if f.exclude, err = compilePatterns("exclude", c.Exclude); err != nil {
		return nil, err
	}
	if f.include, err = compilePatterns("include", c.Include); err != nil {
		return nil, err
	}

	return f, nil
}

// compilePatterns converts gitignore-style patterns and compiles them.
// Returns nil for an empty list.
func compilePatterns(field string, patterns []string) (*patternmatcher.PatternMatcher, error) {
	var normalized []string
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		n := normalizePattern(p)
		if _, err := filepath.Match(strings.TrimPrefix(n, "!"), ""); err != nil {
			return nil, &ConfigError{Field: field + " pattern", Value: p, Err: err}
		}
		normalized = append(normalized, n)
	}
	if len(normalized) == 0 {
		return nil, nil
	}

	pm, err := patternmatcher.New(normalized)
	if err != nil {
		return nil, &ConfigError{Field: field + " pattern", Value: strings.Join(patterns, ","), Err: err}
	}
	return pm, nil
}

// normalizePattern rewrites a gitignore pattern into the dockerignore
// dialect understood by patternmatcher.
func normalizePattern(p string) string {
	p = strings.TrimSpace(p)
	negate := strings.HasPrefix(p, "!")
	p = strings.TrimPrefix(p, "!")
	p = strings.TrimSuffix(filepath.ToSlash(p), "/")

	switch {
	case strings.HasPrefix(p, "/"):
		p = strings.TrimPrefix(p, "/")
	case !strings.Contains(p, "/") && !strings.HasPrefix(p, "**"):
		p = "**/" + p
	}

	if negate {
		return "!" + p
	}
	return p
}

// Matches stats path and evaluates the criteria. Any I/O error, and any
// non-regular file, is a non-match.
func (f *Filter) Matches(path string) bool {
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return f.MatchInfo(path, info.Size(), info.ModTime())
}

// MatchInfo evaluates the criteria against already-known metadata.
func (f *Filter) MatchInfo(path string, size int64, modTime time.Time) bool {
	c := &f.criteria

	if c.SizeMin != nil && size < *c.SizeMin {
		return false
	}
	if c.SizeMax != nil && size > *c.SizeMax {
		return false
	}

	if c.AgeMin != nil || c.AgeMax != nil {
		age := f.now().Sub(modTime)
		if c.AgeMin != nil && age < *c.AgeMin {
			return false
		}
		if c.AgeMax != nil && age > *c.AgeMax {
			return false
		}
	}

	if f.extensions != nil && !f.extensions[strings.ToLower(filepath.Ext(path))] {
		return false
	}

	if f.exclude == nil && f.include == nil {
		return true
	}

	rel := f.relative(path)
	if f.exclude != nil {
		if excluded, err := f.exclude.MatchesOrParentMatches(rel); err != nil || excluded {
			return false
		}
	}
	if f.include != nil {
		included, err := f.include.MatchesOrParentMatches(rel)
		return err == nil && included
	}
	return true
}

// relative returns path relative to the base directory when it lies inside it.
func (f *Filter) relative(path string) string {
	if f.criteria.Base != "" {
		if rel, err := filepath.Rel(f.criteria.Base, path); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return strings.TrimPrefix(filepath.Clean(path), string(filepath.Separator))
}

// String renders the criteria in a stable form, used for cache key fingerprints.
func (f *Filter) String() string {
	c := f.criteria
	var b strings.Builder
	if c.SizeMin != nil {
		fmt.Fprintf(&b, "size>=%d;", *c.SizeMin)
	}
	if c.SizeMax != nil {
		fmt.Fprintf(&b, "size<=%d;", *c.SizeMax)
	}
	if c.AgeMin != nil {
		fmt.Fprintf(&b, "age>=%d;", int64(*c.AgeMin))
	}
	if c.AgeMax != nil {
		fmt.Fprintf(&b, "age<=%d;", int64(*c.AgeMax))
	}
	if len(f.extensions) > 0 {
		exts := make([]string, 0, len(f.extensions))
		for ext := range f.extensions {
			exts = append(exts, ext)
		}
		sort.Strings(exts)
		fmt.Fprintf(&b, "ext=%s;", strings.Join(exts, ","))
	}
	if len(c.Include) > 0 {
		fmt.Fprintf(&b, "include=%s;", strings.Join(c.Include, ","))
	}
	if len(c.Exclude) > 0 {
		fmt.Fprintf(&b, "exclude=%s;", strings.Join(c.Exclude, ","))
	}
	return b.String()
}

// Describe returns a human-readable summary of the active criteria.
func (f *Filter) Describe() map[string]string {
	c := f.criteria
	report := make(map[string]string)

	if c.SizeMin != nil {
		report["min_size"] = humanize.IBytes(uint64(*c.SizeMin))
	}
	if c.SizeMax != nil {
		report["max_size"] = humanize.IBytes(uint64(*c.SizeMax))
	}
	if c.AgeMin != nil {
		report["min_age"] = c.AgeMin.String()
	}
	if c.AgeMax != nil {
		report["max_age"] = c.AgeMax.String()
	}
	if len(c.Extensions) > 0 {
		report["extensions"] = strings.Join(c.Extensions, ", ")
	}
	if len(c.Include) > 0 {
		report["include_patterns"] = strings.Join(c.Include, ", ")
	}
	if len(c.Exclude) > 0 {
		report["exclude_patterns"] = strings.Join(c.Exclude, ", ")
	}
	return report
}

func copyCriteria(c Criteria) Criteria {
	out := Criteria{Base: c.Base}
	if c.SizeMin != nil {
		v := *c.SizeMin
		out.SizeMin = &v
	}
	if c.SizeMax != nil {
		v := *c.SizeMax
		out.SizeMax = &v
	}
	if c.AgeMin != nil {
		v := *c.AgeMin
		out.AgeMin = &v
	}
	if c.AgeMax != nil {
		v := *c.AgeMax
		out.AgeMax = &v
	}
	out.Extensions = append([]string(nil), c.Extensions...)
	out.Include = append([]string(nil), c.Include...)
	out.Exclude = append([]string(nil), c.Exclude...)
	return out
}
