package cache

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DefaultDirName is the directory, relative to the scan root, that holds the
// persisted store. Scans and the change monitor always skip it.
const DefaultDirName = ".dirstat_cache"

// keySep separates key fields. Operation names and parameter values never contain it.
const keySep = "|"

// Param is one named parameter of a cached operation.
type Param struct {
	Name  string
	Value string
}

// P is shorthand for building a Param with a formatted value.
func P(name string, value interface{}) Param {
	return Param{Name: name, Value: fmt.Sprint(value)}
}

// Key builds the cache key "op|name=value|...|<abs root>".
//
// The root path is kept in clear at the end so that invalidating by a path
// (or any ancestor of it) removes every result computed over that root.
// Long or free-form values should go through Fingerprint first.
func Key(op, root string, params ...Param) string {
	var b strings.Builder
	b.WriteString(op)
	for _, p := range params {
		b.WriteString(keySep)
		b.WriteString(p.Name)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}
	b.WriteString(keySep)
	b.WriteString(absPath(root))
	return b.String()
}

// Operation returns the operation name of key.
func Operation(key string) string {
	if i := strings.Index(key, keySep); i >= 0 {
		return key[:i]
	}
	return key
}

// Fingerprint returns a short stable identifier for v.
func Fingerprint(v string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(v))
}

// FingerprintList fingerprints an ordered list of strings.
func FingerprintList(vs []string) string {
	d := xxhash.New()
	for _, v := range vs {
		d.WriteString(v)
		d.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

// StorePath returns the location of the persisted store for root.
func StorePath(root string) string {
	return filepath.Join(absPath(root), DefaultDirName, DBFileName)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
