package cache

import (
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBackends(t *testing.T) map[string]Backend {
	t.Helper()

	mem, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	file, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", DBFileName))
	require.NoError(t, err)

	backends := map[string]Backend{
		"memory":         NewMemoryBackend(),
		"sqlite-memory":  mem,
		"sqlite-on-disk": file,
	}
	t.Cleanup(func() {
		for _, b := range backends {
			b.Close()
		}
	})
	return backends
}

func TestBackendContract(t *testing.T) {
	stored := time.Unix(1700000000, 123456789)

	for name, b := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := b.Get("missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.Set(Entry{Key: "a", Value: []byte("one"), StoredAt: stored}))
			require.NoError(t, b.Set(Entry{Key: "b", Value: []byte("two"), StoredAt: stored}))
			require.NoError(t, b.Set(Entry{Key: "a", Value: []byte("uno"), StoredAt: stored.Add(time.Second)}))

			e, ok, err := b.Get("a")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("uno"), e.Value)
			assert.True(t, e.StoredAt.Equal(stored.Add(time.Second)))

			keys, err := b.Keys()
			require.NoError(t, err)
			sort.Strings(keys)
			assert.Equal(t, []string{"a", "b"}, keys)

			require.NoError(t, b.Delete("a"))
			require.NoError(t, b.Delete("a"), "deleting a missing key is fine")
			_, ok, err = b.Get("a")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.Clear())
			keys, err = b.Keys()
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestBackendPrune(t *testing.T) {
	base := time.Unix(1700000000, 0)

	for name, b := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			p, ok := b.(Pruner)
			require.True(t, ok)

			require.NoError(t, b.Set(Entry{Key: "old", Value: []byte{1}, StoredAt: base}))
			require.NoError(t, b.Set(Entry{Key: "new", Value: []byte{2}, StoredAt: base.Add(time.Hour)}))

			n, err := p.Prune(base.Add(time.Minute))
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			keys, err := b.Keys()
			require.NoError(t, err)
			assert.Equal(t, []string{"new"}, keys)
		})
	}
}

func TestBackendClosed(t *testing.T) {
	for name, b := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Close())

			_, _, err := b.Get("k")
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, b.Set(Entry{Key: "k"}), ErrClosed)
			_, err = b.Keys()
			assert.ErrorIs(t, err, ErrClosed)
		})
	}
}

func TestMemoryBackendCopiesValues(t *testing.T) {
	b := NewMemoryBackend()
	val := []byte("abc")
	require.NoError(t, b.Set(Entry{Key: "k", Value: val}))
	val[0] = 'X'

	e, _, err := b.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), e.Value)
	assert.Equal(t, 1, b.Size())
}

func TestSQLitePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), DBFileName)

	b, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, b.Set(Entry{Key: "k", Value: []byte("v"), StoredAt: time.Now()}))
	require.NoError(t, b.Close())

	b, err = OpenSQLite(path)
	require.NoError(t, err)
	defer b.Close()

	e, ok, err := b.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), e.Value)

	v, err := b.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
	assert.Equal(t, path, b.Path())
}

func TestResultsCacheOverSQLite(t *testing.T) {
	b, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	c := New(b)
	defer c.Close()

	c.Set(Key("large_files", "/data"), []string{"/data/big.iso"})

	var got []string
	require.True(t, c.Get(Key("large_files", "/data"), &got))
	assert.Equal(t, []string{"/data/big.iso"}, got)

	assert.Equal(t, 1, c.Invalidate("/data"))
	assert.False(t, c.Get(Key("large_files", "/data"), &got))
}
