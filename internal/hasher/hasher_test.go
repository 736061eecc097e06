package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func TestNewDefaults(t *testing.T) {
	h := New()
	assert.Equal(t, DefaultChunkSize, h.ChunkSize())
	assert.Equal(t, DefaultMinSize, h.MinSize())

	h = New(WithChunkSize(0), WithMinSize(-1))
	assert.Equal(t, DefaultChunkSize, h.ChunkSize(), "non-positive values keep defaults")
	assert.Equal(t, DefaultMinSize, h.MinSize())

	h = New(WithChunkSize(16), WithMinSize(1))
	assert.Equal(t, 16, h.ChunkSize())
	assert.Equal(t, int64(1), h.MinSize())
}

func TestHashMatchesSHA256(t *testing.T) {
	dir := t.TempDir()
	content := []byte(strings.Repeat("dirstat", 5000))
	path := writeFile(t, dir, "a.bin", content)

	want := sha256.Sum256(content)

	for _, chunk := range []int{1, 7, 64, DefaultChunkSize, 1 << 20} {
		got, err := New(WithChunkSize(chunk)).Hash(path)
		require.NoError(t, err)
		assert.Equal(t, hex.EncodeToString(want[:]), got, "chunk size %d", chunk)
	}
}

func TestHashIdenticalContent(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", []byte("hello"))
	b := writeFile(t, dir, "b.txt", []byte("hello"))
	c := writeFile(t, dir, "c.txt", []byte("world"))

	h := New()
	assert.Equal(t, h.Digest(a), h.Digest(b))
	assert.NotEqual(t, h.Digest(a), h.Digest(c))
	assert.Len(t, h.Digest(a), 64)
}

func TestDigestUnreadable(t *testing.T) {
	h := New()

	_, err := h.Hash(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	d := h.Digest(filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, Unreadable, d)
	assert.False(t, IsValid(d))
	assert.False(t, IsValid(""))
	assert.True(t, IsValid(h.Digest(writeFile(t, t.TempDir(), "x", []byte("x")))))
}

func TestExempt(t *testing.T) {
	h := New()

	tests := []struct {
		name    string
		size    int64
		minSize int64
		want    bool
	}{
		{"zero byte always exempt", 0, 1, true},
		{"zero byte with default", 0, 0, true},
		{"below default", 99, 0, true},
		{"at default", 100, 0, false},
		{"override lowers threshold", 5, 1, false},
		{"override raises threshold", 500, 1000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.Exempt(tt.size, tt.minSize))
		})
	}
}

func TestHashConcurrent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "shared.bin", []byte(strings.Repeat("x", 100000)))
	h := New(WithChunkSize(512))
	want, err := h.Hash(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, h.Digest(path))
		}()
	}
	wg.Wait()
}
