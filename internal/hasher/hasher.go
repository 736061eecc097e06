// Package hasher computes content digests for duplicate detection.
//
// Files are streamed through SHA-256 in fixed-size chunks, so memory use is
// bounded by the chunk size regardless of file size. Digests identify
// content; they are not used for any security decision.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	// DefaultChunkSize is the read buffer size used while streaming.
	DefaultChunkSize = 8 * 1024

	// DefaultMinSize is the smallest file considered for deduplication.
	DefaultMinSize int64 = 100

	// Unreadable is returned by Digest when the file cannot be read.
	// It is not a valid hex digest and must never be grouped.
	Unreadable = "!unreadable"
)

// Hasher streams files through SHA-256.
type Hasher struct {
	chunkSize int
	minSize   int64
	buffers   sync.Pool
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithChunkSize sets the streaming buffer size. Values <= 0 keep the default.
func WithChunkSize(n int) Option {
	return func(h *Hasher) {
		if n > 0 {
			h.chunkSize = n
		}
	}
}

// WithMinSize sets the default dedup exemption threshold. Values <= 0 keep the default.
func WithMinSize(n int64) Option {
	return func(h *Hasher) {
		if n > 0 {
			h.minSize = n
		}
	}
}

// New creates a Hasher.
func New(opts ...Option) *Hasher {
	h := &Hasher{
		chunkSize: DefaultChunkSize,
		minSize:   DefaultMinSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	size := h.chunkSize
	h.buffers.New = func() interface{} {
		buf := make([]byte, size)
		return &buf
	}
	return h
}

// ChunkSize returns the streaming buffer size.
func (h *Hasher) ChunkSize() int {
	return h.chunkSize
}

// MinSize returns the default dedup exemption threshold.
func (h *Hasher) MinSize() int64 {
	return h.minSize
}

// Hash returns the hex SHA-256 of the file content.
func (h *Hasher) Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	bufp := h.buffers.Get().(*[]byte)
	defer h.buffers.Put(bufp)

	sum := sha256.New()
	// Hide WriterTo/ReaderFrom so CopyBuffer really uses our fixed buffer.
	if _, err := io.CopyBuffer(struct{ io.Writer }{sum}, struct{ io.Reader }{f}, *bufp); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}

// Digest is Hash with errors folded into the Unreadable sentinel.
func (h *Hasher) Digest(path string) string {
	d, err := h.Hash(path)
	if err != nil {
		return Unreadable
	}
	return d
}

// Exempt reports whether a file of the given size is skipped for dedup.
// Zero-byte files are always exempt. minSize overrides the configured
// threshold when positive.
func (h *Hasher) Exempt(size, minSize int64) bool {
	if size <= 0 {
		return true
	}
	if minSize <= 0 {
		minSize = h.minSize
	}
	return size < minSize
}

// IsValid reports whether d is a real digest rather than the sentinel.
func IsValid(d string) bool {
	return d != "" && d != Unreadable
}
