package logger

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func withoutColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestFormatBucketLine(t *testing.T) {
	withoutColor(t)

	tests := []struct {
		name        string
		label       string
		count       int
		size        int64
		reclaimable int64
		expected    string
	}{
		{
			name:     "no savings",
			label:    "large_files",
			count:    2,
			size:     3 << 20,
			expected: "large_files  2 files, 3.0 MiB",
		},
		{
			name:        "with savings",
			label:       "duplicates",
			count:       4,
			size:        4096,
			reclaimable: 2048,
			expected:    "duplicates   4 files, 4.0 KiB (reclaim 2.0 KiB)",
		},
		{
			name:     "negative size clamps to zero",
			label:    "temp_files",
			size:     -5,
			expected: "temp_files   0 files, 0 B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatBucketLine(tt.label, tt.count, tt.size, tt.reclaimable)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFormatTotalLine(t *testing.T) {
	withoutColor(t)

	assert.Equal(t, "recoverable: 1.0 KiB", FormatTotalLine(1024))
	assert.Equal(t, "recoverable: 2.0 GiB", FormatTotalLine(2<<30))
	assert.Equal(t, "recoverable: 0 B", FormatTotalLine(-1))
}

func TestColorizeLevelUnknown(t *testing.T) {
	assert.Equal(t, "CUSTOM", colorizeLevel("CUSTOM"))
}
