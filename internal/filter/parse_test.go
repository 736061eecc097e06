package filter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"0B", 0, false},
		{"512B", 512, false},
		{"1KB", 1024, false},
		{"1kb", 1024, false},
		{"500KB", 500 * 1024, false},
		{"1MB", 1 << 20, false},
		{"1.5MB", 3 << 19, false},
		{"2GB", 2 << 30, false},
		{"1TB", 1 << 40, false},
		{" 10 MB ", 10 << 20, false},
		{"", 0, true},
		{"10", 0, true},
		{"MB", 0, true},
		{"10XB", 0, true},
		{"-1KB", 0, true},
		{"1KiB", 0, true},
		{"8388607TB", 8388607 << 40, false},
		{"8388608TB", 0, true},
		{"9999999999TB", 0, true},
		{"99999999999999.5TB", 0, true},
		{"8388608.0TB", 0, true},
		{"99999999999999999999B", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsConfigError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDuration(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"5m", 5 * time.Minute, false},
		{"2h", 2 * time.Hour, false},
		{"30d", 30 * day, false},
		{"2w", 14 * day, false},
		{"1M", 30 * day, false},
		{"1y", 365 * day, false},
		{"1D", 0, true},
		{"1.5d", 0, true},
		{"d", 0, true},
		{"10", 0, true},
		{"", 0, true},
		{"3 days", 0, true},
		{"292y", 292 * 365 * day, false},
		{"999999999999y", 0, true},
		{"9223372037s", 0, true},
		{"99999999999999999999s", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsConfigError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptionsCriteria(t *testing.T) {
	opts := Options{
		MinAge:  "1d",
		MaxAge:  "1y",
		MinSize: "1KB",
		MaxSize: "1GB",
		Include: []string{"*.txt"},
	}

	c, err := opts.Criteria("/base")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, *c.AgeMin)
	assert.Equal(t, 365*24*time.Hour, *c.AgeMax)
	assert.Equal(t, int64(1024), *c.SizeMin)
	assert.Equal(t, int64(1<<30), *c.SizeMax)
	assert.Equal(t, "/base", c.Base)
	assert.Equal(t, []string{"*.txt"}, c.Include)
}

func TestOptionsCriteriaNamesField(t *testing.T) {
	_, err := Options{MaxSize: "huge"}.Criteria("")
	require.Error(t, err)

	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "max_size", ce.Field)
	assert.Equal(t, "huge", ce.Value)
	assert.Contains(t, err.Error(), `invalid max_size "huge"`)
}

func TestOptionsBuild(t *testing.T) {
	f, err := Options{Exclude: []string{"temp.*"}, Include: []string{"*.txt"}}.Build("/data")
	require.NoError(t, err)
	assert.False(t, f.MatchInfo("/data/temp.txt", 1, time.Now()))

	_, err = Options{MinAge: "soon"}.Build("/data")
	assert.True(t, IsConfigError(err))

	_, err = Options{MinSize: "9999999999TB"}.Build("/data")
	assert.True(t, IsConfigError(err), "overflowing size is rejected")
}

func TestOptionsIsZero(t *testing.T) {
	assert.True(t, Options{}.IsZero())
	assert.False(t, Options{Exclude: []string{"x"}}.IsZero())
}
