package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLoggerWritesRunLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	fl, err := NewFileLogger(dir, "monitor", "info")
	require.NoError(t, err)

	fl.Debugf("hidden %d", 1)
	fl.Infof("watching %s", "/data")
	fl.Warnf("watch error: %v", "overflow")
	require.NoError(t, fl.Close())
	require.NoError(t, fl.Close(), "second close is a no-op")

	assert.True(t, strings.HasPrefix(filepath.Base(fl.Path()), "monitor-"))
	data, err := os.ReadFile(fl.Path())
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "=== dirstat monitor log")
	assert.Contains(t, content, "[INFO] watching /data")
	assert.Contains(t, content, "[WARN] watch error: overflow")
	assert.NotContains(t, content, "hidden")

	target, err := os.Readlink(filepath.Join(dir, LatestLink))
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(fl.Path()), target)
}

func TestFileLoggerReplacesLatestLink(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Symlink("stale.log", filepath.Join(dir, LatestLink)))

	fl, err := NewFileLogger(dir, "audit", "debug")
	require.NoError(t, err)
	defer fl.Close()

	target, err := os.Readlink(filepath.Join(dir, LatestLink))
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(fl.Path()), target)
}

func TestFileLoggerWriteAfterClose(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), "monitor", "debug")
	require.NoError(t, err)
	require.NoError(t, fl.Close())
	assert.NotPanics(t, func() { fl.Errorf("late %s", "message") })
}

func TestTee(t *testing.T) {
	var a, b bytes.Buffer
	l := Tee(NewConsoleLogger(&a, "info"), NewConsoleLogger(&b, "error"), Nop())

	l.Infof("scan %d", 1)
	l.Errorf("boom")

	assert.Contains(t, a.String(), "[INFO] scan 1")
	assert.Contains(t, a.String(), "[ERROR] boom")
	assert.NotContains(t, b.String(), "scan 1")
	assert.Contains(t, b.String(), "[ERROR] boom")
}
