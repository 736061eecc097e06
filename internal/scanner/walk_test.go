package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/models"
)

// createTree writes files (relative path -> content) under a fresh temp dir.
func createTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func collect(t *testing.T, root string, opts WalkOptions) []models.FileRecord {
	t.Helper()
	var recs []models.FileRecord
	require.NoError(t, Walk(context.Background(), root, opts, func(r models.FileRecord) error {
		recs = append(recs, r)
		return nil
	}))
	return recs
}

func TestWalkYieldsRegularFilesInOrder(t *testing.T) {
	root := createTree(t, map[string]string{
		"b.txt":         "bb",
		"a.txt":         "a",
		"sub/c.txt":     "ccc",
		"sub/deep/d.go": "dddd",
	})

	recs := collect(t, root, WalkOptions{})
	require.Len(t, recs, 4)

	var paths []string
	for i, r := range recs {
		paths = append(paths, r.Path)
		assert.Equal(t, int64(i+1), r.Seq, "sequence follows walk order")
		assert.True(t, filepath.IsAbs(r.Path))
	}
	assert.Equal(t, []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "b.txt"),
		filepath.Join(root, "sub", "c.txt"),
		filepath.Join(root, "sub", "deep", "d.go"),
	}, paths)
	assert.Equal(t, int64(3), recs[2].Size)
}

func TestWalkSkipsDirs(t *testing.T) {
	root := createTree(t, map[string]string{
		"keep.txt":             "k",
		".dirstat_cache/c.db":  "db",
		"other/.dirstat_cache": "a file with the same name is not pruned",
		"node_modules/x/y.js":  "js",
	})

	recs := collect(t, root, WalkOptions{SkipDirs: []string{
		filepath.Join(root, ".dirstat_cache"),
		filepath.Join(root, "node_modules"),
	}})

	var paths []string
	for _, r := range recs {
		paths = append(paths, r.Path)
	}
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "keep.txt"),
		filepath.Join(root, "other", ".dirstat_cache"),
	}, paths)
}

func TestWalkDoesNotFollowSymlinks(t *testing.T) {
	root := createTree(t, map[string]string{"real/file.txt": "data"})
	outside := createTree(t, map[string]string{"secret.txt": "s"})

	if err := os.Symlink(filepath.Join(root, "real", "file.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linkdir")))

	recs := collect(t, root, WalkOptions{})
	require.Len(t, recs, 1)
	assert.Equal(t, filepath.Join(root, "real", "file.txt"), recs[0].Path)
}

func TestWalkRootErrors(t *testing.T) {
	noop := func(models.FileRecord) error { return nil }

	err := Walk(context.Background(), filepath.Join(t.TempDir(), "missing"), WalkOptions{}, noop)
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	err = Walk(context.Background(), file, WalkOptions{}, noop)
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestWalkUnreadableDirectoryIsSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	root := createTree(t, map[string]string{
		"ok.txt":        "ok",
		"locked/no.txt": "no",
	})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	var skipped []string
	recs := collect(t, root, WalkOptions{OnError: func(path string, err error) {
		skipped = append(skipped, path)
	}})

	require.Len(t, recs, 1)
	assert.Equal(t, filepath.Join(root, "ok.txt"), recs[0].Path)
	assert.Contains(t, skipped, locked)
}

func TestWalkCallbackErrorStops(t *testing.T) {
	root := createTree(t, map[string]string{"a": "1", "b": "2"})
	stop := errors.New("stop")

	calls := 0
	err := Walk(context.Background(), root, WalkOptions{}, func(models.FileRecord) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestWalkCancelled(t *testing.T) {
	root := createTree(t, map[string]string{"a/b": "1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Walk(ctx, root, WalkOptions{}, func(models.FileRecord) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
