package monitor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Created, "created"},
		{Written, "written"},
		{Removed, "removed"},
		{Renamed, "renamed"},
		{Kind(99), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

// waitFor reads events until one for path arrives, returning everything seen.
func waitFor(t *testing.T, w *Watcher, path string) []Event {
	t.Helper()
	var seen []Event
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-w.Events():
			seen = append(seen, ev)
			if ev.Path == path {
				return seen
			}
		case <-deadline:
			t.Fatalf("no event for %s, saw %v", path, seen)
			return nil
		}
	}
}

func TestNewWatcherRejectsMissingRoot(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)
}

func TestWatcherReportsFileEvents(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(root, nil)
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, root, w.Root())

	p := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	seen := waitFor(t, w, p)
	assert.Equal(t, Created, seen[len(seen)-1].Kind)

	require.NoError(t, os.Remove(p))
	for {
		seen = waitFor(t, w, p)
		if seen[len(seen)-1].Kind == Removed {
			break
		}
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(root, nil)
	require.NoError(t, err)
	defer w.Close()

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))
	waitFor(t, w, sub)

	nested := filepath.Join(sub, "b.txt")
	require.NoError(t, os.WriteFile(nested, []byte("y"), 0644))
	waitFor(t, w, nested)
}

func TestWatcherIgnoresSkipDirs(t *testing.T) {
	root := t.TempDir()
	skip := filepath.Join(root, ".dirstat_cache")
	require.NoError(t, os.Mkdir(skip, 0755))

	w, err := NewWatcher(root, []string{skip})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(skip, "cache.db"), []byte("z"), 0644))
	marker := filepath.Join(root, "marker.txt")
	require.NoError(t, os.WriteFile(marker, []byte("m"), 0644))

	for _, ev := range waitFor(t, w, marker) {
		assert.False(t, strings.HasPrefix(ev.Path, skip), "unexpected event %v", ev)
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
