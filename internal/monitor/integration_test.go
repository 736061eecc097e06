package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/cache"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/optimizer"
)

func TestWatcherDrivesOptimizer(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(a, []byte("same bytes"), 0644))

	rc := cache.New(nil)
	o, err := optimizer.New(root, optimizer.WithCache(rc))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groups, err := o.FindDuplicates(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, groups)
	require.Equal(t, 1, rc.Len())

	w, err := NewWatcher(root, []string{o.CacheDir()})
	require.NoError(t, err)
	defer w.Close()

	m := New(w, o, WithDebounce(20*time.Millisecond))
	go m.Run(ctx)

	b := filepath.Join(root, "nested", "b.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(b), 0755))
	require.Eventually(t, func() bool {
		// Rewrite until the new directory is watched and the change lands.
		_ = os.WriteFile(b, []byte("same bytes"), 0644)
		r, err := o.GenerateReport(ctx)
		return err == nil && len(r.DuplicateGroups) == 1
	}, 10*time.Second, 50*time.Millisecond)

	require.NoError(t, os.Remove(b))
	require.Eventually(t, func() bool {
		r, err := o.GenerateReport(ctx)
		return err == nil && len(r.DuplicateGroups) == 0
	}, 10*time.Second, 50*time.Millisecond)
}
