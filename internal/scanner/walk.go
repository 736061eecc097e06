package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/models"
)

// ErrNotDirectory is returned when the scan root is not a directory.
var ErrNotDirectory = errors.New("path is not a directory")

// WalkOptions configures Walk.
type WalkOptions struct {
	// SkipDirs lists absolute directory paths pruned from the walk.
	SkipDirs []string

	// OnError, when set, receives non-fatal errors (unreadable directories,
	// files that vanished mid-walk). The walk always continues past them.
	OnError func(path string, err error)
}

// ResolveRoot returns the absolute form of root, checking that it is a directory.
func ResolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, abs)
	}
	return abs, nil
}

// Walk calls fn for every regular file under root in lexical walk order.
// Symlinks are never followed, and non-regular files are skipped. Records
// carry a sequence number starting at 1 in the order they are yielded.
//
// A missing root, or one that is not a directory, is an error. An error
// returned by fn stops the walk and is returned unchanged.
func Walk(ctx context.Context, root string, opts WalkOptions, fn func(models.FileRecord) error) error {
	abs, err := ResolveRoot(root)
	if err != nil {
		return err
	}

	skip := make(map[string]bool, len(opts.SkipDirs))
	for _, d := range opts.SkipDirs {
		if a, err := filepath.Abs(d); err == nil {
			skip[a] = true
		}
	}
	report := func(path string, err error) {
		if opts.OnError != nil {
			opts.OnError(path, err)
		}
	}

	var seq int64
	return filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == abs {
				return fmt.Errorf("failed to walk directory: %w", err)
			}
			report(path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != abs && skip[path] {
				return filepath.SkipDir
			}
			return ctx.Err()
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			report(path, err)
			return nil
		}

		seq++
		return fn(models.FileRecord{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Seq:     seq,
		})
	})
}
