package monitor

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/scanner"
)

// Kind is the type of a filesystem change.
type Kind int

const (
	// Created indicates a new file or directory
	Created Kind = iota
	// Written indicates file content changed
	Written
	// Removed indicates the path no longer exists
	Removed
	// Renamed indicates the path was moved away
	Renamed
)

// String returns a human-readable representation of the kind
func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Written:
		return "written"
	case Removed:
		return "removed"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Event is one change under the watched root.
type Event struct {
	Path string
	Kind Kind
}

// Watcher turns fsnotify notifications for a whole tree into Events.
type Watcher struct {
	watcher  *fsnotify.Watcher
	events   chan Event
	errors   chan error
	done     chan struct{}
	root     string
	skipDirs []string

	mu     sync.Mutex
	closed bool
}

// NewWatcher watches root and every directory below it, except skipDirs
// and their contents. Directories created later are added as they appear.
func NewWatcher(root string, skipDirs []string) (*Watcher, error) {
	abs, err := scanner.ResolveRoot(root)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: fsw,
		events:  make(chan Event, 256),
		errors:  make(chan error, 16),
		done:    make(chan struct{}),
		root:    abs,
	}
	for _, d := range skipDirs {
		if d, err := filepath.Abs(d); err == nil {
			w.skipDirs = append(w.skipDirs, d)
		}
	}

	if err := w.addRecursive(abs); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.processEvents()
	return w, nil
}

// addRecursive adds dir and all its subdirectories to the watcher
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) || os.IsPermission(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.skipped(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			// Ignore directories we can't access or that vanished
			if os.IsPermission(err) || os.IsNotExist(err) {
				return nil
			}
			return err
		}
		return nil
	})
}

func (w *Watcher) skipped(path string) bool {
	for _, d := range w.skipDirs {
		if path == d || strings.HasPrefix(path, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if w.skipped(path) {
		return
	}

	// Watch new directories before announcing them
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addRecursive(path); err != nil {
				w.sendError(err)
			}
		}
	}

	var kind Kind
	switch {
	case ev.Has(fsnotify.Create):
		kind = Created
	case ev.Has(fsnotify.Write):
		kind = Written
	case ev.Has(fsnotify.Remove):
		kind = Removed
	case ev.Has(fsnotify.Rename):
		kind = Renamed
	default:
		// chmod
		return
	}

	select {
	case w.events <- Event{Path: path, Kind: kind}:
	case <-w.done:
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
		// Error channel full, drop the error
	}
}

// Events returns the channel of changes.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Root returns the absolute watched root.
func (w *Watcher) Root() string {
	return w.root
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	return w.watcher.Close()
}
