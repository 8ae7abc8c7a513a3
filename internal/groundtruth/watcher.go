package groundtruth

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Invalidator drops cached state.
type Invalidator interface {
	Invalidate()
}

// Watcher invalidates the default ground truth when its local file changes.
// The parent directory is watched so replace-by-rename edits are seen.
type Watcher struct {
	path     string
	cache    Invalidator
	watcher  *fsnotify.Watcher
	callback func()
}

// NewWatcher watches path. callback, if non-nil, runs after each
// invalidation.
func NewWatcher(path string, cache Invalidator, callback func()) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watcher: resolve %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watcher: watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{path: abs, cache: cache, watcher: fw, callback: callback}, nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	slog.Debug("watching default ground truth", "path", w.path)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("default ground truth watcher error", "error", err)

		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}

	slog.Info("default ground truth changed, invalidating cache", "path", event.Name, "op", event.Op.String())
	w.cache.Invalidate()
	if w.callback != nil {
		w.callback()
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
