package groundtruth

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingInvalidator struct{ n atomic.Int32 }

func (c *countingInvalidator) Invalidate() { c.n.Add(1) }

func TestWatcher_InvalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gt.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n"), 0o600))

	inv := &countingInvalidator{}
	fired := make(chan struct{}, 8)
	w, err := NewWatcher(path, inv, func() { fired <- struct{}{} })
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(path, []byte("a\n2\n"), 0o600))

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not fire")
	}
	assert.GreaterOrEqual(t, inv.n.Load(), int32(1))
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	inv := &countingInvalidator{}
	w, err := NewWatcher(filepath.Join(dir, "gt.csv"), inv, nil)
	require.NoError(t, err)
	defer w.Close()

	w.handleEvent(fsnotify.Event{Name: filepath.Join(dir, "other.csv"), Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(dir, "gt.csv"), Op: fsnotify.Chmod})
	assert.Zero(t, inv.n.Load())

	w.handleEvent(fsnotify.Event{Name: filepath.Join(dir, "gt.csv"), Op: fsnotify.Remove})
	assert.Equal(t, int32(1), inv.n.Load())
}

func TestNewWatcher_MissingDir(t *testing.T) {
	_, err := NewWatcher("/nonexistent/dir/gt.csv", &countingInvalidator{}, nil)
	assert.Error(t, err)
}
