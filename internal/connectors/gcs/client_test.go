package gcs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_MissingKey(t *testing.T) {
	_, err := NewClient(context.Background(), "/nonexistent/path/to/key.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service account key not found")
	assert.Contains(t, err.Error(), "/nonexistent/path/to/key.json")
}

func TestNewClient_InvalidKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, []byte("not valid json"), 0o600))

	_, err := NewClient(context.Background(), path)
	assert.Error(t, err)
}

func TestWrapErr(t *testing.T) {
	assert.ErrorIs(t, wrapErr("b", "o", storage.ErrObjectNotExist), fs.ErrNotExist)
	assert.ErrorIs(t, wrapErr("b", "o", storage.ErrBucketNotExist), fs.ErrNotExist)

	other := wrapErr("b", "o", errors.New("permission denied"))
	assert.NotErrorIs(t, other, fs.ErrNotExist)
	assert.Contains(t, other.Error(), "gs://b/o")
}
