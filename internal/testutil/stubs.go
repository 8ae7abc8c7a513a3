package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"sync"
)

// MemStore is an in-memory object store. It satisfies both the URI opener
// and the bucket/key source interfaces of the storage package through
// MemStore.Open and MemStore.Bucket.
type MemStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	opens   int
	err     error
}

// NewMemStore returns a store holding objects keyed by URI.
func NewMemStore(objects map[string][]byte) *MemStore {
	m := &MemStore{objects: make(map[string][]byte)}
	for k, v := range objects {
		m.objects[k] = v
	}
	return m
}

// Put stores or replaces an object.
func (m *MemStore) Put(uri string, b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[uri] = b
}

// Delete removes an object.
func (m *MemStore) Delete(uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, uri)
}

// FailWith makes every Open return err until reset with nil.
func (m *MemStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Opens reports how many times Open was called.
func (m *MemStore) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// Open returns the object stored under uri.
func (m *MemStore) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens++
	if m.err != nil {
		return nil, m.err
	}
	b, ok := m.objects[uri]
	if !ok {
		return nil, fmt.Errorf("mem: %s: %w", uri, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// Bucket adapts the store to bucket/key access under the given scheme, so
// Bucket("s3").Open(ctx, "b", "k") reads "s3://b/k".
func (m *MemStore) Bucket(scheme string) *MemBucket {
	return &MemBucket{store: m, scheme: scheme}
}

// MemBucket is a bucket/key view of a MemStore.
type MemBucket struct {
	store  *MemStore
	scheme string
}

// Open returns the object at scheme://bucket/key.
func (b *MemBucket) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return b.store.Open(ctx, b.scheme+"://"+bucket+"/"+key)
}
