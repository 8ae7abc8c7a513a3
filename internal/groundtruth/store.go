// Package groundtruth holds the server-side default ground truth dataset.
package groundtruth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
	"github.com/pbias-leaderboard/pbias-go/internal/grid"
	"github.com/pbias-leaderboard/pbias-go/internal/storage"
)

const datasetName = "Default ground truth file"

// Dataset is one loaded copy of the default ground truth. Data must not be
// modified.
type Dataset struct {
	URI      string
	Data     []byte
	Hash     uint64
	Shape    domain.Shape
	LoadedAt time.Time
}

// Store lazily loads and caches the default ground truth. Load failures are
// not cached. Safe for concurrent use.
type Store struct {
	uri    string
	opener storage.Opener
	opts   grid.Options
	limit  int64

	loadMu sync.Mutex
	cur    atomic.Pointer[Dataset]

	now func() time.Time
}

// NewStore creates a Store for uri. An empty uri means no default is
// configured. opts controls how the shape is measured; limit bounds the
// read (0 = unbounded).
func NewStore(uri string, opener storage.Opener, opts grid.Options, limit int64) *Store {
	opts.Name = datasetName
	return &Store{uri: uri, opener: opener, opts: opts, limit: limit, now: time.Now}
}

// URI returns the configured location.
func (s *Store) URI() string { return s.uri }

// Get returns the cached dataset, loading it on first use.
func (s *Store) Get(ctx context.Context) (*Dataset, error) {
	if ds := s.cur.Load(); ds != nil {
		return ds, nil
	}
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if ds := s.cur.Load(); ds != nil {
		return ds, nil
	}
	return s.loadLocked(ctx)
}

// Reload forces a fresh load. The previous dataset stays in place if the
// load fails.
func (s *Store) Reload(ctx context.Context) (*Dataset, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.loadLocked(ctx)
}

// Invalidate drops the cached dataset so the next Get reloads it.
func (s *Store) Invalidate() {
	s.cur.Store(nil)
}

// Info reports whether the default dataset can be loaded and its shape.
func (s *Store) Info(ctx context.Context) domain.DefaultGroundTruthInfo {
	ds, err := s.Get(ctx)
	if err != nil {
		info := domain.DefaultGroundTruthInfo{Exists: false}
		if !errors.Is(err, storage.ErrNotFound) && s.uri != "" {
			info.Error = err.Error()
		}
		return info
	}
	shape := ds.Shape
	return domain.DefaultGroundTruthInfo{Exists: true, Shape: &shape}
}

func (s *Store) loadLocked(ctx context.Context) (*Dataset, error) {
	if s.uri == "" {
		return nil, domain.NewError(domain.KindUnavailable, "No default ground truth configured")
	}

	data, err := storage.ReadAll(ctx, s.opener, s.uri, s.limit)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &domain.Error{
				Kind:    domain.KindParse,
				Message: "Default ground truth file not found",
				Details: []string{"Expected file at: " + s.uri},
				Err:     err,
			}
		}
		if domain.IsKind(err, domain.KindSizeLimit) {
			return nil, err
		}
		return nil, &domain.Error{
			Kind:    domain.KindUnavailable,
			Message: "Default ground truth could not be loaded",
			Details: []string{err.Error()},
			Err:     err,
		}
	}

	shape, err := grid.Dimensions(bytes.NewReader(data), s.opts)
	if err != nil {
		return nil, fmt.Errorf("default ground truth %s: %w", s.uri, err)
	}

	ds := &Dataset{
		URI:      s.uri,
		Data:     data,
		Hash:     xxhash.Sum64(data),
		Shape:    shape,
		LoadedAt: s.now(),
	}
	s.cur.Store(ds)
	slog.Info("default ground truth loaded", "uri", s.uri, "shape", shape.String(), "hash", fmt.Sprintf("%016x", ds.Hash))
	return ds, nil
}
