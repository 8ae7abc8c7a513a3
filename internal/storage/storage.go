// Package storage opens scoring inputs by URI. Local paths, file://, s3://
// and gs:// locations are supported.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
)

// ErrNotFound is returned (wrapped) when the object does not exist.
var ErrNotFound = fs.ErrNotExist

// Scheme names.
const (
	SchemeFile = "file"
	SchemeS3   = "s3"
	SchemeGCS  = "gs"
)

// Opener opens the object at uri for reading.
type Opener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// ObjectSource is a bucket/key object store such as S3 or GCS.
type ObjectSource interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Location is a parsed storage URI. For file locations Key holds the path.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

func (l Location) String() string {
	if l.Scheme == SchemeFile {
		return l.Key
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// ParseURI parses uri. Strings without a scheme are local paths.
func ParseURI(uri string) (Location, error) {
	if uri == "" {
		return Location{}, errors.New("storage: empty uri")
	}
	if !strings.Contains(uri, "://") {
		return Location{Scheme: SchemeFile, Key: uri}, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("storage: parse %q: %w", uri, err)
	}
	switch u.Scheme {
	case SchemeFile:
		if u.Path == "" {
			return Location{}, fmt.Errorf("storage: %q has no path", uri)
		}
		return Location{Scheme: SchemeFile, Key: u.Path}, nil
	case SchemeS3, SchemeGCS:
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("storage: %q must be %s://bucket/key", uri, u.Scheme)
		}
		return Location{Scheme: u.Scheme, Bucket: u.Host, Key: key}, nil
	}
	return Location{}, fmt.Errorf("storage: unsupported scheme %q", u.Scheme)
}

// LocalPath returns the filesystem path of uri when it names a local file.
func LocalPath(uri string) (string, bool) {
	loc, err := ParseURI(uri)
	if err != nil || loc.Scheme != SchemeFile {
		return "", false
	}
	return loc.Key, true
}

// Router dispatches URIs to the local filesystem or an object store. A nil
// S3 or GCS source makes that scheme unavailable.
type Router struct {
	S3  ObjectSource
	GCS ObjectSource
}

// Open implements Opener.
func (r *Router) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	switch loc.Scheme {
	case SchemeS3:
		if r.S3 == nil {
			return nil, fmt.Errorf("storage: s3 is not configured for %s", uri)
		}
		return r.S3.Open(ctx, loc.Bucket, loc.Key)
	case SchemeGCS:
		if r.GCS == nil {
			return nil, fmt.Errorf("storage: gcs is not configured for %s", uri)
		}
		return r.GCS.Open(ctx, loc.Bucket, loc.Key)
	}
	f, err := os.Open(loc.Key)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return f, nil
}

// ReadAll reads the whole object at uri. A limit > 0 bounds the read; a
// larger object is a size_limit error.
func ReadAll(ctx context.Context, o Opener, uri string, limit int64) ([]byte, error) {
	rc, err := o.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", uri, err)
	}
	if limit > 0 && int64(buf.Len()) > limit {
		return nil, domain.SizeLimitError(limit)
	}
	return buf.Bytes(), nil
}
