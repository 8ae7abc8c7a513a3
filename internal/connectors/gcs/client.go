// Package gcs reads scoring inputs stored in Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Client reads objects from GCS.
type Client struct {
	storageClient *storage.Client
}

// NewClient creates a GCS client. An empty credentialsPath uses application
// default credentials.
func NewClient(ctx context.Context, credentialsPath string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		if _, err := os.Stat(credentialsPath); err != nil {
			return nil, fmt.Errorf("gcs: service account key not found at path: %s: %w", credentialsPath, err)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	storageClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create storage client: %w", err)
	}
	return &Client{storageClient: storageClient}, nil
}

// Open returns a reader for gs://bucket/object. A missing object or bucket
// yields an error wrapping fs.ErrNotExist.
func (c *Client) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	r, err := c.storageClient.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, wrapErr(bucket, object, err)
	}
	return r, nil
}

// Close releases the underlying storage client.
func (c *Client) Close() error {
	return c.storageClient.Close()
}

func wrapErr(bucket, object string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("gcs: gs://%s/%s: %w", bucket, object, fs.ErrNotExist)
	}
	return fmt.Errorf("gcs: read gs://%s/%s: %w", bucket, object, err)
}
