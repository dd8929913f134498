package storage

import (
	"context"
	"io"
	"time"
)

// BlobStore is the narrow gateway to the external object store. The catalog
// only ever stores, deletes, and resolves URLs for opaque object keys; it
// never depends on a concrete provider.
type BlobStore interface {
	Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, objectKey string) error
	PresignedGetURL(ctx context.Context, objectKey string, expiry time.Duration, downloadName string) (string, error)
}
