// Package blobstore keeps uploaded document bytes, addressed by an opaque
// storage key.
package blobstore

import (
	"context"
	"io"
)

// Store is an object store. Open returns common.ErrorNotFound for a key
// that was never written or has been deleted. Delete of a missing key
// succeeds.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
