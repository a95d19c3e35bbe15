// Package blobstore defines the storage port for file bytes and the two
// backends that implement it: a local filesystem store and an S3-compatible
// object store.
package blobstore

import (
	"context"
	"io"
)

// BlobStore persists and retrieves the raw bytes of uploaded files, keyed by
// an opaque string key. The ingest pipeline always uses the file's id as
// the key, so orphaned blobs can be correlated back to (or reclaimed for
// lack of) a metadata record. Implementations must be safe for concurrent
// use.
type BlobStore interface {
	// Put writes size bytes read from r under key. Implementations must not
	// leave a partial object visible at key if an error occurs: either the
	// full write is visible or nothing is.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get opens key for reading. The caller must Close the returned reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Head reports the size in bytes of the object stored at key without
	// transferring its contents.
	Head(ctx context.Context, key string) (int64, error)

	// Delete removes key. Deleting a key that does not exist is not an
	// error.
	Delete(ctx context.Context, key string) error

	// List returns keys with the given prefix in ascending lexicographic
	// order. Implementations that cannot guarantee ordering natively must
	// sort before returning.
	List(ctx context.Context, prefix string) ([]string, error)

	// Healthy reports whether the backend is reachable and writable.
	Healthy(ctx context.Context) error
}

// ErrNotFound is returned by Get and Head when key does not exist.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "blobstore: key not found" }
