// Package metadatastore defines the storage port for file records and the
// two backends that implement it: a badger-backed key/value store with
// native per-key TTL, and a store that encodes records as JSON objects in
// the BlobStore itself.
package metadatastore

import (
	"context"
	"errors"
	"time"

	"github.com/coalbin/dropvault/internal/domain"
)

// ErrNotFound is returned when a lookup finds no record for the given id.
var ErrNotFound = errors.New("metadatastore: record not found")

// Filter narrows a Search call. Zero values mean "no constraint" except
// ExpiredOnly: false excludes expired records (the default search view),
// true returns only expired ones, never both at once.
type Filter struct {
	MimeType       string
	MinSize        int64
	MaxSize        int64
	UploadedAfter  time.Time
	UploadedBefore time.Time
	ExpiredOnly    bool
	Limit          int
	Offset         int
}

// SearchResult is one page of a Search call.
type SearchResult struct {
	Records []domain.FileRecord
	Total   int // total matches before pagination
}

// StatsResult summarizes the current contents of a MetadataStore.
type StatsResult struct {
	FileCount  int
	TotalBytes int64
	OldestAt   time.Time
	NewestAt   time.Time
}

// MetadataStore persists and retrieves FileRecords keyed by FileID.
type MetadataStore interface {
	// Put stores rec, keyed by rec.ID. Implementations that support native
	// expiry (e.g. a TTL-aware KV store) should use rec.ExpiresAt to arrange
	// for the key to vanish on its own; implementations that do not must
	// rely entirely on the reaper performing explicit deletes.
	Put(ctx context.Context, rec domain.FileRecord) error

	// Get returns the record for id, or ErrNotFound. Implementations must
	// not return an already-expired record: Get acts as if the record were
	// deleted once ExpiresAt has passed.
	Get(ctx context.Context, id domain.FileID) (domain.FileRecord, error)

	// Delete removes the record for id. Deleting a missing id is not an
	// error.
	Delete(ctx context.Context, id domain.FileID) error

	// Exists reports whether a live (non-expired) record exists for id.
	Exists(ctx context.Context, id domain.FileID) (bool, error)

	// Search returns records matching f.
	Search(ctx context.Context, f Filter) (SearchResult, error)

	// Stats summarizes the store's current contents.
	Stats(ctx context.Context) (StatsResult, error)

	// ListExpired returns up to limit records whose ExpiresAt is at or
	// before asOf, used by the reaper to find reclaim candidates. A limit
	// of 0 means no bound.
	ListExpired(ctx context.Context, asOf time.Time, limit int) ([]domain.FileRecord, error)

	// Healthy reports whether the backend is reachable and writable.
	Healthy(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
