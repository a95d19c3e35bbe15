package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/coalbin/dropvault/internal/blobstore"
	"github.com/coalbin/dropvault/internal/domain"
	"github.com/coalbin/dropvault/internal/metadatastore"
)

// memBlobs is an in-memory blobstore.BlobStore for tests.
type memBlobs struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemBlobs() *memBlobs { return &memBlobs{data: make(map[string][]byte)} }

func (m *memBlobs) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = b
	m.mu.Unlock()
	return nil
}

func (m *memBlobs) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	b, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return nil, blobstore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memBlobs) Head(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	b, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return 0, blobstore.ErrNotFound
	}
	return int64(len(b)), nil
}

func (m *memBlobs) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *memBlobs) List(ctx context.Context, prefix string) ([]string, error) {
	return nil, nil
}

func (m *memBlobs) Healthy(ctx context.Context) error { return nil }

func (m *memBlobs) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// memMeta is an in-memory metadatastore.MetadataStore for tests.
type memMeta struct {
	mu      sync.Mutex
	records map[domain.FileID]domain.FileRecord
	putErr  error
}

func newMemMeta() *memMeta { return &memMeta{records: make(map[domain.FileID]domain.FileRecord)} }

func (m *memMeta) Put(ctx context.Context, rec domain.FileRecord) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	m.records[rec.ID] = rec
	m.mu.Unlock()
	return nil
}

func (m *memMeta) Get(ctx context.Context, id domain.FileID) (domain.FileRecord, error) {
	m.mu.Lock()
	rec, ok := m.records[id]
	m.mu.Unlock()
	if !ok || rec.Expired(time.Now()) {
		return domain.FileRecord{}, metadatastore.ErrNotFound
	}
	return rec, nil
}

func (m *memMeta) Delete(ctx context.Context, id domain.FileID) error {
	m.mu.Lock()
	delete(m.records, id)
	m.mu.Unlock()
	return nil
}

func (m *memMeta) Exists(ctx context.Context, id domain.FileID) (bool, error) {
	_, err := m.Get(ctx, id)
	if errors.Is(err, metadatastore.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *memMeta) Search(ctx context.Context, f metadatastore.Filter) (metadatastore.SearchResult, error) {
	m.mu.Lock()
	recs := make([]domain.FileRecord, 0, len(m.records))
	for _, r := range m.records {
		recs = append(recs, r)
	}
	m.mu.Unlock()
	return metadatastore.ApplyFilter(recs, f, time.Now()), nil
}

func (m *memMeta) Stats(ctx context.Context) (metadatastore.StatsResult, error) {
	return metadatastore.StatsResult{}, nil
}

func (m *memMeta) ListExpired(ctx context.Context, asOf time.Time, limit int) ([]domain.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.FileRecord
	for _, r := range m.records {
		if r.Expired(asOf) {
			out = append(out, r)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memMeta) Healthy(ctx context.Context) error { return nil }
func (m *memMeta) Close() error                      { return nil }

// fixedClock implements Clock returning a fixed instant.
type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }
