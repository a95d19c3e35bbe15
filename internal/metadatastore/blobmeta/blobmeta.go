// Package blobmeta implements a MetadataStore by encoding each record as a
// JSON object stored in a blobstore.BlobStore, under a key whose prefix is
// the record's expiry timestamp. Because blob keys sort lexicographically,
// a scan of the metadata prefix visits records in expiry order, letting
// ListExpired stop at the first live record instead of scanning everything.
package blobmeta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coalbin/dropvault/internal/blobstore"
	"github.com/coalbin/dropvault/internal/domain"
	"github.com/coalbin/dropvault/internal/metadatastore"
)

// keyPrefix namespaces metadata objects within the shared blob bucket/dir so
// they never collide with the file blobs themselves.
const keyPrefix = "metadata/"

// Store implements metadatastore.MetadataStore on top of any BlobStore.
type Store struct {
	blobs blobstore.BlobStore

	// idIndex maps a FileID to its current metadata object key, since the
	// key embeds an expiry timestamp that Get/Delete/Exists must know to
	// address the object; Put, Delete and rebuildIndex update the mapping.
	mu      sync.RWMutex
	idIndex map[domain.FileID]string
}

// New returns a Store that persists metadata objects into blobs.
func New(blobs blobstore.BlobStore) *Store {
	return &Store{blobs: blobs, idIndex: make(map[domain.FileID]string)}
}

func objectKey(rec domain.FileRecord) string {
	return fmt.Sprintf("%s%020d__%s.json", keyPrefix, rec.ExpiresAt.UnixMilli(), rec.ID)
}

func parseIDFromKey(key string) (domain.FileID, bool) {
	rest := strings.TrimPrefix(key, keyPrefix)
	parts := strings.SplitN(rest, "__", 2)
	if len(parts) != 2 {
		return "", false
	}
	name := strings.TrimSuffix(parts[1], ".json")
	return domain.FileID(name), true
}

func (s *Store) rebuildIndex(ctx context.Context) error {
	keys, err := s.blobs.List(ctx, keyPrefix)
	if err != nil {
		return err
	}
	idx := make(map[domain.FileID]string, len(keys))
	for _, k := range keys {
		if id, ok := parseIDFromKey(k); ok {
			idx[id] = k
		}
	}
	s.mu.Lock()
	s.idIndex = idx
	s.mu.Unlock()
	return nil
}

func (s *Store) lookupKey(ctx context.Context, id domain.FileID) (string, bool, error) {
	s.mu.RLock()
	k, ok := s.idIndex[id]
	s.mu.RUnlock()
	if ok {
		return k, true, nil
	}
	if err := s.rebuildIndex(ctx); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	k, ok = s.idIndex[id]
	s.mu.RUnlock()
	return k, ok, nil
}

func (s *Store) Put(ctx context.Context, rec domain.FileRecord) error {
	// If an existing object for this id has a different key (expiry
	// changed), remove the stale one after the new one lands.
	oldKey, hadOld, err := s.lookupKey(ctx, rec.ID)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("blobmeta: marshal: %w", err)
	}
	newKey := objectKey(rec)
	if err := s.blobs.Put(ctx, newKey, strings.NewReader(string(raw)), int64(len(raw))); err != nil {
		return fmt.Errorf("blobmeta: put: %w", err)
	}

	s.mu.Lock()
	s.idIndex[rec.ID] = newKey
	s.mu.Unlock()

	if hadOld && oldKey != newKey {
		_ = s.blobs.Delete(ctx, oldKey)
	}
	return nil
}

func (s *Store) readRecord(ctx context.Context, key string) (domain.FileRecord, error) {
	rc, err := s.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return domain.FileRecord{}, metadatastore.ErrNotFound
		}
		return domain.FileRecord{}, fmt.Errorf("blobmeta: get: %w", err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return domain.FileRecord{}, fmt.Errorf("blobmeta: read: %w", err)
	}
	var rec domain.FileRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.FileRecord{}, fmt.Errorf("blobmeta: unmarshal: %w", err)
	}
	return rec, nil
}

func (s *Store) Get(ctx context.Context, id domain.FileID) (domain.FileRecord, error) {
	key, ok, err := s.lookupKey(ctx, id)
	if err != nil {
		return domain.FileRecord{}, err
	}
	if !ok {
		return domain.FileRecord{}, metadatastore.ErrNotFound
	}
	rec, err := s.readRecord(ctx, key)
	if err != nil {
		return domain.FileRecord{}, err
	}
	if rec.Expired(time.Now()) {
		return domain.FileRecord{}, metadatastore.ErrNotFound
	}
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, id domain.FileID) error {
	key, ok, err := s.lookupKey(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		return fmt.Errorf("blobmeta: delete: %w", err)
	}
	s.mu.Lock()
	delete(s.idIndex, id)
	s.mu.Unlock()
	return nil
}

func (s *Store) Exists(ctx context.Context, id domain.FileID) (bool, error) {
	_, err := s.Get(ctx, id)
	if errors.Is(err, metadatastore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) all(ctx context.Context) ([]domain.FileRecord, error) {
	if err := s.rebuildIndex(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	keys := make([]string, 0, len(s.idIndex))
	for _, k := range s.idIndex {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	recs := make([]domain.FileRecord, 0, len(keys))
	for _, k := range keys {
		rec, err := s.readRecord(ctx, k)
		if errors.Is(err, metadatastore.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *Store) Search(ctx context.Context, f metadatastore.Filter) (metadatastore.SearchResult, error) {
	recs, err := s.all(ctx)
	if err != nil {
		return metadatastore.SearchResult{}, err
	}
	return metadatastore.ApplyFilter(recs, f, time.Now()), nil
}

func (s *Store) Stats(ctx context.Context) (metadatastore.StatsResult, error) {
	recs, err := s.all(ctx)
	if err != nil {
		return metadatastore.StatsResult{}, err
	}
	now := time.Now()
	var out metadatastore.StatsResult
	for _, r := range recs {
		if r.Expired(now) {
			continue
		}
		out.FileCount++
		out.TotalBytes += r.Size
		if out.OldestAt.IsZero() || r.UploadedAt.Before(out.OldestAt) {
			out.OldestAt = r.UploadedAt
		}
		if r.UploadedAt.After(out.NewestAt) {
			out.NewestAt = r.UploadedAt
		}
	}
	return out, nil
}

// ListExpired exploits key ordering: metadata keys sort by embedded expiry
// timestamp, so a scan from the prefix can stop as soon as it reaches a key
// whose expiry is after asOf.
func (s *Store) ListExpired(ctx context.Context, asOf time.Time, limit int) ([]domain.FileRecord, error) {
	keys, err := s.blobs.List(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	cutoff := asOf.UnixMilli()
	var out []domain.FileRecord
	for _, k := range keys {
		ts, ok := expiryFromKey(k)
		if !ok {
			continue
		}
		if ts > cutoff {
			break // everything after this point expires later; stop scanning
		}
		rec, err := s.readRecord(ctx, k)
		if errors.Is(err, metadatastore.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func expiryFromKey(key string) (int64, bool) {
	rest := strings.TrimPrefix(key, keyPrefix)
	parts := strings.SplitN(rest, "__", 2)
	if len(parts) != 2 {
		return 0, false
	}
	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

func (s *Store) Healthy(ctx context.Context) error {
	return s.blobs.Healthy(ctx)
}

func (s *Store) Close() error { return nil }
