// Package kv implements a MetadataStore backed directly by a badger key/value
// database, using badger's native per-key TTL so expired records fall out of
// the store on their own without reaper intervention.
package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/coalbin/dropvault/internal/domain"
	"github.com/coalbin/dropvault/internal/metadatastore"
)

// minTTL is the floor applied to every badger entry's TTL: max(minTTL,
// expiresAt-now), so a record due to expire imminently still gets a
// reasonable window to be read before badger reclaims the key itself.
const minTTL = 60 * time.Second

// scanBatchSize bounds how many keys a single forEachBatched transaction
// reads before committing and starting the next one.
const scanBatchSize = 500

// Store implements metadatastore.MetadataStore over a badger database.
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) a badger database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("kv: open: %w", err)
	}
	return &Store{db: db}, nil
}

func key(id domain.FileID) []byte { return []byte("file:" + id.String()) }

func (s *Store) Put(ctx context.Context, rec domain.FileRecord) error {
	_ = ctx
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("kv: marshal: %w", err)
	}
	ttl := time.Until(rec.ExpiresAt)
	if ttl < minTTL {
		ttl = minTTL
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key(rec.ID), raw).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}

func (s *Store) Get(ctx context.Context, id domain.FileID) (domain.FileRecord, error) {
	_ = ctx
	var rec domain.FileRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return metadatastore.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return domain.FileRecord{}, err
	}
	if rec.Expired(time.Now()) {
		return domain.FileRecord{}, metadatastore.ErrNotFound
	}
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, id domain.FileID) error {
	_ = ctx
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(id))
	})
	if err != nil && err != badger.ErrKeyNotFound {
		return err
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, id domain.FileID) (bool, error) {
	_, err := s.Get(ctx, id)
	if err == metadatastore.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) all(ctx context.Context) ([]domain.FileRecord, error) {
	var recs []domain.FileRecord
	err := s.forEachBatched(ctx, func(rec domain.FileRecord) error {
		recs = append(recs, rec)
		return nil
	})
	return recs, err
}

// forEachBatched walks the entire keyspace in fixed-size batches, each
// inside its own short-lived transaction, instead of holding one iterator
// open across the whole store. Each batch resumes by seeking to the key
// immediately after the last one visited by the previous batch.
func (s *Store) forEachBatched(ctx context.Context, visit func(domain.FileRecord) error) error {
	var lastKey []byte
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n := 0
		err := s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			it := txn.NewIterator(opts)
			defer it.Close()
			if lastKey == nil {
				it.Rewind()
			} else {
				it.Seek(lastKey)
				if it.Valid() && bytes.Equal(it.Item().Key(), lastKey) {
					it.Next()
				}
			}
			for ; it.Valid() && n < scanBatchSize; it.Next() {
				item := it.Item()
				var rec domain.FileRecord
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &rec)
				}); err != nil {
					return err
				}
				if err := visit(rec); err != nil {
					return err
				}
				lastKey = item.KeyCopy(nil)
				n++
			}
			return nil
		})
		if err != nil {
			return err
		}
		if n < scanBatchSize {
			return nil
		}
	}
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

func (s *Store) ListExpired(ctx context.Context, asOf time.Time, limit int) ([]domain.FileRecord, error) {
	recs, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.FileRecord
	for _, r := range recs {
		if r.Expired(asOf) {
			out = append(out, r)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Store) Healthy(ctx context.Context) error {
	_ = ctx
	return s.db.View(func(txn *badger.Txn) error { return nil })
}

func (s *Store) Close() error {
	return s.db.Close()
}
