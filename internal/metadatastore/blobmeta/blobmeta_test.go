package blobmeta

import (
	"context"
	"testing"
	"time"

	"github.com/coalbin/dropvault/internal/blobstore/fsblob"
	"github.com/coalbin/dropvault/internal/domain"
	"github.com/coalbin/dropvault/internal/metadatastore"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	blobs, err := fsblob.New(t.TempDir())
	if err != nil {
		t.Fatalf("fsblob.New: %v", err)
	}
	return New(blobs)
}

func TestPutGetDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	rec := domain.FileRecord{
		ID:         "abc123",
		MimeType:   "text/plain",
		Size:       5,
		UploadedAt: time.Now(),
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.MimeType != rec.MimeType {
		t.Fatalf("got %+v", got)
	}

	if err := s.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, rec.ID); err != metadatastore.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutChangesExpiryRemovesOldObject(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	rec := domain.FileRecord{ID: "x", UploadedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rec.ExpiresAt = time.Now().Add(2 * time.Hour)
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put (update): %v", err)
	}
	keys, err := s.blobs.List(ctx, keyPrefix)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected exactly one metadata object after update, got %d: %v", len(keys), keys)
	}
}

func TestListExpiredStopsEarly(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	soonExpired := domain.FileRecord{ID: "soon", UploadedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Minute)}
	longLived := domain.FileRecord{ID: "long", UploadedAt: now, ExpiresAt: now.Add(24 * time.Hour)}

	if err := s.Put(ctx, soonExpired); err != nil {
		t.Fatalf("Put soon: %v", err)
	}
	if err := s.Put(ctx, longLived); err != nil {
		t.Fatalf("Put long: %v", err)
	}

	expired, err := s.ListExpired(ctx, now, 0)
	if err != nil {
		t.Fatalf("ListExpired: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != "soon" {
		t.Fatalf("unexpected expired set: %+v", expired)
	}
}

func TestStats(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()
	for i, id := range []string{"a", "b"} {
		rec := domain.FileRecord{
			ID:         domain.FileID(id),
			Size:       int64(10 * (i + 1)),
			UploadedAt: now.Add(time.Duration(i) * time.Minute),
			ExpiresAt:  now.Add(time.Hour),
		}
		if err := s.Put(ctx, rec); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.FileCount != 2 || stats.TotalBytes != 30 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
