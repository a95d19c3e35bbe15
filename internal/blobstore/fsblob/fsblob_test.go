package fsblob

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/coalbin/dropvault/internal/blobstore"
)

func TestPutGetDelete(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	data := []byte("hello world")

	if err := s.Put(ctx, "a/b.txt", bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("Put: %v", err)
	}

	size, err := s.Head(ctx, "a/b.txt")
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if size != int64(len(data)) {
		t.Fatalf("Head size = %d, want %d", size, len(data))
	}

	rc, err := s.Get(ctx, "a/b.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q, want %q", got, data)
	}

	if err := s.Delete(ctx, "a/b.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "a/b.txt"); err != blobstore.ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteMissingIsNotError(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Delete(context.Background(), "nope"); err != nil {
		t.Fatalf("expected no error deleting missing key, got %v", err)
	}
}

func TestListPrefixSorted(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	for _, k := range []string{"meta/0003__c.json", "meta/0001__a.json", "meta/0002__b.json"} {
		if err := s.Put(ctx, k, bytes.NewReader([]byte("{}")), 2); err != nil {
			t.Fatalf("Put %s: %v", k, err)
		}
	}
	keys, err := s.List(ctx, "meta/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"meta/0001__a.json", "meta/0002__b.json", "meta/0003__c.json"}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d: %v", len(keys), len(want), keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestHealthy(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Healthy(context.Background()); err != nil {
		t.Fatalf("Healthy: %v", err)
	}
}
