package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestPipeline(blobs *memBlobs, meta *memMeta) *IngestPipeline {
	return &IngestPipeline{
		Blobs:     blobs,
		Meta:      meta,
		Clock:     fixedClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		Metrics:   NoopMetrics{},
		MaxBytes:  1024,
		MinTTL:    time.Minute,
		MaxTTL:    24 * time.Hour,
		Allowlist: nil,
	}
}

func TestIngestHappyPath(t *testing.T) {
	blobs := newMemBlobs()
	meta := newMemMeta()
	p := newTestPipeline(blobs, meta)

	body := strings.NewReader("hello world")
	rec, err := p.Ingest(context.Background(), IngestRequest{
		OriginalName: "hello.txt",
		Size:         int64(body.Len()),
		TTL:          time.Hour,
		Body:         body,
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if rec.Size != 11 {
		t.Fatalf("Size = %d, want 11", rec.Size)
	}
	if rec.Hash == "" {
		t.Fatalf("expected non-empty hash")
	}
	if !blobs.has(rec.FilePath) {
		t.Fatalf("expected blob stored under %q", rec.FilePath)
	}
	if rec.FilePath != rec.ID.String() {
		t.Fatalf("FilePath = %q, want it to equal the id %q", rec.FilePath, rec.ID.String())
	}
	got, err := meta.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Get metadata: %v", err)
	}
	if got.OriginalName != "hello.txt" {
		t.Fatalf("OriginalName = %q", got.OriginalName)
	}
}

func TestIngestRejectsOversizedBody(t *testing.T) {
	blobs := newMemBlobs()
	meta := newMemMeta()
	p := newTestPipeline(blobs, meta)
	p.MaxBytes = 4

	body := strings.NewReader("this is far too long")
	_, err := p.Ingest(context.Background(), IngestRequest{
		OriginalName: "big.txt",
		Size:         -1,
		TTL:          time.Hour,
		Body:         body,
	})
	if !errors.Is(err, ErrSizeExceeded) {
		t.Fatalf("expected ErrSizeExceeded, got %v", err)
	}
	if len(blobs.data) != 0 {
		t.Fatalf("expected no surviving blob after size-cap rejection, got %d", len(blobs.data))
	}
}

func TestIngestRejectsInvalidTTL(t *testing.T) {
	blobs := newMemBlobs()
	meta := newMemMeta()
	p := newTestPipeline(blobs, meta)

	_, err := p.Ingest(context.Background(), IngestRequest{
		OriginalName: "a.txt",
		Size:         1,
		TTL:          time.Second, // below MinTTL
		Body:         strings.NewReader("a"),
	})
	if !errors.Is(err, ErrTTLInvalid) {
		t.Fatalf("expected ErrTTLInvalid, got %v", err)
	}
}

func TestIngestRejectsDisallowedMime(t *testing.T) {
	blobs := newMemBlobs()
	meta := newMemMeta()
	p := newTestPipeline(blobs, meta)
	p.Allowlist = []string{"image/png"}

	_, err := p.Ingest(context.Background(), IngestRequest{
		OriginalName: "a.txt",
		Size:         5,
		TTL:          time.Hour,
		Body:         strings.NewReader("hello"),
	})
	if !errors.Is(err, ErrMimeRejected) {
		t.Fatalf("expected ErrMimeRejected, got %v", err)
	}
}

// infiniteReader never returns EOF; used to prove the size cap aborts the
// read instead of draining the source to completion.
type infiniteReader struct{}

func (infiniteReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'x'
	}
	return len(p), nil
}

func TestIngestFailsFastOnUnboundedStream(t *testing.T) {
	blobs := newMemBlobs()
	meta := newMemMeta()
	p := newTestPipeline(blobs, meta)
	p.MaxBytes = 16

	_, err := p.Ingest(context.Background(), IngestRequest{
		OriginalName: "big.bin",
		Size:         -1,
		TTL:          time.Hour,
		Body:         infiniteReader{},
	})
	if !errors.Is(err, ErrSizeExceeded) {
		t.Fatalf("expected ErrSizeExceeded, got %v", err)
	}
	if len(blobs.data) != 0 {
		t.Fatalf("expected no surviving blob after size-cap rejection, got %d", len(blobs.data))
	}
}

func TestIngestFallsBackToDeclaredMimeType(t *testing.T) {
	blobs := newMemBlobs()
	meta := newMemMeta()
	p := newTestPipeline(blobs, meta)

	// binary bytes that match no content signature, so sniffing lands on
	// the generic application/octet-stream.
	rec, err := p.Ingest(context.Background(), IngestRequest{
		OriginalName:     "blob.bin",
		DeclaredMimeType: "application/x-custom",
		Size:             8,
		TTL:              time.Hour,
		Body:             strings.NewReader("\x00\x01\x02\x03\x04\x05\x06\x07"),
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if rec.MimeType != "application/x-custom" {
		t.Fatalf("MimeType = %q, want the declared fallback", rec.MimeType)
	}
}

func TestIngestCompensatesOnMetadataFailure(t *testing.T) {
	blobs := newMemBlobs()
	meta := newMemMeta()
	meta.putErr = errors.New("store unavailable")
	p := newTestPipeline(blobs, meta)

	_, err := p.Ingest(context.Background(), IngestRequest{
		OriginalName: "a.txt",
		Size:         5,
		TTL:          time.Hour,
		Body:         strings.NewReader("hello"),
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(blobs.data) != 0 {
		t.Fatalf("expected compensating delete to remove orphan blob, got %d objects", len(blobs.data))
	}
}
