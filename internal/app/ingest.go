package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/coalbin/dropvault/internal/blobstore"
	"github.com/coalbin/dropvault/internal/domain"
	"github.com/coalbin/dropvault/internal/metadatastore"
)

// IngestPipeline validates, hashes, stores, and catalogs a single uploaded
// file in one streaming pass: the source reader is read exactly once.
type IngestPipeline struct {
	Blobs     blobstore.BlobStore
	Meta      metadatastore.MetadataStore
	Clock     Clock
	Metrics   Metrics
	MaxBytes  int64
	MinTTL    time.Duration
	MaxTTL    time.Duration
	Allowlist []string // empty means "allow any type"
}

// IngestRequest describes one file to ingest.
type IngestRequest struct {
	OriginalName string
	// DeclaredMimeType is the caller-supplied Content-Type, if any. It is
	// only used as a fallback when content sniffing lands on the generic
	// application/octet-stream, never to override a confident sniff.
	DeclaredMimeType string
	Size             int64 // -1 if unknown ahead of time
	TTL              time.Duration
	Metadata         map[string]any
	Body             io.Reader
}

// errStreamSizeExceeded signals that a countingReader saw more bytes than
// its cap while a BlobStore.Put was reading it. It never escapes the
// pipeline: callers see ErrSizeExceeded.
var errStreamSizeExceeded = errors.New("app: stream exceeded size cap")

// Ingest runs the full pipeline: peek-and-sniff, hash while capping size,
// write the blob, then write the metadata record. If metadata write fails
// after the blob has already landed, the blob is deleted so no orphan blob
// survives a failed ingest.
func (p *IngestPipeline) Ingest(ctx context.Context, req IngestRequest) (domain.FileRecord, error) {
	start := p.Clock.Now()
	rec, err := p.ingest(ctx, req, start)
	ok := err == nil
	size := rec.Size
	p.Metrics.ObserveIngest(size, p.Clock.Now().Sub(start), ok)
	return rec, err
}

func (p *IngestPipeline) ingest(ctx context.Context, req IngestRequest, now time.Time) (domain.FileRecord, error) {
	if err := domain.ValidateOriginalName(req.OriginalName); err != nil {
		return domain.FileRecord{}, fmt.Errorf("%w: %v", ErrNameInvalid, err)
	}
	if err := domain.ValidateMetadata(req.Metadata); err != nil {
		return domain.FileRecord{}, fmt.Errorf("%w: %v", ErrMetaInvalid, err)
	}
	if err := domain.ValidateTTL(req.TTL, p.MinTTL, p.MaxTTL); err != nil {
		return domain.FileRecord{}, ErrTTLInvalid
	}
	if req.Size > p.MaxBytes {
		return domain.FileRecord{}, ErrSizeExceeded
	}

	mimeType, stream, err := sniffStream(req.Body, req.DeclaredMimeType)
	if err != nil {
		return domain.FileRecord{}, fmt.Errorf("sniff: %w", err)
	}
	if !domain.MimeAllowed(mimeType, p.Allowlist) {
		return domain.FileRecord{}, ErrMimeRejected
	}

	id := domain.NewID()
	storedName, err := domain.StoredName(req.OriginalName)
	if err != nil {
		return domain.FileRecord{}, fmt.Errorf("stored name: %w", err)
	}

	hasher := sha256.New()
	counting := &countingReader{r: io.TeeReader(stream, hasher), limit: p.MaxBytes}

	// the BlobStore key is the file's id, never the display-only stored
	// name: orphan cleanup and the reaper's orphan scan both correlate
	// blobs back to a record by this key.
	blobKey := id.String()
	putErr := p.Blobs.Put(ctx, blobKey, counting, req.Size)
	if counting.exceeded {
		if delErr := p.Blobs.Delete(ctx, blobKey); delErr != nil {
			slog.Warn("potential orphan", "key", blobKey, "error", delErr)
		}
		return domain.FileRecord{}, ErrSizeExceeded
	}
	if putErr != nil {
		if errors.Is(putErr, errStreamSizeExceeded) {
			if delErr := p.Blobs.Delete(ctx, blobKey); delErr != nil {
				slog.Warn("potential orphan", "key", blobKey, "error", delErr)
			}
			return domain.FileRecord{}, ErrSizeExceeded
		}
		return domain.FileRecord{}, fmt.Errorf("blob put: %w", putErr)
	}

	rec := domain.FileRecord{
		ID:           id,
		OriginalName: req.OriginalName,
		StoredName:   storedName,
		MimeType:     mimeType,
		Size:         counting.total,
		Hash:         hex.EncodeToString(hasher.Sum(nil)),
		UploadedAt:   now,
		TTL:          req.TTL,
		ExpiresAt:    now.Add(req.TTL),
		FilePath:     blobKey,
		Metadata:     req.Metadata,
	}

	if err := p.Meta.Put(ctx, rec); err != nil {
		// compensating action: never leave an orphan blob behind.
		if delErr := p.Blobs.Delete(ctx, blobKey); delErr != nil {
			slog.Warn("potential orphan", "key", blobKey, "error", delErr)
		}
		return domain.FileRecord{}, fmt.Errorf("metadata put: %w", err)
	}
	return rec, nil
}

// countingReader tracks bytes read through it and fails fast, returning
// errStreamSizeExceeded, as soon as the running total crosses limit. This
// lets BlobStore.Put abort mid-stream instead of always reading to EOF
// before the cap is checked.
type countingReader struct {
	r        io.Reader
	limit    int64
	total    int64
	exceeded bool
}

func (c *countingReader) Read(p []byte) (int, error) {
	if c.exceeded {
		return 0, errStreamSizeExceeded
	}
	n, err := c.r.Read(p)
	c.total += int64(n)
	if c.total > c.limit {
		c.exceeded = true
		if err == nil {
			err = errStreamSizeExceeded
		}
	}
	return n, err
}
