package app

import (
	"context"
	"errors"
	"io"

	"github.com/coalbin/dropvault/internal/blobstore"
	"github.com/coalbin/dropvault/internal/domain"
	"github.com/coalbin/dropvault/internal/metadatastore"
)

// CatalogService answers queries about already-ingested files: metadata
// lookup, content download, existence checks, search, and aggregate stats.
type CatalogService struct {
	Blobs   blobstore.BlobStore
	Meta    metadatastore.MetadataStore
	Clock   Clock
	Metrics Metrics
}

// GetInfo returns the metadata record for id.
func (c *CatalogService) GetInfo(ctx context.Context, id domain.FileID) (domain.FileRecord, error) {
	rec, err := c.Meta.Get(ctx, id)
	if errors.Is(err, metadatastore.ErrNotFound) {
		return domain.FileRecord{}, ErrNotFound
	}
	return rec, err
}

// OpenStream returns the record and an open reader for its content. The
// caller must close the reader.
func (c *CatalogService) OpenStream(ctx context.Context, id domain.FileID) (domain.FileRecord, io.ReadCloser, error) {
	rec, err := c.GetInfo(ctx, id)
	if err != nil {
		return domain.FileRecord{}, nil, err
	}
	rc, err := c.Blobs.Get(ctx, rec.FilePath)
	if errors.Is(err, blobstore.ErrNotFound) {
		c.Metrics.ObserveDownload(0, false)
		return domain.FileRecord{}, nil, ErrNotFound
	}
	if err != nil {
		c.Metrics.ObserveDownload(0, false)
		return domain.FileRecord{}, nil, err
	}
	c.Metrics.ObserveDownload(rec.Size, true)
	return rec, rc, nil
}

// FileExists reports whether a live record exists for id, without erroring
// on a missing id.
func (c *CatalogService) FileExists(ctx context.Context, id domain.FileID) (bool, error) {
	return c.Meta.Exists(ctx, id)
}

// Delete removes both the metadata record and the underlying blob for id.
func (c *CatalogService) Delete(ctx context.Context, id domain.FileID) error {
	rec, err := c.GetInfo(ctx, id)
	if err != nil {
		c.Metrics.ObserveDelete(false)
		return err
	}
	if err := c.Blobs.Delete(ctx, rec.FilePath); err != nil {
		c.Metrics.ObserveDelete(false)
		return err
	}
	if err := c.Meta.Delete(ctx, id); err != nil {
		c.Metrics.ObserveDelete(false)
		return err
	}
	c.Metrics.ObserveDelete(true)
	return nil
}

// Search returns files matching f.
func (c *CatalogService) Search(ctx context.Context, f metadatastore.Filter) (metadatastore.SearchResult, error) {
	return c.Meta.Search(ctx, f)
}

// Stats summarizes the current catalog contents.
func (c *CatalogService) Stats(ctx context.Context) (metadatastore.StatsResult, error) {
	return c.Meta.Stats(ctx)
}
