// Command dropvault runs the temporary file storage HTTP service: upload,
// metadata lookup, download, search, stats, and scheduled expiry cleanup.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coalbin/dropvault/internal/app"
	"github.com/coalbin/dropvault/internal/blobstore"
	"github.com/coalbin/dropvault/internal/blobstore/fsblob"
	"github.com/coalbin/dropvault/internal/blobstore/s3blob"
	"github.com/coalbin/dropvault/internal/config"
	"github.com/coalbin/dropvault/internal/httpx"
	"github.com/coalbin/dropvault/internal/metadatastore"
	"github.com/coalbin/dropvault/internal/metadatastore/blobmeta"
	"github.com/coalbin/dropvault/internal/metadatastore/kv"
	"github.com/coalbin/dropvault/internal/metrics"
	"github.com/coalbin/dropvault/internal/reaper"
	"github.com/coalbin/dropvault/internal/urlfetch"
)

func main() {
	if err := run(); err != nil {
		slog.Error("dropvault exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	blobs, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build blob store: %w", err)
	}
	meta, err := buildMetadataStore(cfg, blobs)
	if err != nil {
		return fmt.Errorf("build metadata store: %w", err)
	}
	defer meta.Close()

	reg := prometheus.NewRegistry()
	collector := metrics.New(reg)

	clock := app.SystemClock()

	ingest := &app.IngestPipeline{
		Blobs:     blobs,
		Meta:      meta,
		Clock:     clock,
		Metrics:   collector,
		MaxBytes:  cfg.MaxBytes(),
		MinTTL:    cfg.MinTTL,
		MaxTTL:    cfg.MaxTTL,
		Allowlist: cfg.AllowedMimeTypes,
	}
	catalog := &app.CatalogService{Blobs: blobs, Meta: meta, Clock: clock, Metrics: collector}

	janitor := &reaper.Reaper{
		Meta:      meta,
		Blobs:     blobs,
		Catalog:   catalog,
		Clock:     clock,
		Metrics:   collector,
		Interval:  time.Duration(cfg.CleanupIntervalMins) * time.Minute,
		BatchSize: 1000,
	}
	janitor.Start(ctx)
	defer janitor.Stop()

	fetcher := urlfetch.New(cfg.MaxBytes(), 30*time.Second)

	srv := &httpx.Server{
		Ingest:         ingest,
		Catalog:        catalog,
		Reaper:         janitor,
		Fetcher:        fetcher,
		BasePath:       cfg.BasePath,
		DefaultTTL:     cfg.DefaultTTL,
		MetricsHandler: metrics.Handler(reg),
	}
	router := httpx.NewRouter(srv)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("dropvault listening", "addr", cfg.Addr, "storage_backend", cfg.StorageBackend, "metadata_backend", cfg.MetadataBackend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

func buildBlobStore(ctx context.Context, cfg *config.Config) (blobstore.BlobStore, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendS3:
		client, err := s3blob.NewClient(ctx, s3blob.Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.S3Bucket,
			ForcePathStyle:  cfg.S3ForcePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return s3blob.New(client, cfg.S3Bucket, cfg.S3KeyPrefix)
	default:
		return fsblob.New(cfg.BlobRoot())
	}
}

func buildMetadataStore(cfg *config.Config, blobs blobstore.BlobStore) (metadatastore.MetadataStore, error) {
	switch cfg.MetadataBackend {
	case config.MetadataBackendBlobMeta:
		return blobmeta.New(blobs), nil
	default:
		return kv.Open(cfg.MetadataRoot())
	}
}
