// Package reaper implements the background janitor that reclaims expired
// files: it periodically scans the catalog for expired records and deletes
// both their blob and metadata, with a single-flight run guard and
// cooperative shutdown.
package reaper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coalbin/dropvault/internal/app"
	"github.com/coalbin/dropvault/internal/blobstore"
	"github.com/coalbin/dropvault/internal/domain"
	"github.com/coalbin/dropvault/internal/metadatastore"
)

// State is the reaper's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// Deleter is the subset of catalog behavior the reaper needs.
// app.CatalogService satisfies it directly.
type Deleter interface {
	Delete(ctx context.Context, id domain.FileID) error
}

// Reaper runs ListExpired + Delete on a fixed interval, and also performs
// opportunistic orphan-blob reclamation: blobs left behind with no
// corresponding metadata record (e.g. from a crash between the blob write
// and the metadata write). Blobs is optional; a nil Blobs skips the orphan
// pass entirely.
type Reaper struct {
	Meta      metadatastore.MetadataStore
	Blobs     blobstore.BlobStore
	Catalog   Deleter
	Clock     app.Clock
	Metrics   app.Metrics
	Interval  time.Duration
	BatchSize int // max records reclaimed per tick; 0 means unbounded
	Logger    *slog.Logger

	state  atomic.Int32
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

func (r *Reaper) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// State reports the reaper's current lifecycle state.
func (r *Reaper) State() State {
	return State(r.state.Load())
}

// Start launches the background loop. It returns immediately; call Stop to
// shut it down. Start is not safe to call twice on the same Reaper.
func (r *Reaper) Start(ctx context.Context) {
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.loop(ctx)
}

// Stop requests cooperative shutdown and blocks until the current run (if
// any) finishes and the loop exits.
func (r *Reaper) Stop() {
	r.once.Do(func() {
		r.state.Store(int32(StateShuttingDown))
		close(r.stopCh)
	})
	<-r.doneCh
}

func (r *Reaper) loop(ctx context.Context) {
	defer close(r.doneCh)
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

// runOnce performs a single reclaim pass, guarded so overlapping ticks never
// run concurrently: if a run is already in flight (or shutdown has begun)
// the tick is skipped.
func (r *Reaper) runOnce(ctx context.Context) {
	if !r.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return
	}
	defer r.state.CompareAndSwap(int32(StateRunning), int32(StateIdle))

	start := r.Clock.Now()
	reclaimed, err := r.reclaimAll(ctx)
	if err != nil {
		r.logger().Error("reaper pass failed", "error", err, "reclaimed", reclaimed)
	} else {
		r.logger().Info("reaper pass complete", "reclaimed", reclaimed)
	}
	r.Metrics.ObserveReap(reclaimed, r.Clock.Now().Sub(start))
}

// RunOnce forces an immediate reclaim pass and blocks until it completes,
// returning the number of files reclaimed. Used by the maintenance HTTP
// endpoint, which returns only after the batch finishes.
func (r *Reaper) RunOnce(ctx context.Context) (int, error) {
	if !r.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return 0, fmt.Errorf("reaper: already running (state=%s)", r.State())
	}
	defer r.state.CompareAndSwap(int32(StateRunning), int32(StateIdle))

	start := r.Clock.Now()
	n, err := r.reclaimAll(ctx)
	r.Metrics.ObserveReap(n, r.Clock.Now().Sub(start))
	return n, err
}

// reclaimAll runs one expired-record pass followed by one opportunistic
// orphan-blob pass; both count toward the total reclaimed.
func (r *Reaper) reclaimAll(ctx context.Context) (int, error) {
	expired, err := r.reclaimExpired(ctx)
	if err != nil {
		return expired, err
	}
	select {
	case <-r.stopCh:
		return expired, nil
	default:
	}
	orphans, err := r.reclaimOrphans(ctx)
	return expired + orphans, err
}

func (r *Reaper) reclaimExpired(ctx context.Context) (int, error) {
	now := r.Clock.Now()
	expired, err := r.Meta.ListExpired(ctx, now, r.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("reaper: list expired: %w", err)
	}

	reclaimed := 0
	for _, rec := range expired {
		select {
		case <-r.stopCh:
			return reclaimed, nil
		default:
		}
		if err := r.Catalog.Delete(ctx, rec.ID); err != nil {
			r.logger().Warn("reaper: delete failed", "id", rec.ID, "error", err)
			continue
		}
		reclaimed++
	}
	return reclaimed, nil
}

// reclaimOrphans lists every blob key and deletes any that is a valid file
// id with no corresponding metadata record. The blob key scheme (key ==
// id) is what makes this correlation possible; non-id keys (such as
// blobmeta's own internal metadata objects, which live in the same store
// under a "metadata/" prefix) fail domain.ParseID and are skipped, so this
// works unmodified regardless of which MetadataStore backend is in use.
func (r *Reaper) reclaimOrphans(ctx context.Context) (int, error) {
	if r.Blobs == nil {
		return 0, nil
	}
	keys, err := r.Blobs.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("reaper: list blobs: %w", err)
	}

	reclaimed := 0
	for _, key := range keys {
		select {
		case <-r.stopCh:
			return reclaimed, nil
		default:
		}
		id, err := domain.ParseID(key)
		if err != nil {
			continue
		}
		exists, err := r.Meta.Exists(ctx, id)
		if err != nil {
			r.logger().Warn("reaper: orphan check failed", "id", id, "error", err)
			continue
		}
		if exists {
			continue
		}
		if err := r.Blobs.Delete(ctx, key); err != nil {
			r.logger().Warn("reaper: orphan delete failed", "id", id, "error", err)
			continue
		}
		r.logger().Info("reaper: reclaimed orphan blob", "id", id)
		reclaimed++
	}
	return reclaimed, nil
}
