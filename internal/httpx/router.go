// Package httpx exposes dropvault's operations over HTTP: a chi router,
// one handler per endpoint, and the error-to-status-code mapping shared by
// all of them.
package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/coalbin/dropvault/internal/app"
	"github.com/coalbin/dropvault/internal/reaper"
	"github.com/coalbin/dropvault/internal/urlfetch"
)

// Server bundles the dependencies every handler needs.
type Server struct {
	Ingest            *app.IngestPipeline
	Catalog           *app.CatalogService
	Reaper            *reaper.Reaper
	Fetcher           *urlfetch.Fetcher
	BasePath          string        // URL prefix all routes are mounted under, e.g. "/api/v1"
	DefaultTTL        time.Duration // applied when a request omits ttl
	MultipartMemLimit int64         // bytes buffered in memory while parsing multipart bodies
	MetricsHandler    http.Handler  // optional; served at /metrics when set
}

// NewRouter builds the complete chi.Mux for the service.
func NewRouter(s *Server) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(requestLogger)

	mount := func(fn func(chi.Router)) {
		if s.BasePath == "" || s.BasePath == "/" {
			fn(r)
			return
		}
		r.Route(s.BasePath, fn)
	}

	mount(func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/health/ready", s.handleHealthReady)

		r.Route("/files", func(r chi.Router) {
			r.Post("/", s.handleUpload)
			r.Post("/url", s.handleUploadFromURL)
			r.Get("/", s.handleSearch)
			r.Get("/stats", s.handleStats)
			r.Get("/{id}", s.handleGetInfo)
			r.Delete("/{id}", s.handleDelete)
			r.Get("/{id}/exists", s.handleExists)
		})

		r.Get("/download/{id}", s.handleDownload)

		r.Post("/maintenance/run", s.handleMaintenanceRun)
		r.Post("/cleanup/run", s.handleMaintenanceRun) // alias
	})

	if s.MetricsHandler != nil {
		r.Handle("/metrics", s.MetricsHandler)
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.Ingest.Blobs.Healthy(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "blobstore unhealthy"})
		return
	}
	if err := s.Ingest.Meta.Healthy(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "metadatastore unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
