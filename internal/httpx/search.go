package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/coalbin/dropvault/internal/metadatastore"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := metadatastore.Filter{
		MimeType: q.Get("mimeType"),
	}
	if v := q.Get("minSize"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.MinSize = n
		}
	}
	if v := q.Get("maxSize"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.MaxSize = n
		}
	}
	if v := q.Get("uploadedAfter"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.UploadedAfter = t
		}
	}
	if v := q.Get("uploadedBefore"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.UploadedBefore = t
		}
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		f.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
		f.Offset = offset
	}
	if q.Get("expiredOnly") == "true" {
		f.ExpiredOnly = true
	}

	res, err := s.Catalog.Search(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]fileResponse, 0, len(res.Records))
	for _, rec := range res.Records {
		items = append(items, fileRecordToResponse(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"files": items,
		"total": res.Total,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Catalog.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
