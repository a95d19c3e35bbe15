package httpx

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coalbin/dropvault/internal/app"
)

// fileResponse is the JSON envelope returned after a successful ingest, and
// by GetInfo.
type fileResponse struct {
	ID           string         `json:"id"`
	OriginalName string         `json:"originalName"`
	MimeType     string         `json:"mimeType"`
	Size         int64          `json:"size"`
	Hash         string         `json:"hash"`
	UploadedAt   time.Time      `json:"uploadedAt"`
	ExpiresAt    time.Time      `json:"expiresAt"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// handleUpload accepts either a multipart/form-data body (one or more
// repeatable "file" parts, an optional "ttlMins" field, and an optional
// "metadata" JSON field) or a raw body, selected by Content-Type: anything
// other than multipart/form-data is treated as the file's own bytes, with
// x-file-name, x-ttl-mins and x-metadata headers carrying what the
// multipart fields would otherwise have carried.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		s.handleUploadMultipart(w, r)
		return
	}
	s.handleUploadRawBody(w, r)
}

// resolveTTLMinutes parses a minutes count from raw, falling back to the
// server default when raw is empty.
func (s *Server) resolveTTLMinutes(raw string) (time.Duration, error) {
	if raw == "" {
		return s.DefaultTTL, nil
	}
	mins, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(mins) * time.Minute, nil
}

func (s *Server) handleUploadMultipart(w http.ResponseWriter, r *http.Request) {
	memLimit := s.MultipartMemLimit
	if memLimit <= 0 {
		memLimit = 32 << 20
	}
	if err := r.ParseMultipartForm(memLimit); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart body"})
		return
	}

	ttl, err := s.resolveTTLMinutes(r.FormValue("ttlMins"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "ttlMins must be an integer number of minutes"})
		return
	}

	var metadata map[string]any
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "metadata must be a JSON object"})
			return
		}
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing file part"})
		return
	}

	responses := make([]fileResponse, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unreadable file part"})
			return
		}
		rec, err := s.Ingest.Ingest(r.Context(), app.IngestRequest{
			OriginalName:     header.Filename,
			DeclaredMimeType: header.Header.Get("Content-Type"),
			Size:             header.Size,
			TTL:              ttl,
			Metadata:         metadata,
			Body:             file,
		})
		file.Close()
		if err != nil {
			writeError(w, err)
			return
		}
		responses = append(responses, fileRecordToResponse(rec))
	}

	// a single file upload keeps returning the bare envelope; only a
	// genuinely repeated "file" part gets the array form.
	if len(responses) == 1 {
		writeJSON(w, http.StatusCreated, responses[0])
		return
	}
	writeJSON(w, http.StatusCreated, responses)
}

func (s *Server) handleUploadRawBody(w http.ResponseWriter, r *http.Request) {
	filename := r.Header.Get("X-File-Name")
	if filename == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "x-file-name header is required"})
		return
	}

	ttl, err := s.resolveTTLMinutes(r.Header.Get("X-Ttl-Mins"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "x-ttl-mins must be an integer number of minutes"})
		return
	}

	var metadata map[string]any
	if raw := r.Header.Get("X-Metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "x-metadata must be a JSON object"})
			return
		}
	}

	rec, err := s.Ingest.Ingest(r.Context(), app.IngestRequest{
		OriginalName:     filename,
		DeclaredMimeType: r.Header.Get("Content-Type"),
		Size:             r.ContentLength,
		TTL:              ttl,
		Metadata:         metadata,
		Body:             r.Body,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fileRecordToResponse(rec))
}

// handleUploadFromURL accepts a JSON body {"url": "...", "ttlMins": 1440,
// "metadata": {...}} and ingests the fetched content exactly like a direct
// upload.
func (s *Server) handleUploadFromURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL      string         `json:"url"`
		TTLMins  int64          `json:"ttlMins"` // minutes; 0 uses the server default
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if body.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "url is required"})
		return
	}

	ttl := s.DefaultTTL
	if body.TTLMins > 0 {
		ttl = time.Duration(body.TTLMins) * time.Minute
	}

	fetched, err := s.Fetcher.Fetch(r.Context(), body.URL)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to fetch url: " + err.Error()})
		return
	}
	defer fetched.Body.Close()

	rec, err := s.Ingest.Ingest(r.Context(), app.IngestRequest{
		OriginalName:     fetched.Filename,
		DeclaredMimeType: fetched.ContentType,
		Size:             fetched.Size,
		TTL:              ttl,
		Metadata:         body.Metadata,
		Body:             fetched.Body,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fileRecordToResponse(rec))
}
