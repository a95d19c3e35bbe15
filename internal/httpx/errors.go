package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coalbin/dropvault/internal/app"
	"github.com/coalbin/dropvault/internal/domain"
)

// errorResponse is the JSON body returned for any non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("httpx: encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps a domain/app sentinel error to an HTTP status and a
// client-facing message. Unrecognized errors map to 500 with a generic
// message; their detail goes to the log, not the response body.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound, "file not found"
	case errors.Is(err, app.ErrSizeExceeded):
		return http.StatusRequestEntityTooLarge, "file exceeds the configured size limit"
	case errors.Is(err, app.ErrMimeRejected):
		return http.StatusUnsupportedMediaType, "file type is not permitted"
	case errors.Is(err, app.ErrTTLInvalid):
		return http.StatusBadRequest, "requested ttl is outside the allowed range"
	case errors.Is(err, app.ErrNameInvalid):
		return http.StatusBadRequest, "original filename is invalid"
	case errors.Is(err, app.ErrMetaInvalid):
		return http.StatusBadRequest, "metadata does not satisfy the allowed shape"
	case errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest, "invalid file id"
	default:
		slog.Error("httpx: unhandled error", "error", err)
		return http.StatusInternalServerError, "internal error"
	}
}
