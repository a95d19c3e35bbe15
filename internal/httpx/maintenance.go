package httpx

import "net/http"

// handleMaintenanceRun forces an immediate reclaim pass and blocks until it
// finishes, returning the number of files reclaimed.
func (s *Server) handleMaintenanceRun(w http.ResponseWriter, r *http.Request) {
	reclaimed, err := s.Reaper.RunOnce(r.Context())
	if err != nil {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reclaimed": reclaimed})
}
