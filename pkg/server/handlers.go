package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tukanos/admission/pkg/ratelimit"
)

// The handlers below stand in for the real protected backends. The admission
// middleware in front of them is the point; what runs behind it is a thin
// placeholder that echoes enough structure to exercise the contract.

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "accepted",
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	resp := map[string]interface{}{
		"id":      r.Header.Get(requestIDHeader),
		"created": time.Now().UTC().Format(time.RFC3339),
		"output":  "",
	}
	if v, ok := ratelimit.VerdictFromContext(r.Context()); ok {
		resp["quota_remaining"] = v.Remaining
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "queued",
		"job_id": r.Header.Get(requestIDHeader),
	})
}

func (s *Server) handleListData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"collection": chi.URLParam(r, "collection"),
		"items":      []interface{}{},
	})
}

func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"collection": chi.URLParam(r, "collection"),
		"id":         chi.URLParam(r, "id"),
	})
}

// handleReset clears all window records for one identifier. Operational
// escape hatch; not behind a policy on purpose.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identifier == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "identifier is required"})
		return
	}

	if err := s.limiter.Reset(r.Context(), req.Identifier); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reset failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset", "identifier": req.Identifier})
}
