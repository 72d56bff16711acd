package httpapi

import (
	"net/http"

	"github.com/MrWong99/claimwright/internal/apperr"
)

func (s *Server) registerQueueRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /queue/{id}", s.handleGetJob)
	mux.HandleFunc("POST /queue/{id}/cancel", s.handleCancelJob)
}

type jobStatusResponse struct {
	ID       string `json:"id"`
	Phase    string `json:"phase"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	handle, ok := s.Queue.Lookup(r.PathValue("id"))
	if !ok {
		writeError(w, r, apperr.NotFound("job"))
		return
	}
	phase, progress, err := handle.Status()
	resp := jobStatusResponse{ID: handle.ID(), Phase: string(phase), Progress: progress}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	handle, ok := s.Queue.Lookup(r.PathValue("id"))
	if !ok {
		writeError(w, r, apperr.NotFound("job"))
		return
	}
	handle.Cancel()
	w.WriteHeader(http.StatusNoContent)
}
