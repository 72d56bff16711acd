package httpapi

import (
	"context"
	"net/http"

	"github.com/MrWong99/claimwright/internal/jobqueue"
	"github.com/MrWong99/claimwright/pkg/coretypes"
)

func (s *Server) registerValidateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /validate/claim", s.handleValidateClaim)
	mux.HandleFunc("POST /validate/transcript", s.handleValidateTranscript)
	mux.HandleFunc("GET /reports/{id}", s.handleGetReport)
}

func (s *Server) handleValidateClaim(w http.ResponseWriter, r *http.Request) {
	var claim coretypes.Claim
	if err := decodeJSON(r, &claim); err != nil {
		writeError(w, r, err)
		return
	}

	handle, err := s.Queue.Submit(jobqueue.SubmitInput{
		Class:    coretypes.ResourceLLM,
		Priority: coretypes.PriorityHigh, // interactive, single-claim request
		Work: func(ctx context.Context) error {
			_, err := s.Validator.Validate(ctx, claim)
			return err
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, struct {
		JobID string `json:"job_id"`
	}{JobID: handle.ID()})
}

func (s *Server) handleValidateTranscript(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TranscriptID string           `json:"transcript_id"`
		Claims       []coretypes.Claim `json:"claims"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	handle, err := s.Queue.Submit(jobqueue.SubmitInput{
		Class:    coretypes.ResourceLLM,
		Priority: coretypes.PriorityNormal,
		Work: func(ctx context.Context) error {
			validations := make(map[string]*coretypes.Validation, len(req.Claims))
			for _, c := range req.Claims {
				if c.Kind != coretypes.ClaimFact {
					continue
				}
				v, err := s.Validator.Validate(ctx, c)
				if err != nil {
					continue
				}
				validations[c.ID] = v
			}
			rep := s.Reports.Build(ctx, req.TranscriptID, req.Claims, validations, nil)
			if s.ReportsDB != nil {
				_ = s.ReportsDB.Put(ctx, *rep)
			}
			s.BroadcastReport(req.TranscriptID, rep.ID)
			return nil
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, struct {
		JobID string `json:"job_id"`
	}{JobID: handle.ID()})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.ReportsDB == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "report store not configured", Kind: "not_found"})
		return
	}
	rep, err := s.ReportsDB.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
