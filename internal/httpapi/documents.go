package httpapi

import (
	"encoding/base64"
	"net/http"

	"github.com/MrWong99/claimwright/internal/apperr"
	"github.com/MrWong99/claimwright/internal/knowledgebase"
)

func (s *Server) registerDocumentRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /documents", s.handleListDocuments)
	mux.HandleFunc("POST /documents", s.handleIngestDocument)
	mux.HandleFunc("GET /documents/{id}", s.handleGetDocument)
	mux.HandleFunc("PUT /documents/{id}", s.handleReingestDocument)
	mux.HandleFunc("DELETE /documents/{id}", s.handleDeleteDocument)
}

// ingestRequest carries raw content base64-encoded, since the JSON surface
// has no multipart story here — edge tooling posts small memos and notes,
// not large media files.
type ingestRequest struct {
	Filename       string   `json:"filename"`
	MIMEKind       string   `json:"mime_kind"`
	RawBase64      string   `json:"raw_base64"`
	Tags           []string `json:"tags"`
	Category       string   `json:"category"`
	Context        string   `json:"context"`
	LinkedProfiles []string `json:"linked_profiles"`
}

func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	raw, err := base64.StdEncoding.DecodeString(req.RawBase64)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindInvalidInput, "raw_base64 is not valid base64", err))
		return
	}
	doc, err := s.KB.Ingest(r.Context(), knowledgebase.IngestInput{
		Filename:       req.Filename,
		MIMEKind:       req.MIMEKind,
		Raw:            raw,
		Tags:           req.Tags,
		Category:       req.Category,
		Context:        req.Context,
		LinkedProfiles: req.LinkedProfiles,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.KB.ListDocuments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Documents []any `json:"documents"`
	}{Documents: toAnySlice(docs)})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.KB.GetDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type reingestRequest struct {
	RawBase64 string `json:"raw_base64"`
}

func (s *Server) handleReingestDocument(w http.ResponseWriter, r *http.Request) {
	var req reingestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	raw, err := base64.StdEncoding.DecodeString(req.RawBase64)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindInvalidInput, "raw_base64 is not valid base64", err))
		return
	}
	doc, err := s.KB.Reingest(r.Context(), r.PathValue("id"), raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.KB.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toAnySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
