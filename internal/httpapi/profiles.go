package httpapi

import (
	"net/http"

	"github.com/MrWong99/claimwright/pkg/coretypes"
)

func (s *Server) registerProfileRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /profiles", s.handleListProfiles)
	mux.HandleFunc("POST /profiles", s.handleCreateProfile)
	mux.HandleFunc("GET /profiles/{id}", s.handleGetProfile)
	mux.HandleFunc("DELETE /profiles/{id}", s.handleDeleteProfile)
	mux.HandleFunc("POST /profiles/{id}/facts", s.handleAddFact)
	mux.HandleFunc("DELETE /profiles/{id}/facts/{factID}", s.handleRemoveFact)
	mux.HandleFunc("POST /profiles/{id}/link/{documentID}", s.handleLinkProfile)
	mux.HandleFunc("DELETE /profiles/{id}/link/{documentID}", s.handleUnlinkProfile)
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	kind := coretypes.ProfileKind(r.URL.Query().Get("kind"))
	profiles, err := s.Profiles.ListProfiles(r.Context(), kind, r.URL.Query()["tag"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Profiles []coretypes.Profile `json:"profiles"`
	}{Profiles: profiles})
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var p coretypes.Profile
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := s.Profiles.CreateProfile(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		ID string `json:"id"`
	}{ID: id})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.Profiles.GetProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.Profiles.DeleteProfile(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddFact(w http.ResponseWriter, r *http.Request) {
	var f coretypes.Fact
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := s.Profiles.AddFact(r.Context(), r.PathValue("id"), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		ID string `json:"id"`
	}{ID: id})
}

func (s *Server) handleRemoveFact(w http.ResponseWriter, r *http.Request) {
	if err := s.Profiles.RemoveFact(r.Context(), r.PathValue("id"), r.PathValue("factID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLinkProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.Profiles.Link(r.Context(), r.PathValue("documentID"), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnlinkProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.Profiles.Unlink(r.Context(), r.PathValue("documentID"), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

