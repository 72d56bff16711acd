package httpapi

import (
	"net/http"

	"github.com/MrWong99/claimwright/pkg/coretypes"
)

func (s *Server) registerDeviceRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /devices", s.handleListDevices)
	mux.HandleFunc("POST /devices/{id}/connect", s.handleConnectDevice)
	mux.HandleFunc("POST /devices/{id}/disconnect", s.handleDisconnectDevice)
	mux.HandleFunc("POST /devices/{id}/select", s.handleSelectDevice)
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Devices []coretypes.Device `json:"devices"`
	}{Devices: s.Devices.ListDevices()})
}

func (s *Server) handleConnectDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.Devices.Connect(id); err != nil {
		writeError(w, r, err)
		return
	}
	s.Metrics.ActiveDevices.Add(r.Context(), 1)
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
	}{Status: "connected"})
}

func (s *Server) handleDisconnectDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.Devices.Disconnect(id); err != nil {
		writeError(w, r, err)
		return
	}
	s.Metrics.ActiveDevices.Add(r.Context(), -1)
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
	}{Status: "disconnected"})
}

func (s *Server) handleSelectDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.Devices.SelectActive(id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
	}{Status: "selected"})
}
