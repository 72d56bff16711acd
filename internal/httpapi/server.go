// Package httpapi implements the external HTTP/JSON and WebSocket surface:
// device control, document and profile management, on-demand claim
// validation, job queue introspection, and live event subscriptions. Every
// handler funnels its domain error through writeError, which maps the
// apperr.Kind taxonomy onto the engine's HTTP status contract.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrWong99/claimwright/internal/apperr"
	"github.com/MrWong99/claimwright/internal/devicemux"
	"github.com/MrWong99/claimwright/internal/jobqueue"
	"github.com/MrWong99/claimwright/internal/knowledgebase"
	"github.com/MrWong99/claimwright/internal/observe"
	"github.com/MrWong99/claimwright/internal/report"
	"github.com/MrWong99/claimwright/internal/validator"
	"github.com/MrWong99/claimwright/pkg/profilestore"
)

// AuthConfig controls request authentication.
type AuthConfig struct {
	// APIKeys is the set of accepted Bearer/X-API-Key values. Empty means
	// auth is disabled entirely (local development).
	APIKeys map[string]struct{}
	// AllowLocalBypass skips auth for requests whose RemoteAddr resolves to
	// loopback, matching server.allow_local_bypass.
	AllowLocalBypass bool
}

// Server wires every component into a routable http.Handler.
type Server struct {
	Devices    *devicemux.Registry
	KB         *knowledgebase.KnowledgeBase
	Profiles   profilestore.Store
	Validator  *validator.Validator
	Queue      *jobqueue.Queue
	Reports    *report.Aggregator
	ReportsDB  *report.Store
	Metrics    *observe.Metrics
	Auth       AuthConfig

	hub *hub
}

// New constructs the routed mux for s. s is mutated in place (its hub field
// is populated) so callers that keep a pointer to s can use its Broadcast*
// methods to push events to the handler this returns.
func New(s *Server) http.Handler {
	s.hub = newHub()
	if s.Metrics == nil {
		s.Metrics = observe.DefaultMetrics()
	}

	mux := http.NewServeMux()
	s.registerDeviceRoutes(mux)
	s.registerDocumentRoutes(mux)
	s.registerProfileRoutes(mux)
	s.registerValidateRoutes(mux)
	s.registerQueueRoutes(mux)
	s.registerWSRoutes(mux)

	var handler http.Handler = mux
	handler = observe.Middleware(s.Metrics)(handler)
	handler = s.authMiddleware(handler)
	return handler
}

// writeJSON encodes v as a JSON response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// errorBody is the standard JSON error envelope.
type errorBody struct {
	Error      string `json:"error"`
	Kind       string `json:"kind"`
	Correlation string `json:"correlation_id,omitempty"`
	RetryAfter  int    `json:"retry_after_seconds,omitempty"`
}

// writeError maps err to an HTTP status per the apperr.Kind taxonomy and
// writes a JSON error body carrying the request's correlation id.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := statusForKind(kind)

	body := errorBody{
		Error:       err.Error(),
		Kind:        string(kind),
		Correlation: observe.CorrelationID(r.Context()),
	}
	if kind == apperr.KindResourceExhausted {
		body.RetryAfter = 5
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, status, body)
}

// statusForKind maps the closed Kind taxonomy onto HTTP status codes.
func statusForKind(k apperr.Kind) int {
	switch k {
	case apperr.KindInvalidInput, apperr.KindSchemaViolation, apperr.KindDimensionMismatch:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindResourceExhausted:
		return http.StatusTooManyRequests
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	case apperr.KindCanceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "decode request body", err)
	}
	return nil
}

const requestTimeout = 30 * time.Second
