package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// wsEvent is the envelope pushed to live subscribers: finalized utterances,
// finished transcripts, and finished reports as they become available.
type wsEvent struct {
	Type         string `json:"type"`
	SessionID    string `json:"session_id,omitempty"`
	TranscriptID string `json:"transcript_id,omitempty"`
	ReportID     string `json:"report_id,omitempty"`
}

// subscriberBuffer caps how many undelivered events a slow subscriber can
// accumulate. Once it is full, further events for that subscriber are
// dropped rather than blocking publishers; the subscriber is not
// disconnected.
const subscriberBuffer = 64

type subscriber struct {
	ch     chan wsEvent
	topics map[string]struct{} // empty means "all topics"
}

// hub fans out wsEvents to connected WebSocket clients. One hub serves the
// whole process; subscribers filter by topic (a session or transcript id) at
// connect time via the "topic" query parameter.
type hub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[*subscriber]struct{})}
}

func (h *hub) subscribe(topics []string) *subscriber {
	sub := &subscriber{ch: make(chan wsEvent, subscriberBuffer), topics: make(map[string]struct{}, len(topics))}
	for _, t := range topics {
		if t != "" {
			sub.topics[t] = struct{}{}
		}
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
	close(sub.ch)
}

// broadcast delivers ev to every subscriber whose topic set is empty or
// contains one of the supplied keys. When a subscriber's buffer is already
// full, ev is dropped for that subscriber (which stays connected) instead of
// blocking the caller, since this is invoked from job-queue worker
// goroutines that must not stall on a slow client.
func (h *hub) broadcast(key string, ev wsEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if len(sub.topics) > 0 {
			if _, ok := sub.topics[key]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- ev:
		default:
			// slow subscriber; drop the event rather than block the publisher.
		}
	}
}

// BroadcastUtterance notifies subscribers that a device session produced a
// finalized utterance, before transcription has completed.
func (s *Server) BroadcastUtterance(sessionID string) {
	s.hub.broadcast(sessionID, wsEvent{Type: "utterance.finalized", SessionID: sessionID})
}

// BroadcastTranscript notifies subscribers that a session's utterance has
// been transcribed and claim extraction is starting.
func (s *Server) BroadcastTranscript(sessionID, transcriptID string) {
	s.hub.broadcast(sessionID, wsEvent{Type: "transcript.ready", SessionID: sessionID, TranscriptID: transcriptID})
	s.hub.broadcast(transcriptID, wsEvent{Type: "transcript.ready", SessionID: sessionID, TranscriptID: transcriptID})
}

// BroadcastReport notifies subscribers that a validated report is ready.
func (s *Server) BroadcastReport(transcriptID, reportID string) {
	s.hub.broadcast(transcriptID, wsEvent{Type: "report.ready", TranscriptID: transcriptID, ReportID: reportID})
}

func (s *Server) registerWSRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/events", s.handleWSEvents)
}

// handleWSEvents upgrades the connection and streams events for the
// requested topics (repeated "topic" query params) until the client
// disconnects or the write loop hits an error.
func (s *Server) handleWSEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return
	}
	defer conn.CloseNow()

	sub := s.hub.subscribe(r.URL.Query()["topic"])
	defer s.hub.unsubscribe(sub)

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			writeCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}
