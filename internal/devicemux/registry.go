// Package devicemux implements C6: the device registry and stream
// multiplexer. It discovers edge recorders across two transports, presents
// them as a uniform Device handle, and routes inbound audio into per-Session
// ring buffers while enforcing session framing. It is the single-writer
// actor for Device state: callers see consistent snapshots, never partial
// mutations.
package devicemux

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/claimwright/internal/apperr"
	"github.com/MrWong99/claimwright/pkg/coretypes"
)

// UtteranceReady is invoked once per finalized Utterance, carrying the raw
// PCM payload alongside the record. It is the handoff point into C7.
type UtteranceReady func(u coretypes.Utterance, pcm []byte)

// SessionClosed is invoked once a Session is finalized, whether by explicit
// stop, timeout, disconnect, error, implicit restart, or gap-exceeded.
type SessionClosed func(s coretypes.Session)

// Config tunes session framing and ring-buffer sizing.
type Config struct {
	MaxJitter         time.Duration // chunked transport gap tolerance, default 500ms
	SessionMax        time.Duration // default 60s
	RingBufferSeconds int           // default 60
	SampleRate        int           // declared recorder sample rate, default 16000
}

func (c Config) withDefaults() Config {
	if c.MaxJitter <= 0 {
		c.MaxJitter = 500 * time.Millisecond
	}
	if c.SessionMax <= 0 {
		c.SessionMax = 60 * time.Second
	}
	if c.RingBufferSeconds <= 0 {
		c.RingBufferSeconds = 60
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	return c
}

// Registry is the C6 Device Registry and Stream Multiplexer.
type Registry struct {
	cfg Config

	onUtterance UtteranceReady
	onClosed    SessionClosed

	mu       sync.RWMutex
	devices  map[string]*coretypes.Device
	sessions map[string]*deviceSession // keyed by device id; one active session per device
	active   string                    // implicit target for legacy endpoints
}

// deviceSession pairs a live coretypes.Session with its framing state and
// ring buffer.
type deviceSession struct {
	session coretypes.Session
	ring    *RingBuffer
	utt     *utteranceBuilder
	stream  *streamFramer  // non-nil when Transport == stream
	chunked *chunkedFramer // non-nil when Transport == chunked
}

// New constructs a Registry. onUtterance is called once per finalized
// Utterance with its PCM payload; onClosed is called once per finalized
// Session.
func New(cfg Config, onUtterance UtteranceReady, onClosed SessionClosed) *Registry {
	return &Registry{
		cfg:         cfg.withDefaults(),
		onUtterance: onUtterance,
		onClosed:    onClosed,
		devices:     make(map[string]*coretypes.Device),
		sessions:    make(map[string]*deviceSession),
	}
}

// Discover registers a newly seen edge recorder, or refreshes LastSeen and
// confidence if already known.
func (r *Registry) Discover(id string, transport coretypes.TransportKind, name string, confidence int) coretypes.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		d = &coretypes.Device{ID: id, Transport: transport, Name: name, State: coretypes.StateDiscovered}
		r.devices[id] = d
	}
	d.Confidence = confidence
	d.LastSeen = time.Now().UTC()
	return *d
}

// ListDevices returns a snapshot of all known Devices. No side effects.
func (r *Registry) ListDevices() []coretypes.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]coretypes.Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, *d)
	}
	return out
}

// Connect transitions a Device from discovered to connected.
func (r *Registry) Connect(deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[deviceID]
	if !ok {
		return apperr.NotFound("device %q not found", deviceID)
	}
	if d.State == coretypes.StateConnected || d.State == coretypes.StateRecording {
		return apperr.Conflict("device %q already connected", deviceID)
	}
	d.State = coretypes.StateConnected
	d.LastSeen = time.Now().UTC()
	return nil
}

// Disconnect is idempotent; it cancels any outstanding session for the
// device and marks it disconnected.
func (r *Registry) Disconnect(deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[deviceID]
	if !ok {
		return apperr.NotFound("device %q not found", deviceID)
	}
	if ds, ok := r.sessions[deviceID]; ok {
		r.finalizeLocked(deviceID, ds, coretypes.CauseDisconnect)
	}
	d.State = coretypes.StateDisconnected
	return nil
}

// SelectActive marks deviceID as the implicit target for legacy endpoints
// that accept none. Purely a presentation convenience.
func (r *Registry) SelectActive(deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[deviceID]; !ok {
		return apperr.NotFound("device %q not found", deviceID)
	}
	r.active = deviceID
	return nil
}

// ActiveDevice returns the currently selected implicit device id, if any.
func (r *Registry) ActiveDevice() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active, r.active != ""
}

// newSessionLocked starts a Session for deviceID. Must be called with r.mu held.
func (r *Registry) newSessionLocked(deviceID string, transport coretypes.TransportKind) *deviceSession {
	s := coretypes.Session{
		ID:         uuid.NewString(),
		DeviceID:   deviceID,
		Start:      time.Now().UTC(),
		SampleRate: r.cfg.SampleRate,
		Channels:   1,
		Format:     coretypes.SampleFormatPCM16LE,
		Transport:  transport,
	}
	ds := &deviceSession{
		session: s,
		ring:    NewRingBuffer(r.cfg.RingBufferSeconds * r.cfg.SampleRate * 2),
		utt:     newUtteranceBuilder(s.ID, r.cfg.SampleRate),
	}
	r.sessions[deviceID] = ds
	if d, ok := r.devices[deviceID]; ok {
		d.State = coretypes.StateRecording
	}
	return ds
}

// finalizeLocked closes the device's active session with cause and invokes
// callbacks. Must be called with r.mu held.
func (r *Registry) finalizeLocked(deviceID string, ds *deviceSession, cause coretypes.TerminatingCause) {
	ds.session.End = time.Now().UTC()
	ds.session.TerminatingCause = cause
	ds.session.BytesRecorded = ds.ring.TotalWritten()
	if ds.ring.Overflowed() {
		ds.session.Warnings = append(ds.session.Warnings, "ring buffer overflow: oldest samples dropped")
	}
	if pcm, ok := ds.utt.finalize(); ok {
		u := ds.utt.record()
		if r.onUtterance != nil {
			r.onUtterance(u, pcm)
		}
	}
	delete(r.sessions, deviceID)
	if d, ok := r.devices[deviceID]; ok && d.State == coretypes.StateRecording {
		d.State = coretypes.StateConnected
	}
	if r.onClosed != nil {
		r.onClosed(ds.session)
	}
}

// SessionMax exposes the configured maximum session duration. IngestStream
// and IngestChunked do not consult it, so no session is closed with the
// timeout cause.
func (r *Registry) SessionMax() time.Duration { return r.cfg.SessionMax }

// MaxJitter exposes the configured chunked-transport gap tolerance.
func (r *Registry) MaxJitter() time.Duration { return r.cfg.MaxJitter }
