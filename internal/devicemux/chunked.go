package devicemux

import (
	"encoding/binary"
	"io"
	"log/slog"
	"time"

	"github.com/MrWong99/claimwright/pkg/coretypes"
)

// chunkedFramer tracks the last seen timestamp so gaps between chunks can be
// checked against the configured jitter tolerance.
type chunkedFramer struct {
	lastMS    uint32
	haveFirst bool
}

// IngestChunked reads [4-byte big-endian ms timestamp][2-byte big-endian
// payload length][payload] frames from rd until it returns an error,
// accumulating PCM into the session's ring buffer and utterance builder. A
// gap between consecutive frame timestamps larger than MaxJitter finalizes
// the session with CauseGapExceeded, and IngestChunked continues reading
// into a fresh session for the same device.
func (r *Registry) IngestChunked(deviceID string, rd io.Reader) error {
	r.mu.Lock()
	ds, ok := r.sessions[deviceID]
	if !ok {
		ds = r.newSessionLocked(deviceID, coretypes.TransportChunked)
		ds.chunked = &chunkedFramer{}
	}
	jitter := r.cfg.MaxJitter
	r.mu.Unlock()

	header := make([]byte, 4)
	for {
		if _, err := io.ReadFull(rd, header); err != nil {
			r.mu.Lock()
			if _, stillOpen := r.sessions[deviceID]; stillOpen {
				cause := coretypes.CauseError
				if err == io.EOF {
					cause = coretypes.CauseDisconnect
				}
				r.finalizeLocked(deviceID, ds, cause)
			}
			r.mu.Unlock()
			if err == io.EOF {
				return nil
			}
			return err
		}
		ms := binary.BigEndian.Uint32(header)

		lenHeader := make([]byte, 2)
		if _, err := io.ReadFull(rd, lenHeader); err != nil {
			return r.abortChunked(deviceID, ds, err)
		}
		n := int(binary.BigEndian.Uint16(lenHeader))
		payload := make([]byte, n)
		if _, err := io.ReadFull(rd, payload); err != nil {
			return r.abortChunked(deviceID, ds, err)
		}

		r.mu.Lock()
		if ds.chunked.haveFirst {
			var gap uint32
			if ms >= ds.chunked.lastMS {
				gap = ms - ds.chunked.lastMS
			}
			if time.Duration(gap)*time.Millisecond > jitter {
				r.finalizeLocked(deviceID, ds, coretypes.CauseGapExceeded)
				r.mu.Unlock()
				ds = r.newSessionForChunked(deviceID)
				r.mu.Lock()
			}
		}
		ds.chunked.lastMS = ms
		ds.chunked.haveFirst = true

		data := payload
		if len(data)%2 != 0 {
			slog.Warn("devicemux: odd PCM byte count on chunked transport, dropping trailing byte",
				"device_id", deviceID, "bytes", len(data))
			data = data[:len(data)-1]
		}
		ds.ring.Write(data)
		ds.utt.append(data)
		r.mu.Unlock()
	}
}

func (r *Registry) abortChunked(deviceID string, ds *deviceSession, err error) error {
	r.mu.Lock()
	if _, stillOpen := r.sessions[deviceID]; stillOpen {
		r.finalizeLocked(deviceID, ds, coretypes.CauseError)
	}
	r.mu.Unlock()
	if err == io.EOF {
		return nil
	}
	return err
}

// newSessionForChunked starts a replacement session after a gap-exceeded
// finalize, so chunked ingestion can continue under the same device.
func (r *Registry) newSessionForChunked(deviceID string) *deviceSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	ds := r.newSessionLocked(deviceID, coretypes.TransportChunked)
	ds.chunked = &chunkedFramer{}
	return ds
}
