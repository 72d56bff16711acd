package devicemux

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"

	"github.com/MrWong99/claimwright/pkg/coretypes"
)

// Stream transport framing markers. A recorder writes a line-delimited
// marker to signal the start and end of an utterance; raw PCM bytes flow
// between them.
var (
	markerStart = []byte("AUDIO_START")
	markerEnd   = []byte("AUDIO_END")
)

// streamFramer tracks whether we are currently inside an AUDIO_START/
// AUDIO_END bracket for the stream transport.
type streamFramer struct {
	open bool
}

// IngestStream reads from r until it returns an error or ctx-equivalent
// closure, scanning for AUDIO_START/AUDIO_END markers at line boundaries and
// routing PCM between them into the session's ring buffer and utterance
// builder. A second AUDIO_START observed before a matching AUDIO_END closes
// the in-progress utterance with CauseImplicitRestart semantics applied to
// the utterance boundary (not the session, which continues).
//
// IngestStream blocks until r returns io.EOF or another error, at which
// point it finalizes the session (if still open) with CauseDisconnect on a
// clean io.EOF and CauseError on any other read error.
func (r *Registry) IngestStream(deviceID string, rd io.Reader) error {
	r.mu.Lock()
	ds, ok := r.sessions[deviceID]
	if !ok {
		ds = r.newSessionLocked(deviceID, coretypes.TransportStream)
		ds.stream = &streamFramer{}
	}
	r.mu.Unlock()

	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	scanner.Split(splitMarkerOrChunk)

	var cause coretypes.TerminatingCause = coretypes.CauseError
	for scanner.Scan() {
		tok := scanner.Bytes()
		r.mu.Lock()
		switch {
		case bytes.Equal(tok, markerStart):
			if ds.stream.open {
				// Implicit restart: finalize the in-progress utterance only.
				if pcm, ok := ds.utt.finalize(); ok {
					u := ds.utt.record()
					if r.onUtterance != nil {
						r.onUtterance(u, pcm)
					}
				}
				ds.session.Warnings = append(ds.session.Warnings, "implicit utterance restart: AUDIO_START without AUDIO_END")
			}
			ds.stream.open = true
		case bytes.Equal(tok, markerEnd):
			if ds.stream.open {
				if pcm, ok := ds.utt.finalize(); ok {
					u := ds.utt.record()
					if r.onUtterance != nil {
						r.onUtterance(u, pcm)
					}
				}
			}
			ds.stream.open = false
		default:
			if ds.stream.open {
				data := tok
				if len(data)%2 != 0 {
					slog.Warn("devicemux: odd PCM byte count on stream transport, dropping trailing byte",
						"device_id", deviceID, "bytes", len(data))
					data = data[:len(data)-1]
				}
				ds.ring.Write(data)
				ds.utt.append(data)
			}
		}
		r.mu.Unlock()
	}
	if err := scanner.Err(); err != nil {
		cause = coretypes.CauseError
	} else {
		cause = coretypes.CauseDisconnect
	}

	r.mu.Lock()
	if _, stillOpen := r.sessions[deviceID]; stillOpen {
		r.finalizeLocked(deviceID, ds, cause)
	}
	r.mu.Unlock()
	return scanner.Err()
}

// splitMarkerOrChunk is a bufio.SplitFunc that yields either a full
// line-delimited marker token or a fixed-size PCM chunk, whichever appears
// first. It treats any line matching exactly AUDIO_START or AUDIO_END as a
// marker token; all other bytes are grouped into pcmChunkSize blocks so
// binary PCM data (which may itself contain newline-valued bytes) is not
// misparsed as line-oriented text.
const pcmChunkSize = 3200 // 100ms @ 16kHz mono 16-bit

func splitMarkerOrChunk(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if len(data) == 0 {
		if atEOF {
			return 0, nil, nil
		}
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 && i <= len(markerStart)+1 {
		line := bytes.TrimRight(data[:i], "\r")
		if bytes.Equal(line, markerStart) || bytes.Equal(line, markerEnd) {
			return i + 1, line, nil
		}
	}
	if len(data) >= pcmChunkSize {
		return pcmChunkSize, data[:pcmChunkSize], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
