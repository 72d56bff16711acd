package audio

import "time"

// Frame is a single slice of PCM16LE mono audio flowing from an edge
// recorder transport into a Session's ring buffer. Frames are the atomic
// unit of audio transport between the device mux and the transcription
// stage; every recorder speaks mono, so unlike a mixing pipeline there is no
// channel count to carry.
type Frame struct {
	// Data is little-endian 16-bit mono PCM.
	Data []byte

	// SampleRate in Hz, as declared by the recorder for this session.
	SampleRate int

	// Timestamp marks when this frame was captured, relative to session start.
	Timestamp time.Duration
}
