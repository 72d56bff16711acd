package devicemux

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/claimwright/pkg/coretypes"
)

// utteranceBuilder accumulates PCM for the utterance currently in progress
// on a Session. A new utterance starts whenever the framer observes an
// explicit boundary (AUDIO_START on the stream transport); finalize is
// called at that boundary or at session close, which on the chunked
// transport includes a gap beyond the jitter tolerance.
type utteranceBuilder struct {
	sessionID  string
	sampleRate int
	ordinal    int

	start time.Time
	pcm   []byte
	id    string
}

func newUtteranceBuilder(sessionID string, sampleRate int) *utteranceBuilder {
	return &utteranceBuilder{sessionID: sessionID, sampleRate: sampleRate}
}

// append adds PCM bytes to the in-progress utterance, starting a new one if
// none is open.
func (u *utteranceBuilder) append(pcm []byte) {
	if u.id == "" {
		u.id = uuid.NewString()
		u.start = time.Now().UTC()
	}
	u.pcm = append(u.pcm, pcm...)
}

// finalize closes the in-progress utterance and returns its PCM payload. ok
// is false when nothing had been appended since the last finalize.
func (u *utteranceBuilder) finalize() (pcm []byte, ok bool) {
	if u.id == "" || len(u.pcm) == 0 {
		u.reset()
		return nil, false
	}
	pcm = u.pcm
	ok = true
	return pcm, ok
}

// record returns the coretypes.Utterance for the payload just finalized,
// then resets the builder for the next utterance. Call immediately after a
// successful finalize.
func (u *utteranceBuilder) record() coretypes.Utterance {
	durSamples := len(u.pcm) / 2 // 16-bit mono
	var dur time.Duration
	if u.sampleRate > 0 {
		dur = time.Duration(float64(durSamples) / float64(u.sampleRate) * float64(time.Second))
	}
	rec := coretypes.Utterance{
		ID:         u.id,
		SessionID:  u.sessionID,
		PayloadRef: u.id,
		SampleRate: u.sampleRate,
		Start:      u.start,
		Duration:   dur,
		Ordinal:    u.ordinal,
	}
	u.ordinal++
	u.reset()
	return rec
}

func (u *utteranceBuilder) reset() {
	u.id = ""
	u.pcm = nil
}
