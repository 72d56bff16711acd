// Package asr defines the narrow transcription adapter used by the
// transcription stage. Transcription in this revision is utterance-scoped:
// the adapter receives a finalized PCM payload and returns one text result,
// never a stream of partials.
package asr

import "context"

// TranscribeRequest carries a finalized utterance's PCM payload.
type TranscribeRequest struct {
	PCM16LE      []byte // little-endian 16-bit mono samples
	SampleRate   int
	LanguageHint string // empty means auto-detect
}

// TranscribeResponse is the adapter's transcription result.
type TranscribeResponse struct {
	Text       string
	Language   string
	Confidence *float64 // nil when the model has no native confidence
	ModelID    string
}

// Provider is the narrow Inference Adapter interface for ASR engines.
type Provider interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResponse, error)
	// SampleRate is the sample rate the provider expects PCM to already be
	// resampled to.
	SampleRate() int
	ModelID() string
}
