package resilience

import (
	"context"

	"github.com/MrWong99/claimwright/pkg/inference/asr"
)

// ASRFallback implements [asr.Provider] with automatic failover across
// multiple transcription backends. Each backend has its own circuit
// breaker; when the primary (the local whisper-server adapter) fails or its
// breaker is open, the next healthy fallback is tried.
type ASRFallback struct {
	group *FallbackGroup[asr.Provider]
}

// Compile-time interface assertion.
var _ asr.Provider = (*ASRFallback)(nil)

// NewASRFallback creates an [ASRFallback] with primary as the preferred backend.
func NewASRFallback(primary asr.Provider, primaryName string, cfg FallbackConfig) *ASRFallback {
	return &ASRFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional ASR provider as a fallback.
func (f *ASRFallback) AddFallback(name string, provider asr.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe sends the request to the first healthy provider and returns
// its response. Exhausted retries surface as apperr.KindAdapterFailure to
// the transcription stage, which degrades the utterance rather than
// failing the session.
func (f *ASRFallback) Transcribe(ctx context.Context, req asr.TranscribeRequest) (*asr.TranscribeResponse, error) {
	return ExecuteWithResult(f.group, func(p asr.Provider) (*asr.TranscribeResponse, error) {
		return p.Transcribe(ctx, req)
	})
}

// SampleRate returns the primary's expected sample rate. Every configured
// ASR backend in this engine is expected to agree on sample rate since the
// transcription stage resamples once, before dispatch.
func (f *ASRFallback) SampleRate() int {
	if len(f.group.entries) > 0 {
		return f.group.entries[0].value.SampleRate()
	}
	return 0
}

// ModelID returns the primary's model id.
func (f *ASRFallback) ModelID() string {
	if len(f.group.entries) > 0 {
		return f.group.entries[0].value.ModelID()
	}
	return ""
}
