// Package transcription implements C7: turning a finalized Utterance's raw
// PCM payload into a Transcript by way of an ASR adapter, with a realtime-
// factor-capped timeout so a stuck or slow model cannot hold a job-queue
// slot indefinitely.
package transcription

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/claimwright/internal/apperr"
	"github.com/MrWong99/claimwright/internal/observe"
	"github.com/MrWong99/claimwright/pkg/audio"
	"github.com/MrWong99/claimwright/pkg/coretypes"
	"github.com/MrWong99/claimwright/pkg/inference/asr"
)

// defaultRealtimeFactorCap bounds how many multiples of an utterance's own
// duration transcription may take before it's treated as stuck.
const defaultRealtimeFactorCap = 10

// Stage wraps an asr.Provider with resampling and timeout enforcement.
type Stage struct {
	provider  asr.Provider
	rtCap     float64
	metrics   *observe.Metrics
	languageH string
}

// Option configures a Stage.
type Option func(*Stage)

// WithRealtimeFactorCap overrides the default 10x realtime timeout cap.
func WithRealtimeFactorCap(factor float64) Option {
	return func(s *Stage) { s.rtCap = factor }
}

// WithMetrics attaches an observe.Metrics instance for duration recording.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Stage) { s.metrics = m }
}

// WithLanguageHint sets a fixed language hint passed to the ASR provider for
// every utterance. Leave unset for auto-detect.
func WithLanguageHint(lang string) Option {
	return func(s *Stage) { s.languageH = lang }
}

// New constructs a transcription Stage over the given ASR provider.
func New(provider asr.Provider, opts ...Option) *Stage {
	s := &Stage{provider: provider, rtCap: defaultRealtimeFactorCap, metrics: observe.DefaultMetrics()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Transcribe resamples pcm to the provider's expected sample rate, invokes
// the ASR adapter under a deadline derived from the utterance's own
// duration, and returns the resulting Transcript. A transcription that
// exceeds its realtime-factor budget returns apperr.KindTimeout.
func (s *Stage) Transcribe(ctx context.Context, u coretypes.Utterance, pcm []byte) (*coretypes.Transcript, error) {
	start := time.Now()

	target := s.provider.SampleRate()
	rs := &audio.Resampler{TargetRate: target}
	frame := rs.Convert(audio.Frame{Data: pcm, SampleRate: u.SampleRate})

	timeout := time.Duration(float64(u.Duration) * s.rtCap)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := s.provider.Transcribe(cctx, asr.TranscribeRequest{
		PCM16LE:      frame.Data,
		SampleRate:   target,
		LanguageHint: s.languageH,
	})

	dur := time.Since(start)
	if s.metrics != nil {
		s.metrics.TranscriptionDuration.Record(ctx, dur.Seconds())
	}

	if err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			if s.metrics != nil {
				s.metrics.RecordProviderError(ctx, s.provider.ModelID(), "asr")
			}
			return nil, apperr.Wrap(apperr.KindTimeout, "transcription exceeded realtime budget", err)
		}
		if s.metrics != nil {
			s.metrics.RecordProviderError(ctx, s.provider.ModelID(), "asr")
		}
		return nil, apperr.Wrap(apperr.KindAdapterFailure, "asr provider failed", err)
	}
	if s.metrics != nil {
		s.metrics.RecordProviderRequest(ctx, s.provider.ModelID(), "asr", "ok")
	}

	return &coretypes.Transcript{
		ID:           uuid.NewString(),
		UtteranceID:  u.ID,
		Text:         resp.Text,
		Language:     resp.Language,
		Confidence:   resp.Confidence,
		ModelID:      resp.ModelID,
		InferenceDur: dur,
		CreatedAt:    time.Now().UTC(),
	}, nil
}
