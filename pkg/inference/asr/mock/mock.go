// Package mock provides a scriptable asr.Provider for tests.
package mock

import (
	"context"
	"errors"

	"github.com/MrWong99/claimwright/pkg/inference/asr"
)

// Provider returns a fixed Text/Language/Confidence for every call, or Err
// when FailNext is set.
type Provider struct {
	Text       string
	Language   string
	Confidence *float64
	Model      string
	Rate       int
	FailNext   bool
	Err        error
}

var _ asr.Provider = (*Provider)(nil)

// SampleRate implements asr.Provider.
func (p *Provider) SampleRate() int {
	if p.Rate <= 0 {
		return 16000
	}
	return p.Rate
}

// ModelID implements asr.Provider.
func (p *Provider) ModelID() string {
	if p.Model == "" {
		return "mock-asr"
	}
	return p.Model
}

// Transcribe implements asr.Provider.
func (p *Provider) Transcribe(ctx context.Context, req asr.TranscribeRequest) (*asr.TranscribeResponse, error) {
	if p.FailNext {
		p.FailNext = false
		if p.Err != nil {
			return nil, p.Err
		}
		return nil, errors.New("mock: injected failure")
	}
	if len(req.PCM16LE) == 0 {
		zero := 0.0
		return &asr.TranscribeResponse{Text: "", Language: p.Language, Confidence: &zero, ModelID: p.ModelID()}, nil
	}
	lang := req.LanguageHint
	if lang == "" {
		lang = p.Language
	}
	return &asr.TranscribeResponse{
		Text:       p.Text,
		Language:   lang,
		Confidence: p.Confidence,
		ModelID:    p.ModelID(),
	}, nil
}
