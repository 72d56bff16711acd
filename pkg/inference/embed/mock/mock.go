// Package mock provides a deterministic embed.Provider for tests: it hashes
// input text into a fixed-dimension vector so identical text always embeds
// identically and distinct text embeds distinctly, without any external
// dependency.
package mock

import (
	"context"
	"errors"
	"hash/fnv"
)

// Provider is a deterministic, dependency-free embed.Provider.
type Provider struct {
	Dims  int
	Model string
	// FailNext, if true, makes the next call return Err and resets itself.
	FailNext bool
	Err      error
}

func (p *Provider) dims() int {
	if p.Dims <= 0 {
		return 8
	}
	return p.Dims
}

// ModelID implements embed.Provider.
func (p *Provider) ModelID() string {
	if p.Model == "" {
		return "mock-embed"
	}
	return p.Model
}

// Dimensions implements embed.Provider.
func (p *Provider) Dimensions() int { return p.dims() }

// Embed implements embed.Provider.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.FailNext {
		p.FailNext = false
		if p.Err != nil {
			return nil, p.Err
		}
		return nil, errors.New("mock: injected failure")
	}
	return hashEmbed(text, p.dims()), nil
}

// EmbedBatch implements embed.Provider.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// hashEmbed deterministically maps text to a unit-ish vector of length dims
// using successive FNV-1a hashes as pseudo-random components.
func hashEmbed(text string, dims int) []float32 {
	out := make([]float32, dims)
	for i := 0; i < dims; i++ {
		h := fnv.New32a()
		h.Write([]byte(text))
		h.Write([]byte{byte(i), byte(i >> 8)})
		sum := h.Sum32()
		out[i] = (float32(sum%2000) - 1000) / 1000
	}
	return out
}
