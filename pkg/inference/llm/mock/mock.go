// Package mock provides a deterministic and a failure-injecting llm.Provider
// for tests, matching the narrow Inference Adapter's replaceability
// requirement: real model, deterministic stub, or failure-injecting stub,
// with no changes needed in callers.
package mock

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/MrWong99/claimwright/pkg/inference/llm"
)

// Provider is a scriptable llm.Provider. Responses are served in order from
// Responses; once exhausted, the last response repeats. If FailCount > 0,
// the first FailCount calls return Err instead.
type Provider struct {
	Model     string
	Responses []string
	Err       error
	FailCount int32

	calls   atomic.Int32
	fails   atomic.Int32
}

var _ llm.Provider = (*Provider)(nil)

// ModelID implements llm.Provider.
func (p *Provider) ModelID() string {
	if p.Model == "" {
		return "mock-llm"
	}
	return p.Model
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	if p.fails.Load() < p.FailCount {
		p.fails.Add(1)
		if p.Err != nil {
			return nil, p.Err
		}
		return nil, errors.New("mock: injected failure")
	}

	idx := int(p.calls.Add(1)) - 1
	var content string
	switch {
	case len(p.Responses) == 0:
		content = "{}"
	case idx < len(p.Responses):
		content = p.Responses[idx]
	default:
		content = p.Responses[len(p.Responses)-1]
	}

	return &llm.GenerateResponse{
		Content: content,
		Usage:   llm.Usage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2},
	}, nil
}

// CountTokens implements llm.Provider.
func (p *Provider) CountTokens(messages []llm.Message) (int, error) {
	total := 0
	for _, m := range messages {
		total += len(m.Content)
	}
	return total, nil
}
