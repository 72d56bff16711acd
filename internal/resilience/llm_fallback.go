package resilience

import (
	"context"

	"github.com/MrWong99/claimwright/pkg/inference/llm"
)

// LLMFallback implements [llm.Provider] with automatic failover across
// multiple LLM backends — the primary adjudication/extraction model and a
// secondary backend routed through any-llm-go. Each backend has its own
// circuit breaker; when the primary fails or its breaker is open, the next
// healthy fallback is tried.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

// Compile-time interface assertion.
var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred backend.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional LLM provider as a fallback.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// Generate sends the request to the first healthy provider and returns its
// response. If the primary fails, subsequent fallbacks are tried. Per the
// propagation policy, callers (claim extractor, validator) degrade to
// uncertain/schema_violation handling rather than fail outright once this
// also returns [ErrAllFailed].
func (f *LLMFallback) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	return ExecuteWithResult(f.group, func(p llm.Provider) (*llm.GenerateResponse, error) {
		return p.Generate(ctx, req)
	})
}

// CountTokens delegates to the first healthy provider's token counter.
func (f *LLMFallback) CountTokens(messages []llm.Message) (int, error) {
	return ExecuteWithResult(f.group, func(p llm.Provider) (int, error) {
		return p.CountTokens(messages)
	})
}

// ModelID returns the primary's model id. Fallback activity is transparent
// to callers that log/tag a response by model.
func (f *LLMFallback) ModelID() string {
	if len(f.group.entries) > 0 {
		return f.group.entries[0].value.ModelID()
	}
	return ""
}
