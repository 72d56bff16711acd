// Package llm defines the narrow generative-model adapter used by the claim
// extractor and the validator: a single Generate call taking a prompt and an
// optional strict JSON schema, returning raw model output for the caller to
// validate. Streaming chat and tool-calling are deliberately absent — every
// call in this engine is a single-shot, schema-constrained generation.
package llm

import "context"

// Message is one turn of a chat-style prompt.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// GenerateRequest describes a single generation call.
type GenerateRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	// Schema, when non-nil, is a JSON Schema (as a decoded map) the
	// provider should constrain its output to, via native structured
	// output support where available. Callers still validate the
	// response themselves; Schema is a best-effort hint to the backend.
	Schema map[string]any
	// SchemaName labels Schema for providers that require a name
	// alongside a JSON schema (e.g. OpenAI's response_format).
	SchemaName string
}

// Usage reports token accounting for a single Generate call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// GenerateResponse is the result of a Generate call.
type GenerateResponse struct {
	Content string // raw text, or a raw JSON document when Schema was set
	Usage   Usage
}

// Provider is the narrow Inference Adapter interface for generative models.
// Implementations are replaceable without changes in callers: a real model,
// a deterministic stub, or a failure-injecting stub all satisfy the same
// contract.
type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	// CountTokens estimates token usage for a set of messages without
	// performing a generation call.
	CountTokens(messages []Message) (int, error)
	ModelID() string
}
