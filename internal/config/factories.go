package config

import (
	"fmt"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/claimwright/pkg/inference/asr"
	"github.com/MrWong99/claimwright/pkg/inference/asr/whisper"
	"github.com/MrWong99/claimwright/pkg/inference/embed"
	embedopenai "github.com/MrWong99/claimwright/pkg/inference/embed/openai"
	"github.com/MrWong99/claimwright/pkg/inference/llm"
	"github.com/MrWong99/claimwright/pkg/inference/llm/anyllm"
	llmopenai "github.com/MrWong99/claimwright/pkg/inference/llm/openai"
)

// newOpenAILLM builds the primary chat-completion adapter.
func newOpenAILLM(entry ProviderEntry) (llm.Provider, error) {
	var opts []llmopenai.Option
	if entry.BaseURL != "" {
		opts = append(opts, llmopenai.WithBaseURL(entry.BaseURL))
	}
	return llmopenai.New(entry.APIKey, entry.Model, opts...)
}

// newAnyLLM builds an LLM adapter routed through
// github.com/mozilla-ai/any-llm-go, selectable as the primary LLM provider
// with providers.llm.name "anyllm". entry.Options["provider"] selects the backend
// ("anthropic", "gemini", "ollama", ...).
func newAnyLLM(entry ProviderEntry) (llm.Provider, error) {
	backend := entry.Options["provider"]
	if backend == "" {
		return nil, fmt.Errorf("config: anyllm provider requires options.provider")
	}
	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	return anyllm.New(backend, entry.Model, opts...)
}

// newWhisperASR builds the local whisper-server-backed transcription adapter.
func newWhisperASR(entry ProviderEntry) (asr.Provider, error) {
	var opts []whisper.Option
	if entry.Model != "" {
		opts = append(opts, whisper.WithModel(entry.Model))
	}
	if lang := entry.Options["language"]; lang != "" {
		opts = append(opts, whisper.WithLanguage(lang))
	}
	return whisper.New(entry.BaseURL, opts...)
}

// newOpenAIEmbeddings builds the primary embedding adapter.
func newOpenAIEmbeddings(entry ProviderEntry) (embed.Provider, error) {
	var opts []embedopenai.Option
	if entry.BaseURL != "" {
		opts = append(opts, embedopenai.WithBaseURL(entry.BaseURL))
	}
	return embedopenai.New(entry.APIKey, entry.Model, opts...)
}
