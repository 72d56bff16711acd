package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/claimwright/internal/config"
)

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	const bad = `
server:
  log_level: bananas
providers:
  llm:
    name: openai
  asr:
    name: whisper
  embeddings:
    name: openai
`
	_, err := config.LoadFromReader(strings.NewReader(bad))
	if err == nil {
		t.Fatal("expected validation error for bad log level")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error %v does not mention log_level", err)
	}
}

func TestValidate_RequiresProviderNames(t *testing.T) {
	err := config.Validate(&config.Config{Server: config.ServerConfig{LogLevel: "info", LogFormat: "json"}})
	if err == nil {
		t.Fatal("expected validation error for missing provider names")
	}
	for _, want := range []string{"providers.llm.name", "providers.asr.name", "providers.embeddings.name"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %v missing %q", err, want)
		}
	}
}

func TestValidate_RejectsInvertedThresholds(t *testing.T) {
	cfg := &config.Config{
		Server:    config.ServerConfig{LogLevel: "info", LogFormat: "json"},
		Providers: config.ProvidersConfig{LLM: config.ProviderEntry{Name: "openai"}, ASR: config.ProviderEntry{Name: "whisper"}, Embeddings: config.ProviderEntry{Name: "openai"}},
		Queue:     config.QueueConfig{TotalSlots: 4, Capacity: 1024},
		Devices:   config.DevicesConfig{RingBufferSeconds: 60},
		Knowledge: config.KnowledgeConfig{ChunkSize: 800, ChunkOverlap: 120, MinScore: 0.5, NoDataThreshold: 0.8},
		Validator: config.ValidatorConfig{LLMContextBudget: 6},
	}
	err := config.Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "no_data_threshold") {
		t.Fatalf("expected no_data_threshold ordering error, got %v", err)
	}
}

func TestValidate_RejectsQueueCapacityBelowTotalSlots(t *testing.T) {
	cfg := &config.Config{
		Server:    config.ServerConfig{LogLevel: "info", LogFormat: "json"},
		Providers: config.ProvidersConfig{LLM: config.ProviderEntry{Name: "openai"}, ASR: config.ProviderEntry{Name: "whisper"}, Embeddings: config.ProviderEntry{Name: "openai"}},
		Queue:     config.QueueConfig{TotalSlots: 4, Capacity: 1},
		Devices:   config.DevicesConfig{RingBufferSeconds: 60},
		Knowledge: config.KnowledgeConfig{ChunkSize: 800, ChunkOverlap: 120, MinScore: 0.7, NoDataThreshold: 0.6},
		Validator: config.ValidatorConfig{LLMContextBudget: 6},
	}
	err := config.Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "queue.capacity") {
		t.Fatalf("expected queue.capacity error, got %v", err)
	}
}
