package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/claimwright/internal/config"
)

const validYAML = `
server:
  listen_addr: ":9000"
  log_level: info
  log_format: json
storage:
  postgres_dsn: "postgres://localhost/claimwright_test"
  embedding_dimensions: 1536
providers:
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
  asr:
    name: whisper
    base_url: "http://localhost:8081"
    model: base.en
  embeddings:
    name: openai
    api_key: sk-test
    model: text-embedding-3-small
devices:
  max_jitter_ms: 500
  session_max_seconds: 60
  ring_buffer_seconds: 60
transcription:
  sample_rate: 16000
  realtime_factor_cap: 10
queue:
  total_slots: 4
  gpu_slots: 1
  llm_slots: 2
  capacity: 1024
  min_gpu_free_gb: 0.5
  max_wait_boost_ms: 30000
  per_device_cap: 4
knowledge:
  chunk_size: 800
  chunk_overlap: 120
  topk: 5
  min_score: 0.70
  no_data_threshold: 0.60
validator:
  link_bonus: 0.05
  llm_context_budget: 6
retention:
  sessions_days: 30
  reports_days: 365
`

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q, want :9000", cfg.Server.ListenAddr)
	}
	if cfg.Providers.ASR.Name != "whisper" {
		t.Errorf("Providers.ASR.Name = %q, want whisper", cfg.Providers.ASR.Name)
	}
	if cfg.Knowledge.ChunkSize != 800 {
		t.Errorf("Knowledge.ChunkSize = %d, want 800", cfg.Knowledge.ChunkSize)
	}
}

func TestLoadFromReader_AppliesDefaults(t *testing.T) {
	const minimal = `
storage:
  postgres_dsn: "postgres://localhost/claimwright_test"
  embedding_dimensions: 1536
providers:
  llm:
    name: openai
  asr:
    name: whisper
  embeddings:
    name: openai
`
	cfg, err := config.LoadFromReader(strings.NewReader(minimal))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Queue.TotalSlots != 4 {
		t.Errorf("Queue.TotalSlots default = %d, want 4", cfg.Queue.TotalSlots)
	}
	if cfg.Knowledge.MinScore != 0.70 {
		t.Errorf("Knowledge.MinScore default = %v, want 0.70", cfg.Knowledge.MinScore)
	}
	if cfg.Knowledge.NoDataThreshold != 0.60 {
		t.Errorf("Knowledge.NoDataThreshold default = %v, want 0.60", cfg.Knowledge.NoDataThreshold)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	const bad = `
server:
  listen_addr: ":9000"
  bogus_field: true
`
	if _, err := config.LoadFromReader(strings.NewReader(bad)); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}
