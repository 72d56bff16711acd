package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidLogLevels are the accepted server.log_level values.
var ValidLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// ValidLogFormats are the accepted server.log_format values.
var ValidLogFormats = map[string]bool{"text": true, "json": true}

// Load reads and validates a Config from the YAML file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader decodes and validates a Config from r. Unknown YAML keys
// are rejected so a typo in the config file surfaces at startup rather than
// silently defaulting a field.
func LoadFromReader(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.applyDefaults()
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills zero-valued fields with the defaults enumerated in
// the external-interfaces configuration table.
func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.LogFormat == "" {
		c.Server.LogFormat = "json"
	}
	if c.Transcription.SampleRate == 0 {
		c.Transcription.SampleRate = 16000
	}
	if c.Transcription.RealtimeFactorCap == 0 {
		c.Transcription.RealtimeFactorCap = 10
	}
	if c.Queue.TotalSlots == 0 {
		c.Queue.TotalSlots = 4
	}
	if c.Queue.GPUSlots == 0 {
		c.Queue.GPUSlots = 1
	}
	if c.Queue.LLMSlots == 0 {
		c.Queue.LLMSlots = 2
	}
	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = 1024
	}
	if c.Queue.MinGPUFreeGB == 0 {
		c.Queue.MinGPUFreeGB = 0.5
	}
	if c.Queue.MaxWaitBoostMS == 0 {
		c.Queue.MaxWaitBoostMS = 30000
	}
	if c.Queue.PerDeviceCap == 0 {
		c.Queue.PerDeviceCap = 4
	}
	if c.Knowledge.ChunkSize == 0 {
		c.Knowledge.ChunkSize = 800
	}
	if c.Knowledge.ChunkOverlap == 0 {
		c.Knowledge.ChunkOverlap = 120
	}
	if c.Knowledge.TopK == 0 {
		c.Knowledge.TopK = 5
	}
	if c.Knowledge.MinScore == 0 {
		c.Knowledge.MinScore = 0.70
	}
	if c.Knowledge.NoDataThreshold == 0 {
		c.Knowledge.NoDataThreshold = 0.60
	}
	if c.Validator.LinkBonus == 0 {
		c.Validator.LinkBonus = 0.05
	}
	if c.Validator.LLMContextBudget == 0 {
		c.Validator.LLMContextBudget = 6
	}
	if c.Devices.MaxJitterMS == 0 {
		c.Devices.MaxJitterMS = 500
	}
	if c.Devices.SessionMaxSeconds == 0 {
		c.Devices.SessionMaxSeconds = 60
	}
	if c.Devices.RingBufferSeconds == 0 {
		c.Devices.RingBufferSeconds = 60
	}
}

// Validate checks cross-field and enumerated-value constraints, joining
// every violation into a single error via errors.Join so a misconfigured
// file reports all its problems at once instead of one at a time.
func Validate(cfg *Config) error {
	var errs []error

	if !ValidLogLevels[cfg.Server.LogLevel] {
		errs = append(errs, fmt.Errorf("server.log_level %q invalid", cfg.Server.LogLevel))
	}
	if !ValidLogFormats[cfg.Server.LogFormat] {
		errs = append(errs, fmt.Errorf("server.log_format %q invalid", cfg.Server.LogFormat))
	}
	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name must not be empty"))
	}
	if cfg.Providers.ASR.Name == "" {
		errs = append(errs, errors.New("providers.asr.name must not be empty"))
	}
	if cfg.Providers.Embeddings.Name == "" {
		errs = append(errs, errors.New("providers.embeddings.name must not be empty"))
	}
	if cfg.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.postgres_dsn must not be empty"))
	}
	if cfg.Storage.EmbeddingDimensions <= 0 {
		errs = append(errs, errors.New("storage.embedding_dimensions must be > 0"))
	}

	if cfg.Queue.GPUSlots+cfg.Queue.LLMSlots > cfg.Queue.TotalSlots*2 {
		errs = append(errs, fmt.Errorf("queue.gpu_slots (%d) + queue.llm_slots (%d) grossly exceed queue.total_slots (%d)",
			cfg.Queue.GPUSlots, cfg.Queue.LLMSlots, cfg.Queue.TotalSlots))
	}
	if cfg.Queue.Capacity < cfg.Queue.TotalSlots {
		errs = append(errs, fmt.Errorf("queue.capacity (%d) must be >= queue.total_slots (%d)", cfg.Queue.Capacity, cfg.Queue.TotalSlots))
	}

	if cfg.Knowledge.ChunkOverlap >= cfg.Knowledge.ChunkSize {
		errs = append(errs, fmt.Errorf("knowledge.chunk_overlap (%d) must be < knowledge.chunk_size (%d)", cfg.Knowledge.ChunkOverlap, cfg.Knowledge.ChunkSize))
	}
	if cfg.Knowledge.MinScore < 0 || cfg.Knowledge.MinScore > 1 {
		errs = append(errs, fmt.Errorf("knowledge.min_score %v out of [0,1]", cfg.Knowledge.MinScore))
	}
	if cfg.Knowledge.NoDataThreshold < 0 || cfg.Knowledge.NoDataThreshold > 1 {
		errs = append(errs, fmt.Errorf("knowledge.no_data_threshold %v out of [0,1]", cfg.Knowledge.NoDataThreshold))
	}
	// min_score gates candidate inclusion; no_data_threshold gates the
	// validator's overall skip decision and is expected to be the looser
	// (lower) of the two.
	if cfg.Knowledge.NoDataThreshold > cfg.Knowledge.MinScore {
		errs = append(errs, fmt.Errorf("knowledge.no_data_threshold (%v) must be <= knowledge.min_score (%v)",
			cfg.Knowledge.NoDataThreshold, cfg.Knowledge.MinScore))
	}

	if cfg.Validator.LLMContextBudget <= 0 {
		errs = append(errs, errors.New("validator.llm_context_budget must be > 0"))
	}

	if cfg.Devices.RingBufferSeconds <= 0 {
		errs = append(errs, errors.New("devices.ring_buffer_seconds must be > 0"))
	}

	if cfg.Retention.SessionsDays < 0 || cfg.Retention.ReportsDays < 0 {
		errs = append(errs, errors.New("retention.*_days must not be negative"))
	}

	return errors.Join(errs...)
}

// MaxWaitBoost returns the job queue's starvation-promotion interval as a
// time.Duration, converted from the config's millisecond field.
func (c QueueConfig) MaxWaitBoost() time.Duration {
	return time.Duration(c.MaxWaitBoostMS) * time.Millisecond
}
