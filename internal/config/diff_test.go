package config_test

import (
	"testing"

	"github.com/MrWong99/claimwright/internal/config"
)

func baseConfig() config.Config {
	return config.Config{
		Server:    config.ServerConfig{LogLevel: "info", LogFormat: "json"},
		Queue:     config.QueueConfig{TotalSlots: 4, Capacity: 1024},
		Knowledge: config.KnowledgeConfig{ChunkSize: 800, ChunkOverlap: 120, MinScore: 0.7, NoDataThreshold: 0.6},
		Validator: config.ValidatorConfig{LinkBonus: 0.05, LLMContextBudget: 6},
		Retention: config.RetentionConfig{SessionsDays: 30, ReportsDays: 365},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	old := baseConfig()
	next := baseConfig()
	d := config.Diff(&old, &next)
	if d.Changed() {
		t.Fatalf("expected no changes, got %+v", d)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	old := baseConfig()
	next := baseConfig()
	next.Server.LogLevel = "debug"

	d := config.Diff(&old, &next)
	if !d.LogLevelChanged || d.NewLogLevel != "debug" {
		t.Fatalf("got %+v, want LogLevelChanged=true NewLogLevel=debug", d)
	}
	if d.QueueChanged || d.KnowledgeChanged {
		t.Fatalf("unrelated sections reported changed: %+v", d)
	}
}

func TestDiff_QueueChanged(t *testing.T) {
	old := baseConfig()
	next := baseConfig()
	next.Queue.TotalSlots = 8

	d := config.Diff(&old, &next)
	if !d.QueueChanged || d.NewQueue.TotalSlots != 8 {
		t.Fatalf("got %+v, want QueueChanged=true NewQueue.TotalSlots=8", d)
	}
}

func TestDiff_KnowledgeAndValidatorAndRetentionChanged(t *testing.T) {
	old := baseConfig()
	next := baseConfig()
	next.Knowledge.MinScore = 0.8
	next.Validator.LinkBonus = 0.1
	next.Retention.ReportsDays = 180

	d := config.Diff(&old, &next)
	if !d.KnowledgeChanged || !d.ValidatorChanged || !d.RetentionChanged {
		t.Fatalf("expected all three sections changed, got %+v", d)
	}
}

func TestDiff_IgnoresStructuralFields(t *testing.T) {
	old := baseConfig()
	next := baseConfig()
	next.Server.ListenAddr = ":9999"
	next.Providers.LLM.Name = "anyllm"

	d := config.Diff(&old, &next)
	if d.Changed() {
		t.Fatalf("structural-only changes should not be reported as hot-reloadable: %+v", d)
	}
}
