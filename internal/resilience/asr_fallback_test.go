package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/claimwright/pkg/inference/asr"
	asrmock "github.com/MrWong99/claimwright/pkg/inference/asr/mock"
)

func TestASRFallback_Transcribe_PrimarySuccess(t *testing.T) {
	primary := &asrmock.Provider{Text: "hello from primary"}
	secondary := &asrmock.Provider{Text: "hello from secondary"}

	fb := NewASRFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Transcribe(context.Background(), asr.TranscribeRequest{PCM16LE: []byte{1, 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "hello from primary" {
		t.Fatalf("text = %q, want 'hello from primary'", resp.Text)
	}
}

func TestASRFallback_Transcribe_Failover(t *testing.T) {
	primary := &asrmock.Provider{FailNext: true, Err: errors.New("primary down")}
	secondary := &asrmock.Provider{Text: "hello from secondary"}

	fb := NewASRFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Transcribe(context.Background(), asr.TranscribeRequest{PCM16LE: []byte{1, 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "hello from secondary" {
		t.Fatalf("text = %q, want 'hello from secondary'", resp.Text)
	}
}

func TestASRFallback_Transcribe_AllFail(t *testing.T) {
	primary := &asrmock.Provider{FailNext: true, Err: errors.New("primary down")}
	secondary := &asrmock.Provider{FailNext: true, Err: errors.New("secondary down")}

	fb := NewASRFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	_, err := fb.Transcribe(context.Background(), asr.TranscribeRequest{PCM16LE: []byte{1, 2}})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestASRFallback_SampleRateAndModelID_ReturnPrimary(t *testing.T) {
	primary := &asrmock.Provider{Rate: 16000, Model: "primary-model"}
	secondary := &asrmock.Provider{Rate: 8000, Model: "secondary-model"}

	fb := NewASRFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	if got := fb.SampleRate(); got != 16000 {
		t.Fatalf("SampleRate() = %d, want 16000", got)
	}
	if got := fb.ModelID(); got != "primary-model" {
		t.Fatalf("ModelID() = %q, want primary-model", got)
	}
}
