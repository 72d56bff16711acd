package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/claimwright/pkg/inference/llm"
	llmmock "github.com/MrWong99/claimwright/pkg/inference/llm/mock"
)

func TestLLMFallback_Generate_PrimarySuccess(t *testing.T) {
	primary := &llmmock.Provider{Responses: []string{"hello from primary"}}
	secondary := &llmmock.Provider{Responses: []string{"hello from secondary"}}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Generate(context.Background(), llm.GenerateRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello from primary" {
		t.Fatalf("content = %q, want 'hello from primary'", resp.Content)
	}
}

func TestLLMFallback_Generate_Failover(t *testing.T) {
	primary := &llmmock.Provider{Err: errors.New("primary down"), FailCount: 1}
	secondary := &llmmock.Provider{Responses: []string{"hello from secondary"}}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Generate(context.Background(), llm.GenerateRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello from secondary" {
		t.Fatalf("content = %q, want 'hello from secondary'", resp.Content)
	}
}

func TestLLMFallback_Generate_AllFail(t *testing.T) {
	primary := &llmmock.Provider{Err: errors.New("primary down"), FailCount: 1}
	secondary := &llmmock.Provider{Err: errors.New("secondary down"), FailCount: 1}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	_, err := fb.Generate(context.Background(), llm.GenerateRequest{})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestLLMFallback_CountTokens(t *testing.T) {
	primary := &llmmock.Provider{}
	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})

	count, err := fb.CountTokens([]llm.Message{{Role: "user", Content: "test"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != len("test") {
		t.Fatalf("count = %d, want %d", count, len("test"))
	}
}

func TestLLMFallback_ModelID_ReturnsPrimary(t *testing.T) {
	primary := &llmmock.Provider{Model: "primary-model"}
	secondary := &llmmock.Provider{Model: "secondary-model"}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	if got := fb.ModelID(); got != "primary-model" {
		t.Fatalf("ModelID() = %q, want primary-model", got)
	}
}
