package claims

import (
	"context"
	"testing"

	"github.com/MrWong99/claimwright/pkg/coretypes"
	llmmock "github.com/MrWong99/claimwright/pkg/inference/llm/mock"
)

func TestExtract_RuleBasedWhenNoProvider(t *testing.T) {
	e := New(nil)
	tr := coretypes.Transcript{ID: "t1", Text: "Revenue grew 12% in Q3. Is that good? I think Acme did well."}

	claims, err := e.Extract(context.Background(), tr)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(claims) == 0 {
		t.Fatal("expected at least one claim")
	}
	for _, c := range claims {
		if c.ExtractorModel != ruleBasedModelTag {
			t.Errorf("ExtractorModel = %q, want %q", c.ExtractorModel, ruleBasedModelTag)
		}
	}
}

func TestExtract_RuleBasedSkipsQuestions(t *testing.T) {
	e := New(nil)
	tr := coretypes.Transcript{ID: "t1", Text: "Is the sky blue today?"}
	claims, _ := e.Extract(context.Background(), tr)
	if len(claims) != 0 {
		t.Errorf("expected no claims for an interrogative-only transcript, got %d", len(claims))
	}
}

func TestExtract_ModelAssistedSuccess(t *testing.T) {
	provider := &llmmock.Provider{
		Model: "test-llm",
		Responses: []string{
			`{"claims":[{"text":"Acme grew revenue 12%.","kind":"fact","span_start":0,"span_end":23,
			"entities":[{"surface":"Acme","type":"organization"}],"confidence":0.9}]}`,
		},
	}
	e := New(provider)
	tr := coretypes.Transcript{ID: "t1", Text: "Acme grew revenue 12%."}

	claims, err := e.Extract(context.Background(), tr)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("claims = %d, want 1", len(claims))
	}
	if claims[0].Kind != coretypes.ClaimFact {
		t.Errorf("Kind = %q, want fact", claims[0].Kind)
	}
	if claims[0].ExtractorModel != "test-llm" {
		t.Errorf("ExtractorModel = %q, want test-llm", claims[0].ExtractorModel)
	}
}

func TestExtract_FallsBackOnSchemaViolation(t *testing.T) {
	provider := &llmmock.Provider{
		Model:     "test-llm",
		Responses: []string{`{"not_claims": true}`},
	}
	e := New(provider)
	tr := coretypes.Transcript{ID: "t1", Text: "Revenue grew 12% at Acme."}

	claims, err := e.Extract(context.Background(), tr)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, c := range claims {
		if c.ExtractorModel != ruleBasedModelTag {
			t.Errorf("expected rule-based fallback, got ExtractorModel=%q", c.ExtractorModel)
		}
	}
}

func TestExtract_FallsBackOnAdapterFailure(t *testing.T) {
	provider := &llmmock.Provider{Model: "test-llm", FailCount: 1}
	e := New(provider)
	tr := coretypes.Transcript{ID: "t1", Text: "Acme grew revenue 12%."}

	claims, err := e.Extract(context.Background(), tr)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(claims) == 0 {
		t.Fatal("expected rule-based fallback to produce a claim")
	}
}
