package report

import (
	"context"
	"testing"

	"github.com/MrWong99/claimwright/pkg/coretypes"
	llmmock "github.com/MrWong99/claimwright/pkg/inference/llm/mock"
)

func TestBuild_NoClaimsWhenNoFacts(t *testing.T) {
	a := New(nil)
	claims := []coretypes.Claim{{ID: "c1", Kind: coretypes.ClaimOpinion, Text: "I think this is great"}}
	rep := a.Build(context.Background(), "t1", claims, map[string]*coretypes.Validation{}, nil)

	if !rep.NoClaims {
		t.Error("NoClaims = false, want true (no fact-kind claims)")
	}
	if rep.OverallCredibility != nil {
		t.Error("OverallCredibility should be nil when NoClaims")
	}
}

func TestBuild_OverallCredibilityWeightedMean(t *testing.T) {
	a := New(nil)
	claims := []coretypes.Claim{
		{ID: "c1", Kind: coretypes.ClaimFact, Text: "Revenue grew 40%.", Confidence: 1.0},
		{ID: "c2", Kind: coretypes.ClaimFact, Text: "Costs fell 10%.", Confidence: 1.0},
	}
	vals := map[string]*coretypes.Validation{
		"c1": {ClaimID: "c1", Status: coretypes.StatusConfirmed},
		"c2": {ClaimID: "c2", Status: coretypes.StatusContradicted},
	}
	rep := a.Build(context.Background(), "t1", claims, vals, nil)

	if rep.NoClaims {
		t.Fatal("NoClaims = true, want false")
	}
	if rep.OverallCredibility == nil || *rep.OverallCredibility != 0.5 {
		t.Errorf("OverallCredibility = %v, want 0.5", rep.OverallCredibility)
	}
}

func TestBuild_WarningsForContradictedAndUncertain(t *testing.T) {
	a := New(nil)
	claims := []coretypes.Claim{
		{ID: "c1", Kind: coretypes.ClaimFact, Text: "Revenue grew 40%.", Confidence: 0.9},
		{ID: "c2", Kind: coretypes.ClaimFact, Text: "Acme is the market leader.", Confidence: 0.95},
	}
	vals := map[string]*coretypes.Validation{
		"c1": {ClaimID: "c1", Status: coretypes.StatusContradicted},
		"c2": {ClaimID: "c2", Status: coretypes.StatusUncertain},
	}
	rep := a.Build(context.Background(), "t1", claims, vals, []string{"ring buffer overflow"})

	if len(rep.Warnings) != 3 {
		t.Fatalf("Warnings = %v, want 3 entries", rep.Warnings)
	}
}

func TestBuild_TemplatedSummaryFallback(t *testing.T) {
	a := New(nil)
	claims := []coretypes.Claim{{ID: "c1", Kind: coretypes.ClaimFact, Text: "Revenue grew 40%.", Confidence: 0.9}}
	vals := map[string]*coretypes.Validation{"c1": {ClaimID: "c1", Status: coretypes.StatusConfirmed}}
	rep := a.Build(context.Background(), "t1", claims, vals, nil)

	if rep.Summary == "" {
		t.Error("expected a non-empty templated summary")
	}
}

func TestBuild_LLMSummaryUsedWhenAvailable(t *testing.T) {
	provider := &llmmock.Provider{Responses: []string{"Acme's revenue claim checks out."}}
	a := New(provider)
	claims := []coretypes.Claim{{ID: "c1", Kind: coretypes.ClaimFact, Text: "Revenue grew 40%.", Confidence: 0.9}}
	vals := map[string]*coretypes.Validation{"c1": {ClaimID: "c1", Status: coretypes.StatusConfirmed}}
	rep := a.Build(context.Background(), "t1", claims, vals, nil)

	if rep.Summary != "Acme's revenue claim checks out." {
		t.Errorf("Summary = %q, want LLM response verbatim", rep.Summary)
	}
}
