package validator

import (
	"context"
	"testing"

	"github.com/MrWong99/claimwright/internal/knowledgebase"
	"github.com/MrWong99/claimwright/internal/knowledgebase/docstore/inmem"
	"github.com/MrWong99/claimwright/pkg/coretypes"
	embedmock "github.com/MrWong99/claimwright/pkg/inference/embed/mock"
	llmmock "github.com/MrWong99/claimwright/pkg/inference/llm/mock"
	profilesinmem "github.com/MrWong99/claimwright/pkg/profilestore/inmem"
	vectorinmem "github.com/MrWong99/claimwright/pkg/vectorindex/inmem"
)

func newTestKB(t *testing.T) (*knowledgebase.KnowledgeBase, *embedmock.Provider) {
	t.Helper()
	embedder := &embedmock.Provider{Dims: 8}
	idx := vectorinmem.New(8)
	profiles := profilesinmem.New()
	docs := inmem.New()
	kb := knowledgebase.New(idx, profiles, docs, embedder, knowledgebase.Config{})
	return kb, embedder
}

func TestValidate_NoDataWhenNothingRetrieved(t *testing.T) {
	kb, _ := newTestKB(t)
	v := New(kb, nil, nil, Config{})

	claim := coretypes.Claim{ID: "c1", Text: "Acme grew revenue 40% last quarter."}
	val, err := v.Validate(context.Background(), claim)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if val.Status != coretypes.StatusNoData {
		t.Errorf("Status = %q, want no_data", val.Status)
	}
}

func TestValidate_DegradesWithoutLLM(t *testing.T) {
	kb, _ := newTestKB(t)
	ctx := context.Background()
	_, err := kb.Ingest(ctx, knowledgebase.IngestInput{
		Filename: "memo.txt", MIMEKind: "text/plain",
		Raw: []byte("Acme grew revenue 40% last quarter, driven by strong demand."),
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	v := New(kb, nil, nil, Config{MinScore: 0, NoDataThreshold: 0})
	claim := coretypes.Claim{ID: "c1", Text: "Acme grew revenue 40% last quarter, driven by strong demand."}
	val, err := v.Validate(ctx, claim)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if val.Status != coretypes.StatusUncertain {
		t.Errorf("Status = %q, want uncertain (no LLM configured)", val.Status)
	}
}

func TestValidate_ConfirmedViaAdjudication(t *testing.T) {
	kb, _ := newTestKB(t)
	ctx := context.Background()
	_, err := kb.Ingest(ctx, knowledgebase.IngestInput{
		Filename: "memo.txt", MIMEKind: "text/plain",
		Raw: []byte("Acme grew revenue 40% last quarter, driven by strong demand."),
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	provider := &llmmock.Provider{
		Model: "test-llm",
		Responses: []string{
			`{"status":"confirmed","rationale":"matches memo","evidence":[{"index":0,"supports_claim":true,"rationale":"direct match"}]}`,
		},
	}
	v := New(kb, nil, provider, Config{MinScore: 0, NoDataThreshold: 0})
	claim := coretypes.Claim{ID: "c1", Text: "Acme grew revenue 40% last quarter, driven by strong demand."}
	val, err := v.Validate(ctx, claim)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if val.Status != coretypes.StatusConfirmed {
		t.Errorf("Status = %q, want confirmed", val.Status)
	}
	if val.LLMFingerprint == "" {
		t.Error("expected a non-empty LLM fingerprint")
	}
}

func TestValidate_DegradesOnAdapterFailure(t *testing.T) {
	kb, _ := newTestKB(t)
	ctx := context.Background()
	_, err := kb.Ingest(ctx, knowledgebase.IngestInput{
		Filename: "memo.txt", MIMEKind: "text/plain",
		Raw: []byte("Acme grew revenue 40% last quarter."),
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	provider := &llmmock.Provider{Model: "test-llm", FailCount: 5}
	v := New(kb, nil, provider, Config{MinScore: 0, NoDataThreshold: 0})
	claim := coretypes.Claim{ID: "c1", Text: "Acme grew revenue 40% last quarter."}
	val, err := v.Validate(ctx, claim)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if val.Status != coretypes.StatusUncertain {
		t.Errorf("Status = %q, want uncertain after exhausting retries", val.Status)
	}
}
