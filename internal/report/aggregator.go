// Package report implements C10: assembling a Transcript's Claims and
// Validations into a Report, computing overall credibility, surfacing
// warnings, and producing a human-readable summary.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/claimwright/internal/observe"
	"github.com/MrWong99/claimwright/pkg/coretypes"
	"github.com/MrWong99/claimwright/pkg/inference/llm"
)

// statusWeight maps a ValidationStatus to its credibility contribution.
var statusWeight = map[coretypes.ValidationStatus]float64{
	coretypes.StatusConfirmed:    1.0,
	coretypes.StatusUncertain:    0.5,
	coretypes.StatusNoData:       0.5,
	coretypes.StatusContradicted: 0.0,
}

// uncertainWarnThreshold flags an uncertain validation as worth a warning
// when the originating claim's own extractor confidence was high — the
// pipeline was sure about the claim but couldn't adjudicate it.
const uncertainWarnThreshold = 0.8

// Aggregator is the C10 Report Aggregator. The llm provider is optional: if
// nil, summaries use the templated fallback exclusively.
type Aggregator struct {
	llmP    llm.Provider
	metrics *observe.Metrics
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithMetrics attaches an observe.Metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// New constructs an Aggregator. llmP may be nil to always use the templated
// summary fallback.
func New(llmP llm.Provider, opts ...Option) *Aggregator {
	a := &Aggregator{llmP: llmP, metrics: observe.DefaultMetrics()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Build assembles a Report from a Transcript's claims, each paired with its
// Validation (nil for non-fact claims, which are retained but never
// adjudicated), and any session-level warnings propagated from upstream
// stages (e.g. a ring-buffer overflow).
func (a *Aggregator) Build(ctx context.Context, transcriptID string, claims []coretypes.Claim, validations map[string]*coretypes.Validation, upstreamWarnings []string) *coretypes.Report {
	paired := make([]*coretypes.Validation, len(claims))
	for i, c := range claims {
		paired[i] = validations[c.ID]
	}

	credibility, noClaims := overallCredibility(claims, paired)
	warnings := append([]string{}, upstreamWarnings...)
	warnings = append(warnings, collectWarnings(claims, paired)...)

	summary := a.summarize(ctx, claims, paired, noClaims)

	return &coretypes.Report{
		ID:                 uuid.NewString(),
		TranscriptID:       transcriptID,
		Claims:             claims,
		Validations:        paired,
		OverallCredibility: credibility,
		NoClaims:           noClaims,
		Warnings:           warnings,
		Summary:            summary,
		CreatedAt:          time.Now().UTC(),
	}
}

// overallCredibility computes the extractor-confidence-weighted mean of
// statusWeight over fact-kind claims only. Returns (nil, true) when there
// are no fact-kind claims to weigh.
func overallCredibility(claims []coretypes.Claim, validations []*coretypes.Validation) (*float64, bool) {
	var weightedSum, totalWeight float64
	haveFact := false
	for i, c := range claims {
		if c.Kind != coretypes.ClaimFact {
			continue
		}
		v := validations[i]
		if v == nil {
			continue
		}
		w, ok := statusWeight[v.Status]
		if !ok {
			w = 0.5
		}
		weight := c.Confidence
		if weight <= 0 {
			weight = 1
		}
		weightedSum += w * weight
		totalWeight += weight
		haveFact = true
	}
	if !haveFact || totalWeight == 0 {
		return nil, true
	}
	result := weightedSum / totalWeight
	return &result, false
}

// collectWarnings builds per-claim warnings: contradicted claims and
// high-confidence claims the validator could not confidently adjudicate.
func collectWarnings(claims []coretypes.Claim, validations []*coretypes.Validation) []string {
	var out []string
	for i, c := range claims {
		v := validations[i]
		if v == nil {
			continue
		}
		switch {
		case v.Status == coretypes.StatusContradicted:
			out = append(out, fmt.Sprintf("contradicts: %s", excerpt(c.Text, 80)))
		case v.Status == coretypes.StatusUncertain && c.Confidence > uncertainWarnThreshold:
			out = append(out, fmt.Sprintf("high-confidence claim left uncertain: %s", excerpt(c.Text, 80)))
		}
	}
	return out
}

func excerpt(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// summarize produces a natural-language overview via the LLM when
// available, falling back to a templated enumeration on any failure or when
// no provider is configured.
func (a *Aggregator) summarize(ctx context.Context, claims []coretypes.Claim, validations []*coretypes.Validation, noClaims bool) string {
	if noClaims {
		return "No checkable claims were found in this transcript."
	}
	if a.llmP != nil {
		if s, ok := a.summarizeWithLLM(ctx, claims, validations); ok {
			return s
		}
	}
	return templatedSummary(claims, validations)
}

func (a *Aggregator) summarizeWithLLM(ctx context.Context, claims []coretypes.Claim, validations []*coretypes.Validation) (string, bool) {
	var b strings.Builder
	for i, c := range claims {
		if c.Kind != coretypes.ClaimFact {
			continue
		}
		v := validations[i]
		status := "unvalidated"
		if v != nil {
			status = string(v.Status)
		}
		fmt.Fprintf(&b, "- [%s] %s\n", status, c.Text)
	}
	start := time.Now()
	resp, err := a.llmP.Generate(ctx, llm.GenerateRequest{
		Messages: []llm.Message{
			{Role: "system", Content: "Summarize these fact-checked claims in 2-4 sentences for a non-technical reader."},
			{Role: "user", Content: b.String()},
		},
		Temperature: 0.2,
		MaxTokens:   300,
	})
	if a.metrics != nil {
		a.metrics.RecordProviderRequest(ctx, a.llmP.ModelID(), "llm", statusOf(err))
		if err != nil {
			a.metrics.RecordProviderError(ctx, a.llmP.ModelID(), "llm")
		}
		a.metrics.AdjudicationDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		return "", false
	}
	return resp.Content, true
}

// templatedSummary is the deterministic fallback: a count-by-status
// sentence, used whenever no LLM is configured or the LLM call failed.
func templatedSummary(claims []coretypes.Claim, validations []*coretypes.Validation) string {
	counts := map[coretypes.ValidationStatus]int{}
	facts := 0
	for i, c := range claims {
		if c.Kind != coretypes.ClaimFact {
			continue
		}
		facts++
		if v := validations[i]; v != nil {
			counts[v.Status]++
		}
	}
	if facts == 0 {
		return "No checkable claims were found in this transcript."
	}
	return fmt.Sprintf(
		"%d claims checked: %d confirmed, %d contradicted, %d uncertain, %d without supporting data.",
		facts,
		counts[coretypes.StatusConfirmed],
		counts[coretypes.StatusContradicted],
		counts[coretypes.StatusUncertain],
		counts[coretypes.StatusNoData],
	)
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
