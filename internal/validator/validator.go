// Package validator implements C9: adjudicating each extracted Claim against
// retrieved knowledge-base evidence and profile facts. Validation never
// asserts confirmed or contradicted without a successful, schema-validated
// LLM adjudication — every degraded path lands on uncertain or no_data.
package validator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/claimwright/internal/apperr"
	"github.com/MrWong99/claimwright/internal/knowledgebase"
	"github.com/MrWong99/claimwright/internal/observe"
	"github.com/MrWong99/claimwright/pkg/coretypes"
	"github.com/MrWong99/claimwright/pkg/inference/llm"
	"github.com/MrWong99/claimwright/pkg/profilestore"
)

// Config tunes retrieval and scoring thresholds.
type Config struct {
	TopK             int     // default 5
	MinScore         float64 // default 0.70, evidence admission floor
	NoDataThreshold  float64 // default 0.60, below which the verdict is no_data regardless of admitted evidence
	LinkBonus        float64 // default 0.05, added to document-chunk scores when a profile fact also matched
	MaxPassages      int     // default 6, cap on passages sent to the adjudication prompt
	ContextBudget    int     // default 4000, character budget for the prompt's evidence block
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.MinScore <= 0 {
		c.MinScore = 0.70
	}
	if c.NoDataThreshold <= 0 {
		c.NoDataThreshold = 0.60
	}
	if c.LinkBonus <= 0 {
		c.LinkBonus = 0.05
	}
	if c.MaxPassages <= 0 {
		c.MaxPassages = 6
	}
	if c.ContextBudget <= 0 {
		c.ContextBudget = 4000
	}
	return c
}

// Validator is the C9 Claim Validator.
type Validator struct {
	kb       *knowledgebase.KnowledgeBase
	profiles profilestore.Store
	llmP     llm.Provider
	metrics  *observe.Metrics

	cfgMu sync.RWMutex
	cfg   Config
}

// UpdateConfig swaps the active scoring configuration, taking effect for
// every Validate call after it returns. Used by the config hot-reload path
// to apply threshold changes without restarting the process.
func (v *Validator) UpdateConfig(cfg Config) {
	v.cfgMu.Lock()
	v.cfg = cfg.withDefaults()
	v.cfgMu.Unlock()
}

func (v *Validator) config() Config {
	v.cfgMu.RLock()
	defer v.cfgMu.RUnlock()
	return v.cfg
}

// New constructs a Validator. llmP may be nil, in which case every claim
// degrades straight to uncertain after retrieval (no adjudication attempted).
func New(kb *knowledgebase.KnowledgeBase, profiles profilestore.Store, llmP llm.Provider, cfg Config, opts ...Option) *Validator {
	v := &Validator{kb: kb, profiles: profiles, llmP: llmP, cfg: cfg.withDefaults(), metrics: observe.DefaultMetrics()}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Option configures a Validator.
type Option func(*Validator)

// WithMetrics attaches an observe.Metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(v *Validator) { v.metrics = m }
}

type candidate struct {
	evidence coretypes.Evidence
	chunkID  string
	linked   bool // true when applyLinkBonus added the link bonus to this document chunk
}

// Validate adjudicates a single Claim and returns its Validation. Only
// fact-kind claims carry much signal here, but the method accepts any Claim
// — callers (the app pipeline and the HTTP validate handlers) decide which
// kinds to validate.
func (v *Validator) Validate(ctx context.Context, claim coretypes.Claim) (*coretypes.Validation, error) {
	start := time.Now()
	defer func() {
		if v.metrics != nil {
			v.metrics.RetrievalDuration.Record(ctx, time.Since(start).Seconds())
		}
	}()

	cands, err := v.gatherCandidates(ctx, claim)
	if err != nil {
		return nil, err
	}

	if len(cands) == 0 || cands[0].evidence.Score < v.config().NoDataThreshold {
		return v.finish(ctx, &coretypes.Validation{
			ID:             uuid.NewString(),
			ClaimID:        claim.ID,
			Status:         coretypes.StatusNoData,
			Confidence:     0,
			Recommendation: "add supporting material covering this claim to the knowledge base",
		}), nil
	}

	if v.llmP == nil {
		return v.finish(ctx, v.degrade(claim, cands, "no adjudication model configured")), nil
	}

	val, err := v.adjudicate(ctx, claim, cands)
	if err != nil {
		return v.finish(ctx, v.degrade(claim, cands, "adjudication unavailable")), nil
	}
	return v.finish(ctx, val), nil
}

func (v *Validator) finish(ctx context.Context, val *coretypes.Validation) *coretypes.Validation {
	if v.metrics != nil {
		v.metrics.RecordValidationCompleted(ctx, string(val.Status))
	}
	return val
}

// gatherCandidates retrieves knowledge-base chunks and matching profile
// facts for claim, sorted by score descending.
func (v *Validator) gatherCandidates(ctx context.Context, claim coretypes.Claim) ([]candidate, error) {
	queries := []string{claim.Text}
	for _, e := range claim.Entities {
		queries = append(queries, claim.Text+" "+e.Surface)
	}

	hits, err := v.kb.Search(ctx, knowledgebase.SearchInput{
		QueryTexts: queries,
		K:          v.config().TopK,
		MinScore:   v.config().MinScore,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindRetrievalError, "evidence retrieval", err)
	}

	var cands []candidate
	for _, h := range hits {
		cands = append(cands, candidate{
			evidence: coretypes.Evidence{
				SourceKind: coretypes.EvidenceDocumentChunk,
				SourceID:   h.ChunkID,
				Quote:      h.Excerpt,
				Score:      h.Score,
			},
			chunkID: h.ChunkID,
		})
	}

	factCands := v.matchProfileFacts(ctx, claim)
	cands = append(cands, factCands...)

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].evidence.Score > cands[j].evidence.Score })

	v.applyLinkBonus(ctx, claim, cands)
	return cands, nil
}

// matchProfileFacts does a best-effort fuzzy/exact match of claim entities
// against profile facts. The profile store has no full-text search, so this
// scans every profile's facts; acceptable at the scale this engine targets
// (dozens to low hundreds of tracked profiles).
func (v *Validator) matchProfileFacts(ctx context.Context, claim coretypes.Claim) []candidate {
	if v.profiles == nil || len(claim.Entities) == 0 {
		return nil
	}
	profiles, err := v.profiles.ListProfiles(ctx, "", nil)
	if err != nil {
		return nil
	}

	var out []candidate
	for _, p := range profiles {
		if !entityOverlap(claim.Entities, p) {
			continue
		}
		for _, f := range p.Facts {
			score := factMatchScore(claim.Text, f.Statement)
			if score < v.config().NoDataThreshold {
				continue
			}
			out = append(out, candidate{
				evidence: coretypes.Evidence{
					SourceKind: coretypes.EvidenceProfileFact,
					SourceID:   f.ID,
					Quote:      f.Statement,
					Score:      score,
				},
			})
		}
	}
	return out
}

// entityOverlap reports whether any claim entity mentions the profile by
// display name — the cheap filter before scoring each fact.
func entityOverlap(ents []coretypes.EntityMention, p coretypes.Profile) bool {
	for _, e := range ents {
		if strings.EqualFold(e.Surface, p.DisplayName) || strings.Contains(strings.ToLower(p.DisplayName), strings.ToLower(e.Surface)) {
			return true
		}
	}
	return false
}

// factMatchScore is a crude lexical-overlap score in [0,1]: the fraction of
// claim words also present in the fact statement. Good enough to gate
// admission; the LLM adjudication pass does the real semantic comparison.
func factMatchScore(claimText, statement string) float64 {
	claimWords := strings.Fields(strings.ToLower(claimText))
	if len(claimWords) == 0 {
		return 0
	}
	statementLower := strings.ToLower(statement)
	hits := 0
	for _, w := range claimWords {
		if len(w) < 3 {
			continue
		}
		if strings.Contains(statementLower, w) {
			hits++
		}
	}
	return float64(hits) / float64(len(claimWords))
}

// applyLinkBonus adds LinkBonus (capped at 1) to the score of every
// document-chunk candidate whenever at least one profile-fact candidate
// matched the claim. Document-to-profile links are not consulted: a chunk is
// boosted whether or not its document is linked to the profile whose fact
// matched.
func (v *Validator) applyLinkBonus(ctx context.Context, claim coretypes.Claim, cands []candidate) {
	if v.profiles == nil {
		return
	}
	hasFactCorroboration := false
	for _, c := range cands {
		if c.evidence.SourceKind == coretypes.EvidenceProfileFact {
			hasFactCorroboration = true
			break
		}
	}
	if !hasFactCorroboration {
		return
	}
	for i := range cands {
		if cands[i].evidence.SourceKind != coretypes.EvidenceDocumentChunk {
			continue
		}
		cands[i].linked = true
		cands[i].evidence.Score = min1(cands[i].evidence.Score + v.config().LinkBonus)
	}
}

func min1(f float64) float64 {
	if f > 1 {
		return 1
	}
	return f
}

// degrade produces a conservative uncertain Validation from whatever
// candidates were retrieved, used whenever adjudication cannot run.
func (v *Validator) degrade(claim coretypes.Claim, cands []candidate, reason string) *coretypes.Validation {
	ev := make([]coretypes.Evidence, 0, len(cands))
	ids := make([]string, 0, len(cands))
	for _, c := range cands {
		ev = append(ev, c.evidence)
		if c.chunkID != "" {
			ids = append(ids, c.chunkID)
		}
	}
	return &coretypes.Validation{
		ID:                uuid.NewString(),
		ClaimID:           claim.ID,
		Status:            coretypes.StatusUncertain,
		Confidence:        0.5,
		Evidence:          ev,
		Recommendation:    reason,
		RetrievedChunkIDs: ids,
	}
}

// adjudicate builds the LLM prompt, validates the response against the
// adjudication schema, and assembles the final Validation. One retry is
// attempted on schema violation or adapter failure before the caller falls
// back to degrade.
func (v *Validator) adjudicate(ctx context.Context, claim coretypes.Claim, cands []candidate) (*coretypes.Validation, error) {
	schema, err := compileAdjudicationSchema()
	if err != nil {
		return nil, err
	}

	passages := cands
	if len(passages) > v.config().MaxPassages {
		passages = passages[:v.config().MaxPassages]
	}
	prompt := buildAdjudicationPrompt(claim, passages, v.config().ContextBudget)

	var resp *llm.GenerateResponse
	var genErr error
	var doc *adjudicationDoc
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		start := time.Now()
		resp, genErr = v.llmP.Generate(ctx, llm.GenerateRequest{
			Messages: []llm.Message{
				{Role: "system", Content: adjudicationSystemPrompt},
				{Role: "user", Content: prompt},
			},
			Temperature: 0,
			Schema:      adjudicationSchemaDoc,
			SchemaName:  adjudicationSchemaName,
		})
		if v.metrics != nil {
			v.metrics.AdjudicationDuration.Record(ctx, time.Since(start).Seconds())
			v.metrics.RecordProviderRequest(ctx, v.llmP.ModelID(), "llm", statusOf(genErr))
			if genErr != nil {
				v.metrics.RecordProviderError(ctx, v.llmP.ModelID(), "llm")
			}
		}
		if genErr != nil {
			lastErr = apperr.Wrap(apperr.KindAdapterFailure, "adjudication generate", genErr)
			continue
		}
		d, decErr := decodeAdjudication(schema, resp.Content)
		if decErr != nil {
			lastErr = apperr.Wrap(apperr.KindSchemaViolation, "adjudication response", decErr)
			continue
		}
		doc, lastErr = d, nil
		break
	}
	if lastErr != nil {
		return nil, lastErr
	}

	evidence := make([]coretypes.Evidence, 0, len(passages))
	ids := make([]string, 0, len(passages))
	for i, c := range passages {
		e := c.evidence
		for _, label := range doc.Evidence {
			if label.Index == i {
				e.SupportsClaim = label.SupportsClaim
				e.Rationale = label.Rationale
			}
		}
		evidence = append(evidence, e)
		if c.chunkID != "" {
			ids = append(ids, c.chunkID)
		}
	}

	status := coretypes.ValidationStatus(doc.Status)
	switch status {
	case coretypes.StatusConfirmed, coretypes.StatusContradicted, coretypes.StatusUncertain, coretypes.StatusNoData:
	default:
		status = coretypes.StatusUncertain
	}

	confidence := confidenceFor(status, evidence)

	return &coretypes.Validation{
		ID:                uuid.NewString(),
		ClaimID:           claim.ID,
		Status:            status,
		Confidence:        confidence,
		Evidence:          evidence,
		Recommendation:    doc.Rationale,
		RetrievedChunkIDs: ids,
		LLMFingerprint:    fingerprint(prompt, resp.Content),
	}, nil
}

func confidenceFor(status coretypes.ValidationStatus, evidence []coretypes.Evidence) float64 {
	if len(evidence) == 0 {
		return 0.5
	}
	var best float64
	for _, e := range evidence {
		if e.Score > best {
			best = e.Score
		}
	}
	switch status {
	case coretypes.StatusConfirmed, coretypes.StatusContradicted:
		return best
	default:
		return 0.5
	}
}

const adjudicationSystemPrompt = `You adjudicate a single claim against numbered evidence passages.
For each passage, say whether it supports or contradicts the claim. Then assign an overall status:
confirmed (evidence clearly supports it), contradicted (evidence clearly refutes it),
uncertain (evidence is mixed or insufficient to decide), or no_data (irrelevant evidence).
Never assign confirmed or contradicted unless at least one passage directly addresses the claim.
Respond only with JSON matching the provided schema.`

func buildAdjudicationPrompt(claim coretypes.Claim, passages []candidate, budget int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Claim: %s\n\nEvidence passages:\n", claim.Text)
	used := 0
	for i, c := range passages {
		line := fmt.Sprintf("[%d] (score %.2f) %s\n", i, c.evidence.Score, c.evidence.Quote)
		if used+len(line) > budget {
			break
		}
		b.WriteString(line)
		used += len(line)
	}
	return b.String()
}

func fingerprint(prompt, response string) string {
	sum := sha256.Sum256([]byte(prompt + "\x00" + response))
	return hex.EncodeToString(sum[:])
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
