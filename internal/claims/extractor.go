// Package claims implements C8: turning a Transcript's text into a list of
// atomic Claims. The primary strategy asks an LLM for a schema-constrained
// extraction; a schema violation or adapter failure falls back to a
// deterministic rule-based sentence segmenter so the pipeline always
// produces a result.
package claims

import (
	"context"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/MrWong99/claimwright/internal/observe"
	"github.com/MrWong99/claimwright/pkg/coretypes"
	"github.com/MrWong99/claimwright/pkg/inference/llm"
)

const ruleBasedModelTag = "rule-based-v1"

// Extractor is the C8 Claim Extractor.
type Extractor struct {
	provider llm.Provider
	metrics  *observe.Metrics
}

// New constructs an Extractor. provider may be nil, in which case every
// extraction uses the rule-based strategy.
func New(provider llm.Provider, opts ...Option) *Extractor {
	e := &Extractor{provider: provider, metrics: observe.DefaultMetrics()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMetrics attaches an observe.Metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Extractor) { e.metrics = m }
}

// Extract produces the ordered Claims for a Transcript. Extraction is
// deterministic given identical transcript text and extractor configuration:
// the rule-based path has no randomness, and the model-assisted path is
// invoked at temperature 0.
func (e *Extractor) Extract(ctx context.Context, t coretypes.Transcript) ([]coretypes.Claim, error) {
	if e.provider == nil {
		return e.finish(ruleBasedExtract(t.ID, t.Text, ruleBasedModelTag)), nil
	}

	schema, err := compileExtractionSchema()
	if err != nil {
		// Schema itself failed to compile — this is a programming error,
		// not a runtime adapter failure, but extraction must still produce
		// a result.
		return e.finish(ruleBasedExtract(t.ID, t.Text, ruleBasedModelTag)), nil
	}

	claims, ok := e.modelAssisted(ctx, schema, t)
	if !ok {
		return e.finish(ruleBasedExtract(t.ID, t.Text, ruleBasedModelTag)), nil
	}
	return e.finish(claims), nil
}

func (e *Extractor) finish(claims []coretypes.Claim) []coretypes.Claim {
	for _, c := range claims {
		if e.metrics != nil {
			e.metrics.RecordClaimExtracted(context.Background(), string(c.Kind))
		}
	}
	return claims
}

func (e *Extractor) modelAssisted(ctx context.Context, schema *jsonschema.Schema, t coretypes.Transcript) ([]coretypes.Claim, bool) {
	resp, err := e.provider.Generate(ctx, llm.GenerateRequest{
		Messages: []llm.Message{
			{Role: "system", Content: extractionSystemPrompt},
			{Role: "user", Content: t.Text},
		},
		Temperature: 0,
		Schema:      extractionSchemaDoc,
		SchemaName:  extractionSchemaName,
	})
	if e.metrics != nil {
		e.metrics.RecordProviderRequest(ctx, e.provider.ModelID(), "llm", statusOf(err))
		if err != nil {
			e.metrics.RecordProviderError(ctx, e.provider.ModelID(), "llm")
		}
	}
	if err != nil {
		return nil, false
	}

	doc, err := decodeAndValidate(schema, resp.Content)
	if err != nil {
		return nil, false
	}

	out := make([]coretypes.Claim, 0, len(doc.Claims))
	for i, c := range doc.Claims {
		conf := 0.85
		if c.Confidence != nil {
			conf = *c.Confidence
		}
		ents := make([]coretypes.EntityMention, 0, len(c.Entities))
		for _, en := range c.Entities {
			ents = append(ents, coretypes.EntityMention{
				Surface: en.Surface,
				Type:    coretypes.EntityMentionType(en.Type),
				Start:   en.Start,
				End:     en.End,
			})
		}
		out = append(out, coretypes.Claim{
			ID:             uuid.NewString(),
			TranscriptID:   t.ID,
			Ordinal:        i,
			SpanStart:      c.SpanStart,
			SpanEnd:        c.SpanEnd,
			Text:           c.Text,
			Kind:           coretypes.ClaimKind(c.Kind),
			Entities:       ents,
			Confidence:     conf,
			ExtractorModel: e.provider.ModelID(),
		})
	}
	return out, true
}

const extractionSystemPrompt = `You extract atomic, checkable claims from a spoken transcript.
For each claim, report its exact text span, classify it as fact, opinion, or prediction,
and list any named entities it mentions. Skip questions and hedged personal opinions
unless they assert a checkable fact. Respond only with JSON matching the provided schema.`

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
