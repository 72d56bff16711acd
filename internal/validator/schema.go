package validator

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const adjudicationSchemaName = "claim_adjudication.json"

// adjudicationSchemaDoc constrains the LLM's verdict to a closed status set
// plus one label per evidence passage supplied in the prompt, so the
// validator never has to guess which passage a free-form rationale refers
// to.
var adjudicationSchemaDoc = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"status": map[string]any{
			"type": "string",
			"enum": []any{"confirmed", "contradicted", "uncertain", "no_data"},
		},
		"rationale": map[string]any{"type": "string"},
		"evidence": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"index":          map[string]any{"type": "integer"},
					"supports_claim": map[string]any{"type": "boolean"},
					"rationale":      map[string]any{"type": "string"},
				},
				"required": []any{"index", "supports_claim"},
			},
		},
	},
	"required": []any{"status", "evidence"},
}

func compileAdjudicationSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(adjudicationSchemaName, adjudicationSchemaDoc); err != nil {
		return nil, err
	}
	return c.Compile(adjudicationSchemaName)
}

type adjudicationEvidence struct {
	Index         int    `json:"index"`
	SupportsClaim bool   `json:"supports_claim"`
	Rationale     string `json:"rationale"`
}

type adjudicationDoc struct {
	Status    string                 `json:"status"`
	Rationale string                 `json:"rationale"`
	Evidence  []adjudicationEvidence `json:"evidence"`
}

func decodeAdjudication(schema *jsonschema.Schema, raw string) (*adjudicationDoc, error) {
	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, err
	}
	if err := schema.Validate(generic); err != nil {
		return nil, err
	}
	var doc adjudicationDoc
	if err := json.NewDecoder(bytes.NewReader([]byte(raw))).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
