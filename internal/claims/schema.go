package claims

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// extractionSchema is the strict JSON Schema the model-assisted strategy
// constrains its output to. Every claim must carry its text, a kind, and
// span offsets; an entity list is optional. The extractor trusts the model's offsets but always
// re-validates the decoded document before using it.
var extractionSchemaDoc = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"claims": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text":       map[string]any{"type": "string"},
					"kind":       map[string]any{"type": "string", "enum": []any{"fact", "opinion", "prediction"}},
					"span_start": map[string]any{"type": "integer"},
					"span_end":   map[string]any{"type": "integer"},
					"entities": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"surface": map[string]any{"type": "string"},
								"type":    map[string]any{"type": "string"},
								"start":   map[string]any{"type": "integer"},
								"end":     map[string]any{"type": "integer"},
							},
							"required": []any{"surface", "type"},
						},
					},
					"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				},
				"required": []any{"text", "kind", "span_start", "span_end"},
			},
		},
	},
	"required": []any{"claims"},
}

const extractionSchemaName = "claim_extraction.json"

func compileExtractionSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(extractionSchemaName, extractionSchemaDoc); err != nil {
		return nil, err
	}
	return c.Compile(extractionSchemaName)
}

// extractedClaim mirrors one element of the schema's claims array.
type extractedClaim struct {
	Text      string           `json:"text"`
	Kind      string           `json:"kind"`
	SpanStart int              `json:"span_start"`
	SpanEnd   int              `json:"span_end"`
	Entities  []extractedEntity `json:"entities"`
	Confidence *float64        `json:"confidence"`
}

type extractedEntity struct {
	Surface string `json:"surface"`
	Type    string `json:"type"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

type extractionDoc struct {
	Claims []extractedClaim `json:"claims"`
}

// decodeAndValidate parses raw model output, validates it against the
// extraction schema, and returns the typed document. Any JSON or schema
// failure is treated identically by the caller: fall back to rule-based
// extraction.
func decodeAndValidate(schema *jsonschema.Schema, raw string) (*extractionDoc, error) {
	var generic any
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	if err := schema.Validate(generic); err != nil {
		return nil, err
	}
	var doc extractionDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
