// Package embed defines the narrow embedding adapter used by the knowledge
// base to turn chunk and query text into fixed-dimension vectors.
package embed

import "context"

// Provider is the narrow Inference Adapter interface for embedding models.
type Provider interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions reports the fixed length of every vector this provider
	// produces.
	Dimensions() int
	ModelID() string
}
