// Package vectorindex defines C2: an approximate-nearest-neighbor store over
// fixed-dimension embeddings with metadata filters, used by the knowledge
// base to answer chunk similarity queries.
package vectorindex

import "context"

// Metadata is the filterable payload stored alongside a chunk's vector.
type Metadata struct {
	DocumentID     string
	Tags           []string
	Category       string
	LinkedProfiles []string
}

// Filter is a conjunction over metadata fields. Zero-value fields are not
// applied (no filtering on that dimension).
type Filter struct {
	Tags           []string // chunk must carry all of these tags
	Category       string
	LinkedProfiles []string // chunk must be linked to at least one of these
}

// Result is one ranked hit from a Search call.
type Result struct {
	ChunkID  string
	Score    float64 // normalized similarity in [0,1], 1 = identical
	Metadata Metadata
}

// Index is the C2 Vector Index contract.
type Index interface {
	// Upsert overwrites the vector and metadata for chunkID if it already
	// exists. The vector's dimension must match the index's configured
	// dimension, or Upsert fails with apperr.KindDimensionMismatch.
	Upsert(ctx context.Context, chunkID string, vector []float32, meta Metadata) error
	// Delete removes chunkID if present. Idempotent.
	Delete(ctx context.Context, chunkID string) error
	// Search returns up to k results ordered by descending score, each at
	// or above minScore, matching filter.
	Search(ctx context.Context, vector []float32, k int, filter Filter, minScore float64) ([]Result, error)
	// Rebuild re-indexes from the durable backing store, used after bulk
	// deletes exceed a tombstone threshold.
	Rebuild(ctx context.Context) error
	// Dimensions reports the fixed vector dimension this index accepts.
	Dimensions() int
}
