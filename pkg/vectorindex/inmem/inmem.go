// Package inmem provides a brute-force, in-process vectorindex.Index for
// tests and for deployments without a Postgres dependency. It has no
// approximation: Search always returns the exact top-k by cosine similarity.
package inmem

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/MrWong99/claimwright/internal/apperr"
	"github.com/MrWong99/claimwright/pkg/vectorindex"
)

type entry struct {
	vector []float32
	meta   vectorindex.Metadata
}

// Index is a mutex-guarded map-backed vectorindex.Index.
type Index struct {
	mu         sync.RWMutex
	dimensions int
	chunks     map[string]entry
}

var _ vectorindex.Index = (*Index)(nil)

// New creates an empty Index accepting vectors of the given dimension.
func New(dimensions int) *Index {
	return &Index{dimensions: dimensions, chunks: make(map[string]entry)}
}

// Dimensions implements vectorindex.Index.
func (idx *Index) Dimensions() int { return idx.dimensions }

// Upsert implements vectorindex.Index.
func (idx *Index) Upsert(ctx context.Context, chunkID string, vector []float32, meta vectorindex.Metadata) error {
	if len(vector) != idx.dimensions {
		return apperr.New(apperr.KindDimensionMismatch,
			fmt.Sprintf("vector has %d dimensions, index expects %d", len(vector), idx.dimensions))
	}
	cp := make([]float32, len(vector))
	copy(cp, vector)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.chunks[chunkID] = entry{vector: cp, meta: meta}
	return nil
}

// Delete implements vectorindex.Index.
func (idx *Index) Delete(ctx context.Context, chunkID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.chunks, chunkID)
	return nil
}

// Search implements vectorindex.Index.
func (idx *Index) Search(ctx context.Context, vector []float32, k int, filter vectorindex.Filter, minScore float64) ([]vectorindex.Result, error) {
	if len(vector) != idx.dimensions {
		return nil, apperr.New(apperr.KindDimensionMismatch,
			fmt.Sprintf("query vector has %d dimensions, index expects %d", len(vector), idx.dimensions))
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var results []vectorindex.Result
	for id, e := range idx.chunks {
		if !matches(e.meta, filter) {
			continue
		}
		score := cosineSimilarity(vector, e.vector)
		if score < minScore {
			continue
		}
		results = append(results, vectorindex.Result{ChunkID: id, Score: score, Metadata: e.meta})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Rebuild implements vectorindex.Index. The in-memory index has no derived
// structures to rebuild; it is a no-op.
func (idx *Index) Rebuild(ctx context.Context) error { return nil }

func matches(meta vectorindex.Metadata, filter vectorindex.Filter) bool {
	if filter.Category != "" && meta.Category != filter.Category {
		return false
	}
	for _, want := range filter.Tags {
		if !contains(meta.Tags, want) {
			return false
		}
	}
	if len(filter.LinkedProfiles) > 0 {
		found := false
		for _, want := range filter.LinkedProfiles {
			if contains(meta.LinkedProfiles, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func contains(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	// Map from [-1,1] to [0,1] to match the normalized similarity contract.
	return (sim + 1) / 2
}
