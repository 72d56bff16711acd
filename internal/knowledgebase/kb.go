// Package knowledgebase implements C4: it composes the Vector Index (C2) and
// Profile Store (C3), ingests Documents, maintains the Document↔Profile link
// graph, and answers the hybrid retrievals the Validator depends on.
package knowledgebase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/claimwright/internal/apperr"
	"github.com/MrWong99/claimwright/internal/knowledgebase/docstore"
	"github.com/MrWong99/claimwright/pkg/coretypes"
	"github.com/MrWong99/claimwright/pkg/inference/embed"
	"github.com/MrWong99/claimwright/pkg/profilestore"
	"github.com/MrWong99/claimwright/pkg/vectorindex"
)

// Config tunes ingestion chunking and retrieval defaults.
type Config struct {
	ChunkSize       int     // target chunk length in runes, default 800
	ChunkOverlap    int     // overlap between consecutive chunks, default 120
	DefaultTopK     int     // default 5
	DefaultMinScore float64 // default 0.70
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 800
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = 120
	}
	if c.DefaultTopK <= 0 {
		c.DefaultTopK = 5
	}
	if c.DefaultMinScore <= 0 {
		c.DefaultMinScore = 0.70
	}
	return c
}

// KnowledgeBase composes the vector index, profile store, document store, and
// embedding adapter into the ingestion and retrieval contract of C4.
type KnowledgeBase struct {
	index    vectorindex.Index
	profiles profilestore.Store
	docs     docstore.DocumentStore
	embedder embed.Provider

	cfgMu sync.RWMutex
	cfg   Config
}

// New constructs a KnowledgeBase over the given components.
func New(index vectorindex.Index, profiles profilestore.Store, docs docstore.DocumentStore, embedder embed.Provider, cfg Config) *KnowledgeBase {
	return &KnowledgeBase{
		cfg:      cfg.withDefaults(),
		index:    index,
		profiles: profiles,
		docs:     docs,
		embedder: embedder,
	}
}

// UpdateConfig swaps the active chunking/retrieval defaults, taking effect
// for ingestion and search calls made after it returns.
func (kb *KnowledgeBase) UpdateConfig(cfg Config) {
	kb.cfgMu.Lock()
	kb.cfg = cfg.withDefaults()
	kb.cfgMu.Unlock()
}

func (kb *KnowledgeBase) config() Config {
	kb.cfgMu.RLock()
	defer kb.cfgMu.RUnlock()
	return kb.cfg
}

// IngestInput describes a document to ingest.
type IngestInput struct {
	ID             string // empty generates a new id; non-empty reingests under that id
	Filename       string
	MIMEKind       string
	Raw            []byte
	Tags           []string
	Category       string
	Context        string
	LinkedProfiles []string
}

// chunkID returns the deterministic id of the ordinal-th chunk of document
// docID. Determinism lets Reingest overwrite overlapping ordinals in place
// via Upsert and only needs to delete ordinals beyond the new chunk count.
func chunkID(docID string, ordinal int) string {
	return fmt.Sprintf("%s:%d", docID, ordinal)
}

// Ingest decodes, chunks, embeds, and indexes a document, then records it and
// reconciles its profile links. Reingesting under the same id replaces the
// chunk set atomically: the new chunks are upserted (making them durable)
// before any stale trailing chunk ids from a shorter new chunk set are
// deleted, so the document stays queryable throughout the swap.
func (kb *KnowledgeBase) Ingest(ctx context.Context, in IngestInput) (*coretypes.Document, error) {
	text, err := decodeText(mimeKind(in.MIMEKind), in.Raw)
	if err != nil {
		return nil, err
	}

	windows := chunkText(text, kb.config().ChunkSize, kb.config().ChunkOverlap)

	docID := in.ID
	var previousChunkCount int
	if docID != "" {
		if existing, err := kb.docs.Get(ctx, docID); err == nil {
			previousChunkCount = existing.ChunkCount
		}
	} else {
		docID = uuid.NewString()
	}

	texts := make([]string, len(windows))
	for i, w := range windows {
		texts[i] = w.Text
	}
	vectors, err := kb.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindAdapterFailure, "embed chunks", err)
	}

	meta := vectorindex.Metadata{
		DocumentID:     docID,
		Tags:           in.Tags,
		Category:       in.Category,
		LinkedProfiles: in.LinkedProfiles,
	}
	for i := range windows {
		if err := kb.index.Upsert(ctx, chunkID(docID, i), vectors[i], meta); err != nil {
			return nil, err
		}
	}
	for i := len(windows); i < previousChunkCount; i++ {
		if err := kb.index.Delete(ctx, chunkID(docID, i)); err != nil {
			return nil, err
		}
	}

	doc := coretypes.Document{
		ID:         docID,
		Filename:   in.Filename,
		MIMEKind:   in.MIMEKind,
		SizeBytes:  int64(len(in.Raw)),
		IngestedAt: time.Now().UTC(),
		Tags:       in.Tags,
		Category:   in.Category,
		Context:    in.Context,
		ChunkCount: len(windows),
	}
	if err := kb.docs.Put(ctx, doc); err != nil {
		return nil, err
	}

	for _, pid := range in.LinkedProfiles {
		if err := kb.profiles.Link(ctx, docID, pid); err != nil {
			return nil, err
		}
	}

	doc.LinkedProfiles, _ = kb.profiles.LinkedProfiles(ctx, docID)
	return &doc, nil
}

// Reingest re-decodes and re-chunks raw content under an existing document
// id, replacing its chunk set. It is a thin alias over Ingest with an
// explicit id, kept as a distinct name because callers reason about the two
// operations differently (new document vs. content refresh).
func (kb *KnowledgeBase) Reingest(ctx context.Context, documentID string, raw []byte) (*coretypes.Document, error) {
	existing, err := kb.docs.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	linked, err := kb.profiles.LinkedProfiles(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return kb.Ingest(ctx, IngestInput{
		ID:             documentID,
		Filename:       existing.Filename,
		MIMEKind:       existing.MIMEKind,
		Raw:            raw,
		Tags:           existing.Tags,
		Category:       existing.Category,
		Context:        existing.Context,
		LinkedProfiles: linked,
	})
}

// Delete removes a Document, cascading to its chunks in the vector index and
// its links in the profile store.
func (kb *KnowledgeBase) Delete(ctx context.Context, documentID string) error {
	doc, err := kb.docs.Get(ctx, documentID)
	if err != nil {
		return err
	}
	for i := 0; i < doc.ChunkCount; i++ {
		if err := kb.index.Delete(ctx, chunkID(documentID, i)); err != nil {
			return err
		}
	}
	if err := kb.profiles.OnDocumentDeleted(ctx, documentID); err != nil {
		return err
	}
	return kb.docs.Delete(ctx, documentID)
}

// SearchInput parameterizes a hybrid retrieval.
type SearchInput struct {
	QueryTexts []string // original claim text plus optional rewrites
	Filter     vectorindex.Filter
	K          int
	MinScore   float64
}

// SearchHit is one retrieval result. Search fills ChunkID, Score and
// DocumentID only; Excerpt is left empty because the vector index stores no
// chunk text.
type SearchHit struct {
	ChunkID    string
	Score      float64
	DocumentID string
	Excerpt    string
}

// Search embeds each query text, queries the vector index for each, and
// merges results by taking the max score per chunk id — the higher-recall
// variant used by the validator when it supplies a claim plus a rewrite.
func (kb *KnowledgeBase) Search(ctx context.Context, in SearchInput) ([]SearchHit, error) {
	if len(in.QueryTexts) == 0 {
		return nil, apperr.InvalidInput("search requires at least one query text")
	}
	k := in.K
	if k <= 0 {
		k = kb.config().DefaultTopK
	}
	minScore := in.MinScore
	if minScore <= 0 {
		minScore = kb.config().DefaultMinScore
	}

	vectors := make([][]float32, len(in.QueryTexts))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range in.QueryTexts {
		i, q := i, q
		g.Go(func() error {
			v, err := kb.embedder.Embed(gctx, q)
			if err != nil {
				return apperr.Wrap(apperr.KindAdapterFailure, "embed query", err)
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]vectorindex.Result)
	for _, v := range vectors {
		results, err := kb.index.Search(ctx, v, k, in.Filter, minScore)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindRetrievalError, "vector search", err)
		}
		for _, r := range results {
			if existing, ok := merged[r.ChunkID]; !ok || r.Score > existing.Score {
				merged[r.ChunkID] = r
			}
		}
	}

	hits := make([]SearchHit, 0, len(merged))
	for id, r := range merged {
		hits = append(hits, SearchHit{ChunkID: id, Score: r.Score, DocumentID: r.Metadata.DocumentID})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// GetDocument returns a Document with its linked profiles hydrated.
func (kb *KnowledgeBase) GetDocument(ctx context.Context, id string) (*coretypes.Document, error) {
	doc, err := kb.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.LinkedProfiles, err = kb.profiles.LinkedProfiles(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns every Document with linked profiles hydrated.
func (kb *KnowledgeBase) ListDocuments(ctx context.Context) ([]coretypes.Document, error) {
	docs, err := kb.docs.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].LinkedProfiles, err = kb.profiles.LinkedProfiles(ctx, docs[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return docs, nil
}
