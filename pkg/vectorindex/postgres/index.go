package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/MrWong99/claimwright/internal/apperr"
	"github.com/MrWong99/claimwright/pkg/vectorindex"
)

// Index is a pgvector-backed vectorindex.Index. Obtain one via New rather
// than constructing directly. All methods are safe for concurrent use.
type Index struct {
	pool       *pgxpool.Pool
	dimensions int
}

var _ vectorindex.Index = (*Index)(nil)

// New establishes a connection pool to dsn, registers pgvector types on
// every connection, and runs Migrate so the chunks table and HNSW index
// exist before first use.
func New(ctx context.Context, dsn string, dimensions int) (*Index, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("vectorindex postgres: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("vectorindex postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("vectorindex postgres: ping: %w", err)
	}
	if err := Migrate(ctx, pool, dimensions); err != nil {
		pool.Close()
		return nil, err
	}

	return &Index{pool: pool, dimensions: dimensions}, nil
}

// Close releases all connections held by the underlying pool.
func (idx *Index) Close() {
	idx.pool.Close()
}

// Ping satisfies health.Pinger for the readiness check.
func (idx *Index) Ping(ctx context.Context) error {
	return idx.pool.Ping(ctx)
}

// Dimensions implements vectorindex.Index.
func (idx *Index) Dimensions() int { return idx.dimensions }

// Upsert implements vectorindex.Index.
func (idx *Index) Upsert(ctx context.Context, chunkID string, vector []float32, meta vectorindex.Metadata) error {
	if len(vector) != idx.dimensions {
		return apperr.New(apperr.KindDimensionMismatch,
			fmt.Sprintf("vector has %d dimensions, index expects %d", len(vector), idx.dimensions))
	}

	const q = `
		INSERT INTO chunks (id, document_id, embedding, tags, category, linked_profiles)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
		    document_id     = EXCLUDED.document_id,
		    embedding       = EXCLUDED.embedding,
		    tags            = EXCLUDED.tags,
		    category        = EXCLUDED.category,
		    linked_profiles = EXCLUDED.linked_profiles`

	vec := pgvector.NewVector(vector)
	_, err := idx.pool.Exec(ctx, q, chunkID, meta.DocumentID, vec, meta.Tags, meta.Category, meta.LinkedProfiles)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "vectorindex upsert", err)
	}
	return nil
}

// Delete implements vectorindex.Index.
func (idx *Index) Delete(ctx context.Context, chunkID string) error {
	_, err := idx.pool.Exec(ctx, `DELETE FROM chunks WHERE id = $1`, chunkID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "vectorindex delete", err)
	}
	return nil
}

// Search implements vectorindex.Index. Score is derived from pgvector's
// cosine distance operator as 1 - distance, clamped to [0,1]. Ties are
// broken by chunk id for deterministic results, per the contract that
// search must be deterministic for a given index snapshot.
func (idx *Index) Search(ctx context.Context, vector []float32, k int, filter vectorindex.Filter, minScore float64) ([]vectorindex.Result, error) {
	if len(vector) != idx.dimensions {
		return nil, apperr.New(apperr.KindDimensionMismatch,
			fmt.Sprintf("query vector has %d dimensions, index expects %d", len(vector), idx.dimensions))
	}

	queryVec := pgvector.NewVector(vector)
	args := []any{queryVec}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var conditions []string
	if filter.Category != "" {
		conditions = append(conditions, "category = "+next(filter.Category))
	}
	if len(filter.Tags) > 0 {
		conditions = append(conditions, "tags @> "+next(filter.Tags))
	}
	if len(filter.LinkedProfiles) > 0 {
		conditions = append(conditions, "linked_profiles && "+next(filter.LinkedProfiles))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, "\n  AND ")
	}

	args = append(args, k)
	limitArg := fmt.Sprintf("$%d", len(args))

	q := fmt.Sprintf(`
		SELECT id, document_id, tags, category, linked_profiles,
		       1 - (embedding <=> $1) AS score
		FROM   chunks
		%s
		ORDER  BY score DESC, id ASC
		LIMIT  %s`, whereClause, limitArg)

	rows, err := idx.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "vectorindex search", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (vectorindex.Result, error) {
		var r vectorindex.Result
		if err := row.Scan(
			&r.ChunkID,
			&r.Metadata.DocumentID,
			&r.Metadata.Tags,
			&r.Metadata.Category,
			&r.Metadata.LinkedProfiles,
			&r.Score,
		); err != nil {
			return vectorindex.Result{}, err
		}
		return r, nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "vectorindex scan rows", err)
	}

	filtered := results[:0]
	for _, r := range results {
		if r.Score < 0 {
			r.Score = 0
		} else if r.Score > 1 {
			r.Score = 1
		}
		if r.Score >= minScore {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// Rebuild implements vectorindex.Index. Because Postgres durably persists
// chunks and the HNSW index is maintained incrementally by the server, a
// full rebuild reindexes in place rather than replaying a write-ahead log.
func (idx *Index) Rebuild(ctx context.Context) error {
	_, err := idx.pool.Exec(ctx, `REINDEX INDEX CONCURRENTLY idx_chunks_embedding`)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "vectorindex rebuild", err)
	}
	return nil
}
