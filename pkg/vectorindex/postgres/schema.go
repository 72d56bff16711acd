// Package postgres provides a pgvector-backed Index implementation: chunks
// are stored in a Postgres table with an HNSW cosine-distance index, exactly
// as the teacher's L2 semantic memory layer stores session chunks.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ddlChunks returns the chunks-table DDL with the embedding dimension baked
// into the vector column type.
func ddlChunks(dimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS chunks (
    id              TEXT         PRIMARY KEY,
    document_id     TEXT         NOT NULL,
    embedding       vector(%d),
    tags            TEXT[]       NOT NULL DEFAULT '{}',
    category        TEXT         NOT NULL DEFAULT '',
    linked_profiles TEXT[]       NOT NULL DEFAULT '{}',
    created_at      TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_chunks_document_id
    ON chunks (document_id);

CREATE INDEX IF NOT EXISTS idx_chunks_embedding
    ON chunks USING hnsw (embedding vector_cosine_ops);
`, dimensions)
}

// Migrate creates or ensures the chunks table and pgvector extension exist.
// Idempotent and safe to call on every application start. dimensions must
// match the configured embedding adapter's output size; changing it after
// the first migration requires a manual schema change.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dimensions int) error {
	if _, err := pool.Exec(ctx, ddlChunks(dimensions)); err != nil {
		return fmt.Errorf("vectorindex postgres: migrate: %w", err)
	}
	return nil
}
