// Package postgres provides a Postgres-backed docstore.DocumentStore.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/claimwright/internal/apperr"
	"github.com/MrWong99/claimwright/internal/knowledgebase/docstore"
	"github.com/MrWong99/claimwright/pkg/coretypes"
)

const ddlDocuments = `
CREATE TABLE IF NOT EXISTS documents (
    id           TEXT         PRIMARY KEY,
    filename     TEXT         NOT NULL,
    mime_kind    TEXT         NOT NULL,
    size_bytes   BIGINT       NOT NULL DEFAULT 0,
    ingested_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    tags         TEXT[]       NOT NULL DEFAULT '{}',
    category     TEXT         NOT NULL DEFAULT '',
    context      TEXT         NOT NULL DEFAULT '',
    chunk_count  INT          NOT NULL DEFAULT 0
);
`

// Store is a Postgres-backed docstore.DocumentStore.
type Store struct {
	pool *pgxpool.Pool
}

var _ docstore.DocumentStore = (*Store)(nil)

// New establishes a connection pool to dsn and ensures the documents table
// exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "docstore postgres: create pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperr.Wrap(apperr.KindInternal, "docstore postgres: ping", err)
	}
	if _, err := pool.Exec(ctx, ddlDocuments); err != nil {
		pool.Close()
		return nil, apperr.Wrap(apperr.KindInternal, "docstore postgres: migrate", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() { s.pool.Close() }

// Ping satisfies health.Pinger for the readiness check.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Put implements docstore.DocumentStore.
func (s *Store) Put(ctx context.Context, d coretypes.Document) error {
	const q = `
		INSERT INTO documents (id, filename, mime_kind, size_bytes, ingested_at, tags, category, context, chunk_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
		    filename = EXCLUDED.filename, mime_kind = EXCLUDED.mime_kind,
		    size_bytes = EXCLUDED.size_bytes, tags = EXCLUDED.tags,
		    category = EXCLUDED.category, context = EXCLUDED.context,
		    chunk_count = EXCLUDED.chunk_count`
	_, err := s.pool.Exec(ctx, q, d.ID, d.Filename, d.MIMEKind, d.SizeBytes, d.IngestedAt, d.Tags, d.Category, d.Context, d.ChunkCount)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "put document", err)
	}
	return nil
}

// Get implements docstore.DocumentStore.
func (s *Store) Get(ctx context.Context, id string) (*coretypes.Document, error) {
	const q = `SELECT id, filename, mime_kind, size_bytes, ingested_at, tags, category, context, chunk_count FROM documents WHERE id = $1`
	var d coretypes.Document
	err := s.pool.QueryRow(ctx, q, id).Scan(&d.ID, &d.Filename, &d.MIMEKind, &d.SizeBytes, &d.IngestedAt, &d.Tags, &d.Category, &d.Context, &d.ChunkCount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperr.NotFound("document %q not found", id)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "get document", err)
	}
	return &d, nil
}

// List implements docstore.DocumentStore.
func (s *Store) List(ctx context.Context) ([]coretypes.Document, error) {
	const q = `SELECT id, filename, mime_kind, size_bytes, ingested_at, tags, category, context, chunk_count FROM documents ORDER BY id`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list documents", err)
	}
	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (coretypes.Document, error) {
		var d coretypes.Document
		err := row.Scan(&d.ID, &d.Filename, &d.MIMEKind, &d.SizeBytes, &d.IngestedAt, &d.Tags, &d.Category, &d.Context, &d.ChunkCount)
		return d, err
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "scan documents", err)
	}
	return docs, nil
}

// Delete implements docstore.DocumentStore.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete document", err)
	}
	return nil
}
