// Package postgres provides a Postgres-backed profilestore.Store. The
// Document↔Profile link graph is modeled as its own relation table rather
// than mirrored fields on both sides, so the symmetry invariant holds by
// construction instead of by synchronized double writes.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlProfiles = `
CREATE TABLE IF NOT EXISTS profiles (
    id            TEXT         PRIMARY KEY,
    kind          TEXT         NOT NULL,
    display_name  TEXT         NOT NULL,
    description   TEXT         NOT NULL DEFAULT '',
    tags          TEXT[]       NOT NULL DEFAULT '{}',
    client_type   TEXT         NOT NULL DEFAULT '',
    brand_values  TEXT[]       NOT NULL DEFAULT '{}',
    person_role   TEXT         NOT NULL DEFAULT '',
    person_org    TEXT         NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_profiles_kind ON profiles (kind);

CREATE TABLE IF NOT EXISTS facts (
    id          TEXT         PRIMARY KEY,
    profile_id  TEXT         NOT NULL REFERENCES profiles (id) ON DELETE CASCADE,
    statement   TEXT         NOT NULL,
    source_ref  TEXT         NOT NULL DEFAULT '',
    confidence  DOUBLE PRECISION NOT NULL DEFAULT 0,
    verified    BOOLEAN      NOT NULL DEFAULT false,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_facts_profile_id ON facts (profile_id);

CREATE TABLE IF NOT EXISTS document_profile_links (
    document_id TEXT         NOT NULL,
    profile_id  TEXT         NOT NULL REFERENCES profiles (id) ON DELETE CASCADE,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (document_id, profile_id)
);

CREATE INDEX IF NOT EXISTS idx_links_document ON document_profile_links (document_id);
CREATE INDEX IF NOT EXISTS idx_links_profile ON document_profile_links (profile_id);
`

// Migrate creates or ensures the profiles, facts, and link-table schema
// exists. Idempotent; safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlProfiles); err != nil {
		return fmt.Errorf("profilestore postgres: migrate: %w", err)
	}
	return nil
}
