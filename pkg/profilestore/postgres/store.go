package postgres

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/claimwright/internal/apperr"
	"github.com/MrWong99/claimwright/pkg/coretypes"
	"github.com/MrWong99/claimwright/pkg/profilestore"
)

// Store is a Postgres-backed profilestore.Store. Cross-profile link
// operations (Link, Unlink, OnDocumentDeleted) serialize on linkMu, held for
// the duration of the underlying transaction, matching the fixed
// "global link mutex" policy for the Profile Store's shared resource.
type Store struct {
	pool  *pgxpool.Pool
	linkMu sync.Mutex
}

var _ profilestore.Store = (*Store)(nil)

// New establishes a connection pool to dsn and runs Migrate.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "profilestore postgres: create pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperr.Wrap(apperr.KindInternal, "profilestore postgres: ping", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() { s.pool.Close() }

// Ping satisfies health.Pinger for the readiness check.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// CreateProfile implements profilestore.Store.
func (s *Store) CreateProfile(ctx context.Context, p coretypes.Profile) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO profiles (id, kind, display_name, description, tags, client_type, brand_values, person_role, person_org)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := s.pool.Exec(ctx, q, p.ID, p.Kind, p.DisplayName, p.Description, p.Tags, p.ClientType, p.BrandValues, p.PersonRole, p.PersonOrg)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "create profile", err)
	}
	return p.ID, nil
}

// GetProfile implements profilestore.Store.
func (s *Store) GetProfile(ctx context.Context, id string) (*coretypes.Profile, error) {
	const q = `
		SELECT id, kind, display_name, description, tags, client_type, brand_values, person_role, person_org
		FROM profiles WHERE id = $1`
	var p coretypes.Profile
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&p.ID, &p.Kind, &p.DisplayName, &p.Description, &p.Tags,
		&p.ClientType, &p.BrandValues, &p.PersonRole, &p.PersonOrg,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperr.NotFound("profile %q not found", id)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "get profile", err)
	}

	facts, err := s.factsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Facts = facts

	docs, err := s.LinkedDocuments(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Documents = docs

	return &p, nil
}

func (s *Store) factsFor(ctx context.Context, profileID string) ([]coretypes.Fact, error) {
	const q = `
		SELECT id, profile_id, statement, source_ref, confidence, verified, created_at
		FROM facts WHERE profile_id = $1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, q, profileID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list facts", err)
	}
	facts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (coretypes.Fact, error) {
		var f coretypes.Fact
		err := row.Scan(&f.ID, &f.ProfileID, &f.Statement, &f.SourceRef, &f.Confidence, &f.Verified, &f.CreatedAt)
		return f, err
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "scan facts", err)
	}
	return facts, nil
}

// ListProfiles implements profilestore.Store.
func (s *Store) ListProfiles(ctx context.Context, kind coretypes.ProfileKind, tagFilter []string) ([]coretypes.Profile, error) {
	q := `SELECT id FROM profiles WHERE ($1 = '' OR kind = $1) AND ($2::text[] IS NULL OR tags @> $2)`
	var tagsArg any
	if len(tagFilter) > 0 {
		tagsArg = tagFilter
	}
	rows, err := s.pool.Query(ctx, q, string(kind), tagsArg)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list profiles", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "scan profile ids", err)
	}

	out := make([]coretypes.Profile, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetProfile(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// DeleteProfile implements profilestore.Store.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	// ON DELETE CASCADE on facts and document_profile_links keeps both
	// facts and the link relation consistent automatically.
	_, err := s.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete profile", err)
	}
	return nil
}

// AddFact implements profilestore.Store.
func (s *Store) AddFact(ctx context.Context, profileID string, f coretypes.Fact) (string, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO facts (id, profile_id, statement, source_ref, confidence, verified)
		VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := s.pool.Exec(ctx, q, f.ID, profileID, f.Statement, f.SourceRef, f.Confidence, f.Verified)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "add fact", err)
	}
	return f.ID, nil
}

// RemoveFact implements profilestore.Store.
func (s *Store) RemoveFact(ctx context.Context, profileID, factID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM facts WHERE id = $1 AND profile_id = $2`, factID, profileID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "remove fact", err)
	}
	return nil
}

// Link implements profilestore.Store. Idempotent: a repeated Link for the
// same pair is a no-op via ON CONFLICT DO NOTHING.
func (s *Store) Link(ctx context.Context, documentID, profileID string) error {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()

	const q = `
		INSERT INTO document_profile_links (document_id, profile_id)
		VALUES ($1, $2)
		ON CONFLICT (document_id, profile_id) DO NOTHING`
	_, err := s.pool.Exec(ctx, q, documentID, profileID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "link document to profile", err)
	}
	return nil
}

// Unlink implements profilestore.Store. Idempotent.
func (s *Store) Unlink(ctx context.Context, documentID, profileID string) error {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()

	_, err := s.pool.Exec(ctx, `DELETE FROM document_profile_links WHERE document_id = $1 AND profile_id = $2`, documentID, profileID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "unlink document from profile", err)
	}
	return nil
}

// LinkedDocuments implements profilestore.Store.
func (s *Store) LinkedDocuments(ctx context.Context, profileID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT document_id FROM document_profile_links WHERE profile_id = $1 ORDER BY document_id`, profileID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "linked documents", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "scan linked documents", err)
	}
	return ids, nil
}

// LinkedProfiles implements profilestore.Store.
func (s *Store) LinkedProfiles(ctx context.Context, documentID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT profile_id FROM document_profile_links WHERE document_id = $1 ORDER BY profile_id`, documentID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "linked profiles", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "scan linked profiles", err)
	}
	return ids, nil
}

// OnDocumentDeleted implements profilestore.Store.
func (s *Store) OnDocumentDeleted(ctx context.Context, documentID string) error {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()

	_, err := s.pool.Exec(ctx, `DELETE FROM document_profile_links WHERE document_id = $1`, documentID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "remove links for deleted document", err)
	}
	return nil
}

// RepairOrphanLinks implements profilestore.Store. The link graph is a
// single relation rather than mirrored fields on both sides (see package
// doc), so asymmetric links cannot occur structurally; this sweep only
// prunes links whose profile no longer exists, which ON DELETE CASCADE
// already prevents in the common case but a sweep guards against rows left
// by an out-of-band migration.
func (s *Store) RepairOrphanLinks(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM document_profile_links l
		WHERE NOT EXISTS (SELECT 1 FROM profiles p WHERE p.id = l.profile_id)`)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "repair orphan links", err)
	}
	return int(tag.RowsAffected()), nil
}
