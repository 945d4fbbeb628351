package pg

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/highshift/highshift/internal/store/core"
)

func (s *Store) CreateIdentity(ctx context.Context, id *core.Identity) error {
	if id.ID == "" {
		id.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO identities (id, label, api_key_hash, api_key_lookup, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := s.pool.QueryRow(ctx, q, id.ID, id.Label, id.APIKeyHash, id.APIKeyLookup).
		Scan(&id.CreatedAt, &id.UpdatedAt)
	return mapErr(err)
}

func (s *Store) GetIdentity(ctx context.Context, identityID string) (*core.Identity, error) {
	const q = `
		SELECT id, label, api_key_hash, api_key_lookup, created_at, updated_at
		FROM identities WHERE id = $1`
	return scanIdentity(s.pool.QueryRow(ctx, q, identityID))
}

func (s *Store) FindIdentitiesByLookup(ctx context.Context, lookup string) ([]*core.Identity, error) {
	const q = `
		SELECT id, label, api_key_hash, api_key_lookup, created_at, updated_at
		FROM identities WHERE api_key_lookup = $1`
	rows, err := s.pool.Query(ctx, q, lookup)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectIdentities(rows)
}

func (s *Store) ListIdentities(ctx context.Context) ([]*core.Identity, error) {
	const q = `
		SELECT id, label, api_key_hash, api_key_lookup, created_at, updated_at
		FROM identities ORDER BY created_at`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectIdentities(rows)
}

func (s *Store) RotateIdentityKey(ctx context.Context, identityID, hash, lookup string) error {
	const q = `
		UPDATE identities SET api_key_hash = $2, api_key_lookup = $3, updated_at = NOW()
		WHERE id = $1`
	ct, err := s.pool.Exec(ctx, q, identityID, hash, lookup)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanIdentity(row pgx.Row) (*core.Identity, error) {
	var id core.Identity
	err := row.Scan(&id.ID, &id.Label, &id.APIKeyHash, &id.APIKeyLookup, &id.CreatedAt, &id.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &id, nil
}

func collectIdentities(rows pgx.Rows) ([]*core.Identity, error) {
	var out []*core.Identity
	for rows.Next() {
		var id core.Identity
		if err := rows.Scan(&id.ID, &id.Label, &id.APIKeyHash, &id.APIKeyLookup, &id.CreatedAt, &id.UpdatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, &id)
	}
	return out, mapErr(rows.Err())
}
