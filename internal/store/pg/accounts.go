package pg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/highshift/highshift/internal/store/core"
)

const accountCols = `id, identity_id, platform, external_account_id, username, display_name,
	access_token_enc, refresh_token_enc, token_expires_at, scopes, raw_profile, created_at, updated_at`

func (s *Store) UpsertLinkedAccount(ctx context.Context, acct *core.LinkedAccount) error {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO linked_accounts (id, identity_id, platform, external_account_id, username,
			display_name, access_token_enc, refresh_token_enc, token_expires_at, scopes, raw_profile,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (identity_id, platform, external_account_id) DO UPDATE SET
			username = EXCLUDED.username,
			display_name = EXCLUDED.display_name,
			access_token_enc = EXCLUDED.access_token_enc,
			refresh_token_enc = EXCLUDED.refresh_token_enc,
			token_expires_at = EXCLUDED.token_expires_at,
			scopes = EXCLUDED.scopes,
			raw_profile = EXCLUDED.raw_profile,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`
	var expires *time.Time
	if !acct.TokenExpiresAt.IsZero() {
		expires = &acct.TokenExpiresAt
	}
	err := s.pool.QueryRow(ctx, q,
		acct.ID, acct.IdentityID, acct.Platform, acct.ExternalAccountID, acct.Username,
		acct.DisplayName, acct.AccessTokenEnc, acct.RefreshTokenEnc, expires,
		acct.Scopes, acct.RawProfile,
	).Scan(&acct.ID, &acct.CreatedAt, &acct.UpdatedAt)
	return mapErr(err)
}

func (s *Store) GetLinkedAccount(ctx context.Context, accountID string) (*core.LinkedAccount, error) {
	const q = `SELECT ` + accountCols + ` FROM linked_accounts WHERE id = $1`
	return scanAccount(s.pool.QueryRow(ctx, q, accountID))
}

func (s *Store) FindLinkedAccounts(ctx context.Context, identityID, platform, externalAccountID string) ([]*core.LinkedAccount, error) {
	q := `SELECT ` + accountCols + `
		FROM linked_accounts
		WHERE identity_id = $1 AND lower(platform) = lower($2)`
	args := []any{identityID, platform}
	if externalAccountID != "" {
		q += ` AND external_account_id = $3`
		args = append(args, externalAccountID)
	}
	q += ` ORDER BY platform, created_at`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (s *Store) ListLinkedAccounts(ctx context.Context, identityID string) ([]*core.LinkedAccount, error) {
	const q = `SELECT ` + accountCols + `
		FROM linked_accounts WHERE identity_id = $1 ORDER BY platform, created_at`
	rows, err := s.pool.Query(ctx, q, identityID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (s *Store) UpdateLinkedAccountTokens(ctx context.Context, accountID, accessEnc, refreshEnc string, expiresAt time.Time) error {
	const q = `
		UPDATE linked_accounts
		SET access_token_enc = $2, refresh_token_enc = $3, token_expires_at = $4, updated_at = NOW()
		WHERE id = $1`
	var expires *time.Time
	if !expiresAt.IsZero() {
		expires = &expiresAt
	}
	ct, err := s.pool.Exec(ctx, q, accountID, accessEnc, refreshEnc, expires)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) RemoveLinkedAccount(ctx context.Context, identityID, accountID string) error {
	const q = `DELETE FROM linked_accounts WHERE id = $1 AND identity_id = $2`
	ct, err := s.pool.Exec(ctx, q, accountID, identityID)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*core.LinkedAccount, error) {
	var (
		a       core.LinkedAccount
		expires *time.Time
	)
	err := row.Scan(&a.ID, &a.IdentityID, &a.Platform, &a.ExternalAccountID, &a.Username,
		&a.DisplayName, &a.AccessTokenEnc, &a.RefreshTokenEnc, &expires, &a.Scopes,
		&a.RawProfile, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	if expires != nil {
		a.TokenExpiresAt = *expires
	}
	return &a, nil
}

func collectAccounts(rows pgx.Rows) ([]*core.LinkedAccount, error) {
	var out []*core.LinkedAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, mapErr(rows.Err())
}
