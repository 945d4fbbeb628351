// Package vault is the only place access tokens exist in plaintext.
// Callers ask for a usable token by linked account id; the vault
// decrypts, refreshes expiring grants, and re-encrypts before handing
// the token out.
package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/highshift/highshift/internal/observability/logger"
	"github.com/highshift/highshift/internal/platform"
	"github.com/highshift/highshift/internal/security/secretbox"
	"github.com/highshift/highshift/internal/store/core"
)

// DefaultMargin is subtracted from the token expiry: a token inside the
// margin is treated as already expired so it never dies mid-call.
const DefaultMargin = 60 * time.Second

var (
	// ErrExpiredNoRefresh means the grant is expired and the platform
	// issued no refresh token, so only the user can re-link.
	ErrExpiredNoRefresh = errors.New("vault: token expired and no refresh token on file")

	// ErrRefreshFailed wraps a provider rejection of the refresh attempt.
	ErrRefreshFailed = errors.New("vault: token refresh failed")
)

type Deps struct {
	Repo     core.LinkedAccountRepository
	Registry *platform.Registry
	Margin   time.Duration
	Now      func() time.Time
}

// Vault serializes refreshes per account so concurrent callers trigger
// at most one provider round-trip.
type Vault struct {
	d Deps

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(d Deps) *Vault {
	if d.Margin <= 0 {
		d.Margin = DefaultMargin
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Vault{d: d, locks: make(map[string]*sync.Mutex)}
}

// AccessToken returns a decrypted token valid for at least the margin.
func (v *Vault) AccessToken(ctx context.Context, accountID string) (string, error) {
	acct, err := v.d.Repo.GetLinkedAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	if token, ok, err := v.usable(acct); err != nil || ok {
		return token, err
	}

	lock := v.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	// Someone else may have refreshed while we waited for the lock.
	acct, err = v.d.Repo.GetLinkedAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	if token, ok, err := v.usable(acct); err != nil || ok {
		return token, err
	}

	return v.refresh(ctx, acct)
}

// usable decrypts and returns the current token when it is still good.
func (v *Vault) usable(acct *core.LinkedAccount) (string, bool, error) {
	if !v.fresh(acct) {
		return "", false, nil
	}
	token, err := secretbox.Decrypt(acct.AccessTokenEnc)
	if err != nil {
		return "", false, fmt.Errorf("vault: decrypt access token: %w", err)
	}
	return token, true, nil
}

// fresh reports whether the stored token survives past the margin. A
// zero expiry means the token does not expire.
func (v *Vault) fresh(acct *core.LinkedAccount) bool {
	if acct.TokenExpiresAt.IsZero() {
		return true
	}
	return v.d.Now().Add(v.d.Margin).Before(acct.TokenExpiresAt)
}

func (v *Vault) refresh(ctx context.Context, acct *core.LinkedAccount) (string, error) {
	log := logger.From(ctx).With(
		logger.Layer("vault"),
		logger.AccountID(acct.ID),
		logger.Platform(acct.Platform),
	)

	if !acct.HasRefreshToken() {
		log.Warn("grant expired with no refresh token")
		return "", ErrExpiredNoRefresh
	}

	adapter, err := v.d.Registry.Get(acct.Platform)
	if err != nil {
		return "", err
	}
	refreshToken, err := secretbox.Decrypt(acct.RefreshTokenEnc)
	if err != nil {
		return "", fmt.Errorf("vault: decrypt refresh token: %w", err)
	}

	grant, err := adapter.RefreshGrant(ctx, refreshToken)
	if err != nil {
		log.Warn("provider rejected refresh", zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	// Providers may omit the refresh token on rotation; keep the old one.
	newRefresh := grant.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}

	accessEnc, err := secretbox.Encrypt(grant.AccessToken)
	if err != nil {
		return "", err
	}
	refreshEnc, err := secretbox.Encrypt(newRefresh)
	if err != nil {
		return "", err
	}

	// The re-encrypted grant must land in storage before the token is
	// released to the caller.
	if err := v.d.Repo.UpdateLinkedAccountTokens(ctx, acct.ID, accessEnc, refreshEnc, grant.ExpiresAt); err != nil {
		return "", err
	}
	log.Info("grant refreshed", zap.Time("expires_at", grant.ExpiresAt))
	return grant.AccessToken, nil
}

func (v *Vault) accountLock(accountID string) *sync.Mutex {
	v.mu.Lock()
	defer v.mu.Unlock()

	lock, ok := v.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		v.locks[accountID] = lock
	}
	return lock
}
