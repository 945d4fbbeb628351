// Package auth resolves presented API secrets to identities.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/highshift/highshift/internal/security/apikey"
	"github.com/highshift/highshift/internal/store/core"
)

// ErrInvalidSecret is returned for any secret that resolves to nothing.
// Malformed, unknown and revoked secrets are indistinguishable.
var ErrInvalidSecret = errors.New("auth: invalid secret")

// Resolver maps an opaque secret to the identity that owns it.
type Resolver interface {
	Resolve(ctx context.Context, secret string) (*core.Identity, error)
}

// LookupResolver narrows candidates with the HMAC lookup key, then
// verifies the argon2id hash. Identities created before lookup keys
// existed are covered by a linear fallback scan.
type LookupResolver struct {
	repo    core.IdentityRepository
	indexer *apikey.Indexer
}

func NewLookupResolver(repo core.IdentityRepository, indexer *apikey.Indexer) *LookupResolver {
	return &LookupResolver{repo: repo, indexer: indexer}
}

func (r *LookupResolver) Resolve(ctx context.Context, secret string) (*core.Identity, error) {
	if !strings.HasPrefix(secret, apikey.Prefix) {
		return nil, ErrInvalidSecret
	}

	candidates, err := r.repo.FindIdentitiesByLookup(ctx, r.indexer.LookupKey(secret))
	if err != nil {
		return nil, err
	}
	if id := verifyAgainst(secret, candidates); id != nil {
		return id, nil
	}

	// Legacy rows carry no lookup key and are invisible to the index.
	all, err := r.repo.ListIdentities(ctx)
	if err != nil {
		return nil, err
	}
	legacy := all[:0:0]
	for _, id := range all {
		if id.APIKeyLookup == "" {
			legacy = append(legacy, id)
		}
	}
	if id := verifyAgainst(secret, legacy); id != nil {
		return id, nil
	}
	return nil, ErrInvalidSecret
}

func verifyAgainst(secret string, candidates []*core.Identity) *core.Identity {
	for _, id := range candidates {
		if apikey.Verify(secret, id.APIKeyHash) {
			return id
		}
	}
	return nil
}
