// Package keys manages the identity's opaque API secret.
package keys

import (
	"context"
	"time"

	"github.com/highshift/highshift/internal/http/errors"
	"github.com/highshift/highshift/internal/observability/logger"
	"github.com/highshift/highshift/internal/security/apikey"
	"github.com/highshift/highshift/internal/store/core"
)

// Info is the sanitized identity view. It never carries key material.
type Info struct {
	IdentityID     string    `json:"identity_id"`
	Label          string    `json:"label,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LinkedAccounts int       `json:"linked_accounts"`
}

type Service interface {
	// Regenerate replaces the identity's secret and returns the new one.
	// The old secret stops working immediately.
	Regenerate(ctx context.Context, identityID string) (string, error)

	Info(ctx context.Context, identityID string) (*Info, error)
}

type Deps struct {
	Repo    core.Repository
	Indexer *apikey.Indexer
}

func NewService(d Deps) Service { return &service{d: d} }

type service struct{ d Deps }

func (s *service) Regenerate(ctx context.Context, identityID string) (string, error) {
	secret, err := apikey.New()
	if err != nil {
		return "", err
	}
	hash, err := apikey.Hash(apikey.Default, secret)
	if err != nil {
		return "", err
	}
	if err := s.d.Repo.RotateIdentityKey(ctx, identityID, hash, s.d.Indexer.LookupKey(secret)); err != nil {
		return "", errors.MapDomain(err)
	}

	logger.From(ctx).Info("api secret rotated",
		logger.Layer("service"),
		logger.Component("keys.regenerate"),
		logger.IdentityID(identityID),
	)
	return secret, nil
}

func (s *service) Info(ctx context.Context, identityID string) (*Info, error) {
	identity, err := s.d.Repo.GetIdentity(ctx, identityID)
	if err != nil {
		return nil, errors.MapDomain(err)
	}
	accounts, err := s.d.Repo.ListLinkedAccounts(ctx, identityID)
	if err != nil {
		return nil, err
	}
	return &Info{
		IdentityID:     identity.ID,
		Label:          identity.Label,
		CreatedAt:      identity.CreatedAt,
		LinkedAccounts: len(accounts),
	}, nil
}
