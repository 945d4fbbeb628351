// Package connect coordinates the account-linking OAuth flow: Start
// hands out the consent URL, Callback turns the returning code into an
// encrypted linked account.
package connect

import (
	"context"
	stderrors "errors"
	"strings"

	"go.uber.org/zap"

	"github.com/highshift/highshift/internal/auth"
	"github.com/highshift/highshift/internal/http/errors"
	"github.com/highshift/highshift/internal/observability/logger"
	"github.com/highshift/highshift/internal/oauthstate"
	"github.com/highshift/highshift/internal/platform"
	"github.com/highshift/highshift/internal/security/apikey"
	"github.com/highshift/highshift/internal/security/pkce"
	"github.com/highshift/highshift/internal/security/secretbox"
	"github.com/highshift/highshift/internal/store/core"
)

type StartRequest struct {
	Provider string
	Secret   string // optional: link into an existing identity
	Redirect string // optional: where the dashboard wants the user back
}

type StartResult struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

type CallbackRequest struct {
	Provider          string
	Code              string
	State             string
	ProviderError     string
	ProviderErrorDesc string
}

type CallbackResult struct {
	IdentityID string              `json:"identity_id"`
	Secret     string              `json:"secret,omitempty"` // only on first link
	Account    *core.LinkedAccount `json:"account"`
	Redirect   string              `json:"-"`
}

type Service interface {
	Start(ctx context.Context, req StartRequest) (*StartResult, error)
	Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error)
}

type Deps struct {
	Registry *platform.Registry
	States   *oauthstate.Store
	Resolver auth.Resolver
	Repo     core.Repository
	Signer   *StateSigner
	Indexer  *apikey.Indexer

	// RedirectURI renders the callback URL registered with the provider.
	RedirectURI func(provider string) string
}

func NewService(d Deps) Service { return &service{d: d} }

type service struct{ d Deps }

func (s *service) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	provider := strings.ToLower(req.Provider)
	adapter, err := s.d.Registry.Get(provider)
	if err != nil {
		return nil, errors.ErrUnsupportedPlatform.WithDetail(provider)
	}

	var identityID string
	if req.Secret != "" {
		identity, err := s.d.Resolver.Resolve(ctx, req.Secret)
		if err != nil {
			return nil, errors.ErrInvalidSecret
		}
		identityID = identity.ID
	}

	verifier, err := pkce.NewVerifier()
	if err != nil {
		return nil, err
	}
	jti, err := pkce.NewStateID()
	if err != nil {
		return nil, err
	}

	err = s.d.States.Save(ctx, jti, oauthstate.Record{
		IdentityID:  identityID,
		Platform:    provider,
		Verifier:    verifier,
		RedirectURI: req.Redirect,
	})
	if err != nil {
		return nil, err
	}

	state, err := s.d.Signer.Sign(jti, provider)
	if err != nil {
		return nil, err
	}

	logger.From(ctx).Info("oauth flow started",
		logger.Layer("service"),
		logger.Component("connect.start"),
		logger.Platform(provider),
	)
	return &StartResult{
		AuthorizationURL: adapter.AuthorizationURL(s.d.RedirectURI(provider), state, pkce.Challenge(verifier)),
		State:            state,
	}, nil
}

func (s *service) Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error) {
	provider := strings.ToLower(req.Provider)
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("connect.callback"),
		logger.Platform(provider),
	)

	if req.ProviderError != "" {
		detail := req.ProviderError
		if req.ProviderErrorDesc != "" {
			detail += ": " + req.ProviderErrorDesc
		}
		return nil, errors.ErrOAuthProvider.WithDetail(detail)
	}

	adapter, err := s.d.Registry.Get(provider)
	if err != nil {
		return nil, errors.ErrUnsupportedPlatform.WithDetail(provider)
	}
	if req.Code == "" || req.State == "" {
		return nil, errors.ErrValidation.WithDetail("code and state are required")
	}

	jti, stateProvider, err := s.d.Signer.Verify(req.State)
	if err != nil || stateProvider != provider {
		return nil, errors.ErrInvalidOrExpiredState
	}

	// Consume removes the record whether or not the exchange below
	// succeeds, so a failed callback cannot be retried with the same state.
	rec, err := s.d.States.Consume(ctx, jti)
	if err != nil {
		if stderrors.Is(err, oauthstate.ErrNotFound) {
			return nil, errors.ErrInvalidOrExpiredState
		}
		return nil, err
	}
	if rec.Platform != provider {
		return nil, errors.ErrInvalidOrExpiredState
	}

	grant, err := adapter.ExchangeCode(ctx, req.Code, s.d.RedirectURI(provider), rec.Verifier)
	if err != nil {
		log.Warn("code exchange failed", zap.Error(err))
		return nil, errors.MapDomain(err)
	}

	profile, err := adapter.FetchProfile(ctx, grant.AccessToken)
	if err != nil {
		log.Warn("profile fetch failed", zap.Error(err))
		return nil, errors.MapDomain(err)
	}

	identityID := rec.IdentityID
	var freshSecret string
	if identityID == "" {
		identity, secret, err := s.createIdentity(ctx)
		if err != nil {
			return nil, err
		}
		identityID = identity.ID
		freshSecret = secret
	}

	accessEnc, err := secretbox.Encrypt(grant.AccessToken)
	if err != nil {
		return nil, err
	}
	var refreshEnc string
	if grant.RefreshToken != "" {
		refreshEnc, err = secretbox.Encrypt(grant.RefreshToken)
		if err != nil {
			return nil, err
		}
	}

	acct := &core.LinkedAccount{
		IdentityID:        identityID,
		Platform:          provider,
		ExternalAccountID: profile.ExternalAccountID,
		Username:          profile.Username,
		DisplayName:       profile.DisplayName,
		AccessTokenEnc:    accessEnc,
		RefreshTokenEnc:   refreshEnc,
		TokenExpiresAt:    grant.ExpiresAt,
		Scopes:            grant.Scopes,
		RawProfile:        profile.Raw,
	}
	if err := s.d.Repo.UpsertLinkedAccount(ctx, acct); err != nil {
		return nil, err
	}

	log.Info("account linked",
		logger.IdentityID(identityID),
		logger.AccountID(acct.ID),
		logger.String("external_account_id", profile.ExternalAccountID),
	)
	return &CallbackResult{
		IdentityID: identityID,
		Secret:     freshSecret,
		Account:    acct,
		Redirect:   rec.RedirectURI,
	}, nil
}

// createIdentity mints an identity with a fresh secret. The plaintext
// secret is returned exactly once; only hash and lookup key persist.
func (s *service) createIdentity(ctx context.Context) (*core.Identity, string, error) {
	secret, err := apikey.New()
	if err != nil {
		return nil, "", err
	}
	hash, err := apikey.Hash(apikey.Default, secret)
	if err != nil {
		return nil, "", err
	}
	identity := &core.Identity{
		APIKeyHash:   hash,
		APIKeyLookup: s.d.Indexer.LookupKey(secret),
	}
	if err := s.d.Repo.CreateIdentity(ctx, identity); err != nil {
		return nil, "", err
	}
	return identity, secret, nil
}
