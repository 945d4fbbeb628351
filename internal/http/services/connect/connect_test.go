package connect

import (
	"bytes"
	"context"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/highshift/highshift/internal/auth"
	"github.com/highshift/highshift/internal/cache"
	apperrors "github.com/highshift/highshift/internal/http/errors"
	"github.com/highshift/highshift/internal/oauthstate"
	"github.com/highshift/highshift/internal/platform"
	"github.com/highshift/highshift/internal/security/apikey"
	"github.com/highshift/highshift/internal/security/secretbox"
	"github.com/highshift/highshift/internal/store/memory"
)

func TestMain(m *testing.M) {
	secretbox.UnsafeSetMasterKeyForTests(bytes.Repeat([]byte{9}, 32))
	os.Exit(m.Run())
}

type fakeAdapter struct {
	name          string
	lastChallenge string
	exchange      func(code, verifier string) (*platform.TokenGrant, error)
	profile       func() (*platform.Profile, error)
}

func (f *fakeAdapter) Name() string                        { return f.name }
func (f *fakeAdapter) Capabilities() platform.Capabilities { return platform.Capabilities{} }
func (f *fakeAdapter) AuthorizationURL(redirectURI, state, codeChallenge string) string {
	f.lastChallenge = codeChallenge
	q := url.Values{}
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	q.Set("code_challenge", codeChallenge)
	return "https://auth.example/authorize?" + q.Encode()
}
func (f *fakeAdapter) ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*platform.TokenGrant, error) {
	return f.exchange(code, codeVerifier)
}
func (f *fakeAdapter) RefreshGrant(ctx context.Context, refreshToken string) (*platform.TokenGrant, error) {
	return nil, nil
}
func (f *fakeAdapter) FetchProfile(ctx context.Context, accessToken string) (*platform.Profile, error) {
	return f.profile()
}
func (f *fakeAdapter) PublishText(ctx context.Context, accessToken, externalAccountID, text string) (*platform.Receipt, error) {
	return nil, nil
}
func (f *fakeAdapter) PublishImage(ctx context.Context, accessToken, externalAccountID, caption string, imageURLs []string) (*platform.Receipt, error) {
	return nil, nil
}

type fixture struct {
	svc     Service
	repo    *memory.Store
	adapter *fakeAdapter
	signer  *StateSigner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	adapter := &fakeAdapter{
		name: "twitter",
		exchange: func(code, verifier string) (*platform.TokenGrant, error) {
			return &platform.TokenGrant{
				AccessToken:  "at-1",
				RefreshToken: "rt-1",
				ExpiresAt:    time.Now().Add(2 * time.Hour),
				Scopes:       []string{"tweet.read", "tweet.write"},
			}, nil
		},
		profile: func() (*platform.Profile, error) {
			return &platform.Profile{ExternalAccountID: "tw-100", Username: "jane", DisplayName: "Jane"}, nil
		},
	}
	repo := memory.New()
	indexer := apikey.NewIndexer([]byte("index-key"))
	f := &fixture{
		repo:    repo,
		adapter: adapter,
		signer:  NewStateSigner([]byte("signing-key"), oauthstate.TTL),
	}
	f.svc = NewService(Deps{
		Registry: platform.NewRegistry(adapter),
		States:   oauthstate.New(cache.NewMemory("")),
		Resolver: auth.NewLookupResolver(repo, indexer),
		Repo:     repo,
		Signer:   f.signer,
		Indexer:  indexer,
		RedirectURI: func(provider string) string {
			return "https://api.example/connect/" + provider + "/callback"
		},
	})
	return f
}

func TestStartAndCallback_NewIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.svc.Start(ctx, StartRequest{Provider: "twitter"})
	require.NoError(t, err)
	require.NotEmpty(t, started.State)
	require.Contains(t, started.AuthorizationURL, "code_challenge")
	require.NotEmpty(t, f.adapter.lastChallenge)

	res, err := f.svc.Callback(ctx, CallbackRequest{
		Provider: "twitter",
		Code:     "code-1",
		State:    started.State,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.IdentityID)
	require.NotEmpty(t, res.Secret, "first link must hand out the secret")
	require.Equal(t, "tw-100", res.Account.ExternalAccountID)

	// stored tokens are encrypted, not plaintext
	stored, err := f.repo.GetLinkedAccount(ctx, res.Account.ID)
	require.NoError(t, err)
	require.NotEqual(t, "at-1", stored.AccessTokenEnc)
	access, err := secretbox.Decrypt(stored.AccessTokenEnc)
	require.NoError(t, err)
	require.Equal(t, "at-1", access)

	// the persisted identity never stores the secret
	identity, err := f.repo.GetIdentity(ctx, res.IdentityID)
	require.NoError(t, err)
	require.NotContains(t, identity.APIKeyHash, res.Secret)
}

func TestCallback_ExistingIdentityViaSecret(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Start(ctx, StartRequest{Provider: "twitter"})
	require.NoError(t, err)
	linked, err := f.svc.Callback(ctx, CallbackRequest{Provider: "twitter", Code: "c", State: first.State})
	require.NoError(t, err)

	// second link carries the secret and lands on the same identity
	second, err := f.svc.Start(ctx, StartRequest{Provider: "twitter", Secret: linked.Secret})
	require.NoError(t, err)
	res, err := f.svc.Callback(ctx, CallbackRequest{Provider: "twitter", Code: "c", State: second.State})
	require.NoError(t, err)
	require.Equal(t, linked.IdentityID, res.IdentityID)
	require.Empty(t, res.Secret, "relink must not mint a new secret")
}

func TestStart_InvalidSecret(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Start(context.Background(), StartRequest{Provider: "twitter", Secret: "hs_bogus"})
	app := apperrors.From(err)
	require.Equal(t, apperrors.CodeInvalidSecret, app.Code)
}

func TestStart_UnsupportedPlatform(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Start(context.Background(), StartRequest{Provider: "mastodon"})
	app := apperrors.From(err)
	require.Equal(t, apperrors.CodeUnsupportedPlatform, app.Code)
}

func TestCallback_StateReplayRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.svc.Start(ctx, StartRequest{Provider: "twitter"})
	require.NoError(t, err)

	_, err = f.svc.Callback(ctx, CallbackRequest{Provider: "twitter", Code: "c", State: started.State})
	require.NoError(t, err)

	_, err = f.svc.Callback(ctx, CallbackRequest{Provider: "twitter", Code: "c", State: started.State})
	app := apperrors.From(err)
	require.Equal(t, apperrors.CodeInvalidOrExpiredState, app.Code)
}

func TestCallback_TamperedState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.svc.Start(ctx, StartRequest{Provider: "twitter"})
	require.NoError(t, err)

	forged := started.State[:len(started.State)-2] + "xx"
	_, err = f.svc.Callback(ctx, CallbackRequest{Provider: "twitter", Code: "c", State: forged})
	app := apperrors.From(err)
	require.Equal(t, apperrors.CodeInvalidOrExpiredState, app.Code)
}

func TestCallback_ProviderError(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Callback(context.Background(), CallbackRequest{
		Provider:          "twitter",
		ProviderError:     "access_denied",
		ProviderErrorDesc: "user clicked no",
	})
	app := apperrors.From(err)
	require.Equal(t, apperrors.CodeOAuthProviderError, app.Code)
	require.Contains(t, app.Detail, "access_denied")
}

func TestCallback_FailedExchangeConsumesState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.adapter.exchange = func(code, verifier string) (*platform.TokenGrant, error) {
		return nil, platform.NewError("twitter", platform.KindAPI, "boom")
	}

	started, err := f.svc.Start(ctx, StartRequest{Provider: "twitter"})
	require.NoError(t, err)

	_, err = f.svc.Callback(ctx, CallbackRequest{Provider: "twitter", Code: "c", State: started.State})
	require.Error(t, err)

	// the state is burned even though the exchange failed
	f.adapter.exchange = func(code, verifier string) (*platform.TokenGrant, error) {
		return &platform.TokenGrant{AccessToken: "at"}, nil
	}
	_, err = f.svc.Callback(ctx, CallbackRequest{Provider: "twitter", Code: "c", State: started.State})
	app := apperrors.From(err)
	require.Equal(t, apperrors.CodeInvalidOrExpiredState, app.Code)
}

func TestCallback_RelinkIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, _ := f.svc.Start(ctx, StartRequest{Provider: "twitter"})
	linked, err := f.svc.Callback(ctx, CallbackRequest{Provider: "twitter", Code: "c", State: first.State})
	require.NoError(t, err)

	second, _ := f.svc.Start(ctx, StartRequest{Provider: "twitter", Secret: linked.Secret})
	again, err := f.svc.Callback(ctx, CallbackRequest{Provider: "twitter", Code: "c", State: second.State})
	require.NoError(t, err)
	require.Equal(t, linked.Account.ID, again.Account.ID, "same external account must not duplicate")

	accounts, err := f.repo.ListLinkedAccounts(ctx, linked.IdentityID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
}
