// Package twitter drives the X API v2 (OAuth2 with PKCE).
package twitter

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/highshift/highshift/internal/platform"
)

const Name = "twitter"

var defaultScopes = []string{"tweet.read", "tweet.write", "users.read", "offline.access"}

type Config struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	AuthBase     string // override for tests
	APIBase      string // override for tests
	HTTPClient   platform.Doer
}

type Adapter struct {
	cfg      Config
	authBase string
	apiBase  string
}

func New(cfg Config) *Adapter {
	a := &Adapter{cfg: cfg, authBase: cfg.AuthBase, apiBase: cfg.APIBase}
	if a.authBase == "" {
		a.authBase = "https://twitter.com"
	}
	if a.apiBase == "" {
		a.apiBase = "https://api.twitter.com"
	}
	if len(a.cfg.Scopes) == 0 {
		a.cfg.Scopes = defaultScopes
	}
	return a
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Capabilities() platform.Capabilities {
	return platform.Capabilities{
		Refresh:     true,
		PublishText: true,
		MaxTextLen:  280,
	}
}

func (a *Adapter) AuthorizationURL(redirectURI, state, codeChallenge string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", a.cfg.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", strings.Join(a.cfg.Scopes, " "))
	q.Set("state", state)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "S256")
	return a.authBase + "/i/oauth2/authorize?" + q.Encode()
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

func (a *Adapter) ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*platform.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", a.cfg.ClientID)
	form.Set("redirect_uri", redirectURI)
	form.Set("code", code)
	form.Set("code_verifier", codeVerifier)
	return a.tokenCall(ctx, form)
}

func (a *Adapter) RefreshGrant(ctx context.Context, refreshToken string) (*platform.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", a.cfg.ClientID)
	return a.tokenCall(ctx, form)
}

func (a *Adapter) tokenCall(ctx context.Context, form url.Values) (*platform.TokenGrant, error) {
	var res tokenResponse
	err := platform.PostForm(ctx, a.cfg.HTTPClient, Name, a.apiBase+"/2/oauth2/token", a.basicAuth(), form, &res)
	if err != nil {
		return nil, err
	}
	return grantFrom(res), nil
}

func (a *Adapter) basicAuth() http.Header {
	creds := base64.StdEncoding.EncodeToString([]byte(a.cfg.ClientID + ":" + a.cfg.ClientSecret))
	h := http.Header{}
	h.Set("Authorization", "Basic "+creds)
	return h
}

func grantFrom(res tokenResponse) *platform.TokenGrant {
	g := &platform.TokenGrant{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	}
	if res.ExpiresIn > 0 {
		g.ExpiresAt = time.Now().Add(time.Duration(res.ExpiresIn) * time.Second).UTC()
	}
	if res.Scope != "" {
		g.Scopes = strings.Fields(res.Scope)
	}
	return g
}

func (a *Adapter) FetchProfile(ctx context.Context, accessToken string) (*platform.Profile, error) {
	var res struct {
		Data struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Username string `json:"username"`
		} `json:"data"`
	}
	err := platform.GetJSON(ctx, a.cfg.HTTPClient, Name, a.apiBase+"/2/users/me", platform.BearerHeader(accessToken), &res)
	if err != nil {
		return nil, err
	}
	return &platform.Profile{
		ExternalAccountID: res.Data.ID,
		Username:          res.Data.Username,
		DisplayName:       res.Data.Name,
	}, nil
}

func (a *Adapter) PublishText(ctx context.Context, accessToken, externalAccountID, text string) (*platform.Receipt, error) {
	var res struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	body := map[string]string{"text": text}
	err := platform.PostJSON(ctx, a.cfg.HTTPClient, Name, a.apiBase+"/2/tweets", platform.BearerHeader(accessToken), body, &res)
	if err != nil {
		return nil, err
	}
	return &platform.Receipt{
		PostID:  res.Data.ID,
		PostURL: "https://twitter.com/i/web/status/" + res.Data.ID,
	}, nil
}

func (a *Adapter) PublishImage(ctx context.Context, accessToken, externalAccountID, caption string, imageURLs []string) (*platform.Receipt, error) {
	return nil, platform.ErrNotImplemented(Name, "image publishing")
}
