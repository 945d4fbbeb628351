// Package linkedin drives the LinkedIn v2 API (OAuth2, UGC posts).
package linkedin

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/highshift/highshift/internal/platform"
)

const Name = "linkedin"

var defaultScopes = []string{"openid", "profile", "email", "w_member_social", "offline_access"}

type Config struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	AuthBase     string
	APIBase      string
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
		a.authBase = "https://www.linkedin.com"
	}
	if a.apiBase == "" {
		a.apiBase = "https://api.linkedin.com"
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
		MaxTextLen:  3000,
	}
}

func (a *Adapter) AuthorizationURL(redirectURI, state, codeChallenge string) string {
	// LinkedIn ignores PKCE parameters; state still binds the callback.
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", a.cfg.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	q.Set("scope", strings.Join(a.cfg.Scopes, " "))
	return a.authBase + "/oauth/v2/authorization?" + q.Encode()
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int64  `json:"refresh_token_expires_in"`
	Scope            string `json:"scope"`
}

func (a *Adapter) ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*platform.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)
	return a.tokenCall(ctx, form)
}

func (a *Adapter) RefreshGrant(ctx context.Context, refreshToken string) (*platform.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)
	return a.tokenCall(ctx, form)
}

func (a *Adapter) tokenCall(ctx context.Context, form url.Values) (*platform.TokenGrant, error) {
	var res tokenResponse
	err := platform.PostForm(ctx, a.cfg.HTTPClient, Name, a.authBase+"/oauth/v2/accessToken", nil, form, &res)
	if err != nil {
		return nil, err
	}
	g := &platform.TokenGrant{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	}
	if res.ExpiresIn > 0 {
		g.ExpiresAt = time.Now().Add(time.Duration(res.ExpiresIn) * time.Second).UTC()
	}
	if res.Scope != "" {
		g.Scopes = strings.Split(res.Scope, ",")
	}
	return g, nil
}

func (a *Adapter) FetchProfile(ctx context.Context, accessToken string) (*platform.Profile, error) {
	var res struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	err := platform.GetJSON(ctx, a.cfg.HTTPClient, Name, a.apiBase+"/v2/userinfo", platform.BearerHeader(accessToken), &res)
	if err != nil {
		return nil, err
	}
	return &platform.Profile{
		ExternalAccountID: res.Sub,
		Username:          res.Email,
		DisplayName:       res.Name,
	}, nil
}

func (a *Adapter) PublishText(ctx context.Context, accessToken, externalAccountID, text string) (*platform.Receipt, error) {
	body := map[string]any{
		"author":         "urn:li:person:" + externalAccountID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]string{"text": text},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}
	header := platform.BearerHeader(accessToken)
	header.Set("X-Restli-Protocol-Version", "2.0.0")

	var res struct {
		ID string `json:"id"`
	}
	err := platform.PostJSON(ctx, a.cfg.HTTPClient, Name, a.apiBase+"/v2/ugcPosts", header, body, &res)
	if err != nil {
		return nil, err
	}
	return &platform.Receipt{
		PostID:  res.ID,
		PostURL: "https://www.linkedin.com/feed/update/" + url.PathEscape(res.ID),
	}, nil
}

func (a *Adapter) PublishImage(ctx context.Context, accessToken, externalAccountID, caption string, imageURLs []string) (*platform.Receipt, error) {
	return nil, platform.ErrNotImplemented(Name, "image publishing")
}
