// Package facebook drives the Facebook Graph API. Publishing goes
// through a managed page; the adapter resolves the page from the user
// grant and swaps to the page access token per call.
package facebook

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/highshift/highshift/internal/platform"
)

const Name = "facebook"

const graphVersion = "v19.0"

var defaultScopes = []string{"pages_show_list", "pages_read_engagement", "pages_manage_posts"}

type Config struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	AuthBase     string
	GraphBase    string
	HTTPClient   platform.Doer
}

type Adapter struct {
	cfg       Config
	authBase  string
	graphBase string
}

func New(cfg Config) *Adapter {
	a := &Adapter{cfg: cfg, authBase: cfg.AuthBase, graphBase: cfg.GraphBase}
	if a.authBase == "" {
		a.authBase = "https://www.facebook.com"
	}
	if a.graphBase == "" {
		a.graphBase = "https://graph.facebook.com"
	}
	if len(a.cfg.Scopes) == 0 {
		a.cfg.Scopes = defaultScopes
	}
	return a
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Capabilities() platform.Capabilities {
	return platform.Capabilities{
		PublishText:   true,
		PublishImage:  true,
		MaxTextLen:    63206,
		MaxMediaItems: 1,
	}
}

func (a *Adapter) graph(path string) string {
	return a.graphBase + "/" + graphVersion + path
}

func (a *Adapter) AuthorizationURL(redirectURI, state, codeChallenge string) string {
	// Long-lived user tokens stand in for refresh; PKCE is not offered.
	q := url.Values{}
	q.Set("client_id", a.cfg.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(a.cfg.Scopes, ","))
	return a.authBase + "/" + graphVersion + "/dialog/oauth?" + q.Encode()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ExchangeCode trades the code for a user token, then upgrades it to a
// long-lived one so the stored grant survives weeks instead of hours.
func (a *Adapter) ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*platform.TokenGrant, error) {
	q := url.Values{}
	q.Set("client_id", a.cfg.ClientID)
	q.Set("client_secret", a.cfg.ClientSecret)
	q.Set("redirect_uri", redirectURI)
	q.Set("code", code)

	var short tokenResponse
	err := platform.GetJSON(ctx, a.cfg.HTTPClient, Name, a.graph("/oauth/access_token")+"?"+q.Encode(), nil, &short)
	if err != nil {
		return nil, err
	}

	q = url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", a.cfg.ClientID)
	q.Set("client_secret", a.cfg.ClientSecret)
	q.Set("fb_exchange_token", short.AccessToken)

	var long tokenResponse
	err = platform.GetJSON(ctx, a.cfg.HTTPClient, Name, a.graph("/oauth/access_token")+"?"+q.Encode(), nil, &long)
	if err != nil {
		return nil, err
	}

	g := &platform.TokenGrant{AccessToken: long.AccessToken, Scopes: a.cfg.Scopes}
	if long.ExpiresIn > 0 {
		g.ExpiresAt = time.Now().Add(time.Duration(long.ExpiresIn) * time.Second).UTC()
	}
	return g, nil
}

func (a *Adapter) RefreshGrant(ctx context.Context, refreshToken string) (*platform.TokenGrant, error) {
	return nil, platform.ErrNotImplemented(Name, "token refresh")
}

type page struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

// FetchProfile resolves the first page the user manages. The page is the
// publishable account, not the user.
func (a *Adapter) FetchProfile(ctx context.Context, accessToken string) (*platform.Profile, error) {
	var pages struct {
		Data []page `json:"data"`
	}
	u := a.graph("/me/accounts") + "?access_token=" + url.QueryEscape(accessToken)
	if err := platform.GetJSON(ctx, a.cfg.HTTPClient, Name, u, nil, &pages); err != nil {
		return nil, err
	}
	if len(pages.Data) == 0 {
		return nil, platform.NewError(Name, platform.KindAuth, "grant has no manageable pages")
	}
	p := pages.Data[0]
	raw, _ := json.Marshal(p)
	return &platform.Profile{
		ExternalAccountID: p.ID,
		DisplayName:       p.Name,
		Raw:               raw,
	}, nil
}

// pageToken swaps the user token for the page's own token.
func (a *Adapter) pageToken(ctx context.Context, userToken, pageID string) (string, error) {
	var res struct {
		AccessToken string `json:"access_token"`
	}
	u := a.graph("/"+pageID) + "?fields=access_token&access_token=" + url.QueryEscape(userToken)
	if err := platform.GetJSON(ctx, a.cfg.HTTPClient, Name, u, nil, &res); err != nil {
		return "", err
	}
	if res.AccessToken == "" {
		return "", platform.NewError(Name, platform.KindAuth, "page access token unavailable")
	}
	return res.AccessToken, nil
}

func (a *Adapter) PublishText(ctx context.Context, accessToken, externalAccountID, text string) (*platform.Receipt, error) {
	token, err := a.pageToken(ctx, accessToken, externalAccountID)
	if err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("message", text)
	form.Set("access_token", token)

	var res struct {
		ID string `json:"id"`
	}
	err = platform.PostForm(ctx, a.cfg.HTTPClient, Name, a.graph("/"+externalAccountID+"/feed"), nil, form, &res)
	if err != nil {
		return nil, err
	}
	return &platform.Receipt{PostID: res.ID, PostURL: "https://www.facebook.com/" + res.ID}, nil
}

func (a *Adapter) PublishImage(ctx context.Context, accessToken, externalAccountID, caption string, imageURLs []string) (*platform.Receipt, error) {
	if len(imageURLs) == 0 {
		return nil, platform.NewError(Name, platform.KindAPI, "image publish requires an image url")
	}
	token, err := a.pageToken(ctx, accessToken, externalAccountID)
	if err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("url", imageURLs[0])
	form.Set("caption", caption)
	form.Set("access_token", token)

	var res struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	err = platform.PostForm(ctx, a.cfg.HTTPClient, Name, a.graph("/"+externalAccountID+"/photos"), nil, form, &res)
	if err != nil {
		return nil, err
	}
	id := res.PostID
	if id == "" {
		id = res.ID
	}
	return &platform.Receipt{PostID: id, PostURL: "https://www.facebook.com/" + id}, nil
}
