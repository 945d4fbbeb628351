// Package threads drives the Threads Graph API. Both text and image
// posts are two-phase: create a container, then publish it. Long-lived
// tokens refresh themselves through the th_refresh_token flow.
package threads

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/highshift/highshift/internal/platform"
)

const Name = "threads"

const apiVersion = "v1.0"

var defaultScopes = []string{"threads_basic", "threads_content_publish"}

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
		a.authBase = "https://threads.net"
	}
	if a.graphBase == "" {
		a.graphBase = "https://graph.threads.net"
	}
	if len(a.cfg.Scopes) == 0 {
		a.cfg.Scopes = defaultScopes
	}
	return a
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Capabilities() platform.Capabilities {
	return platform.Capabilities{
		Refresh:       true,
		PublishText:   true,
		PublishImage:  true,
		MaxTextLen:    500,
		MaxMediaItems: 1,
	}
}

func (a *Adapter) api(path string) string {
	return a.graphBase + "/" + apiVersion + path
}

func (a *Adapter) AuthorizationURL(redirectURI, state, codeChallenge string) string {
	q := url.Values{}
	q.Set("client_id", a.cfg.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", strings.Join(a.cfg.Scopes, ","))
	q.Set("response_type", "code")
	q.Set("state", state)
	return a.authBase + "/oauth/authorize?" + q.Encode()
}

// ExchangeCode trades the code for a short-lived token, then upgrades
// it to a long-lived one. The long-lived token doubles as the refresh
// credential for the th_refresh_token flow.
func (a *Adapter) ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*platform.TokenGrant, error) {
	form := url.Values{}
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", redirectURI)
	form.Set("code", code)

	var short struct {
		AccessToken string `json:"access_token"`
		UserID      int64  `json:"user_id"`
	}
	err := platform.PostForm(ctx, a.cfg.HTTPClient, Name, a.graphBase+"/oauth/access_token", nil, form, &short)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("grant_type", "th_exchange_token")
	q.Set("client_secret", a.cfg.ClientSecret)
	q.Set("access_token", short.AccessToken)

	var long struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	err = platform.GetJSON(ctx, a.cfg.HTTPClient, Name, a.graphBase+"/access_token?"+q.Encode(), nil, &long)
	if err != nil {
		return nil, err
	}

	g := &platform.TokenGrant{
		AccessToken:  long.AccessToken,
		RefreshToken: long.AccessToken,
		Scopes:       a.cfg.Scopes,
	}
	if long.ExpiresIn > 0 {
		g.ExpiresAt = time.Now().Add(time.Duration(long.ExpiresIn) * time.Second).UTC()
	}
	return g, nil
}

func (a *Adapter) RefreshGrant(ctx context.Context, refreshToken string) (*platform.TokenGrant, error) {
	q := url.Values{}
	q.Set("grant_type", "th_refresh_token")
	q.Set("access_token", refreshToken)

	var res struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	err := platform.GetJSON(ctx, a.cfg.HTTPClient, Name, a.graphBase+"/refresh_access_token?"+q.Encode(), nil, &res)
	if err != nil {
		return nil, err
	}
	g := &platform.TokenGrant{AccessToken: res.AccessToken, RefreshToken: res.AccessToken}
	if res.ExpiresIn > 0 {
		g.ExpiresAt = time.Now().Add(time.Duration(res.ExpiresIn) * time.Second).UTC()
	}
	return g, nil
}

func (a *Adapter) FetchProfile(ctx context.Context, accessToken string) (*platform.Profile, error) {
	var res struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Name     string `json:"name"`
	}
	u := a.api("/me") + "?fields=id,username,name&access_token=" + url.QueryEscape(accessToken)
	if err := platform.GetJSON(ctx, a.cfg.HTTPClient, Name, u, nil, &res); err != nil {
		return nil, err
	}
	return &platform.Profile{
		ExternalAccountID: res.ID,
		Username:          res.Username,
		DisplayName:       res.Name,
	}, nil
}

type idResponse struct {
	ID string `json:"id"`
}

func (a *Adapter) PublishText(ctx context.Context, accessToken, externalAccountID, text string) (*platform.Receipt, error) {
	form := url.Values{}
	form.Set("media_type", "TEXT")
	form.Set("text", text)
	form.Set("access_token", accessToken)
	return a.createAndPublish(ctx, externalAccountID, form)
}

func (a *Adapter) PublishImage(ctx context.Context, accessToken, externalAccountID, caption string, imageURLs []string) (*platform.Receipt, error) {
	if len(imageURLs) == 0 {
		return nil, platform.NewError(Name, platform.KindAPI, "image publish requires an image url")
	}
	form := url.Values{}
	form.Set("media_type", "IMAGE")
	form.Set("image_url", imageURLs[0])
	form.Set("text", caption)
	form.Set("access_token", accessToken)
	return a.createAndPublish(ctx, externalAccountID, form)
}

func (a *Adapter) createAndPublish(ctx context.Context, userID string, form url.Values) (*platform.Receipt, error) {
	var container idResponse
	err := platform.PostForm(ctx, a.cfg.HTTPClient, Name, a.api("/"+userID+"/threads"), nil, form, &container)
	if err != nil {
		return nil, err
	}

	publish := url.Values{}
	publish.Set("creation_id", container.ID)
	publish.Set("access_token", form.Get("access_token"))

	var posted idResponse
	err = platform.PostForm(ctx, a.cfg.HTTPClient, Name, a.api("/"+userID+"/threads_publish"), nil, publish, &posted)
	if err != nil {
		return nil, err
	}
	return &platform.Receipt{PostID: posted.ID}, nil
}
