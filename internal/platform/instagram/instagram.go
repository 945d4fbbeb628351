// Package instagram drives the Instagram Graph API. Instagram only
// publishes media: every post goes through a container that is created
// first and published second. The publishable account is the Instagram
// business account behind a managed Facebook page.
package instagram

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/highshift/highshift/internal/platform"
)

const Name = "instagram"

const graphVersion = "v19.0"

var defaultScopes = []string{"instagram_basic", "instagram_content_publish", "pages_show_list"}

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
		PublishImage:  true,
		RequiresMedia: true,
		MaxTextLen:    2200,
		MaxMediaItems: 10,
	}
}

func (a *Adapter) graph(path string) string {
	return a.graphBase + "/" + graphVersion + path
}

func (a *Adapter) AuthorizationURL(redirectURI, state, codeChallenge string) string {
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

// FetchProfile walks page -> instagram business account -> username.
func (a *Adapter) FetchProfile(ctx context.Context, accessToken string) (*platform.Profile, error) {
	var pages struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	u := a.graph("/me/accounts") + "?access_token=" + url.QueryEscape(accessToken)
	if err := platform.GetJSON(ctx, a.cfg.HTTPClient, Name, u, nil, &pages); err != nil {
		return nil, err
	}
	if len(pages.Data) == 0 {
		return nil, platform.NewError(Name, platform.KindAuth, "grant has no manageable pages")
	}

	var link struct {
		InstagramBusinessAccount struct {
			ID string `json:"id"`
		} `json:"instagram_business_account"`
	}
	u = a.graph("/"+pages.Data[0].ID) + "?fields=instagram_business_account&access_token=" + url.QueryEscape(accessToken)
	if err := platform.GetJSON(ctx, a.cfg.HTTPClient, Name, u, nil, &link); err != nil {
		return nil, err
	}
	igID := link.InstagramBusinessAccount.ID
	if igID == "" {
		return nil, platform.NewError(Name, platform.KindAuth, "page has no linked instagram business account")
	}

	var ig struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Name     string `json:"name"`
	}
	u = a.graph("/"+igID) + "?fields=id,username,name&access_token=" + url.QueryEscape(accessToken)
	if err := platform.GetJSON(ctx, a.cfg.HTTPClient, Name, u, nil, &ig); err != nil {
		return nil, err
	}
	raw, _ := json.Marshal(ig)
	return &platform.Profile{
		ExternalAccountID: ig.ID,
		Username:          ig.Username,
		DisplayName:       ig.Name,
		Raw:               raw,
	}, nil
}

func (a *Adapter) PublishText(ctx context.Context, accessToken, externalAccountID, text string) (*platform.Receipt, error) {
	return nil, platform.ErrNotImplemented(Name, "text-only publishing")
}

type idResponse struct {
	ID string `json:"id"`
}

// PublishImage creates media containers and publishes them. A single
// image is one container; multiple images become a carousel.
func (a *Adapter) PublishImage(ctx context.Context, accessToken, externalAccountID, caption string, imageURLs []string) (*platform.Receipt, error) {
	if len(imageURLs) == 0 {
		return nil, platform.NewError(Name, platform.KindAPI, "image publish requires an image url")
	}

	var creationID string
	if len(imageURLs) == 1 {
		form := url.Values{}
		form.Set("image_url", imageURLs[0])
		form.Set("caption", caption)
		form.Set("access_token", accessToken)

		var container idResponse
		err := platform.PostForm(ctx, a.cfg.HTTPClient, Name, a.graph("/"+externalAccountID+"/media"), nil, form, &container)
		if err != nil {
			return nil, err
		}
		creationID = container.ID
	} else {
		children := make([]string, 0, len(imageURLs))
		for _, img := range imageURLs {
			form := url.Values{}
			form.Set("image_url", img)
			form.Set("is_carousel_item", "true")
			form.Set("access_token", accessToken)

			var child idResponse
			err := platform.PostForm(ctx, a.cfg.HTTPClient, Name, a.graph("/"+externalAccountID+"/media"), nil, form, &child)
			if err != nil {
				return nil, err
			}
			children = append(children, child.ID)
		}

		form := url.Values{}
		form.Set("media_type", "CAROUSEL")
		form.Set("children", strings.Join(children, ","))
		form.Set("caption", caption)
		form.Set("access_token", accessToken)

		var carousel idResponse
		err := platform.PostForm(ctx, a.cfg.HTTPClient, Name, a.graph("/"+externalAccountID+"/media"), nil, form, &carousel)
		if err != nil {
			return nil, err
		}
		creationID = carousel.ID
	}

	form := url.Values{}
	form.Set("creation_id", creationID)
	form.Set("access_token", accessToken)

	var published idResponse
	err := platform.PostForm(ctx, a.cfg.HTTPClient, Name, a.graph("/"+externalAccountID+"/media_publish"), nil, form, &published)
	if err != nil {
		return nil, err
	}
	return &platform.Receipt{PostID: published.ID}, nil
}
