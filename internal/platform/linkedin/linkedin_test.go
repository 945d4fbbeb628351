package linkedin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/highshift/highshift/internal/platform"
)

func testAdapter(authURL, apiURL string) *Adapter {
	return New(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		AuthBase:     authURL,
		APIBase:      apiURL,
	})
}

func TestAuthorizationURL(t *testing.T) {
	t.Parallel()

	a := testAdapter("https://linkedin.example", "https://api.example")
	raw := a.AuthorizationURL("https://cb.example/callback", "state-1", "challenge-1")

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("response_type") != "code" ||
		q.Get("client_id") != "client" ||
		q.Get("state") != "state-1" {
		t.Fatalf("bad authorization url: %s", raw)
	}
	// the provider ignores PKCE, so the challenge must not leak in
	if q.Has("code_challenge") || q.Has("code_challenge_method") {
		t.Fatalf("unexpected pkce params: %s", raw)
	}
	if !strings.Contains(q.Get("scope"), "w_member_social") {
		t.Fatalf("scope missing w_member_social: %q", q.Get("scope"))
	}
}

func TestExchangeCode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/v2/accessToken" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" ||
			r.PostForm.Get("client_id") != "client" ||
			r.PostForm.Get("client_secret") != "secret" ||
			r.PostForm.Get("code") != "code-1" {
			t.Errorf("bad form: %v", r.PostForm)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"expires_in":    5184000,
			"scope":         "openid,profile,w_member_social",
		})
	}))
	defer srv.Close()

	g, err := testAdapter(srv.URL, "https://api.example").ExchangeCode(context.Background(), "code-1", "https://cb.example", "")
	if err != nil {
		t.Fatal(err)
	}
	if g.AccessToken != "at-1" || g.RefreshToken != "rt-1" {
		t.Fatalf("bad grant: %+v", g)
	}
	if g.ExpiresAt.IsZero() {
		t.Fatal("expected expiry")
	}
	if len(g.Scopes) != 3 {
		t.Fatalf("scopes = %v", g.Scopes)
	}
}

func TestRefreshGrant_AuthFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testAdapter(srv.URL, "https://api.example").RefreshGrant(context.Background(), "rt-dead")
	pe, ok := platform.AsError(err)
	if !ok || pe.Kind != platform.KindAuth {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestFetchProfile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/userinfo" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer at-1" {
			t.Errorf("bad auth header %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(map[string]string{
			"sub":   "AbC123",
			"name":  "Pat Example",
			"email": "pat@example.com",
		})
	}))
	defer srv.Close()

	p, err := testAdapter("https://linkedin.example", srv.URL).FetchProfile(context.Background(), "at-1")
	if err != nil {
		t.Fatal(err)
	}
	if p.ExternalAccountID != "AbC123" || p.Username != "pat@example.com" || p.DisplayName != "Pat Example" {
		t.Fatalf("bad profile: %+v", p)
	}
}

func TestPublishText(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/ugcPosts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer at-1" {
			t.Errorf("bad auth header %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-Restli-Protocol-Version") != "2.0.0" {
			t.Errorf("restli header = %q", r.Header.Get("X-Restli-Protocol-Version"))
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["author"] != "urn:li:person:AbC123" {
			t.Errorf("author = %v", body["author"])
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": "urn:li:share:9999"})
	}))
	defer srv.Close()

	rec, err := testAdapter("https://linkedin.example", srv.URL).PublishText(context.Background(), "at-1", "AbC123", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if rec.PostID != "urn:li:share:9999" || !strings.Contains(rec.PostURL, "feed/update") {
		t.Fatalf("bad receipt: %+v", rec)
	}
}

func TestPublishText_RateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testAdapter("https://linkedin.example", srv.URL).PublishText(context.Background(), "at-1", "AbC123", "hello")
	pe, ok := platform.AsError(err)
	if !ok || pe.Kind != platform.KindRateLimited {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestPublishImage_NotImplemented(t *testing.T) {
	t.Parallel()

	_, err := testAdapter("https://linkedin.example", "https://api.example").PublishImage(context.Background(), "at", "id", "cap", []string{"u"})
	pe, ok := platform.AsError(err)
	if !ok || pe.Kind != platform.KindNotImplemented {
		t.Fatalf("expected not implemented, got %v", err)
	}
}
