package twitter

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

func testAdapter(apiURL string) *Adapter {
	return New(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		AuthBase:     "https://twitter.example",
		APIBase:      apiURL,
	})
}

func TestAuthorizationURL(t *testing.T) {
	t.Parallel()

	a := testAdapter("https://api.example")
	raw := a.AuthorizationURL("https://cb.example/callback", "state-1", "challenge-1")

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("response_type") != "code" ||
		q.Get("client_id") != "client" ||
		q.Get("state") != "state-1" ||
		q.Get("code_challenge") != "challenge-1" ||
		q.Get("code_challenge_method") != "S256" {
		t.Fatalf("bad authorization url: %s", raw)
	}
	if !strings.Contains(q.Get("scope"), "offline.access") {
		t.Fatalf("scope missing offline.access: %q", q.Get("scope"))
	}
}

func TestExchangeCode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/oauth2/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Basic ") {
			t.Error("missing basic auth")
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" ||
			r.PostForm.Get("code_verifier") != "ver-1" {
			t.Errorf("bad form: %v", r.PostForm)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"expires_in":    7200,
			"scope":         "tweet.read tweet.write",
		})
	}))
	defer srv.Close()

	g, err := testAdapter(srv.URL).ExchangeCode(context.Background(), "code-1", "https://cb.example", "ver-1")
	if err != nil {
		t.Fatal(err)
	}
	if g.AccessToken != "at-1" || g.RefreshToken != "rt-1" {
		t.Fatalf("bad grant: %+v", g)
	}
	if g.ExpiresAt.IsZero() {
		t.Fatal("expected expiry")
	}
	if len(g.Scopes) != 2 {
		t.Fatalf("scopes = %v", g.Scopes)
	}
}

func TestRefreshGrant_AuthFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_request"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testAdapter(srv.URL).RefreshGrant(context.Background(), "rt-dead")
	pe, ok := platform.AsError(err)
	if !ok || pe.Kind != platform.KindAuth {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestPublishText(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer at-1" {
			t.Errorf("bad auth header %q", r.Header.Get("Authorization"))
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["text"] != "hello" {
			t.Errorf("text = %q", body["text"])
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"id": "777"}})
	}))
	defer srv.Close()

	rec, err := testAdapter(srv.URL).PublishText(context.Background(), "at-1", "tw-1", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if rec.PostID != "777" || !strings.Contains(rec.PostURL, "777") {
		t.Fatalf("bad receipt: %+v", rec)
	}
}

func TestPublishText_RateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testAdapter(srv.URL).PublishText(context.Background(), "at-1", "tw-1", "hello")
	pe, ok := platform.AsError(err)
	if !ok || pe.Kind != platform.KindRateLimited {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if pe.StatusHint != http.StatusTooManyRequests {
		t.Fatalf("status hint = %d", pe.StatusHint)
	}
}

func TestPublishImage_NotImplemented(t *testing.T) {
	t.Parallel()

	_, err := testAdapter("https://api.example").PublishImage(context.Background(), "at", "id", "cap", []string{"u"})
	pe, ok := platform.AsError(err)
	if !ok || pe.Kind != platform.KindNotImplemented {
		t.Fatalf("expected not implemented, got %v", err)
	}
}
