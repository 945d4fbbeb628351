package facebook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/highshift/highshift/internal/platform"
)

func TestExchangeCode_UpgradesToLongLived(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v19.0/oauth/access_token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		calls++
		q := r.URL.Query()
		switch calls {
		case 1:
			if q.Get("code") != "code-1" {
				t.Errorf("code = %q", q.Get("code"))
			}
			json.NewEncoder(w).Encode(map[string]any{"access_token": "short-1", "expires_in": 3600})
		case 2:
			if q.Get("grant_type") != "fb_exchange_token" || q.Get("fb_exchange_token") != "short-1" {
				t.Errorf("bad upgrade query: %v", q)
			}
			json.NewEncoder(w).Encode(map[string]any{"access_token": "long-1", "expires_in": 5184000})
		}
	}))
	defer srv.Close()

	a := New(Config{ClientID: "c", ClientSecret: "s", GraphBase: srv.URL})
	g, err := a.ExchangeCode(context.Background(), "code-1", "https://cb.example", "")
	if err != nil {
		t.Fatal(err)
	}
	if g.AccessToken != "long-1" {
		t.Fatalf("access token = %q", g.AccessToken)
	}
	if g.RefreshToken != "" {
		t.Fatal("facebook must not report a refresh token")
	}
}

func TestRefreshGrant_NotImplemented(t *testing.T) {
	t.Parallel()

	a := New(Config{ClientID: "c", ClientSecret: "s"})
	_, err := a.RefreshGrant(context.Background(), "whatever")
	pe, ok := platform.AsError(err)
	if !ok || pe.Kind != platform.KindNotImplemented {
		t.Fatalf("expected not implemented, got %v", err)
	}
}

func TestFetchProfile_ResolvesPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v19.0/me/accounts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{
				{"id": "page-1", "name": "Acme Page", "access_token": "page-tok"},
			},
		})
	}))
	defer srv.Close()

	a := New(Config{ClientID: "c", ClientSecret: "s", GraphBase: srv.URL})
	p, err := a.FetchProfile(context.Background(), "user-tok")
	if err != nil {
		t.Fatal(err)
	}
	if p.ExternalAccountID != "page-1" || p.DisplayName != "Acme Page" {
		t.Fatalf("bad profile: %+v", p)
	}
}

func TestFetchProfile_NoPages(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	a := New(Config{ClientID: "c", ClientSecret: "s", GraphBase: srv.URL})
	_, err := a.FetchProfile(context.Background(), "user-tok")
	pe, ok := platform.AsError(err)
	if !ok || pe.Kind != platform.KindAuth {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestPublishText_UsesPageToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v19.0/page-1":
			if r.URL.Query().Get("access_token") != "user-tok" {
				t.Errorf("page token lookup used %q", r.URL.Query().Get("access_token"))
			}
			json.NewEncoder(w).Encode(map[string]string{"access_token": "page-tok"})
		case "/v19.0/page-1/feed":
			if err := r.ParseForm(); err != nil {
				t.Fatal(err)
			}
			if r.PostForm.Get("access_token") != "page-tok" {
				t.Errorf("feed post used %q", r.PostForm.Get("access_token"))
			}
			if r.PostForm.Get("message") != "hello" {
				t.Errorf("message = %q", r.PostForm.Get("message"))
			}
			json.NewEncoder(w).Encode(map[string]string{"id": "page-1_999"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	a := New(Config{ClientID: "c", ClientSecret: "s", GraphBase: srv.URL})
	rec, err := a.PublishText(context.Background(), "user-tok", "page-1", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if rec.PostID != "page-1_999" {
		t.Fatalf("post id = %q", rec.PostID)
	}
}
