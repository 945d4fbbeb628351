package middlewares

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/highshift/highshift/internal/auth"
	"github.com/highshift/highshift/internal/store/core"
)

type staticResolver struct {
	secret   string
	identity *core.Identity
}

func (r staticResolver) Resolve(_ context.Context, secret string) (*core.Identity, error) {
	if secret == r.secret {
		return r.identity, nil
	}
	return nil, auth.ErrInvalidSecret
}

func okHandler(t *testing.T, wantIdentity string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantIdentity != "" {
			id, ok := auth.IdentityFrom(r.Context())
			if !ok || id.ID != wantIdentity {
				t.Errorf("identity not in context")
			}
		}
		w.WriteHeader(http.StatusOK)
	})
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestAPIKeyHeaderAndBearer(t *testing.T) {
	mw := APIKey(staticResolver{secret: "hs_abc", identity: &core.Identity{ID: "i-1"}})
	h := mw(okHandler(t, "i-1"))

	for _, set := range []func(*http.Request){
		func(r *http.Request) { r.Header.Set("X-API-Key", "hs_abc") },
		func(r *http.Request) { r.Header.Set("Authorization", "Bearer hs_abc") },
	} {
		req := httptest.NewRequest(http.MethodGet, "/linked-accounts", nil)
		set(req)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	}
}

func TestAPIKeyMissing(t *testing.T) {
	mw := APIKey(staticResolver{secret: "hs_abc"})
	h := mw(okHandler(t, ""))

	req := httptest.NewRequest(http.MethodGet, "/linked-accounts", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "UNAUTHORIZED" {
		t.Fatalf("code = %q", code)
	}
}

func TestAPIKeyWrongSecret(t *testing.T) {
	mw := APIKey(staticResolver{secret: "hs_abc"})
	h := mw(okHandler(t, ""))

	req := httptest.NewRequest(http.MethodGet, "/linked-accounts", nil)
	req.Header.Set("X-API-Key", "hs_nope")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_SECRET" {
		t.Fatalf("code = %q", code)
	}
}

func TestCronSecret(t *testing.T) {
	h := CronSecret("cron-s3cret")(okHandler(t, ""))

	req := httptest.NewRequest(http.MethodPost, "/cron/publish-scheduled", nil)
	req.Header.Set("Authorization", "Bearer cron-s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/cron/publish-scheduled", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCronSecretUnconfiguredRejectsAll(t *testing.T) {
	h := CronSecret("")(okHandler(t, ""))

	req := httptest.NewRequest(http.MethodPost, "/cron/publish-scheduled", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}
