package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/highshift/highshift/internal/auth"
	"github.com/highshift/highshift/internal/http/errors"
)

// APIKey authenticates requests via X-API-Key or Authorization: Bearer
// and injects the identity into the context.
func APIKey(resolver auth.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := secretFrom(r)
			if secret == "" {
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}
			identity, err := resolver.Resolve(r.Context(), secret)
			if err != nil {
				errors.WriteError(w, errors.ErrInvalidSecret)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

// CronSecret guards the external trigger endpoint with a shared secret.
func CronSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := bearerFrom(r)
			if secret == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func secretFrom(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return bearerFrom(r)
}

func bearerFrom(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
