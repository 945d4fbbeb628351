package middlewares

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/highshift/highshift/internal/http/errors"
	"github.com/highshift/highshift/internal/observability/logger"
)

// Recover turns a handler panic into a 500 envelope.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.From(r.Context()).Error("handler panic",
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				errors.WriteError(w, errors.ErrInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
