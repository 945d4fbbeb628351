package middlewares

import (
	"net/http"
	"time"

	"github.com/highshift/highshift/internal/observability/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Logging attaches a request-scoped logger to the context and emits one
// line per request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := logger.With(
			logger.RequestID(RequestIDFrom(r.Context())),
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
		)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(logger.ToContext(r.Context(), log)))

		log.Info("request",
			logger.Status(rec.status),
			logger.DurationMs(time.Since(start).Milliseconds()),
			logger.Bytes(rec.bytes),
		)
	})
}
