package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/highshift/highshift/internal/cache"
	"github.com/highshift/highshift/internal/store/core"
)

type Health struct {
	Repo  core.Repository
	Cache cache.Client
}

func (h *Health) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	out := map[string]string{"status": "ok", "store": "ok", "cache": "ok"}
	status := http.StatusOK

	if err := h.Repo.Ping(ctx); err != nil {
		out["status"] = "degraded"
		out["store"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := h.Cache.Ping(ctx); err != nil {
		out["status"] = "degraded"
		out["cache"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, out)
}
