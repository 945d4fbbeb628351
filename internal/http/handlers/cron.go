package handlers

import (
	"net/http"

	"github.com/highshift/highshift/internal/http/errors"
	"github.com/highshift/highshift/internal/http/services/schedule"
)

type Cron struct {
	Dispatcher *schedule.Dispatcher
}

// PublishScheduled runs one dispatcher sweep on demand. External cron
// services hit this when the in-process poller is disabled.
func (h *Cron) PublishScheduled(w http.ResponseWriter, r *http.Request) {
	n, err := h.Dispatcher.RunOnce(r.Context())
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"processed": n})
}
