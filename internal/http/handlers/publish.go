package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/highshift/highshift/internal/http/errors"
	"github.com/highshift/highshift/internal/http/services/publish"
	"github.com/highshift/highshift/internal/store/core"
)

type Publish struct {
	Service publish.Service
}

type publishBody struct {
	Content   string   `json:"content"`
	MediaURLs []string `json:"media_urls,omitempty"`
	AccountID string   `json:"account_id,omitempty"`
	Accounts  []struct {
		Platform  string `json:"platform"`
		AccountID string `json:"account_id,omitempty"`
	} `json:"accounts,omitempty"`
}

type publishResponse struct {
	Status  string                     `json:"status"`
	Results map[string]publish.Outcome `json:"results"`
}

// Single publishes to one platform.
func (h *Publish) Single(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var body publishBody
	if err := decodeJSON(r, &body); err != nil {
		errors.WriteError(w, err)
		return
	}

	h.run(w, r, id.ID, publish.Request{
		Content:   body.Content,
		MediaURLs: body.MediaURLs,
		Targets: []core.Target{{
			Platform:          chi.URLParam(r, "provider"),
			ExternalAccountID: body.AccountID,
		}},
	})
}

// Multi fans out to several platforms at once.
func (h *Publish) Multi(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var body publishBody
	if err := decodeJSON(r, &body); err != nil {
		errors.WriteError(w, err)
		return
	}

	targets := make([]core.Target, 0, len(body.Accounts))
	for _, a := range body.Accounts {
		targets = append(targets, core.Target{Platform: a.Platform, ExternalAccountID: a.AccountID})
	}
	h.run(w, r, id.ID, publish.Request{
		Content:   body.Content,
		MediaURLs: body.MediaURLs,
		Targets:   targets,
	})
}

func (h *Publish) run(w http.ResponseWriter, r *http.Request, identityID string, req publish.Request) {
	outcomes, err := h.Service.Publish(r.Context(), identityID, req)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	aggregate := publish.Aggregate(outcomes)
	status := http.StatusOK
	if aggregate == core.StatusFailed {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, publishResponse{Status: aggregate, Results: outcomes})
}
