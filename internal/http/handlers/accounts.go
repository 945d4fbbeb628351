package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/highshift/highshift/internal/http/errors"
	"github.com/highshift/highshift/internal/store/core"
)

type Accounts struct {
	Repo core.LinkedAccountRepository
}

// List returns the identity's linked accounts, sanitized.
func (h *Accounts) List(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	accounts, err := h.Repo.ListLinkedAccounts(r.Context(), id.ID)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	views := make([]*accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, viewAccount(a))
	}
	writeJSON(w, http.StatusOK, views)
}

// Disconnect removes one linked account by platform and external id.
func (h *Accounts) Disconnect(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	provider := chi.URLParam(r, "provider")
	externalID := chi.URLParam(r, "accountId")

	matches, err := h.Repo.FindLinkedAccounts(r.Context(), id.ID, provider, externalID)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	if len(matches) == 0 {
		errors.WriteError(w, errors.ErrLinkedAccountNotFound.WithDetail(provider+":"+externalID))
		return
	}
	if err := h.Repo.RemoveLinkedAccount(r.Context(), id.ID, matches[0].ID); err != nil {
		errors.WriteError(w, errors.MapDomain(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}
