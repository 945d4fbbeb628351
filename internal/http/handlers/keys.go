package handlers

import (
	"net/http"

	"github.com/highshift/highshift/internal/http/errors"
	"github.com/highshift/highshift/internal/http/services/keys"
)

type Keys struct {
	Service keys.Service
}

func (h *Keys) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	info, err := h.Service.Info(r.Context(), id.ID)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Keys) Regenerate(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	secret, err := h.Service.Regenerate(r.Context(), id.ID)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"secret": secret})
}
