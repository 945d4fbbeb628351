package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/highshift/highshift/internal/http/errors"
	"github.com/highshift/highshift/internal/http/services/schedule"
	"github.com/highshift/highshift/internal/store/core"
)

type Schedule struct {
	Service schedule.Service
}

type scheduleBody struct {
	Content   string   `json:"content"`
	MediaURLs []string `json:"media_urls,omitempty"`
	Accounts  []struct {
		Platform  string `json:"platform"`
		AccountID string `json:"account_id,omitempty"`
	} `json:"accounts"`
	ScheduledFor string `json:"scheduled_for"`
}

func (h *Schedule) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var body scheduleBody
	if err := decodeJSON(r, &body); err != nil {
		errors.WriteError(w, err)
		return
	}

	at, err := time.Parse(time.RFC3339, body.ScheduledFor)
	if err != nil {
		errors.WriteError(w, errors.ErrValidation.WithDetail("scheduled_for must be RFC 3339"))
		return
	}
	targets := make([]core.Target, 0, len(body.Accounts))
	for _, a := range body.Accounts {
		targets = append(targets, core.Target{Platform: a.Platform, ExternalAccountID: a.AccountID})
	}

	post, err := h.Service.Create(r.Context(), id.ID, schedule.CreateRequest{
		Content:     body.Content,
		MediaURLs:   body.MediaURLs,
		Targets:     targets,
		ScheduledAt: at,
	})
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *Schedule) List(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var statuses []string
	if s := r.URL.Query().Get("status"); s != "" {
		statuses = strings.Split(s, ",")
	}
	posts, err := h.Service.List(r.Context(), id.ID, statuses)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	if posts == nil {
		posts = []*core.ScheduledPost{}
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Schedule) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	post, err := h.Service.Get(r.Context(), id.ID, chi.URLParam(r, "id"))
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *Schedule) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.Service.Cancel(r.Context(), id.ID, chi.URLParam(r, "id")); err != nil {
		errors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": core.StatusCanceled})
}
