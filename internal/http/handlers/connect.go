package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/highshift/highshift/internal/http/errors"
	"github.com/highshift/highshift/internal/http/services/connect"
	"github.com/highshift/highshift/internal/metrics"
	"github.com/highshift/highshift/internal/store/core"
)

type Connect struct {
	Service connect.Service
}

// Start begins the linking flow and hands back the consent URL.
func (h *Connect) Start(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Start(r.Context(), connect.StartRequest{
		Provider: chi.URLParam(r, "provider"),
		Secret:   r.URL.Query().Get("secret"),
		Redirect: r.URL.Query().Get("redirect"),
	})
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	metrics.FlowsStarted.WithLabelValues(chi.URLParam(r, "provider")).Inc()
	writeJSON(w, http.StatusOK, res)
}

type callbackResponse struct {
	IdentityID string       `json:"identity_id"`
	Secret     string       `json:"secret,omitempty"`
	Account    *accountView `json:"account"`
}

// Callback finishes the flow. When the flow carried a redirect target
// the browser is sent back there; otherwise the result is JSON.
func (h *Connect) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.Service.Callback(r.Context(), connect.CallbackRequest{
		Provider:          chi.URLParam(r, "provider"),
		Code:              q.Get("code"),
		State:             q.Get("state"),
		ProviderError:     q.Get("error"),
		ProviderErrorDesc: q.Get("error_description"),
	})
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	metrics.AccountsLinked.WithLabelValues(res.Account.Platform).Inc()

	if res.Redirect != "" {
		target, err := url.Parse(res.Redirect)
		if err == nil {
			rq := target.Query()
			rq.Set("platform", res.Account.Platform)
			rq.Set("account_id", res.Account.ExternalAccountID)
			if res.Secret != "" {
				rq.Set("secret", res.Secret)
			}
			target.RawQuery = rq.Encode()
			http.Redirect(w, r, target.String(), http.StatusFound)
			return
		}
	}

	writeJSON(w, http.StatusOK, callbackResponse{
		IdentityID: res.IdentityID,
		Secret:     res.Secret,
		Account:    viewAccount(res.Account),
	})
}

// accountView is the sanitized linked-account shape. Token material
// never leaves the service.
type accountView struct {
	ID                string   `json:"id"`
	Platform          string   `json:"platform"`
	ExternalAccountID string   `json:"external_account_id"`
	Username          string   `json:"username,omitempty"`
	DisplayName       string   `json:"display_name,omitempty"`
	Scopes            []string `json:"scopes,omitempty"`
	CreatedAt         string   `json:"created_at"`
}

func viewAccount(a *core.LinkedAccount) *accountView {
	return &accountView{
		ID:                a.ID,
		Platform:          a.Platform,
		ExternalAccountID: a.ExternalAccountID,
		Username:          a.Username,
		DisplayName:       a.DisplayName,
		Scopes:            a.Scopes,
		CreatedAt:         a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
