// Package handlers implements the HTTP boundary. Handlers decode and
// validate the wire shape, call a service, and render the response;
// domain rules live in the services.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/highshift/highshift/internal/auth"
	"github.com/highshift/highshift/internal/http/errors"
	"github.com/highshift/highshift/internal/store/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.ErrValidation.WithDetail("malformed request body").WithErr(err)
	}
	return nil
}

// identity returns the authenticated identity or writes a 401.
func identity(w http.ResponseWriter, r *http.Request) (*core.Identity, bool) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		errors.WriteError(w, errors.ErrUnauthorized)
		return nil, false
	}
	return id, true
}
