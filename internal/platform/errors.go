package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind buckets provider failures so callers can react uniformly across
// platforms.
type Kind string

const (
	KindAuth           Kind = "auth"            // token rejected or insufficient permissions
	KindRateLimited    Kind = "rate_limited"    // provider throttled the call
	KindAPI            Kind = "api"             // any other provider-side failure
	KindTimeout        Kind = "timeout"         // deadline exceeded talking to the provider
	KindNotImplemented Kind = "not_implemented" // operation unsupported on this platform
)

// Error is the normalized provider failure.
type Error struct {
	Platform   string
	Kind       Kind
	StatusHint int // provider HTTP status when one exists
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusHint > 0 {
		return fmt.Sprintf("%s: %s (%s, status %d)", e.Platform, e.Message, e.Kind, e.StatusHint)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Platform, e.Message, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a provider error of the given kind.
func NewError(platform string, kind Kind, msg string) *Error {
	return &Error{Platform: platform, Kind: kind, Message: msg}
}

// ErrNotImplemented marks an operation a platform does not offer.
func ErrNotImplemented(platform, op string) *Error {
	return &Error{Platform: platform, Kind: KindNotImplemented, Message: op + " is not supported"}
}

// FromStatus classifies a provider HTTP status.
func FromStatus(platform string, status int, body string) *Error {
	kind := KindAPI
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuth
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	}
	msg := body
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{Platform: platform, Kind: kind, StatusHint: status, Message: msg}
}

// Normalize folds transport failures into the taxonomy. A nil err passes
// through, an *Error passes through unchanged, context deadline failures
// become KindTimeout, everything else becomes KindAPI.
func Normalize(platform string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Platform: platform, Kind: KindTimeout, Message: "provider call timed out", Err: err}
	}
	return &Error{Platform: platform, Kind: KindAPI, Message: err.Error(), Err: err}
}

// AsError extracts the normalized form when err carries one.
func AsError(err error) (*Error, bool) {
	var pe *Error
	ok := errors.As(err, &pe)
	return pe, ok
}
