// Package errors defines the HTTP error envelope and the stable error
// codes the API exposes.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"
)

// AppError is the wire form of a failure.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return e.Code + ": " + e.Message + " (" + e.Detail + ")"
	}
	return e.Code + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail returns a copy carrying extra context for the caller.
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithErr returns a copy wrapping the underlying cause.
func (e *AppError) WithErr(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// Stable error codes.
const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeUnsupportedPlatform   = "UNSUPPORTED_PLATFORM"
	CodeInvalidOrExpiredState = "INVALID_OR_EXPIRED_STATE"
	CodeOAuthProviderError    = "OAUTH_PROVIDER_ERROR"
	CodeInvalidSecret         = "INVALID_SECRET"
	CodeLinkedAccountNotFound = "LINKED_ACCOUNT_NOT_FOUND"
	CodePlatformMismatch      = "PLATFORM_MISMATCH"
	CodeTokenExpiredNoRefresh = "TOKEN_EXPIRED_NO_REFRESH"
	CodeTokenRefreshFailed    = "TOKEN_REFRESH_FAILED"
	CodeProviderRateLimited   = "PROVIDER_RATE_LIMITED"
	CodeProviderAuthFailed    = "PROVIDER_AUTH_FAILED"
	CodeProviderAPIError      = "PROVIDER_API_ERROR"
	CodeProviderTimeout       = "PROVIDER_TIMEOUT"
	CodeNotImplemented        = "NOT_IMPLEMENTED"
	CodeInvalidTransition     = "INVALID_STATE_TRANSITION"
	CodeNotFound              = "NOT_FOUND"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeInternal              = "INTERNAL_ERROR"
)

var (
	ErrValidation = &AppError{Code: CodeValidation, Message: "request validation failed", HTTPStatus: http.StatusBadRequest}

	ErrUnsupportedPlatform = &AppError{Code: CodeUnsupportedPlatform, Message: "platform is not supported", HTTPStatus: http.StatusBadRequest}

	ErrInvalidOrExpiredState = &AppError{Code: CodeInvalidOrExpiredState, Message: "state is invalid, expired, or already used", HTTPStatus: http.StatusBadRequest}

	ErrOAuthProvider = &AppError{Code: CodeOAuthProviderError, Message: "provider rejected the authorization", HTTPStatus: http.StatusBadGateway}

	ErrInvalidSecret = &AppError{Code: CodeInvalidSecret, Message: "secret is invalid", HTTPStatus: http.StatusUnauthorized}

	ErrLinkedAccountNotFound = &AppError{Code: CodeLinkedAccountNotFound, Message: "no linked account matches", HTTPStatus: http.StatusNotFound}

	ErrPlatformMismatch = &AppError{Code: CodePlatformMismatch, Message: "account belongs to a different platform", HTTPStatus: http.StatusBadRequest}

	ErrTokenExpiredNoRefresh = &AppError{Code: CodeTokenExpiredNoRefresh, Message: "token expired and cannot be refreshed", HTTPStatus: http.StatusConflict}

	ErrTokenRefreshFailed = &AppError{Code: CodeTokenRefreshFailed, Message: "token refresh was rejected by the provider", HTTPStatus: http.StatusBadGateway}

	ErrProviderRateLimited = &AppError{Code: CodeProviderRateLimited, Message: "provider rate limit hit", HTTPStatus: http.StatusTooManyRequests}

	ErrProviderAuthFailed = &AppError{Code: CodeProviderAuthFailed, Message: "provider rejected the credentials", HTTPStatus: http.StatusBadGateway}

	ErrProviderAPI = &AppError{Code: CodeProviderAPIError, Message: "provider call failed", HTTPStatus: http.StatusBadGateway}

	ErrProviderTimeout = &AppError{Code: CodeProviderTimeout, Message: "provider call timed out", HTTPStatus: http.StatusGatewayTimeout}

	ErrNotImplemented = &AppError{Code: CodeNotImplemented, Message: "operation not supported on this platform", HTTPStatus: http.StatusBadRequest}

	ErrInvalidTransition = &AppError{Code: CodeInvalidTransition, Message: "scheduled post cannot change state that way", HTTPStatus: http.StatusConflict}

	ErrNotFound = &AppError{Code: CodeNotFound, Message: "resource not found", HTTPStatus: http.StatusNotFound}

	ErrUnauthorized = &AppError{Code: CodeUnauthorized, Message: "authentication required", HTTPStatus: http.StatusUnauthorized}

	ErrInternal = &AppError{Code: CodeInternal, Message: "internal error", HTTPStatus: http.StatusInternalServerError}
)

type envelope struct {
	Error *AppError `json:"error"`
}

// WriteError renders err as the JSON envelope. Unknown errors become
// an opaque internal error.
func WriteError(w http.ResponseWriter, err error) {
	app := From(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(app.HTTPStatus)
	_ = json.NewEncoder(w).Encode(envelope{Error: app})
}

// From extracts the AppError or wraps err as internal.
func From(err error) *AppError {
	var app *AppError
	if errors.As(err, &app) {
		if app.HTTPStatus == 0 {
			cp := *app
			cp.HTTPStatus = http.StatusInternalServerError
			return &cp
		}
		return app
	}
	return ErrInternal.WithErr(err)
}
