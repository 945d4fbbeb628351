package core

import (
	"time"
)

// Identity is an API caller. Callers authenticate with an opaque secret;
// only the argon2id hash and a non-reversible lookup key are stored.
type Identity struct {
	ID           string    `json:"id"`
	Label        string    `json:"label,omitempty"`
	APIKeyHash   string    `json:"-"`
	APIKeyLookup string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LinkedAccount is a connection between an identity and an external
// platform account. Token material is stored encrypted and is only
// decrypted transiently inside the token vault.
type LinkedAccount struct {
	ID                string    `json:"id"`
	IdentityID        string    `json:"identity_id"`
	Platform          string    `json:"platform"`
	ExternalAccountID string    `json:"external_account_id"`
	Username          string    `json:"username,omitempty"`
	DisplayName       string    `json:"display_name,omitempty"`
	AccessTokenEnc    string    `json:"-"`
	RefreshTokenEnc   string    `json:"-"`
	TokenExpiresAt    time.Time `json:"token_expires_at,omitempty"`
	Scopes            []string  `json:"scopes,omitempty"`
	RawProfile        []byte    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HasRefreshToken reports whether a refresh grant is on file.
func (a *LinkedAccount) HasRefreshToken() bool { return a.RefreshTokenEnc != "" }

// Scheduled post lifecycle. A post starts pending, is claimed into
// processing by the dispatcher, and lands in one terminal publish state.
// Cancellation is only valid from pending.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusPublished  = "published"
	StatusPartial    = "partial"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Target addresses one destination of a publish. ExternalAccountID may be
// empty, in which case the platform name alone must be unambiguous for
// the identity.
type Target struct {
	Platform          string `json:"platform"`
	ExternalAccountID string `json:"external_account_id,omitempty"`
}

// Key renders the canonical target key used in results and requests.
func (t Target) Key() string {
	if t.ExternalAccountID == "" {
		return t.Platform
	}
	return t.Platform + ":" + t.ExternalAccountID
}

// TargetResult is the per-destination outcome of a publish attempt.
type TargetResult struct {
	Target       string `json:"target"`
	Status       string `json:"status"` // "ok" | "error"
	PostID       string `json:"post_id,omitempty"`
	PostURL      string `json:"post_url,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// ScheduledPost is a deferred publish request.
type ScheduledPost struct {
	ID           string         `json:"id"`
	IdentityID   string         `json:"identity_id"`
	Content      string         `json:"content,omitempty"`
	MediaURLs    []string       `json:"media_urls,omitempty"`
	Targets      []Target       `json:"targets"`
	ScheduledAt  time.Time      `json:"scheduled_at"`
	Status       string         `json:"status"`
	Results      []TargetResult `json:"results,omitempty"`
	ErrorSummary string         `json:"error_summary,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
