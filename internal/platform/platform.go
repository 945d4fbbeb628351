// Package platform defines the contract every social platform adapter
// implements, plus the shared error taxonomy and HTTP plumbing. Concrete
// adapters live in subpackages (twitter, linkedin, facebook, instagram,
// threads) and are assembled into a Registry at startup.
package platform

import (
	"context"
	"time"
)

// Capabilities declares what a platform supports. The orchestration
// layers consult this instead of probing adapters at runtime.
type Capabilities struct {
	// Refresh is true when the platform issues refresh tokens that can
	// mint new access tokens without user interaction.
	Refresh bool

	// PublishText is true when text-only posts are supported.
	PublishText bool

	// PublishImage is true when image posts are supported.
	PublishImage bool

	// RequiresMedia is true when the platform cannot publish without at
	// least one media attachment.
	RequiresMedia bool

	// MaxTextLen caps post text length. Zero means no platform limit.
	MaxTextLen int

	// MaxMediaItems caps attachments per post. Zero means no limit.
	MaxMediaItems int
}

// TokenGrant is the normalized result of a code exchange or refresh.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // zero when the token does not expire
	Scopes       []string
}

// Profile identifies the external account a grant belongs to.
type Profile struct {
	ExternalAccountID string
	Username          string
	DisplayName       string
	Raw               []byte // provider response, persisted for diagnostics
}

// Receipt is the proof of a successful publish.
type Receipt struct {
	PostID  string
	PostURL string
}

// Adapter is the per-platform driver. Implementations must be safe for
// concurrent use.
type Adapter interface {
	Name() string
	Capabilities() Capabilities

	// AuthorizationURL renders the user-facing consent URL. state and
	// codeChallenge (S256) are always supplied; adapters for platforms
	// without PKCE support may omit the challenge parameters.
	AuthorizationURL(redirectURI, state, codeChallenge string) string

	// ExchangeCode trades an authorization code for tokens.
	ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*TokenGrant, error)

	// RefreshGrant mints a fresh grant from a refresh token. Adapters
	// whose Capabilities report Refresh=false return a not-implemented
	// error.
	RefreshGrant(ctx context.Context, refreshToken string) (*TokenGrant, error)

	// FetchProfile resolves the account the token acts as. For platforms
	// with indirection (pages, business accounts) this walks the chain
	// and returns the final publishable account.
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)

	// PublishText posts text to the account.
	PublishText(ctx context.Context, accessToken, externalAccountID, text string) (*Receipt, error)

	// PublishImage posts one or more images with an optional caption.
	PublishImage(ctx context.Context, accessToken, externalAccountID, caption string, imageURLs []string) (*Receipt, error)
}
