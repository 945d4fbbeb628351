// Package pkce generates the verifier/challenge pairs for the OAuth2
// authorization-code-with-PKCE flow (RFC 7636, S256 method).
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// NewVerifier returns a fresh high-entropy code verifier (43 chars of
// base64url, from 32 random bytes).
func NewVerifier() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Challenge derives the S256 code challenge for a verifier. Deterministic:
// the same verifier always recomputes the same challenge.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NewStateID returns a random token suitable as a single-use state key.
func NewStateID() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
