// Package apikey handles the opaque bearer secrets that identify tenants.
// Secrets are stored only as salted argon2id hashes; a keyed HMAC-derived
// lookup key narrows resolution candidates without weakening the one-way
// property of the stored hash.
package apikey

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Prefix marks HighShift API keys so they are recognizable in logs and
// support tickets without exposing the secret.
const Prefix = "hs_"

// Params are the argon2id cost parameters.
type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

var Default = Params{Memory: 64 * 1024, Time: 3, Parallelism: 1, KeyLen: 32}

// New generates a fresh opaque secret.
func New() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return Prefix + hex.EncodeToString(b), nil
}

// Hash returns a PHC string: $argon2id$v=19$m=...,t=...,p=...$<saltB64>$<dkB64>
func Hash(p Params, plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("empty secret")
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	dk := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(dk),
	), nil
}

// Verify reports whether plain matches the stored PHC hash.
func Verify(plain, phc string) bool {
	// $argon2id$v=19$m=...,t=...,p=...$<saltB64>$<dkB64>
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" || parts[2] != "v=19" {
		return false
	}
	var m, t, p int
	if n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); n != 3 || err != nil {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	dkStored, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}
	key := argon2.IDKey([]byte(plain), salt, uint32(t), uint32(m), uint8(p), uint32(len(dkStored)))
	return subtle.ConstantTimeCompare(key, dkStored) == 1
}

// Indexer derives non-secret lookup keys from secrets. The same secret
// always yields the same lookup key under a given index key, so stores can
// index it, but the key reveals nothing about the secret itself.
type Indexer struct {
	key []byte
}

// NewIndexer creates an Indexer from the process-wide index key.
func NewIndexer(key []byte) *Indexer {
	return &Indexer{key: key}
}

// lookupKeyLen truncates the HMAC to keep the index compact; collisions are
// acceptable since candidates are re-verified against the argon2id hash.
const lookupKeyLen = 16

// LookupKey returns the hex-encoded HMAC-SHA256 prefix for a secret.
func (ix *Indexer) LookupKey(secret string) string {
	mac := hmac.New(sha256.New, ix.key)
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))[:lookupKeyLen]
}
