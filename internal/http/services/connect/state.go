package connect

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StateSigner binds the OAuth state parameter to this service. The
// state travelling through the provider is an HS256 JWT whose jti keys
// the server-side PKCE record; the signature stops forged callbacks
// before any storage lookup happens.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewStateSigner(secret []byte, ttl time.Duration) *StateSigner {
	return &StateSigner{secret: secret, ttl: ttl, now: time.Now}
}

type stateClaims struct {
	Provider string `json:"prv"`
	jwt.RegisteredClaims
}

// Sign issues the state token for one flow.
func (s *StateSigner) Sign(jti, provider string) (string, error) {
	now := s.now()
	claims := stateClaims{
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature and expiry and returns the jti and provider.
func (s *StateSigner) Verify(state string) (jti, provider string, err error) {
	var claims stateClaims
	tok, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !tok.Valid {
		return "", "", errors.New("connect: invalid state token")
	}
	return claims.ID, claims.Provider, nil
}
