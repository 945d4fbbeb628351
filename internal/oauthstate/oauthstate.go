// Package oauthstate persists the server side of an in-flight OAuth
// flow: the PKCE verifier and flow metadata, keyed by a random id. A
// record lives for at most ten minutes and can be consumed exactly once.
package oauthstate

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/highshift/highshift/internal/cache"
)

// TTL bounds how long a started flow may wait for its callback.
const TTL = 10 * time.Minute

const keyPrefix = "oauth:state:"

// ErrNotFound is returned when a record is missing, expired, or already
// consumed. Callers cannot distinguish the three.
var ErrNotFound = errors.New("oauthstate: state not found")

// Record is the server-held half of a flow.
type Record struct {
	IdentityID  string    `json:"identity_id"`
	Platform    string    `json:"platform"`
	Verifier    string    `json:"verifier"`
	RedirectURI string    `json:"redirect_uri"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store saves and consumes flow records.
type Store struct {
	cache cache.Client
}

func New(c cache.Client) *Store {
	return &Store{cache: c}
}

// Save stores the record under the given id for TTL.
func (s *Store) Save(ctx context.Context, id string, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, keyPrefix+id, data, TTL)
}

// Consume fetches and removes the record in one step, so replayed
// callbacks with the same state always fail.
func (s *Store) Consume(ctx context.Context, id string) (*Record, error) {
	data, err := s.cache.GetDelete(ctx, keyPrefix+id)
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
