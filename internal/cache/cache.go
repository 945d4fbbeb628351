// Package cache provides a small multi-backend TTL cache used for
// transient records (PKCE state, single-use codes).
//
// Backends:
//   - memory (in-process, backed by go-cache with background sweeping)
//   - redis (distributed, for multi-instance deployments)
package cache

import (
	"context"
	"time"
)

// Client defines the cache operations.
type Client interface {
	// Get fetches a value. Returns ErrNotFound when absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetDelete atomically fetches and removes a value, so a key can be
	// consumed exactly once. Returns ErrNotFound when absent or expired.
	GetDelete(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Removing a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close releases the backend.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Kind     string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string
}

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "cache: key not found" }

// IsNotFound reports whether err means the key does not exist.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// New builds a cache client for the configured backend.
func New(cfg Config) (Client, error) {
	switch cfg.Kind {
	case "redis":
		return NewRedis(cfg)
	default:
		return NewMemory(cfg.Prefix), nil
	}
}
