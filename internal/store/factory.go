// Package store wires a Repository implementation from configuration.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/highshift/highshift/internal/store/core"
	"github.com/highshift/highshift/internal/store/memory"
	"github.com/highshift/highshift/internal/store/pg"
)

// Config selects the persistence backend.
type Config struct {
	Driver          string // "memory" | "postgres"
	DSN             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
}

// New builds the configured Repository.
func New(ctx context.Context, cfg Config) (core.Repository, error) {
	switch cfg.Driver {
	case "", "memory":
		return memory.New(), nil
	case "postgres", "pg":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("store: postgres driver requires a DSN")
		}
		return pg.New(ctx, cfg.DSN, pg.Config{
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
