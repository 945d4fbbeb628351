package auth

import (
	"context"

	"github.com/highshift/highshift/internal/store/core"
)

type ctxKey struct{}

// WithIdentity attaches the authenticated identity to the context.
func WithIdentity(ctx context.Context, id *core.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFrom returns the authenticated identity, if any.
func IdentityFrom(ctx context.Context) (*core.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*core.Identity)
	return id, ok
}
