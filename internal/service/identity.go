package service

import (
	"context"

	"github.com/sumire/pumpplanner/internal/domain"
)

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the authenticated caller.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom extracts the caller stored by WithIdentity.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok
}
