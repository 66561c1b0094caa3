package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/mkamau/tokenvault/internal/domain"
)

// Identity is the authenticated caller. Role is taken from the token claims
// and trusted downstream; the middleware is the only writer.
type Identity struct {
	AccountID uuid.UUID
	Role      domain.AccountRole
}

type identityKey struct{}

func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
