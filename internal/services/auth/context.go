package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
)

type identityContextKey string

const identityKey identityContextKey = "auth_identity"

type Identity struct {
	UserID uuid.UUID
	SID    string
	Role   enums.Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == enums.RoleAdmin
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// ViewerFromContext returns the caller's user id, or nil for anonymous
// requests.
func ViewerFromContext(ctx context.Context) *uuid.UUID {
	identity, ok := IdentityFromContext(ctx)
	if !ok || identity.UserID == uuid.Nil {
		return nil
	}
	id := identity.UserID
	return &id
}
