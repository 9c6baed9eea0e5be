package auth

import (
	"context"

	"chorebank/internal/model"
)

type contextKey struct{}

// AuthContext carries the authenticated caller through the request context.
type AuthContext struct {
	UserID    int64
	Role      model.Role
	SessionID int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// Actor returns the caller identity the domain services expect. The zero
// Actor (invalid role) is returned for unauthenticated contexts.
func Actor(ctx context.Context) model.Actor {
	ac, ok := FromContext(ctx)
	if !ok {
		return model.Actor{}
	}
	return model.Actor{ID: ac.UserID, Role: ac.Role}
}
