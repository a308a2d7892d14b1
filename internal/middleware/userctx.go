package middleware

import (
	"context"

	"github.com/baharkarakas/tpay-mfs/internal/models"
)

type userKey struct{}

type UserCtx struct {
	UserID string
	Role   models.Role
}

func WithUser(ctx context.Context, u UserCtx) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// FromCtx returns the zero UserCtx and false on unauthenticated requests.
func FromCtx(ctx context.Context) (UserCtx, bool) {
	if v := ctx.Value(userKey{}); v != nil {
		if u, ok := v.(UserCtx); ok && u.UserID != "" {
			return u, true
		}
	}
	return UserCtx{}, false
}
