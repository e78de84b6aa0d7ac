package middleware

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	userIDKey ctxKey = "auth_user_id"
	bearerKey ctxKey = "auth_bearer"
)

func withUser(ctx context.Context, userID uuid.UUID, bearer string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, bearerKey, bearer)
}

// UserIDFromContext returns the authenticated user id set by AuthMiddleware.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// BearerFromContext returns the raw token the request authenticated with.
func BearerFromContext(ctx context.Context) string {
	token, _ := ctx.Value(bearerKey).(string)
	return token
}
