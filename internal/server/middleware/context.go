package middleware

import "context"

type contextKey string

const userIDKey contextKey = "auth.user_id"

// WithUserID returns a context carrying the authenticated user's id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated user's id, or false when the request
// never passed authentication.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
