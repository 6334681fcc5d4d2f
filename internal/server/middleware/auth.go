package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"callerlens/internal/httpx"
	"callerlens/internal/security"
	userdomain "callerlens/internal/user/domain"
)

// UserLoader resolves a token subject to a stored user.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// RequireAuth validates the bearer token, confirms the account still exists
// and is active, and stores the user id in the request context.
func RequireAuth(tokens *security.TokenProvider, users UserLoader, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httpx.Fail(w, http.StatusUnauthorized, "authorization token required")
				return
			}

			userID, err := tokens.ValidateAccess(token)
			if err != nil {
				httpx.Fail(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			u, err := users.GetByID(r.Context(), userID)
			if err != nil {
				logger.Error("auth user lookup failed", zap.Error(err))
				httpx.Fail(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if u == nil || !u.IsActive {
				httpx.Fail(w, http.StatusUnauthorized, "account not found or deactivated")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), u.ID)))
		})
	}
}
