package auth

import (
	"context"
	"fmt"
	"net/http"

	"ms-events/internal/apperrors"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
)

type contextKey string

const userKey contextKey = "current_user"

// UserResolver turns a raw bearer token into the stored user.
type UserResolver interface {
	ResolveCurrentUser(ctx context.Context, token string) (*models.User, error)
}

// Middleware rejects requests without a valid bearer token and stores the
// resolved user in the request context.
func Middleware(resolver UserResolver, l *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				l.LogSecurity("AUTH", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, l, apperrors.Unauthenticated("Authentication required"))
				return
			}

			user, err := resolver.ResolveCurrentUser(r.Context(), rawToken)
			if err != nil {
				l.LogSecurity("AUTH", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, l, err)
				return
			}

			ctx := WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// Helper to extract the authenticated user in handlers
func CurrentUser(ctx context.Context) *models.User {
	if u, ok := ctx.Value(userKey).(*models.User); ok {
		return u
	}
	return nil
}
