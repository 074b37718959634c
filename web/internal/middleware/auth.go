package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/devilmonastery/bnetsso/internal/auth"
	"github.com/devilmonastery/bnetsso/internal/domain/entities"
	"github.com/devilmonastery/bnetsso/web/internal/session"
)

// UserLoader loads an account by id
type UserLoader interface {
	GetUser(ctx context.Context, userID string) (*entities.User, error)
}

// AuthMiddleware resolves the session's account into the request context
type AuthMiddleware struct {
	sessionManager *session.Manager
	users          UserLoader
	log            *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(sessionManager *session.Manager, users UserLoader, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		sessionManager: sessionManager,
		users:          users,
		log:            logger.With(slog.String("component", "auth_middleware")),
	}
}

// LoadUser puts the logged-in account, if any, into the request context.
// A session pointing at a deleted account is cleared.
func (m *AuthMiddleware) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, err := m.sessionManager.UserID(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.users.GetUser(r.Context(), uid)
		if err != nil {
			m.log.Debug("session account unavailable",
				slog.String("user_id", uid),
				slog.String("error", err.Error()))
			if cerr := m.sessionManager.Clear(r, w); cerr != nil {
				m.log.Error("error clearing session", slog.String("error", cerr.Error()))
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
			UserID:   user.ID,
			Username: user.Username,
			Role:     string(user.Role),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests without a logged-in account
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := auth.GetUserFromContext(r.Context()); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests from non-admin accounts
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch err := auth.RequireAdmin(r.Context()); err {
		case nil:
			next.ServeHTTP(w, r)
		case auth.ErrForbidden:
			http.Error(w, "Forbidden", http.StatusForbidden)
		default:
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		}
	})
}
