package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"shopple/internal/auth"
)

// TokenValidator resolves a session token to the user it was issued for
type TokenValidator interface {
	ValidateToken(token string) (uuid.UUID, error)
}

// SessionAuth guards the admin API with the session cookie or a Bearer token
type SessionAuth struct {
	tokens TokenValidator
	logger *slog.Logger
}

// NewSessionAuth creates a new session authentication middleware
func NewSessionAuth(tokens TokenValidator, logger *slog.Logger) *SessionAuth {
	return &SessionAuth{
		tokens: tokens,
		logger: logger,
	}
}

// Middleware returns the authentication middleware handler
func (a *SessionAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.TokenFromRequest(r)
		if token == "" {
			a.logger.Warn("Admin request rejected - no session",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			unauthorized(w, "Unauthorized")
			return
		}

		userID, err := a.tokens.ValidateToken(token)
		if err != nil {
			a.logger.Warn("Admin request rejected - invalid session",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"error", err,
			)
			unauthorized(w, "Session expired or invalid")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
