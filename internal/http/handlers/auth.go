package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"shopple/internal/auth"
	"shopple/internal/domain"
)

// Authenticator checks admin credentials
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*auth.Session, error)
}

type AuthHandler struct {
	logger       *slog.Logger
	auth         Authenticator
	cookieSecure bool
}

func NewAuthHandler(logger *slog.Logger, authenticator Authenticator, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		logger:       logger,
		auth:         authenticator,
		cookieSecure: cookieSecure,
	}
}

// LoginRequest is the body of POST /api/v1/auth/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse returns the token for clients that cannot use cookies
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// Login handles POST /api/v1/auth/login and sets the session cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	session, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.logger.Warn("Failed login attempt", "username", req.Username, "remote_addr", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		writeFailure(w, h.logger, err, "log in")
		return
	}

	auth.SetCookie(w, session.Token, session.ExpiresAt, h.cookieSecure)
	writeJSON(w, h.logger, http.StatusOK, LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      session.User,
	})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w, h.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}
