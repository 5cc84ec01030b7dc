// Package auth verifies the shop owner's credentials and issues session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"shopple/internal/domain"
)

// DefaultSessionTTL matches the lifetime of the session cookie
const DefaultSessionTTL = 7 * 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Claims represents JWT claims; Subject holds the user id
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Config holds the admin account and signing settings
type Config struct {
	Username     string
	PasswordHash string
	Secret       string
	TTL          time.Duration
}

// Manager handles admin login and JWT generation and validation
type Manager struct {
	cfg    Config
	users  domain.UserRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a new auth manager
func NewManager(cfg Config, users domain.UserRepository, logger *slog.Logger) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	return &Manager{
		cfg:    cfg,
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// Session is the result of a successful login
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// Login checks the credentials against the configured admin account, makes
// sure a users row exists for it and returns a signed session token.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	if m.cfg.PasswordHash == "" || username != m.cfg.Username {
		m.logger.Warn("Login attempt failed - unknown user", "username", username)
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.cfg.PasswordHash), []byte(password)); err != nil {
		m.logger.Warn("Login attempt failed - invalid password", "username", username)
		return nil, ErrInvalidCredentials
	}

	user, err := m.ensureUser(ctx, username)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := m.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	m.logger.Info("User logged in", "username", username, "user_id", user.ID)
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (m *Manager) ensureUser(ctx context.Context, username string) (*domain.User, error) {
	user, err := m.users.GetByUsername(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	user = &domain.User{Username: username}
	if err := m.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GenerateToken signs an HS256 token for user
func (m *Manager) GenerateToken(user *domain.User) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.cfg.TTL)
	claims := &Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken parses tokenString and returns the user id it was issued for
func (m *Manager) ValidateToken(tokenString string) (uuid.UUID, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(m.cfg.Secret), nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return userID, nil
}

// HashPassword returns the bcrypt hash to put in ADMIN_PASSWORD_HASH
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
