package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"shopple/internal/domain"
)

// UserRepository implements the domain.UserRepository interface using PostgreSQL
type UserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sql.DB, logger *slog.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

const userSelect = `
	SELECT id, username, full_name, avatar_url, email, created_at, updated_at
	FROM users`

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	var fullName, avatarURL, email sql.NullString
	var updatedAt sql.NullTime

	if err := row.Scan(&u.ID, &u.Username, &fullName, &avatarURL, &email, &u.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	u.FullName = nullString(fullName)
	u.AvatarURL = nullString(avatarURL)
	u.Email = nullString(email)
	if updatedAt.Valid {
		u.UpdatedAt = &updatedAt.Time
	}
	return u, nil
}

// GetByID retrieves a user by UUID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, "username = $1", username)
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, userSelect+"\n\tWHERE "+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to query user", "error", err, "key", arg)
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// Create inserts a user; duplicates fail with domain.ErrAlreadyExists
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	query := `
		INSERT INTO users (id, username, full_name, avatar_url, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	var updatedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, u.ID, u.Username, u.FullName, u.AvatarURL, u.Email).
		Scan(&u.CreatedAt, &updatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", u.Username, domain.ErrAlreadyExists)
		}
		r.logger.Error("Failed to create user", "error", err, "username", u.Username)
		return fmt.Errorf("failed to create user: %w", err)
	}
	if updatedAt.Valid {
		u.UpdatedAt = &updatedAt.Time
	}

	r.logger.Info("User created", "user_id", u.ID, "username", u.Username)
	return nil
}

// UpdateProfile changes username, full name and avatar; nil fields are kept
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, update domain.ProfileUpdate) (*domain.User, error) {
	query := `
		UPDATE users SET
			username = COALESCE($2, username),
			full_name = COALESCE($3, full_name),
			avatar_url = COALESCE($4, avatar_url),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id, username, full_name, avatar_url, email, created_at, updated_at`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id, update.Username, update.FullName, update.AvatarURL))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("username taken: %w", domain.ErrAlreadyExists)
		}
		r.logger.Error("Failed to update profile", "error", err, "user_id", id)
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	r.logger.Info("Profile updated", "user_id", id)
	return u, nil
}
