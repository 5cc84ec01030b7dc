package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"shopple/internal/domain"
)

// CategoryRepository implements the domain.CategoryRepository interface using PostgreSQL
type CategoryRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCategoryRepository creates a new PostgreSQL category repository
func NewCategoryRepository(db *sql.DB, logger *slog.Logger) *CategoryRepository {
	return &CategoryRepository{
		db:     db,
		logger: logger,
	}
}

const categorySelect = `
	SELECT c.id, c.name, c.slug, c.description, c.is_default, c.display_order,
	       c.created_at, c.updated_at, COUNT(pc.product_id) AS product_count
	FROM categories c
	LEFT JOIN product_categories pc ON pc.category_id = c.id`

func scanCategory(row rowScanner) (*domain.Category, error) {
	c := &domain.Category{}
	var description sql.NullString
	var updatedAt sql.NullTime

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&description,
		&c.IsDefault,
		&c.DisplayOrder,
		&c.CreatedAt,
		&updatedAt,
		&c.ProductCount,
	)
	if err != nil {
		return nil, err
	}

	c.Description = nullString(description)
	if updatedAt.Valid {
		c.UpdatedAt = &updatedAt.Time
	}
	return c, nil
}

// List returns categories with product counts, ordered by display order then name
func (r *CategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	query := categorySelect + `
	GROUP BY c.id
	ORDER BY c.display_order ASC, c.name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list categories", "error", err)
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]*domain.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

// GetByID retrieves a category by its UUID
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return r.getOne(ctx, "c.id = $1", id)
}

// GetBySlug retrieves a category by slug
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	return r.getOne(ctx, "c.slug = $1", slug)
}

func (r *CategoryRepository) getOne(ctx context.Context, where string, arg any) (*domain.Category, error) {
	query := categorySelect + "\n\tWHERE " + where + "\n\tGROUP BY c.id"

	c, err := scanCategory(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug("Category not found", "key", arg)
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to query category", "error", err, "key", arg)
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return c, nil
}

// Create inserts a category. An empty slug is derived from the name.
func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Slug == "" {
		c.Slug = domain.Slugify(c.Name)
	}

	query := `
		INSERT INTO categories (id, name, slug, description, is_default, display_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	var updatedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query,
		c.ID, c.Name, c.Slug, c.Description, c.IsDefault, c.DisplayOrder,
	).Scan(&c.CreatedAt, &updatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("category slug %q: %w", c.Slug, domain.ErrAlreadyExists)
		}
		r.logger.Error("Failed to create category", "error", err, "slug", c.Slug)
		return fmt.Errorf("failed to create category: %w", err)
	}
	if updatedAt.Valid {
		c.UpdatedAt = &updatedAt.Time
	}

	r.logger.Info("Category created", "category_id", c.ID, "slug", c.Slug)
	return nil
}

// Update modifies a category. An empty slug is re-derived from the name.
func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	if c.Slug == "" {
		c.Slug = domain.Slugify(c.Name)
	}

	query := `
		UPDATE categories SET
			name = $2, slug = $3, description = $4, display_order = $5, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Slug, c.Description, c.DisplayOrder)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("category slug %q: %w", c.Slug, domain.ErrAlreadyExists)
		}
		r.logger.Error("Failed to update category", "error", err, "category_id", c.ID)
		return fmt.Errorf("failed to update category: %w", err)
	}
	if err := expectRow(result); err != nil {
		return err
	}

	r.logger.Info("Category updated", "category_id", c.ID)
	return nil
}

// Delete removes a non-default category
func (r *CategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var isDefault bool
	err := r.db.QueryRowContext(ctx, "SELECT is_default FROM categories WHERE id = $1", id).Scan(&isDefault)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to load category: %w", err)
	}
	if isDefault {
		r.logger.Warn("Refused to delete default category", "category_id", id)
		return domain.ErrDefaultCategory
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1 AND NOT is_default", id); err != nil {
		r.logger.Error("Failed to delete category", "error", err, "category_id", id)
		return fmt.Errorf("failed to delete category: %w", err)
	}

	r.logger.Info("Category deleted", "category_id", id)
	return nil
}

// Reorder sets each category's display_order to its index in ids
func (r *CategoryRepository) Reorder(ctx context.Context, ids []uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, id := range ids {
		result, err := tx.ExecContext(ctx,
			"UPDATE categories SET display_order = $2, updated_at = NOW() WHERE id = $1", id, i)
		if err != nil {
			return fmt.Errorf("failed to reorder category %s: %w", id, err)
		}
		if err := expectRow(result); err != nil {
			return fmt.Errorf("category %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit category order: %w", err)
	}

	r.logger.Info("Categories reordered", "count", len(ids))
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
