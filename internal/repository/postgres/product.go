package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"shopple/internal/domain"
)

// ProductRepository implements the domain.ProductRepository interface using PostgreSQL
type ProductRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewProductRepository creates a new PostgreSQL product repository
func NewProductRepository(db *sql.DB, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: logger,
	}
}

const productSelect = `
	SELECT p.id, p.title, p.description, p.price, p.discount_percentage,
	       p.image_url, p.source, p.source_url, p.rating, p.review_count,
	       p.is_hidden, p.is_pinned, p.is_commissionable, p.clicks, p.shares,
	       p.commission, p.user_id, p.last_refreshed_at, p.created_at, p.updated_at,
	       COALESCE(array_agg(c.id::text ORDER BY c.display_order) FILTER (WHERE c.id IS NOT NULL), '{}') AS category_ids,
	       COALESCE(array_agg(c.slug ORDER BY c.display_order) FILTER (WHERE c.id IS NOT NULL), '{}') AS category_slugs
	FROM products p
	LEFT JOIN product_categories pc ON pc.product_id = p.id
	LEFT JOIN categories c ON c.id = pc.category_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	var (
		description, imageURL, source, sourceURL sql.NullString
		price, rating                            sql.NullFloat64
		discount                                 sql.NullInt32
		userID                                   uuid.NullUUID
		lastRefreshed, updatedAt                 sql.NullTime
		categoryIDs                              []string
	)

	err := row.Scan(
		&p.ID,
		&p.Title,
		&description,
		&price,
		&discount,
		&imageURL,
		&source,
		&sourceURL,
		&rating,
		&p.ReviewCount,
		&p.IsHidden,
		&p.IsPinned,
		&p.IsCommissionable,
		&p.Clicks,
		&p.Shares,
		&p.Commission,
		&userID,
		&lastRefreshed,
		&p.CreatedAt,
		&updatedAt,
		pq.Array(&categoryIDs),
		pq.Array(&p.CategorySlugs),
	)
	if err != nil {
		return nil, err
	}

	p.Description = nullString(description)
	p.ImageURL = nullString(imageURL)
	p.Source = nullString(source)
	p.SourceURL = nullString(sourceURL)
	if price.Valid {
		p.Price = &price.Float64
	}
	if rating.Valid {
		p.Rating = &rating.Float64
	}
	if discount.Valid {
		d := int(discount.Int32)
		p.DiscountPercentage = &d
	}
	if userID.Valid {
		p.UserID = &userID.UUID
	}
	if lastRefreshed.Valid {
		p.LastRefreshedAt = &lastRefreshed.Time
	}
	if updatedAt.Valid {
		p.UpdatedAt = &updatedAt.Time
	}

	p.CategoryIDs = make([]uuid.UUID, 0, len(categoryIDs))
	for _, raw := range categoryIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid category id %q: %w", raw, err)
		}
		p.CategoryIDs = append(p.CategoryIDs, id)
	}
	if p.CategorySlugs == nil {
		p.CategorySlugs = []string{}
	}

	return p, nil
}

// List returns products, pinned first then newest
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, "p.user_id = $"+strconv.Itoa(len(args)))
	}
	if !filter.IncludeHidden {
		conditions = append(conditions, "NOT p.is_hidden")
	}
	if filter.CategorySlug != "" {
		args = append(args, filter.CategorySlug)
		conditions = append(conditions, `EXISTS (
			SELECT 1 FROM product_categories fpc
			JOIN categories fc ON fc.id = fpc.category_id
			WHERE fpc.product_id = p.id AND fc.slug = $`+strconv.Itoa(len(args))+`)`)
	}

	query := productSelect
	if len(conditions) > 0 {
		query += "\n\tWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\n\tGROUP BY p.id\n\tORDER BY p.is_pinned DESC, p.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list products", "error", err)
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]*domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, nil
}

// GetByID retrieves a product by its UUID
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := productSelect + "\n\tWHERE p.id = $1\n\tGROUP BY p.id"

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug("Product not found", "product_id", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to query product", "error", err, "product_id", id)
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

// Create inserts a product. Category links are written after the product row
// commits; a failed link is logged and does not fail the create.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	query := `
		INSERT INTO products (
			id, title, description, price, discount_percentage, image_url,
			source, source_url, rating, review_count, is_hidden, is_pinned,
			is_commissionable, commission, user_id, clicks, shares
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at`

	var updatedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.Title, p.Description, p.Price, p.DiscountPercentage, p.ImageURL,
		p.Source, p.SourceURL, p.Rating, p.ReviewCount, p.IsHidden, p.IsPinned,
		p.IsCommissionable, p.Commission, p.UserID, p.Clicks, p.Shares,
	).Scan(&p.CreatedAt, &updatedAt)
	if err != nil {
		r.logger.Error("Failed to create product", "error", err, "title", p.Title)
		return fmt.Errorf("failed to create product: %w", err)
	}
	if updatedAt.Valid {
		p.UpdatedAt = &updatedAt.Time
	}

	if len(p.CategoryIDs) > 0 {
		if err := linkCategories(ctx, r.db, p.ID, p.CategoryIDs); err != nil {
			r.logger.Warn("Failed to link product categories",
				"error", err,
				"product_id", p.ID,
			)
		}
	}

	r.logger.Info("Product created", "product_id", p.ID, "title", p.Title)
	return nil
}

// Update modifies a product. A non-nil CategoryIDs replaces all category links.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE products SET
			title = $2, description = $3, price = $4, discount_percentage = $5,
			image_url = $6, source = $7, source_url = $8, rating = $9,
			review_count = $10, is_hidden = $11, is_pinned = $12,
			is_commissionable = $13, commission = $14, updated_at = NOW()
		WHERE id = $1`

	result, err := tx.ExecContext(ctx, query,
		p.ID, p.Title, p.Description, p.Price, p.DiscountPercentage,
		p.ImageURL, p.Source, p.SourceURL, p.Rating,
		p.ReviewCount, p.IsHidden, p.IsPinned,
		p.IsCommissionable, p.Commission,
	)
	if err != nil {
		r.logger.Error("Failed to update product", "error", err, "product_id", p.ID)
		return fmt.Errorf("failed to update product: %w", err)
	}
	if err := expectRow(result); err != nil {
		return err
	}

	if p.CategoryIDs != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM product_categories WHERE product_id = $1", p.ID); err != nil {
			return fmt.Errorf("failed to clear product categories: %w", err)
		}
		if len(p.CategoryIDs) > 0 {
			if err := linkCategories(ctx, tx, p.ID, p.CategoryIDs); err != nil {
				return fmt.Errorf("failed to link product categories: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit product update: %w", err)
	}

	now := time.Now()
	p.UpdatedAt = &now
	r.logger.Info("Product updated", "product_id", p.ID)
	return nil
}

// Delete removes a product; with a userID only that owner's product is removed
func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID, userID *uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM products WHERE id = $1 AND ($2::uuid IS NULL OR user_id = $2)",
		id, userID,
	)
	if err != nil {
		r.logger.Error("Failed to delete product", "error", err, "product_id", id)
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if err := expectRow(result); err != nil {
		return err
	}

	r.logger.Info("Product deleted", "product_id", id)
	return nil
}

// IncrementClicks bumps the click counter
func (r *ProductRepository) IncrementClicks(ctx context.Context, id uuid.UUID) error {
	return r.increment(ctx, id, "clicks")
}

// IncrementShares bumps the share counter
func (r *ProductRepository) IncrementShares(ctx context.Context, id uuid.UUID) error {
	return r.increment(ctx, id, "shares")
}

func (r *ProductRepository) increment(ctx context.Context, id uuid.UUID, column string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE products SET "+column+" = "+column+" + 1 WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to increment %s: %w", column, err)
	}
	return expectRow(result)
}

// ApplyRefresh stores freshly extracted fields; nil fields keep their value
func (r *ProductRepository) ApplyRefresh(ctx context.Context, id uuid.UUID, refresh domain.ProductRefresh) error {
	query := `
		UPDATE products SET
			title = COALESCE($2, title),
			image_url = COALESCE($3, image_url),
			price = COALESCE($4, price),
			last_refreshed_at = NOW(),
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, refresh.Title, refresh.ImageURL, refresh.Price)
	if err != nil {
		r.logger.Error("Failed to apply product refresh", "error", err, "product_id", id)
		return fmt.Errorf("failed to apply product refresh: %w", err)
	}
	return expectRow(result)
}

// ListForRefresh returns commissionable products with a source URL, least recently refreshed first
func (r *ProductRepository) ListForRefresh(ctx context.Context, limit int) ([]*domain.Product, error) {
	query := productSelect + `
	WHERE p.source_url IS NOT NULL AND p.is_commissionable
	GROUP BY p.id
	ORDER BY p.last_refreshed_at ASC NULLS FIRST
	LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list products for refresh: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Stats aggregates catalog counters, scoped to an owner when userID is set
func (r *ProductRepository) Stats(ctx context.Context, userID *uuid.UUID) (*domain.ProductStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE NOT is_hidden),
		       COUNT(*) FILTER (WHERE is_pinned),
		       COALESCE(SUM(clicks), 0),
		       COALESCE(SUM(shares), 0),
		       COALESCE(SUM(commission), 0)
		FROM products
		WHERE ($1::uuid IS NULL OR user_id = $1)`

	stats := &domain.ProductStats{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.Products,
		&stats.Visible,
		&stats.Pinned,
		&stats.Clicks,
		&stats.Shares,
		&stats.Commission,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query product stats: %w", err)
	}
	return stats, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func linkCategories(ctx context.Context, db execer, productID uuid.UUID, categoryIDs []uuid.UUID) error {
	ids := make([]string, len(categoryIDs))
	for i, id := range categoryIDs {
		ids[i] = id.String()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO product_categories (product_id, category_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT DO NOTHING`,
		productID, pq.Array(ids),
	)
	return err
}

func expectRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
