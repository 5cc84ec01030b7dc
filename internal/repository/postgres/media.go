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

// MediaRepository implements the domain.MediaRepository interface using PostgreSQL
type MediaRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewMediaRepository creates a new PostgreSQL media repository
func NewMediaRepository(db *sql.DB, logger *slog.Logger) *MediaRepository {
	return &MediaRepository{
		db:     db,
		logger: logger,
	}
}

const mediaColumns = `id, product_id, url, type, file_name, file_size, width, height, duration, sort_order, created_at`

func scanMedia(row rowScanner) (*domain.Media, error) {
	m := &domain.Media{}
	var (
		fileName      sql.NullString
		fileSize      sql.NullInt64
		width, height sql.NullInt32
		duration      sql.NullFloat64
		mediaType     string
	)

	err := row.Scan(&m.ID, &m.ProductID, &m.URL, &mediaType, &fileName, &fileSize,
		&width, &height, &duration, &m.SortOrder, &m.CreatedAt)
	if err != nil {
		return nil, err
	}

	m.Type = domain.MediaType(mediaType)
	m.FileName = nullString(fileName)
	if fileSize.Valid {
		m.FileSize = &fileSize.Int64
	}
	if width.Valid {
		w := int(width.Int32)
		m.Width = &w
	}
	if height.Valid {
		h := int(height.Int32)
		m.Height = &h
	}
	if duration.Valid {
		m.Duration = &duration.Float64
	}
	return m, nil
}

// ListByProduct returns a product's media in sort order
func (r *MediaRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Media, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+mediaColumns+" FROM product_media WHERE product_id = $1 ORDER BY sort_order ASC, created_at ASC",
		productID,
	)
	if err != nil {
		r.logger.Error("Failed to list product media", "error", err, "product_id", productID)
		return nil, fmt.Errorf("failed to list product media: %w", err)
	}
	defer rows.Close()

	media := make([]*domain.Media, 0)
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

// Add appends a media item after the product's existing media
func (r *MediaRepository) Add(ctx context.Context, m *domain.Media) error {
	if !m.Type.IsValid() {
		return fmt.Errorf("invalid media type %q", m.Type)
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	query := `
		INSERT INTO product_media (id, product_id, url, type, file_name, file_size, width, height, duration, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9,
			(SELECT COALESCE(MAX(sort_order) + 1, 0) FROM product_media WHERE product_id = $2))
		RETURNING sort_order, created_at`

	err := r.db.QueryRowContext(ctx, query,
		m.ID, m.ProductID, m.URL, string(m.Type), m.FileName, m.FileSize, m.Width, m.Height, m.Duration,
	).Scan(&m.SortOrder, &m.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to add product media", "error", err, "product_id", m.ProductID)
		return fmt.Errorf("failed to add product media: %w", err)
	}

	r.logger.Info("Product media added", "media_id", m.ID, "product_id", m.ProductID, "type", m.Type)
	return nil
}

// Reorder sets sort_order to each id's position within the product
func (r *MediaRepository) Reorder(ctx context.Context, productID uuid.UUID, ids []uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, id := range ids {
		result, err := tx.ExecContext(ctx,
			"UPDATE product_media SET sort_order = $3 WHERE id = $1 AND product_id = $2", id, productID, i)
		if err != nil {
			return fmt.Errorf("failed to reorder media %s: %w", id, err)
		}
		if err := expectRow(result); err != nil {
			return fmt.Errorf("media %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit media order: %w", err)
	}
	return nil
}

// Delete removes a media row and returns it for storage cleanup
func (r *MediaRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.Media, error) {
	m, err := scanMedia(r.db.QueryRowContext(ctx,
		"DELETE FROM product_media WHERE id = $1 RETURNING "+mediaColumns, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to delete media", "error", err, "media_id", id)
		return nil, fmt.Errorf("failed to delete media: %w", err)
	}

	r.logger.Info("Product media deleted", "media_id", id)
	return m, nil
}
