package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"shopple/internal/domain"
	"shopple/internal/extractor"
	"shopple/internal/pkg/urldetector"
)

// ProductExtractor derives product metadata from a link
type ProductExtractor interface {
	Extract(ctx context.Context, rawURL string) (extractor.Product, error)
}

// Importer turns product links into catalog entries
type Importer struct {
	extractor  ProductExtractor
	products   domain.ProductRepository
	categories domain.CategoryRepository
	logger     *slog.Logger
}

// NewImporter creates a new link importer
func NewImporter(ex ProductExtractor, products domain.ProductRepository, categories domain.CategoryRepository, logger *slog.Logger) *Importer {
	return &Importer{
		extractor:  ex,
		products:   products,
		categories: categories,
		logger:     logger,
	}
}

// ImportResult is a stored product together with what was extracted for it
type ImportResult struct {
	Product   *domain.Product   `json:"product"`
	Extracted extractor.Product `json:"extracted"`
}

// Import extracts rawURL and stores it for userID. With no categoryIDs the
// product is linked to the default category plus the extracted category.
// Invalid links fail with an error matching extractor.ErrInvalidURL.
func (i *Importer) Import(ctx context.Context, userID uuid.UUID, rawURL string, categoryIDs []uuid.UUID) (*ImportResult, error) {
	extracted, err := i.extractor.Extract(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	product := NewProduct(extracted, rawURL, userID)
	if len(categoryIDs) > 0 {
		product.CategoryIDs = categoryIDs
	} else {
		product.CategoryIDs = i.inferCategories(ctx, extracted.Category)
	}

	if err := i.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to store imported product: %w", err)
	}

	i.logger.Info("Product imported",
		"product_id", product.ID,
		"source", extracted.Source,
		"fallback", extracted.Fallback,
		"categories", len(product.CategoryIDs),
	)
	return &ImportResult{Product: product, Extracted: extracted}, nil
}

func (i *Importer) inferCategories(ctx context.Context, extractedSlug string) []uuid.UUID {
	slugs := []string{domain.CategoryEverything}
	if extractedSlug != "" && extractedSlug != domain.CategoryEverything {
		slugs = append(slugs, extractedSlug)
	}

	ids := make([]uuid.UUID, 0, len(slugs))
	for _, slug := range slugs {
		c, err := i.categories.GetBySlug(ctx, slug)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				i.logger.Warn("Failed to resolve category", "slug", slug, "error", err)
			}
			continue
		}
		ids = append(ids, c.ID)
	}
	return ids
}

// NewProduct maps an extraction onto a new catalog product. The source URL is
// stored without tracking parameters and an empty price becomes NULL.
func NewProduct(p extractor.Product, rawURL string, userID uuid.UUID) *domain.Product {
	sourceURL := rawURL
	if normalized, err := urldetector.NormalizeURL(rawURL); err == nil {
		sourceURL = normalized
	}

	product := &domain.Product{
		ID:               uuid.New(),
		Title:            p.Title,
		Price:            p.PriceValue(),
		SourceURL:        &sourceURL,
		IsCommissionable: p.IsCommissionable,
	}
	if userID != uuid.Nil {
		product.UserID = &userID
	}
	if p.Image != "" {
		image := p.Image
		product.ImageURL = &image
	}
	if p.Source != "" {
		source := p.Source
		product.Source = &source
	}
	return product
}
