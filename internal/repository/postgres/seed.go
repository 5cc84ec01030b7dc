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

// ErrAlreadySeeded is returned when categories already exist
var ErrAlreadySeeded = errors.New("database already has data")

const sampleSource = "shopple.ph"

type sampleProduct struct {
	title       string
	price       *float64
	rating      *float64
	reviewCount int
	discount    *int
	clicks      int
	shares      int
	category    string
}

func ptr[T any](v T) *T { return &v }

var sampleProducts = []sampleProduct{
	{
		title:    "Shopple's Starter Guide for You",
		clicks:   1,
		category: domain.CategoryGuide,
	},
	{
		title:       "NUMVIBE P60 Pro Max New 5G Tablet Android Original Computer WiFi Dual SIM",
		price:       ptr(2699.0),
		rating:      ptr(5.0),
		reviewCount: 114,
		discount:    ptr(10),
		clicks:      1,
		shares:      3,
		category:    domain.CategoryTablet,
	},
	{
		title:    "(SONTU®) Tablet Mini 1 2 3 4 (Best Quality Guaranteed)",
		clicks:   1,
		category: domain.CategoryTablet,
	},
	{
		title:       "K221 Kechi K7 Pro+ Wireless Three-Mode Mechanical Keyboard",
		price:       ptr(2899.0),
		rating:      ptr(5.0),
		reviewCount: 222,
		discount:    ptr(15),
		shares:      6,
		category:    domain.CategoryKeyboard,
	},
	{
		title:       "Lenovo Laptop | Intel i7/i5/i3 & Celeron 4GB 16GB RAM 128GB SSD",
		price:       ptr(2999.0),
		rating:      ptr(5.0),
		reviewCount: 321,
		discount:    ptr(5),
		category:    domain.CategoryLaptops,
	},
	{
		title:       "ARTISAN mouse pad NINJA FX Zero ( S / M / L / XL | Soft / Mid / Hard )",
		price:       ptr(2200.0),
		rating:      ptr(5.0),
		reviewCount: 84,
		clicks:      10,
		category:    domain.CategoryMousepad,
	},
}

// SeedResult summarises what Seed created
type SeedResult struct {
	Owner      *domain.User
	Categories int
	Products   int
}

// Seed creates the owner profile, the default categories and sample products.
// It refuses to run when any category exists.
func Seed(ctx context.Context, db *sql.DB, logger *slog.Logger, owner domain.User) (*SeedResult, error) {
	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM categories)").Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check existing categories: %w", err)
	}
	if exists {
		return nil, ErrAlreadySeeded
	}

	users := NewUserRepository(db, logger)
	categories := NewCategoryRepository(db, logger)
	products := NewProductRepository(db, logger)

	if err := users.Create(ctx, &owner); err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, err
		}
		existing, err := users.GetByUsername(ctx, owner.Username)
		if err != nil {
			return nil, err
		}
		owner = *existing
	}

	result := &SeedResult{Owner: &owner}

	slugToID := make(map[string]uuid.UUID)
	for _, def := range domain.GetDefaultCategories() {
		description := def.Description
		c := &domain.Category{
			Name:         def.Name,
			Slug:         def.Slug,
			Description:  &description,
			IsDefault:    def.IsDefault,
			DisplayOrder: def.DisplayOrder,
		}
		if err := categories.Create(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to seed category %s: %w", def.Slug, err)
		}
		slugToID[c.Slug] = c.ID
		result.Categories++
	}

	for _, sample := range sampleProducts {
		image := "/placeholder.svg?height=160&width=160"
		source := sampleSource
		p := &domain.Product{
			Title:              sample.title,
			Price:              sample.price,
			Rating:             sample.rating,
			ReviewCount:        sample.reviewCount,
			DiscountPercentage: sample.discount,
			ImageURL:           &image,
			Source:             &source,
			Clicks:             sample.clicks,
			Shares:             sample.shares,
			UserID:             &owner.ID,
			CategoryIDs:        []uuid.UUID{slugToID[sample.category], slugToID[domain.CategoryEverything]},
		}
		if err := products.Create(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to seed product %q: %w", sample.title, err)
		}
		result.Products++
	}

	logger.Info("Database seeded",
		"owner", owner.Username,
		"categories", result.Categories,
		"products", result.Products,
	)
	return result, nil
}
