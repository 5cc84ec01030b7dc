package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category groups products on the shop page
type Category struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	Description  *string    `json:"description,omitempty"`
	IsDefault    bool       `json:"is_default"`
	DisplayOrder int        `json:"display_order"`
	ProductCount int        `json:"product_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slugify lower-cases a category name and joins its words with hyphens
func Slugify(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// DefaultCategory describes a category created when the catalog is seeded
type DefaultCategory struct {
	Name         string
	Slug         string
	Description  string
	IsDefault    bool
	DisplayOrder int
}

// Category slugs shared with the link extractor
const (
	CategoryEverything = "everything"
	CategoryTablet     = "tablet"
	CategoryLaptops    = "laptops"
	CategoryKeyboard   = "keyboard"
	CategoryMousepad   = "mousepad"
	CategoryGuide      = "guide"
)

// GetDefaultCategories returns the seed categories in display order
func GetDefaultCategories() []DefaultCategory {
	return []DefaultCategory{
		{Name: "Everything", Slug: CategoryEverything, Description: "All products", IsDefault: true, DisplayOrder: 0},
		{Name: "Tablet", Slug: CategoryTablet, Description: "Tablets and accessories", DisplayOrder: 1},
		{Name: "Laptop", Slug: CategoryLaptops, Description: "Laptops and accessories", DisplayOrder: 2},
		{Name: "Keyboard", Slug: CategoryKeyboard, Description: "Keyboards and accessories", DisplayOrder: 3},
		{Name: "Mousepad", Slug: CategoryMousepad, Description: "Mousepads and desk mats", DisplayOrder: 4},
		{Name: "Guide", Slug: CategoryGuide, Description: "Shopping guides", DisplayOrder: 5},
	}
}
