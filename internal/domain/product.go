package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product is one affiliate link listed on the shop page
type Product struct {
	ID                 uuid.UUID   `json:"id"`
	Title              string      `json:"title"`
	Description        *string     `json:"description,omitempty"`
	Price              *float64    `json:"price"`
	DiscountPercentage *int        `json:"discount_percentage,omitempty"`
	ImageURL           *string     `json:"image_url"`
	Source             *string     `json:"source"`
	SourceURL          *string     `json:"source_url"`
	Rating             *float64    `json:"rating,omitempty"`
	ReviewCount        int         `json:"review_count"`
	IsHidden           bool        `json:"is_hidden"`
	IsPinned           bool        `json:"is_pinned"`
	IsCommissionable   bool        `json:"is_commissionable"`
	Clicks             int         `json:"clicks"`
	Shares             int         `json:"shares"`
	Commission         float64     `json:"commission"`
	UserID             *uuid.UUID  `json:"user_id,omitempty"`
	CategoryIDs        []uuid.UUID `json:"category_ids"`
	CategorySlugs      []string    `json:"categories"`
	LastRefreshedAt    *time.Time  `json:"last_refreshed_at,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          *time.Time  `json:"updated_at"`
}

// ProductFilter narrows a product listing. A nil UserID lists every owner.
type ProductFilter struct {
	UserID        *uuid.UUID
	CategorySlug  string
	IncludeHidden bool
}

// ProductRefresh carries the fields a catalog refresh may overwrite.
// Nil fields keep the stored value.
type ProductRefresh struct {
	Title    *string
	ImageURL *string
	Price    *float64
}

// ProductStats aggregates counters for the admin dashboard
type ProductStats struct {
	Products   int64   `json:"products"`
	Visible    int64   `json:"visible"`
	Pinned     int64   `json:"pinned"`
	Clicks     int64   `json:"clicks"`
	Shares     int64   `json:"shares"`
	Commission float64 `json:"commission"`
}

// FallbackTitlePrefix starts every synthesized title, which a refresh may replace.
const FallbackTitlePrefix = "Product from "

// HasFallbackTitle reports whether the stored title was synthesized rather than scraped.
func (p *Product) HasFallbackTitle() bool {
	return p.Title == "" || strings.HasPrefix(p.Title, FallbackTitlePrefix)
}

// HasCategory reports whether the product is linked to the category id
func (p *Product) HasCategory(id uuid.UUID) bool {
	for _, c := range p.CategoryIDs {
		if c == id {
			return true
		}
	}
	return false
}
