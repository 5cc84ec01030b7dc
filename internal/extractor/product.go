package extractor

import (
	"strconv"

	"shopple/internal/domain"
)

// PlaceholderImage is served when a page exposes no og:image
const PlaceholderImage = "/placeholder.svg?height=160&width=160"

// Product is the metadata derived from one product link.
//
// Price holds the first numeric run found on the page, or "" when nothing
// was found. "" and "0" mean different things.
type Product struct {
	Title            string `json:"title"`
	Image            string `json:"image"`
	Price            string `json:"price"`
	IsCommissionable bool   `json:"is_commissionable"`
	Category         string `json:"category"`
	Source           string `json:"source"`

	// Fallback is set when the result was synthesized instead of scraped
	Fallback bool `json:"-"`
}

// HasPrice reports whether a price was found
func (p Product) HasPrice() bool {
	return p.Price != ""
}

// PriceValue converts the price for storage. It returns nil when no price was found.
func (p Product) PriceValue() *float64 {
	if p.Price == "" {
		return nil
	}
	v, err := strconv.ParseFloat(p.Price, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Fallback builds the minimal result for a site label. Only the generic
// label is non-commissionable.
func Fallback(siteName string) Product {
	return Product{
		Title:            domain.FallbackTitlePrefix + siteName,
		Image:            PlaceholderImage,
		Price:            "",
		IsCommissionable: siteName != domain.GenericSiteName,
		Category:         domain.CategoryEverything,
		Source:           siteName,
		Fallback:         true,
	}
}

// hostFallback is used when the page could not be retrieved or parsed at all
func hostFallback(host string) Product {
	p := Fallback(host)
	p.IsCommissionable = false
	return p
}
