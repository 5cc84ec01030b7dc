package domain

import (
	"sort"
	"strings"
)

// Marketplace describes a storefront the link extractor recognises
type Marketplace struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// HostKeywords match anywhere in the lower-cased hostname
	HostKeywords []string `json:"host_keywords"`

	// URLKeywords match anywhere in the lower-cased raw URL
	URLKeywords []string `json:"url_keywords"`

	// Priority orders detection; lower values are checked first
	Priority       int  `json:"priority"`
	Commissionable bool `json:"commissionable"`
}

// Marketplace constants - single source of truth
const (
	MarketplaceShopee  = "shopee"
	MarketplaceLazada  = "lazada"
	MarketplaceTikTok  = "tiktok"
	MarketplaceTemu    = "temu"
	MarketplaceGeneric = "generic"
)

// GenericSiteName labels results for sites no marketplace claims
const GenericSiteName = "Generic"

var marketplaces = []Marketplace{
	{
		ID:             MarketplaceShopee,
		Name:           "Shopee",
		HostKeywords:   []string{"shopee"},
		URLKeywords:    []string{"shopee.ph"},
		Priority:       1,
		Commissionable: true,
	},
	{
		ID:             MarketplaceLazada,
		Name:           "Lazada",
		HostKeywords:   []string{"lazada"},
		URLKeywords:    []string{"lazada.com.ph"},
		Priority:       2,
		Commissionable: true,
	},
	{
		ID:             MarketplaceTikTok,
		Name:           "TikTok Shop",
		HostKeywords:   []string{"tiktok"},
		URLKeywords:    []string{"tiktokglobalshop"},
		Priority:       3,
		Commissionable: true,
	},
	{
		ID:             MarketplaceTemu,
		Name:           "Temu",
		HostKeywords:   []string{"temu"},
		URLKeywords:    []string{"temu.com"},
		Priority:       4,
		Commissionable: true,
	},
}

// GetMarketplaces returns the known marketplaces in detection order
func GetMarketplaces() []Marketplace {
	out := make([]Marketplace, len(marketplaces))
	copy(out, marketplaces)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// GetMarketplace looks a marketplace up by ID
func GetMarketplace(id string) (Marketplace, bool) {
	for _, m := range marketplaces {
		if m.ID == id {
			return m, true
		}
	}
	return Marketplace{}, false
}

// Matches reports whether a lower-cased hostname or raw URL belongs to the marketplace
func (m Marketplace) Matches(host, rawURL string) bool {
	for _, kw := range m.HostKeywords {
		if strings.Contains(host, kw) {
			return true
		}
	}
	for _, kw := range m.URLKeywords {
		if strings.Contains(rawURL, kw) {
			return true
		}
	}
	return false
}
