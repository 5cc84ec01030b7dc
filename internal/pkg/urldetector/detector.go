package urldetector

import (
	"fmt"
	"net/url"
	"strings"

	"shopple/internal/domain"
)

// Match is the result of routing a product URL
type Match struct {
	URL         *url.URL
	Host        string
	Marketplace *domain.Marketplace // nil for generic sites
}

// SiteName returns the marketplace display name or the generic label
func (m Match) SiteName() string {
	if m.Marketplace == nil {
		return domain.GenericSiteName
	}
	return m.Marketplace.Name
}

// MarketplaceID returns the marketplace id or "generic"
func (m Match) MarketplaceID() string {
	if m.Marketplace == nil {
		return domain.MarketplaceGeneric
	}
	return m.Marketplace.ID
}

// Detector routes URLs to marketplaces in priority order
type Detector struct {
	marketplaces []domain.Marketplace
}

// New creates a detector over the default marketplace table
func New() *Detector {
	return &Detector{marketplaces: domain.GetMarketplaces()}
}

// Parse validates rawURL as an absolute URL with a scheme and host
func Parse(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("URL must be absolute: %q", rawURL)
	}
	return u, nil
}

// Detect parses rawURL and finds the first marketplace whose hostname or
// raw URL keywords match. Comparison is case-insensitive.
func (d *Detector) Detect(rawURL string) (Match, error) {
	u, err := Parse(rawURL)
	if err != nil {
		return Match{}, err
	}

	host := strings.ToLower(u.Hostname())
	lowered := strings.ToLower(rawURL)

	match := Match{URL: u, Host: host}
	for i := range d.marketplaces {
		if d.marketplaces[i].Matches(host, lowered) {
			m := d.marketplaces[i]
			match.Marketplace = &m
			break
		}
	}
	return match, nil
}
