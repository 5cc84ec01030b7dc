package urldetector

import (
	"fmt"
	"net/url"
	"strings"
)

// trackingParams are stripped when building canonical URLs. Marketplace share
// links carry a lot of these, so the same product pasted twice dedupes.
var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_content", "utm_term",
	"fbclid", "gclid", "msclkid", "igshid", "si", "ref", "source",
	// Shopee / Lazada / TikTok share tracking
	"spm", "scm", "sp_atk", "xptdk", "mmp_pid", "clickTrackInfo", "from",
	"_refer", "refer_page_name", "refer_page_id", "_branch_match_id",
}

// NormalizeURL creates a canonical form of a URL for storage and deduplication.
// It adds https:// when missing, lower-cases the host, drops www. and tracking
// parameters, and repairs query strings with repeated '?'.
func NormalizeURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("empty URL")
	}

	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		if !strings.Contains(rawURL, ".") {
			return "", fmt.Errorf("invalid URL: no domain found")
		}
		rawURL = "https://" + rawURL
	}

	u, err := url.Parse(fixMalformedQueryString(rawURL))
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid URL: no host found")
	}

	return GetCanonicalURL(u), nil
}

// GetCanonicalURL normalizes an already-parsed URL without modifying it.
func GetCanonicalURL(u *url.URL) string {
	canonical := *u
	canonical.Host = strings.TrimPrefix(strings.ToLower(canonical.Host), "www.")
	canonical.Fragment = ""

	q := canonical.Query()
	for _, param := range trackingParams {
		q.Del(param)
	}
	canonical.RawQuery = q.Encode()

	return canonical.String()
}

// fixMalformedQueryString turns every '?' after the first into '&'. Links
// copied out of chat apps often end up as "?id=1?si=abc".
func fixMalformedQueryString(rawURL string) string {
	first := strings.Index(rawURL, "?")
	if first < 0 {
		return rawURL
	}

	fragment := ""
	rest := rawURL[first+1:]
	if hash := strings.Index(rest, "#"); hash >= 0 {
		fragment = rest[hash:]
		rest = rest[:hash]
	}

	return rawURL[:first+1] + strings.ReplaceAll(rest, "?", "&") + fragment
}
