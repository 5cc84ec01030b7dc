package urldetector

import (
	"regexp"
	"strings"
)

var (
	markdownLink = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	angleLink    = regexp.MustCompile(`<(https?://[^>]+)>`)
	linkPattern  = regexp.MustCompile(`(?i)https?://[^\s<>"'()\[\]]+`)
)

// invisible characters chat apps and link shorteners leave inside pasted URLs
var invisible = strings.NewReplacer("\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "")

// FindLinks returns every http(s) link in free text, in order of appearance.
// Markdown [text](url) and <url> wrappers are unwrapped and trailing
// punctuation is dropped.
func FindLinks(content string) []string {
	content = invisible.Replace(content)
	content = markdownLink.ReplaceAllString(content, " $2 ")
	content = angleLink.ReplaceAllString(content, " $1 ")

	var links []string
	for _, link := range linkPattern.FindAllString(content, -1) {
		link = strings.TrimRight(link, ".,;:!?")
		if link != "" {
			links = append(links, link)
		}
	}
	return links
}

// IsRootURL reports whether rawURL points at a site's front page rather
// than a product, e.g. https://shopee.ph or https://www.lazada.com.ph/
func IsRootURL(rawURL string) bool {
	u, err := Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Trim(u.Path, "/") == "" && u.RawQuery == ""
}
