package extractor

import (
	"strings"

	"shopple/internal/domain"
)

type categoryRule struct {
	keywords []string
	category string
}

// categoryRules are evaluated top-down; the first rule with a matching
// keyword wins, so "laptop stand for tablet" is a tablet.
var categoryRules = []categoryRule{
	{keywords: []string{"tablet", "ipad"}, category: domain.CategoryTablet},
	{keywords: []string{"laptop", "notebook"}, category: domain.CategoryLaptops},
	{keywords: []string{"keyboard"}, category: domain.CategoryKeyboard},
	{keywords: []string{"mouse", "pad"}, category: domain.CategoryMousepad},
}

// Classify maps free text to a category slug, defaulting to everything.
func Classify(text string) string {
	text = strings.ToLower(text)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return domain.CategoryEverything
}
