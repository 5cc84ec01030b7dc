package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"shopple/internal/domain"
)

// Strategy pulls product fields out of a parsed page for one kind of site.
// Implementations may panic on unexpected markup; the extractor recovers
// and substitutes the fallback result.
type Strategy interface {
	Name() string
	Commissionable() bool
	ExtractTitle(doc *goquery.Document, host string) string
	ExtractImage(doc *goquery.Document) string
	ExtractPrice(doc *goquery.Document) string
	ClassifyCategory(doc *goquery.Document) string
}

type priceFinder func(doc *goquery.Document) string

// siteStrategy is the table-configured Strategy behind every site. Sites
// only differ in their price probes, the text used for categorisation and
// the synthesized title.
type siteStrategy struct {
	name           string
	commissionable bool
	fallbackTitle  func(host string) string
	priceFinders   []priceFinder
	categoryText   func(doc *goquery.Document) string
}

var (
	scriptPricePattern       = regexp.MustCompile(`"price":\s*(\d+(\.\d+)?)`)
	quotedScriptPricePattern = regexp.MustCompile(`"price":\s*"?(\d+(\.\d+)?)"?`)
	numberPattern            = regexp.MustCompile(`\d+(\.\d+)?`)
)

// Price selectors, widening from TikTok Shop to the generic probe
const (
	tiktokPriceSelector  = `[class*="price"]`
	temuPriceSelector    = `[class*="price"], [class*="Price"]`
	genericPriceSelector = `[class*="price"], [class*="Price"], [id*="price"], [id*="Price"]`
)

func defaultStrategies() map[string]Strategy {
	strategies := make(map[string]Strategy)
	for _, m := range domain.GetMarketplaces() {
		s := &siteStrategy{
			name:           m.Name,
			commissionable: m.Commissionable,
			fallbackTitle:  namedTitle(m.Name),
			categoryText:   resolvedTitle,
		}
		switch m.ID {
		case domain.MarketplaceShopee:
			s.priceFinders = []priceFinder{scriptPrice(scriptPricePattern)}
			s.categoryText = ogTitleAndDescription
		case domain.MarketplaceLazada:
			s.priceFinders = []priceFinder{dataAttrPrice("data-price"), scriptPrice(quotedScriptPricePattern)}
			s.categoryText = ogTitleAndDescription
		case domain.MarketplaceTikTok:
			s.priceFinders = []priceFinder{selectorPrice(tiktokPriceSelector)}
		case domain.MarketplaceTemu:
			s.priceFinders = []priceFinder{selectorPrice(temuPriceSelector)}
		default:
			s.priceFinders = []priceFinder{selectorPrice(genericPriceSelector)}
		}
		strategies[m.ID] = s
	}
	return strategies
}

func genericStrategy() Strategy {
	return &siteStrategy{
		name:           domain.GenericSiteName,
		commissionable: false,
		fallbackTitle:  func(host string) string { return domain.FallbackTitlePrefix + host },
		priceFinders:   []priceFinder{selectorPrice(genericPriceSelector)},
		categoryText:   resolvedTitle,
	}
}

func namedTitle(name string) func(string) string {
	return func(string) string { return name + " Product" }
}

func (s *siteStrategy) Name() string {
	return s.name
}

func (s *siteStrategy) Commissionable() bool {
	return s.commissionable
}

func (s *siteStrategy) ExtractTitle(doc *goquery.Document, host string) string {
	if title := resolvedTitle(doc); title != "" {
		return title
	}
	return s.fallbackTitle(host)
}

func (s *siteStrategy) ExtractImage(doc *goquery.Document) string {
	if image := metaContent(doc, "og:image"); image != "" {
		return image
	}
	return PlaceholderImage
}

func (s *siteStrategy) ExtractPrice(doc *goquery.Document) string {
	for _, find := range s.priceFinders {
		if price := find(doc); price != "" {
			return price
		}
	}
	return ""
}

func (s *siteStrategy) ClassifyCategory(doc *goquery.Document) string {
	return Classify(s.categoryText(doc))
}

// scriptPrice scans inline scripts and returns the first capture of re
func scriptPrice(re *regexp.Regexp) priceFinder {
	return func(doc *goquery.Document) string {
		price := ""
		doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if m := re.FindStringSubmatch(s.Text()); m != nil {
				price = m[1]
				return false
			}
			return true
		})
		return price
	}
}

// dataAttrPrice reads the first element carrying attr. Thousands separators
// are dropped so "1,299.00" stays 1299.00.
func dataAttrPrice(attr string) priceFinder {
	return func(doc *goquery.Document) string {
		value, ok := doc.Find("[" + attr + "]").First().Attr(attr)
		if !ok {
			return ""
		}
		return numberPattern.FindString(strings.ReplaceAll(value, ",", ""))
	}
}

// selectorPrice returns the first numeric run in the first matching element that has one
func selectorPrice(selector string) priceFinder {
	return func(doc *goquery.Document) string {
		price := ""
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if m := numberPattern.FindString(s.Text()); m != "" {
				price = m
				return false
			}
			return true
		})
		return price
	}
}

// metaContent reads an Open Graph tag, accepting both property= and name=
func metaContent(doc *goquery.Document, property string) string {
	sel := doc.Find(`meta[property="` + property + `"]`)
	if sel.Length() == 0 {
		sel = doc.Find(`meta[name="` + property + `"]`)
	}
	return strings.TrimSpace(sel.First().AttrOr("content", ""))
}

// resolvedTitle is og:title, then the document title, then ""
func resolvedTitle(doc *goquery.Document) string {
	if title := metaContent(doc, "og:title"); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func ogTitleAndDescription(doc *goquery.Document) string {
	return metaContent(doc, "og:title") + " " + metaContent(doc, "og:description")
}
