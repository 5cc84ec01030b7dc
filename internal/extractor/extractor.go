package extractor

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"shopple/internal/domain"
	"shopple/internal/pkg/metrics"
	"shopple/internal/pkg/urldetector"
)

// Extractor turns marketplace links into product metadata.
//
// Apart from a malformed URL, every failure (network, HTTP status, parsing,
// a panicking strategy) is absorbed into a fallback Product, so callers can
// always persist what they get back.
type Extractor struct {
	fetcher    Fetcher
	detector   *urldetector.Detector
	strategies map[string]Strategy
	generic    Strategy
	cache      Cache
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithCache enables result caching
func WithCache(c Cache) Option {
	return func(e *Extractor) { e.cache = c }
}

// WithMetrics records extraction outcomes and fetch latency
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Extractor) { e.metrics = m }
}

// WithStrategy replaces the strategy for a marketplace id; domain.MarketplaceGeneric
// replaces the generic one.
func WithStrategy(marketplaceID string, s Strategy) Option {
	return func(e *Extractor) {
		if marketplaceID == domain.MarketplaceGeneric {
			e.generic = s
			return
		}
		e.strategies[marketplaceID] = s
	}
}

// New creates an Extractor that retrieves pages with fetcher
func New(fetcher Fetcher, logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		fetcher:    fetcher,
		detector:   urldetector.New(),
		strategies: defaultStrategies(),
		generic:    genericStrategy(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract fetches rawURL and derives its metadata. The returned error is
// always an *InvalidURLError; no request is made in that case.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (Product, error) {
	match, err := e.detector.Detect(rawURL)
	if err != nil {
		e.metrics.IncExtraction(domain.MarketplaceGeneric, outcomeInvalidURL)
		return Product{}, &InvalidURLError{URL: rawURL, Err: err}
	}

	logger := e.logger.With("url", rawURL, "marketplace", match.MarketplaceID())

	// Routing reads the raw URL, so two links sharing a canonical form can
	// still go to different strategies
	key := match.MarketplaceID() + "|" + CacheKey(rawURL)
	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, key); ok {
			e.metrics.IncExtraction(match.MarketplaceID(), outcomeCacheHit)
			logger.Debug("Extraction served from cache")
			return cached, nil
		}
	}

	start := time.Now()
	body, err := e.fetcher.Fetch(ctx, match.URL.String())
	e.metrics.ObserveFetch(fetcherName(e.fetcher), time.Since(start))
	if err != nil {
		logger.Warn("Failed to fetch product page, using fallback", "error", err)
		e.metrics.IncExtraction(match.MarketplaceID(), fetchOutcome(err))
		return hostFallback(match.Host), nil
	}

	product := e.extract(match, body, logger)
	if e.cache != nil && !product.Fallback {
		e.cache.Set(ctx, key, product)
	}
	return product, nil
}

// FromHTML runs the strategies over an already retrieved body. The catalog
// refresher uses it with pages fetched by its own crawler.
func (e *Extractor) FromHTML(rawURL string, body []byte) (Product, error) {
	match, err := e.detector.Detect(rawURL)
	if err != nil {
		return Product{}, &InvalidURLError{URL: rawURL, Err: err}
	}
	return e.extract(match, body, e.logger.With("url", rawURL, "marketplace", match.MarketplaceID())), nil
}

func (e *Extractor) extract(match urldetector.Match, body []byte, logger *slog.Logger) Product {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		logger.Warn("Failed to parse product page, using fallback", "error", &ParseError{Err: err})
		e.metrics.IncExtraction(match.MarketplaceID(), outcomeParseError)
		return hostFallback(match.Host)
	}
	doc := goquery.NewDocumentFromNode(root)

	strategy := e.generic
	if match.Marketplace != nil {
		if s, ok := e.strategies[match.Marketplace.ID]; ok {
			strategy = s
		}
	}

	product, recovered := run(strategy, doc, match.Host)
	if recovered != nil {
		logger.Error("Extraction strategy panicked, using fallback",
			"strategy", strategy.Name(),
			"panic", recovered,
		)
		e.metrics.IncExtraction(match.MarketplaceID(), outcomePanic)
		return product
	}

	if match.Marketplace == nil {
		product.Source = match.Host
	}

	e.metrics.IncExtraction(match.MarketplaceID(), outcomeOK)
	logger.Debug("Product extracted",
		"title", product.Title,
		"price", product.Price,
		"category", product.Category,
	)
	return product
}

// run applies s to doc; a panic yields the fallback for the strategy's name
func run(s Strategy, doc *goquery.Document, host string) (product Product, recovered any) {
	defer func() {
		if r := recover(); r != nil {
			recovered = r
			product = Fallback(s.Name())
		}
	}()

	return Product{
		Title:            s.ExtractTitle(doc, host),
		Image:            s.ExtractImage(doc),
		Price:            s.ExtractPrice(doc),
		IsCommissionable: s.Commissionable(),
		Category:         s.ClassifyCategory(doc),
		Source:           s.Name(),
	}, nil
}
