package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/google/uuid"

	"shopple/internal/domain"
	"shopple/internal/extractor"
	"shopple/internal/pkg/metrics"
)

// Refresh results, also used as metric labels
const (
	ResultUpdated = "updated"
	ResultSkipped = "skipped"
	ResultMissing = "missing"
	ResultFailed  = "failed"
)

// PageExtractor runs the marketplace strategies over a fetched page
type PageExtractor interface {
	FromHTML(rawURL string, body []byte) (extractor.Product, error)
}

// Target is one product page to re-extract
type Target struct {
	JobID     string
	ProductID uuid.UUID
	URL       string
}

// TargetFromJob reads a refresh_product payload
func TargetFromJob(job *domain.QueueJob) (Target, error) {
	idStr, ok := job.Payload["product_id"].(string)
	if !ok {
		return Target{}, fmt.Errorf("missing or invalid product_id in payload")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return Target{}, fmt.Errorf("invalid product_id format: %w", err)
	}
	url, ok := job.Payload["url"].(string)
	if !ok || url == "" {
		return Target{}, fmt.Errorf("missing or invalid url in payload")
	}
	return Target{JobID: job.ID, ProductID: id, URL: url}, nil
}

// Outcome is what happened to one target. Err is set only for failures
// worth retrying.
type Outcome struct {
	Result string
	Err    error
}

// RefresherConfig tunes the crawler
type RefresherConfig struct {
	UserAgent   string
	Parallelism int
	Timeout     time.Duration
	Transport   http.RoundTripper
}

// Refresher re-fetches product pages with a colly collector and stores the
// price, image and (for synthesized titles) title it finds
type Refresher struct {
	cfg       RefresherConfig
	extractor PageExtractor
	products  domain.ProductRepository
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewRefresher(cfg RefresherConfig, ex PageExtractor, products domain.ProductRepository, m *metrics.Metrics, logger *slog.Logger) *Refresher {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Refresher{
		cfg:       cfg,
		extractor: ex,
		products:  products,
		metrics:   m,
		logger:    logger,
	}
}

func (r *Refresher) newCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(r.cfg.UserAgent),
		colly.Async(true),
		colly.AllowURLRevisit(),
	)
	if r.cfg.Transport != nil {
		c.WithTransport(r.cfg.Transport)
	}
	c.SetRequestTimeout(r.cfg.Timeout)
	c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: r.cfg.Parallelism})
	return c
}

// Refresh crawls every target and returns outcomes keyed by job id
func (r *Refresher) Refresh(ctx context.Context, targets []Target) map[string]Outcome {
	var mu sync.Mutex
	outcomes := make(map[string]Outcome, len(targets))
	record := func(t Target, o Outcome) {
		r.metrics.IncRefresh(o.Result)
		mu.Lock()
		outcomes[t.JobID] = o
		mu.Unlock()
	}

	c := r.newCollector()

	c.OnResponse(func(resp *colly.Response) {
		t := resp.Ctx.GetAny("target").(Target)
		record(t, r.apply(ctx, t, resp.Body))
	})

	c.OnError(func(resp *colly.Response, err error) {
		t := resp.Ctx.GetAny("target").(Target)
		r.logger.Warn("Failed to fetch product page",
			"product_id", t.ProductID,
			"url", t.URL,
			"status", resp.StatusCode,
			"error", err,
		)
		record(t, Outcome{Result: ResultFailed, Err: &extractor.FetchError{URL: t.URL, StatusCode: resp.StatusCode, Err: err}})
	})

	for _, t := range targets {
		if ctx.Err() != nil {
			record(t, Outcome{Result: ResultFailed, Err: ctx.Err()})
			continue
		}

		reqCtx := colly.NewContext()
		reqCtx.Put("target", t)
		headers := http.Header{}
		extractor.SetBrowserHeaders(headers, r.cfg.UserAgent)

		if err := c.Request(http.MethodGet, t.URL, nil, reqCtx, headers); err != nil {
			r.logger.Warn("Refresh request rejected", "product_id", t.ProductID, "url", t.URL, "error", err)
			record(t, Outcome{Result: ResultFailed, Err: err})
		}
	}
	c.Wait()

	return outcomes
}

// apply stores what the strategies found. A synthesized result never
// overwrites stored data.
func (r *Refresher) apply(ctx context.Context, t Target, body []byte) Outcome {
	logger := r.logger.With("product_id", t.ProductID, "url", t.URL)

	extracted, err := r.extractor.FromHTML(t.URL, body)
	if err != nil {
		logger.Warn("Stored source URL is not a valid product link", "error", err)
		return Outcome{Result: ResultSkipped}
	}
	if extracted.Fallback {
		logger.Info("Refresh found no product data, keeping stored values")
		return Outcome{Result: ResultSkipped}
	}

	product, err := r.products.GetByID(ctx, t.ProductID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Info("Product was deleted before refresh")
		return Outcome{Result: ResultMissing}
	}
	if err != nil {
		return Outcome{Result: ResultFailed, Err: fmt.Errorf("failed to load product: %w", err)}
	}

	refresh := domain.ProductRefresh{Price: extracted.PriceValue()}
	if extracted.Image != "" && extracted.Image != extractor.PlaceholderImage {
		refresh.ImageURL = &extracted.Image
	}
	if product.HasFallbackTitle() && extracted.Title != "" {
		refresh.Title = &extracted.Title
	}

	if err := r.products.ApplyRefresh(ctx, t.ProductID, refresh); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Outcome{Result: ResultMissing}
		}
		return Outcome{Result: ResultFailed, Err: fmt.Errorf("failed to store refresh: %w", err)}
	}

	logger.Info("Product refreshed",
		"price", extracted.Price,
		"title_updated", refresh.Title != nil,
	)
	return Outcome{Result: ResultUpdated}
}
