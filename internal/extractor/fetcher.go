package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Browser-like request headers. Several marketplaces serve an empty shell
// or a bot wall to clients without them.
const (
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	acceptHeader        = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	acceptLanguage      = "en-US,en;q=0.5"
	DefaultMaxBodyBytes = 5 << 20
)

// Fetcher retrieves the raw HTML of a product page
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// HTTPFetcher is the default Fetcher: one GET with browser headers
type HTTPFetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

// NewHTTPFetcher creates a fetcher. A nil client uses a fresh http.Client;
// the caller's context bounds each request.
func NewHTTPFetcher(client *http.Client, userAgent string, maxBodyBytes int64) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &HTTPFetcher{
		client:       client,
		userAgent:    userAgent,
		maxBodyBytes: maxBodyBytes,
	}
}

// Name labels fetch metrics
func (f *HTTPFetcher) Name() string {
	return "http"
}

// Fetch returns the response body; non-2xx statuses become a *FetchError
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	SetBrowserHeaders(req.Header, f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	return body, nil
}

// SetBrowserHeaders applies the browser User-Agent, Accept and Accept-Language headers
func SetBrowserHeaders(h http.Header, userAgent string) {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", acceptHeader)
	h.Set("Accept-Language", acceptLanguage)
}

func fetcherName(f Fetcher) string {
	if named, ok := f.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "custom"
}
