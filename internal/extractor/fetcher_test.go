package extractor

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
)

func TestHTTPFetcherSendsBrowserHeaders(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, "https://shopee.ph/p",
		func(req *http.Request) (*http.Response, error) {
			if got := req.Header.Get("User-Agent"); got != DefaultUserAgent {
				t.Errorf("User-Agent = %q", got)
			}
			if got := req.Header.Get("Accept"); got != acceptHeader {
				t.Errorf("Accept = %q", got)
			}
			if got := req.Header.Get("Accept-Language"); got != acceptLanguage {
				t.Errorf("Accept-Language = %q", got)
			}
			return httpmock.NewStringResponse(http.StatusOK, "<html></html>"), nil
		})

	f := NewHTTPFetcher(&http.Client{Transport: transport}, "", 0)
	body, err := f.Fetch(context.Background(), "https://shopee.ph/p")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if string(body) != "<html></html>" {
		t.Errorf("body = %q", body)
	}
}

func TestHTTPFetcherLimitsBody(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, "https://example.com/big",
		httpmock.NewStringResponder(http.StatusOK, "0123456789"))

	f := NewHTTPFetcher(&http.Client{Transport: transport}, "custom-agent", 5)
	body, err := f.Fetch(context.Background(), "https://example.com/big")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if string(body) != "01234" {
		t.Errorf("body = %q, want truncated to 5 bytes", body)
	}
}

func TestHTTPFetcherStatusErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantOutcome string
	}{
		{"not found", http.StatusNotFound, outcomeHTTPStatus},
		{"forbidden", http.StatusForbidden, outcomeHTTPStatus},
		{"unavailable", http.StatusServiceUnavailable, outcomeHTTPStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := httpmock.NewMockTransport()
			transport.RegisterResponder(http.MethodGet, "https://example.com/x",
				httpmock.NewStringResponder(tt.status, ""))

			f := NewHTTPFetcher(&http.Client{Transport: transport}, "", 0)
			_, err := f.Fetch(context.Background(), "https://example.com/x")

			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("expected *FetchError, got %v", err)
			}
			if fetchErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", fetchErr.StatusCode, tt.status)
			}
			if got := fetchOutcome(err); got != tt.wantOutcome {
				t.Errorf("fetchOutcome() = %s, want %s", got, tt.wantOutcome)
			}
		})
	}
}

func TestHTTPFetcherHonoursContext(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, "https://example.com/slow",
		httpmock.NewStringResponder(http.StatusOK, "late").Delay(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewHTTPFetcher(&http.Client{Transport: transport}, "", 0)
	_, err := f.Fetch(ctx, "https://example.com/slow")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Fetch() error = %v, want context.Canceled", err)
	}
	if got := fetchOutcome(err); got != outcomeFetchError {
		t.Errorf("fetchOutcome() = %s, want %s", got, outcomeFetchError)
	}
}

func TestLRUCache(t *testing.T) {
	c := NewLRUCache(1, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "a", Product{Title: "A"})
	c.Set(ctx, "b", Product{Title: "B"})

	if _, ok := c.Get(ctx, "a"); ok {
		t.Error("expected a to be evicted")
	}
	if p, ok := c.Get(ctx, "b"); !ok || p.Title != "B" {
		t.Errorf("Get(b) = %+v, %v", p, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("https://www.Shopee.ph/item?id=1&utm_source=fb")
	b := CacheKey("https://shopee.ph/item?id=1")
	if a != b {
		t.Errorf("CacheKey mismatch: %q vs %q", a, b)
	}
}

func TestDocumentError(t *testing.T) {
	url := "https://shop.tiktok.com/view/product/1"

	if err := documentError(context.Background(), url, http.StatusOK); err != nil {
		t.Errorf("documentError(200) = %v, want nil", err)
	}

	var fetchErr *FetchError
	err := documentError(context.Background(), url, http.StatusForbidden)
	if !errors.As(err, &fetchErr) || fetchErr.StatusCode != http.StatusForbidden {
		t.Errorf("documentError(403) = %v", err)
	}

	// no document response before the context ended
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = documentError(ctx, url, 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("documentError(0) with cancelled ctx = %v, want context.Canceled", err)
	}

	err = documentError(context.Background(), url, 0)
	if !errors.Is(err, errNoDocument) {
		t.Errorf("documentError(0) = %v, want errNoDocument", err)
	}
}

func TestFetchErrorMessage(t *testing.T) {
	err := &FetchError{URL: "https://temu.com/p"}
	if got, want := err.Error(), "fetch https://temu.com/p: no document response"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
