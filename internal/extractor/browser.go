package extractor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserFetcher renders pages in headless Chromium. TikTok Shop and Temu
// build most of their markup client-side, so plain GETs often return no
// og: tags at all.
type BrowserFetcher struct {
	launcher  *launcher.Launcher
	browser   *rod.Browser
	userAgent string
	logger    *slog.Logger

	// tabs bounds concurrently open pages
	tabs chan struct{}
}

// NewBrowserFetcher launches a headless browser. Call Close when done.
func NewBrowserFetcher(userAgent string, maxTabs int, logger *slog.Logger) (*BrowserFetcher, error) {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if maxTabs <= 0 {
		maxTabs = 2
	}

	l := launcher.New().
		Headless(true).
		Set("no-sandbox")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	logger.Info("Headless browser started", "max_tabs", maxTabs)

	return &BrowserFetcher{
		launcher:  l,
		browser:   browser,
		userAgent: userAgent,
		logger:    logger,
		tabs:      make(chan struct{}, maxTabs),
	}, nil
}

// Name labels fetch metrics
func (f *BrowserFetcher) Name() string {
	return "browser"
}

// Fetch navigates a fresh tab to rawURL and returns the rendered HTML.
// The status of the main document response decides success.
func (f *BrowserFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	select {
	case f.tabs <- struct{}{}:
	case <-ctx.Done():
		return nil, &FetchError{URL: rawURL, Err: ctx.Err()}
	}
	defer func() { <-f.tabs }()

	page, err := f.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("failed to open page: %w", err)}
	}
	defer page.Close()

	page = page.Context(ctx)

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      f.userAgent,
		AcceptLanguage: acceptLanguage,
	}); err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("failed to set user agent: %w", err)}
	}

	status := 0
	waitDocument := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		status = e.Response.Status
		return true
	})

	if err := page.Navigate(rawURL); err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("failed to navigate: %w", err)}
	}
	waitDocument()

	if err := documentError(ctx, rawURL, status); err != nil {
		return nil, err
	}

	if err := page.WaitLoad(); err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("failed waiting for load: %w", err)}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("failed to read rendered HTML: %w", err)}
	}

	f.logger.Debug("Rendered product page", "url", rawURL, "status", status, "bytes", len(html))
	return []byte(html), nil
}

// Close shuts the browser down and removes its profile directory
func (f *BrowserFetcher) Close() error {
	err := f.browser.Close()
	f.launcher.Cleanup()
	return err
}

// documentError checks the main document status. Status 0 means no document
// response arrived, usually because ctx ended first.
func documentError(ctx context.Context, rawURL string, status int) error {
	if status == 0 {
		err := ctx.Err()
		if err == nil {
			err = errNoDocument
		}
		return &FetchError{URL: rawURL, Err: err}
	}
	if status < 200 || status > 299 {
		return &FetchError{URL: rawURL, StatusCode: status}
	}
	return nil
}
