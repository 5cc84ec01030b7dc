// Command extract runs the product extractor against live links and prints
// the results as JSON. Useful for checking a marketplace layout change
// without going through the admin API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"shopple/internal/config"
	"shopple/internal/extractor"
	"shopple/internal/pkg/logger"
)

type result struct {
	URL      string             `json:"url"`
	Product  *extractor.Product `json:"product,omitempty"`
	Fallback bool               `json:"fallback"`
	Error    string             `json:"error,omitempty"`
	Took     string             `json:"took"`
}

func main() {
	browser := flag.Bool("browser", false, "Render pages in headless Chrome instead of plain HTTP")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: extract [-browser] URL...")
		os.Exit(2)
	}

	log := logger.New(cfg.LogLevel)

	fetcher, closeFetcher, err := newFetcher(cfg, *browser, log)
	if err != nil {
		log.Error("Failed to create page fetcher", "error", err)
		os.Exit(1)
	}
	defer closeFetcher()

	ex := extractor.New(fetcher, log)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	failed := false
	for _, rawURL := range flag.Args() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ExtractTimeout)
		start := time.Now()
		p, err := ex.Extract(ctx, rawURL)
		cancel()

		r := result{URL: rawURL, Took: time.Since(start).Round(time.Millisecond).String()}
		if err != nil {
			r.Error = err.Error()
			failed = true
		} else {
			r.Product = &p
			r.Fallback = p.Fallback
		}
		if err := enc.Encode(r); err != nil {
			log.Error("Failed to write result", "error", err)
			os.Exit(1)
		}
	}

	if failed {
		os.Exit(1)
	}
}

func newFetcher(cfg *config.Config, browser bool, log *slog.Logger) (extractor.Fetcher, func(), error) {
	if browser || cfg.FetchMode == config.FetchModeBrowser {
		b, err := extractor.NewBrowserFetcher(cfg.FetchUserAgent, 1, log)
		if err != nil {
			return nil, nil, err
		}
		return b, func() {
			if err := b.Close(); err != nil {
				log.Warn("Failed to close browser", "error", err)
			}
		}, nil
	}

	client := &http.Client{Timeout: cfg.ExtractTimeout}
	return extractor.NewHTTPFetcher(client, cfg.FetchUserAgent, cfg.FetchMaxBodyBytes), func() {}, nil
}
