package extractor

import (
	"errors"
	"fmt"
)

// ErrInvalidURL matches any *InvalidURLError via errors.Is
var ErrInvalidURL = errors.New("invalid product URL")

var errNoDocument = errors.New("no document response")

// InvalidURLError is the only error Extract returns. No request is made.
type InvalidURLError struct {
	URL string
	Err error
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid product URL %q: %v", e.URL, e.Err)
}

func (e *InvalidURLError) Unwrap() error {
	return e.Err
}

func (e *InvalidURLError) Is(target error) bool {
	return target == ErrInvalidURL
}

// FetchError reports a transport failure or a non-2xx response
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, errNoDocument)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError reports a document the HTML parser rejected
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Errorf("parse document: %w", e.Err).Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Outcome labels for the extraction counter
const (
	outcomeOK         = "ok"
	outcomeCacheHit   = "cache_hit"
	outcomeInvalidURL = "invalid_url"
	outcomeFetchError = "fetch_error"
	outcomeHTTPStatus = "http_status"
	outcomeParseError = "parse_error"
	outcomePanic      = "strategy_panic"
)

func fetchOutcome(err error) string {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
		return outcomeHTTPStatus
	}
	return outcomeFetchError
}
