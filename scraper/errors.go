package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies why a page fetch failed. Amazon answers bot traffic
// with 403 or 429 well before any network fault shows up, so the split
// matters for metrics.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindTimeout
	KindConnection
	KindForbidden
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "other"
	}
}

// ScrapeError wraps a fetch failure with its classification and the HTTP
// status, when one was received.
type ScrapeError struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *ScrapeError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("scrape %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("scrape %s: %v", e.Kind, e.Err)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

func classifyError(err error, statusCode int) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnection
	}

	switch statusCode {
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusTooManyRequests:
		return KindRateLimited
	}
	return KindOther
}
