package oura

import (
	"net/http"
	"time"

	"github.com/okian/ourabridge/pkg/logger"
)

const (
	defaultTimeout = 10 * time.Second
	userAgent      = "ourabridge"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	timeout    time.Duration
	retries    int
	httpClient *http.Client
	clock      func() time.Time
	logger     logger.Logger
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRetries sets how many times a failed transport call is retried.
func WithRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.retries = n
		}
	}
}

// WithHTTPClient shares an existing HTTP client and its connection pool.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		if hc != nil {
			o.httpClient = hc
		}
	}
}

// WithClock sets the time source used to build query windows.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
