// Package oura fetches and decodes resources from the Oura v2 usercollection API.
package oura

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/okian/ourabridge/internal/domain/decode"
	"github.com/okian/ourabridge/internal/domain/model"
	"github.com/okian/ourabridge/pkg/logger"
)

// DefaultAPIHost is the public usercollection endpoint.
const DefaultAPIHost = "https://api.ouraring.com/v2/usercollection"

const (
	dateLayout     = "2006-01-02"
	maxBodySnippet = 200
)

// Client issues authenticated GETs against the Oura API.
type Client struct {
	http   *resty.Client
	clock  func() time.Time
	logger logger.Logger
}

// New creates a client for apiHost authenticating with token.
func New(apiHost, token string, opts ...Option) *Client {
	o := options{
		timeout: defaultTimeout,
		clock:   time.Now,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	var rc *resty.Client
	if o.httpClient != nil {
		rc = resty.NewWithClient(o.httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(apiHost).
		SetTimeout(o.timeout).
		SetRetryCount(o.retries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetAuthToken(token).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)

	return &Client{
		http:   rc,
		clock:  o.clock,
		logger: o.logger.Named("oura"),
	}
}

// QueryParams returns the window query for kind relative to now.
// Daily resources span yesterday..tomorrow, heart rate spans today..tomorrow.
func QueryParams(kind model.Kind, now time.Time) map[string]string {
	today := now.Format(dateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(dateLayout)
	tomorrow := now.AddDate(0, 0, 1).Format(dateLayout)

	switch kind.Window() {
	case model.WindowDate:
		return map[string]string{"start_date": yesterday, "end_date": tomorrow}
	case model.WindowDateTime:
		return map[string]string{"start_datetime": today, "end_datetime": tomorrow}
	default:
		return nil
	}
}

// Fetch retrieves every item of kind in its window and decodes them.
// An empty result is logged and returned with a nil error.
func (c *Client) Fetch(ctx context.Context, kind model.Kind) ([]model.Record, error) {
	items, err := c.fetchRaw(ctx, kind)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		c.logger.Warn(ctx, "resource returned no items", logger.String("resource", kind.String()))
		return nil, nil
	}

	records := make([]model.Record, 0, len(items))
	for i, raw := range items {
		rec, err := decode.Decode(kind, raw)
		if err != nil {
			c.logger.Error(ctx, "failed to decode item",
				logger.String("resource", kind.String()),
				logger.Int("index", i),
				logger.Error(err),
			)
			if kind.Singleton() {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidResponse, kind, err)
			}
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Latest returns the most recent item of kind, which is the last one returned.
func (c *Client) Latest(ctx context.Context, kind model.Kind) (model.Record, bool, error) {
	records, err := c.Fetch(ctx, kind)
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, false, nil
	}
	return records[len(records)-1], true, nil
}

func (c *Client) fetchRaw(ctx context.Context, kind model.Kind) ([]json.RawMessage, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown resource %s", ErrInvalidResponse, kind)
	}

	req := c.http.R().SetContext(ctx)
	if params := QueryParams(kind, c.clock()); params != nil {
		req.SetQueryParams(params)
	}

	c.logger.Debug(ctx, "fetching resource", logger.String("resource", kind.String()))
	resp, err := req.Get(kind.Path())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, kind, err)
	}

	body := resp.Body()
	switch status := resp.StatusCode(); {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		c.logger.Error(ctx, "oura api rejected token",
			logger.String("resource", kind.String()),
			logger.Int("status", status),
		)
		return nil, fmt.Errorf("%w: %s: status %d", ErrUnauthorized, kind, status)
	case status < 200 || status >= 300:
		c.logger.Error(ctx, "oura api returned error status",
			logger.String("resource", kind.String()),
			logger.Int("status", status),
			logger.String("body", snippet(body)),
		)
		return nil, fmt.Errorf("%w: %s: status %d", ErrInvalidResponse, kind, status)
	}

	if kind.Singleton() {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
			return nil, c.invalid(ctx, kind, body, "expected object")
		}
		return []json.RawMessage{body}, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil || envelope == nil {
		return nil, c.invalid(ctx, kind, body, "expected object")
	}
	data, ok := envelope["data"]
	if !ok {
		return nil, c.invalid(ctx, kind, body, "missing data key")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil || items == nil {
		return nil, c.invalid(ctx, kind, body, "data is not a list")
	}
	return items, nil
}

func (c *Client) invalid(ctx context.Context, kind model.Kind, body []byte, reason string) error {
	c.logger.Error(ctx, "unexpected oura api response",
		logger.String("resource", kind.String()),
		logger.String("reason", reason),
		logger.String("body", snippet(body)),
	)
	return fmt.Errorf("%w: %s: %s", ErrInvalidResponse, kind, reason)
}

func snippet(b []byte) string {
	if len(b) > maxBodySnippet {
		return string(b[:maxBodySnippet]) + "..."
	}
	return string(b)
}
