// Package backend is the typed client for the remote commerce API: coupon
// verification, shipping rates, and order submission. Everything behind it
// is owned by the backend; this package only gives those calls a contract
// and an error taxonomy the checkout flow can act on.
package backend

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client calls the remote commerce API.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
	prefilter *bloom.BloomFilter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithUserAgent sets the device identifier sent on order submission.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithCouponPrefilter installs a bloom filter of known coupon codes. Codes
// absent from the filter are rejected locally without a network call; codes
// present still verify remotely, so false positives cost one request and
// nothing else.
func WithCouponPrefilter(f *bloom.BloomFilter) Option {
	return func(c *Client) { c.prefilter = f }
}

// New creates a Client for the API rooted at baseURL. Outbound requests go
// through an instrumented transport.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "storefront-kart",
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get issues a GET and returns the status code and body. A nil error means
// the request completed; the status still needs interpreting.
func (c *Client) get(ctx context.Context, path string, query url.Values) (int, []byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, errors.Wrapf(err, "read response for %s", path)
	}
	return resp.StatusCode, body, nil
}
