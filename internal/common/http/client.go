// internal/common/http/client.go
package http

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client is an http.Client behind a token bucket. Every request waits for a
// token, so the limiter spreads calls to providers that meter per second.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient returns an unlimited client.
func NewClient(timeout time.Duration) *Client {
	return NewRateLimitedClient(timeout, 0, 0)
}

// NewRateLimitedClient allows requestsPerSecond with the given burst. A
// non-positive rate disables limiting.
func NewRateLimitedClient(timeout time.Duration, requestsPerSecond float64, burst int) *Client {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext waits for the limiter and sends req bound to ctx. It returns
// ctx's error if the wait is cancelled.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.httpClient.Do(req.WithContext(ctx))
}

// Limit reports the configured rate.
func (c *Client) Limit() rate.Limit {
	return c.limiter.Limit()
}
