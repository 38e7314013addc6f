// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the retrying HTTP client used by the network
// vision backends.
package httputil

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// RetryBaseDelay controls the base duration for exponential backoff.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// maxDelay caps a single backoff wait.
const maxDelay = 30 * time.Second

const defaultMaxRetries = 3

// Retryable reports whether a status code is worth another attempt: rate
// limiting and transient server failures.
func Retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// DoWithRetry executes req and retries on Retryable statuses with
// exponential backoff starting at RetryBaseDelay and capped at 30s.
//
// When maxRetries is 0 the default (3) is used. Request bodies are rewound
// through req.GetBody between attempts; a request with a body but no GetBody
// is sent once. If the context is cancelled during a backoff wait the
// function returns ctx.Err(). After exhausting retries the last response is
// returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		maxRetries = 0
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}

		if !Retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		// Drain and close the body before retrying.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		if backoff > maxDelay {
			backoff = maxDelay
		}
		zerolog.Ctx(ctx).Warn().
			Int("status", resp.StatusCode).
			Dur("backoff", backoff).
			Int("attempt", attempt+1).
			Int("max_retries", maxRetries).
			Msg("vision request failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// Client is an HTTP client whose Do retries like DoWithRetry. It satisfies
// the Doer interfaces accepted by the vision SDK clients.
type Client struct {
	HTTP       *http.Client
	MaxRetries int
}

// NewClient returns a retrying client with the given per-request timeout.
// A zero timeout means no timeout.
func NewClient(timeout time.Duration, maxRetries int) *Client {
	return &Client{
		HTTP:       &http.Client{Timeout: timeout},
		MaxRetries: maxRetries,
	}
}

// Do sends req with retries.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	return DoWithRetry(req.Context(), hc, req, c.MaxRetries)
}

// RoundTrip lets the retrying client be installed as an http.Client
// transport for SDKs that only accept *http.Client.
func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	return c.Do(req)
}

// StandardClient wraps c in an *http.Client.
func (c *Client) StandardClient() *http.Client {
	var timeout time.Duration
	if c.HTTP != nil {
		timeout = c.HTTP.Timeout
	}
	inner := &Client{MaxRetries: c.MaxRetries, HTTP: &http.Client{}}
	return &http.Client{Transport: inner, Timeout: timeout}
}
