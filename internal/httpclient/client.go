// Package httpclient builds the resty clients used to reach the remote
// services, and classifies their outcomes.
//
// Requests are never retried: a failed step is retried by the user.
package httpclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/docugithub/docugithub/internal/failure"
)

const UserAgent = "docugithub/1.0"

// Options configure a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond limits outgoing requests; zero means unlimited.
	RequestsPerSecond float64
}

// Client is a resty client with an optional client-side rate limit.
type Client struct {
	Resty   *resty.Client
	Limiter *rate.Limiter
}

// New returns a client on a pooled transport with retries disabled.
func New(opts Options) *Client {
	// retryablehttp supplies a pooled, keep-alive transport; its retry loop
	// is not used.
	pooled := retryablehttp.NewClient()
	pooled.RetryMax = 0
	pooled.Logger = nil

	r := resty.New().
		SetTransport(pooled.HTTPClient.Transport).
		SetRetryCount(0).
		SetHeader("User-Agent", UserAgent)
	if opts.Timeout > 0 {
		r.SetTimeout(opts.Timeout)
	}
	if opts.BaseURL != "" {
		r.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return &Client{Resty: r, Limiter: limiter}
}

// Request waits for the rate limiter and returns a request bound to ctx.
func (c *Client) Request(ctx context.Context) (*resty.Request, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, failure.Wrap(failure.NetworkFailure, "rate limit wait", err)
	}
	return c.Resty.R().SetContext(ctx), nil
}

// Classify turns a transport error or a non-2xx response into a failure.
// It returns nil for 2xx responses.
func Classify(op string, resp *resty.Response, err error) error {
	if err != nil {
		return failure.Wrap(failure.NetworkFailure, op, err)
	}
	if resp == nil {
		return failure.New(failure.NetworkFailure, op+": no response")
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return &failure.Error{
			Kind:    failure.BackendFailure,
			Status:  resp.StatusCode(),
			Message: fmt.Sprintf("%s: HTTP %d: %s", op, resp.StatusCode(), snippet(resp.String())),
		}
	}
	return nil
}

// snippet trims a response body for error messages.
func snippet(body string) string {
	body = strings.TrimSpace(body)
	const max = 200
	if len(body) > max {
		return body[:max] + "..."
	}
	return body
}
