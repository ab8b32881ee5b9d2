package retry

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Default retry configuration
const (
	defaultMaxRetries        = 0
	defaultInitialRetryDelay = 1 * time.Second
	defaultMaxRetryDelay     = 10 * time.Second
	defaultDelayMultiplier   = 2.0
)

// Client is an HTTP client with exponential-backoff retries. The auth
// service calls carry the caller's session cookie on a fully-formed
// *http.Request, so the client operates on requests rather than URLs.
type Client struct {
	maxRetries        int
	initialRetryDelay time.Duration
	maxRetryDelay     time.Duration
	delayMultiplier   float64
	httpClient        *http.Client
	retryable         RetryableChecker
}

// RetryableChecker decides whether an error or response warrants a retry.
type RetryableChecker func(err error, resp *http.Response) bool

// Option configures a Client
type Option func(*Client)

// WithMaxRetries sets the maximum number of retry attempts
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithInitialRetryDelay sets the delay before the first retry
func WithInitialRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.initialRetryDelay = d
		}
	}
}

// WithMaxRetryDelay caps the delay between retries
func WithMaxRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.maxRetryDelay = d
		}
	}
}

// WithHTTPClient sets a custom http.Client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithRetryableChecker overrides the retry decision function
func WithRetryableChecker(checker RetryableChecker) Option {
	return func(c *Client) {
		if checker != nil {
			c.retryable = checker
		}
	}
}

// NewClient creates a retry-enabled HTTP client
func NewClient(opts ...Option) *Client {
	c := &Client{
		maxRetries:        defaultMaxRetries,
		initialRetryDelay: defaultInitialRetryDelay,
		maxRetryDelay:     defaultMaxRetryDelay,
		delayMultiplier:   defaultDelayMultiplier,
		httpClient:        http.DefaultClient,
		retryable:         DefaultRetryableChecker,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// DefaultRetryableChecker retries on transport errors, 5xx responses and
// 429 Too Many Requests. A 401/403 from the auth service is a definitive
// answer and is never retried.
func DefaultRetryableChecker(err error, resp *http.Response) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
}

// Do executes req, retrying with exponential backoff until the checker is
// satisfied or the attempts are exhausted. The context cancels both the
// in-flight request and any backoff wait.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	var resp *http.Response
	delay := c.initialRetryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				if lastErr != nil {
					return nil, fmt.Errorf("context cancelled after %d attempts: %w", attempt, lastErr)
				}
				return nil, ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * c.delayMultiplier)
				if delay > c.maxRetryDelay {
					delay = c.maxRetryDelay
				}
			}
		}

		// Clone per attempt; a retried request needs its body rewound
		attemptReq := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, fmt.Errorf("rewinding request body: %w", bodyErr)
			}
			attemptReq.Body = body
		}
		resp, lastErr = c.httpClient.Do(attemptReq)

		if !c.retryable(lastErr, resp) {
			return resp, lastErr
		}
		if attempt == c.maxRetries {
			break
		}

		// Drop the body before retrying to avoid leaking the connection
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
	}

	return resp, lastErr
}
