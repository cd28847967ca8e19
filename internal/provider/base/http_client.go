package base

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// HTTPClient provides common HTTP functionality for upstream APIs
type HTTPClient struct {
	client     *http.Client
	baseURL    string
	name       string // upstream name for logging
	token      string
	maxRetries uint64
	initial    time.Duration
}

// NewHTTPClient creates a new HTTP client with default settings
func NewHTTPClient(name string, timeoutSec int) *HTTPClient {
	if timeoutSec == 0 {
		timeoutSec = 30 // default timeout
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
		name:       name,
		maxRetries: 3,
		initial:    500 * time.Millisecond,
	}
}

// SetBaseURL sets the base URL for all requests
func (c *HTTPClient) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/") + "/"
}

// BaseURL returns the configured base URL.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// SetToken sends "Authorization: Token <token>" on every request.
func (c *HTTPClient) SetToken(token string) {
	c.token = strings.TrimSpace(token)
}

// SetRetry configures how many times transient failures are retried and the
// first backoff interval.
func (c *HTTPClient) SetRetry(maxRetries int, initial time.Duration) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	c.maxRetries = uint64(maxRetries)
	if initial > 0 {
		c.initial = initial
	}
}

// Get makes a GET request. Network errors, 429 and 5xx responses are retried with
// exponential backoff until the retry budget or the context runs out; the last
// response is returned either way.
func (c *HTTPClient) Get(ctx context.Context, endpoint string, headers map[string]string) (*HTTPResponse, error) {
	url := c.baseURL + strings.TrimLeft(endpoint, "/")

	var out *HTTPResponse
	attempt := 0
	op := func() error {
		attempt++
		resp, err := c.do(ctx, url, headers)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		out = resp
		if resp.IsRetryable() {
			return &retryableStatus{code: resp.StatusCode}
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().
			Str("upstream", c.name).
			Str("url", url).
			Int("attempt", attempt).
			Dur("wait", wait).
			Err(err).
			Msg("retrying HTTP request")
	}

	err := backoff.RetryNotify(op, backoff.WithContext(c.policy(), ctx), notify)
	if err != nil {
		var rs *retryableStatus
		if errors.As(err, &rs) && out != nil {
			return out, nil
		}
		log.Error().
			Str("upstream", c.name).
			Str("url", url).
			Int("attempts", attempt).
			Err(err).
			Msg("HTTP request failed")
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	return out, nil
}

func (c *HTTPClient) policy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, c.maxRetries)
}

func (c *HTTPClient) do(ctx context.Context, url string, headers map[string]string) (*HTTPResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	// Set default headers
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", fmt.Sprintf("godash/%s", c.name))
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	// Add custom headers
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	log.Debug().
		Str("upstream", c.name).
		Str("method", http.MethodGet).
		Str("url", url).
		Msg("making HTTP request")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	return c.handleResponse(resp)
}

// handleResponse processes the HTTP response
func (c *HTTPClient) handleResponse(resp *http.Response) (*HTTPResponse, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	httpResp := &HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	log.Debug().
		Str("upstream", c.name).
		Int("status_code", resp.StatusCode).
		Int("body_length", len(body)).
		Msg("received HTTP response")

	return httpResp, nil
}

type retryableStatus struct{ code int }

func (e *retryableStatus) Error() string { return fmt.Sprintf("retryable status %d", e.code) }

// HTTPResponse represents an HTTP response
type HTTPResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// IsSuccess checks if the response indicates success (2xx status code)
func (r *HTTPResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsRetryable reports throttling and server errors.
func (r *HTTPResponse) IsRetryable() bool {
	return r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= 500
}

// DecodeJSON unmarshals the response body into v
func (r *HTTPResponse) DecodeJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// String returns the response body as a string
func (r *HTTPResponse) String() string {
	return string(r.Body)
}
