// Package client is a typed HTTP client for the Chronos API. Every failure is
// returned as an *Error.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/ryanbastic/go-chronos/internal/circuitbreaker"
)

// Client calls the Chronos API. Idempotent requests are retried with
// exponential backoff on network and server errors, and all requests pass
// through a circuit breaker.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	maxRetries int
	baseDelay  time.Duration
	breaker    *circuitbreaker.Breaker
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken authenticates requests with a session token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRetries sets how often idempotent requests are retried and the delay
// before the first retry. The delay doubles on each attempt.
func WithRetries(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max(maxRetries, 0)
		c.baseDelay = baseDelay
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *circuitbreaker.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		maxRetries: 2,
		baseDelay:  200 * time.Millisecond,
		breaker:    circuitbreaker.New(5, 30*time.Second, circuitbreaker.WithTripOn(tripsBreaker)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the session token in use.
func (c *Client) Token() string { return c.token }

// SetToken replaces the session token.
func (c *Client) SetToken(token string) { c.token = token }

// request describes one API call.
type request struct {
	method      string
	path        string
	contentType string
	// raw is the encoded body, kept so retries can resend it.
	raw []byte
}

func jsonRequest(method, path string, body any) (request, error) {
	r := request{method: method, path: path}
	if body == nil {
		return r, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return r, &Error{Kind: KindValidation, Message: "encode request", Err: err}
	}
	r.raw = data
	r.contentType = "application/json"
	return r, nil
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodHead:
		return true
	}
	return false
}

// do runs the request and decodes the "data" member of a success response
// into out. out may be nil.
func (c *Client) do(ctx context.Context, r request, out any) error {
	retries := 0
	if idempotent(r.method) {
		retries = c.maxRetries
	}

	var lastErr error
	for attempt := range retries + 1 {
		if err := ctx.Err(); err != nil {
			return &Error{Kind: KindNetwork, Message: "request canceled", Err: err}
		}

		err := c.breaker.Execute(ctx, func(ctx context.Context) error {
			return c.send(ctx, r, out)
		})
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			return &Error{Kind: KindUnavailable, Message: "API temporarily unavailable", Err: err}
		}
		if err == nil || !retryable(err) {
			return err
		}
		lastErr = err

		if attempt < retries {
			delay := c.baseDelay * time.Duration(math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return &Error{Kind: KindNetwork, Message: "request canceled", Err: ctx.Err()}
			case <-time.After(delay):
			}
		}
	}
	return lastErr
}

func (c *Client) send(ctx context.Context, r request, out any) error {
	var body io.Reader
	if r.raw != nil {
		body = bytes.NewReader(r.raw)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "http request", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Status: resp.StatusCode, Message: "read response", Err: err}
	}

	if resp.StatusCode >= 400 {
		return decodeProblem(resp.StatusCode, data)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || len(data) == 0 {
		return nil
	}

	envelope := struct {
		Data any `json:"data"`
	}{Data: out}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return &Error{Kind: KindServer, Status: resp.StatusCode, Message: "unmarshal response", Err: err}
	}
	return nil
}

// problem is the server's error document.
type problem struct {
	Title  string       `json:"title"`
	Status int          `json:"status"`
	Detail string       `json:"detail"`
	Errors []FieldError `json:"errors"`
}

func decodeProblem(status int, data []byte) *Error {
	e := &Error{Kind: kindForStatus(status), Status: status}
	var p problem
	if err := json.Unmarshal(data, &p); err != nil {
		e.Message = strings.TrimSpace(string(data))
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
		return e
	}
	e.Message = p.Detail
	if e.Message == "" {
		e.Message = p.Title
	}
	e.Fields = p.Errors
	return e
}

func pathf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
