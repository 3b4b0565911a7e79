package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Doer issues a single request against the backend. *Client implements it and
// the prober only depends on this interface, which keeps fakes trivial.
type Doer interface {
	Request(ctx context.Context, method, path string, opts RequestOptions) (any, error)
}

// Ensure Client implements Doer at compile time.
var _ Doer = (*Client)(nil)

// Activity receives busy/idle transitions around every request.
type Activity interface {
	Begin()
	End()
}

// TokenSource returns the bearer credential to attach, or "" when anonymous.
// It is evaluated on every request so a rotated credential is always honored.
type TokenSource func() string

// RequestOptions carries the optional parts of a request.
type RequestOptions struct {
	Body    any
	Headers http.Header
}

// Client talks to the project-management backend over JSON/HTTP.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
	token     TokenSource
	activity  Activity
	logger    *slog.Logger
}

const (
	defaultUserAgent = "foreman/0.1"
	defaultTimeout   = 15 * time.Second
)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTokenSource sets the live credential accessor.
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) { c.token = src }
}

// WithActivity sets the busy/idle collaborator.
func WithActivity(a Activity) Option {
	return func(c *Client) { c.activity = a }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a Client rooted at baseURL. An empty baseURL is allowed and
// makes every path go out verbatim (same-origin deployments behind a proxy).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized base URL ("" for same-origin).
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

// Request performs one request and returns the decoded response body. JSON
// bodies decode into map[string]any / []any with json.Number values; anything
// that is not JSON comes back as the raw string. Statuses outside 2xx return
// *HTTPError and network failures return *TransportError.
func (c *Client) Request(ctx context.Context, method, path string, opts RequestOptions) (any, error) {
	if c == nil {
		return nil, errors.New("client is nil")
	}

	var body io.Reader
	if opts.Body != nil {
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range opts.Headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	if c.activity != nil {
		c.activity.Begin()
		defer c.activity.End()
	}

	started := time.Now()
	logger := c.logger.With(
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", requestID),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("request failed", slog.Duration("duration", time.Since(started)), slog.Any("error", err))
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warn("read response failed", slog.Int("status", resp.StatusCode), slog.Any("error", err))
		return nil, &TransportError{Method: method, Path: path, Err: fmt.Errorf("read response: %w", err)}
	}
	payload, isJSON := decodeBody(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Body:    payload,
			Message: errorMessage(payload, isJSON, resp.StatusCode),
		}
		logger.Warn("request rejected",
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", time.Since(started)),
			slog.String("message", httpErr.Message),
		)
		return nil, httpErr
	}

	logger.Info("request complete",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(started)),
	)
	return payload, nil
}

// Retrieve issues a GET.
func (c *Client) Retrieve(ctx context.Context, path string) (any, error) {
	return c.Request(ctx, http.MethodGet, path, RequestOptions{})
}

// Create issues a POST with a JSON body.
func (c *Client) Create(ctx context.Context, path string, body any) (any, error) {
	return c.Request(ctx, http.MethodPost, path, RequestOptions{Body: body})
}

// Replace issues a PUT with a JSON body.
func (c *Client) Replace(ctx context.Context, path string, body any) (any, error) {
	return c.Request(ctx, http.MethodPut, path, RequestOptions{Body: body})
}

// Update issues a PATCH with a JSON body.
func (c *Client) Update(ctx context.Context, path string, body any) (any, error) {
	return c.Request(ctx, http.MethodPatch, path, RequestOptions{Body: body})
}

// Remove issues a DELETE.
func (c *Client) Remove(ctx context.Context, path string) (any, error) {
	return c.Request(ctx, http.MethodDelete, path, RequestOptions{})
}

func (c *Client) resolve(path string) string {
	if c.baseURL == "" {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// decodeBody parses raw as JSON. Empty bodies decode to nil; bodies that are
// not JSON are returned as the raw text with isJSON=false.
func decodeBody(raw []byte) (any, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, true
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw), false
	}
	if dec.More() {
		return string(raw), false
	}
	return v, true
}

func parseBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("parse base url %q: missing host", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}
