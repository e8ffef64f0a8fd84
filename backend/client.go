// Package backend is the typed client of the label backend that owns
// Google sign-in, Gmail access and label suggestions.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"labelmail/utils"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 15 * time.Second
)

// Observer receives one call per backend request.
type Observer interface {
	ObserveBackendCall(op, result string, elapsed time.Duration)
}

// Client calls the backend. The bearer token is passed per call so one
// client serves every session.
type Client struct {
	baseURL  string
	timeout  time.Duration
	http     *fasthttp.Client
	observer Observer
}

// Option configures a Client.
type Option func(*Client)

// WithObserver reports every call to o.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithHTTPClient replaces the underlying fasthttp client.
func WithHTTPClient(hc *fasthttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client for baseURL. Zero values take the defaults.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http: &fasthttp.Client{
			Name:                "labelmail",
			MaxIdleConnDuration: 30 * time.Second,
			// label names may contain an escaped "/"
			DisablePathNormalizing: true,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	token  string
	body   interface{}
}

// do sends r and decodes a 2xx JSON answer into out when out is non-nil.
// The effective timeout is the earlier of the context deadline and the
// client timeout.
func (c *Client) do(ctx context.Context, r request, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveBackendCall(r.op, resultOf(err), time.Since(start))
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := c.baseURL + r.path
	if len(r.query) > 0 {
		uri += "?" + r.query.Encode()
	}
	req.SetRequestURI(uri)
	req.Header.SetMethod(r.method)
	req.Header.Set("Accept", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("backend %s: encode request: %w", r.op, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBodyRaw(data)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("backend %s: %w", r.op, err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		apiErr := &APIError{Op: r.op, Status: status, Detail: parseDetail(resp.Body())}
		utils.Log.WithFields(map[string]interface{}{
			"op":     r.op,
			"status": status,
		}).Warn("Backend call failed: %s", apiErr.Detail)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("backend %s: decode response: %w", r.op, err)
	}
	return nil
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case StatusOf(err) != 0:
		return "http_error"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, fasthttp.ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}
