// Package api is the HTTP transport for the ChatIt backend. It issues one
// call at a time, speaks JSON, and carries a process-wide default bearer
// credential plus per-request extra headers (the CSRF double-submit header).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Error is a non-2xx endpoint response. Reason is the human-readable text
// extracted from a JSON body of the form {"error": ...} or {"message": ...};
// empty when the body carries neither.
type Error struct {
	Status int
	Reason string
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("api: status %d: %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("api: status %d", e.Status)
}

// RequestOption mutates a single outgoing request. Options never leak into
// the client's defaults.
type RequestOption func(*http.Request)

// WithHeader sets one header on the request.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		if value != "" {
			r.Header.Set(key, value)
		}
	}
}

// Client talks to one ChatIt backend. The zero value is not usable; use New.
type Client struct {
	baseURL string
	http    *http.Client

	mu sync.Mutex // serializes calls: the transport supports one at a time

	tokMu     sync.RWMutex
	authToken string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SetAuthToken installs the default Authorization credential carried on
// every subsequent call. An empty token clears it.
func (c *Client) SetAuthToken(token string) {
	c.tokMu.Lock()
	c.authToken = token
	c.tokMu.Unlock()
}

func (c *Client) AuthToken() string {
	c.tokMu.RLock()
	defer c.tokMu.RUnlock()
	return c.authToken
}

func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodGet, path, nil, out, opts)
}

func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPost, path, body, out, opts)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPatch, path, body, out, opts)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, opts)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, opts []RequestOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.AuthToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Reason: decodeReason(resp.Body)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func decodeReason(body io.Reader) string {
	var payload struct {
		Err     string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return ""
	}
	if payload.Err != "" {
		return payload.Err
	}
	return payload.Message
}
