// Package client is a typed Go client for the taller v1 API.
//
// Every call is tenant-scoped: the client sends X-Tenant-ID and, once a
// token is set, a bearer Authorization header. Mutations of a work order
// return the order as reloaded by the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const apiPrefix = "/api/v1"

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Option func(*Client)

func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.http = d }
}

func WithTenant(tenantID string) Option {
	return func(c *Client) { c.tenant = tenantID }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// Client is safe for concurrent use. Authenticated returns a copy bound to
// another token.
type Client struct {
	baseURL   string
	http      Doer
	tenant    string
	token     string
	userAgent string
}

// New builds a client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      http.DefaultClient,
		userAgent: "taller-go-client",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Authenticated(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

type idempotencyKey struct{}

// WithIdempotencyKey makes the next mutation sent with ctx carry
// X-Idempotency-Key, so a retry replays the first reply.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey{}, key)
}

// ListOptions is the common list window. Filters carries resource specific
// query parameters such as status or dateFrom.
type ListOptions struct {
	Search  string
	Limit   int
	Offset  int
	OrderBy string
	Filters url.Values
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	for k, vals := range o.Filters {
		v[k] = append([]string(nil), vals...)
	}
	if o.Search != "" {
		v.Set("search", o.Search)
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		v.Set("offset", strconv.Itoa(o.Offset))
	}
	if o.OrderBy != "" {
		v.Set("orderBy", o.OrderBy)
	}
	return v
}

// request is one call: body, when set, is JSON encoded unless it is an
// io.Reader, which is sent as is with contentType.
type request struct {
	method      string
	path        string
	query       url.Values
	body        any
	contentType string
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	u := c.baseURL + apiPrefix + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	contentType := r.contentType
	switch b := r.body.(type) {
	case nil:
	case io.Reader:
		body = b
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("taller: encode %s %s: %w", r.method, r.path, err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("taller: build %s %s: %w", r.method, r.path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tenant != "" {
		req.Header.Set("X-Tenant-ID", c.tenant)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if key, ok := ctx.Value(idempotencyKey{}).(string); ok && key != "" && r.method != http.MethodGet {
		req.Header.Set("X-Idempotency-Key", key)
	}
	return req, nil
}

// send performs r and returns the open response of a 2xx reply. Any other
// status is decoded into *APIError.
func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: r.method, Path: r.path, Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, decodeError(resp)
}

// do performs r and decodes a JSON reply into out when out is non-nil.
func (c *Client) do(ctx context.Context, r request, out any) error {
	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Method: r.method, Path: r.path, Err: fmt.Errorf("decode reply: %w", err)}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil && len(raw) > 0 {
		var body struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		}
		if json.Unmarshal(raw, &body) == nil {
			apiErr.Code = body.Code
			apiErr.Message = body.Message
			apiErr.Details = body.Details
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func get[T any](ctx context.Context, c *Client, path string, query url.Values) (*T, error) {
	var out T
	if err := c.do(ctx, request{method: http.MethodGet, path: path, query: query}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func call[T any](ctx context.Context, c *Client, method, path string, body any) (*T, error) {
	var out T
	if err := c.do(ctx, request{method: method, path: path, body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// pathf escapes every argument as a path segment; use %s for each.
func pathf(format string, args ...any) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(fmt.Sprint(a))
	}
	return fmt.Sprintf(format, escaped...)
}
