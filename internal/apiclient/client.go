// Package apiclient is a typed client for the guestpost REST API. Every call
// returns a normalized Response or an *APIError.
package apiclient

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

// Response is the normalized shape of every successful call, whether the
// server sent the payload under data, under data.data, or bare.
type Response[T any] struct {
	OK       bool
	Message  string
	Data     T
	Existed  bool
	NextStep string
}

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each request. Zero means no per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: &http.Transport{Proxy: http.ProxyFromEnvironment}},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken swaps the bearer token, e.g. after Login.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

type wireEnvelope struct {
	OK       *bool           `json:"ok"`
	Message  string          `json:"message"`
	Error    string          `json:"error"`
	Code     string          `json:"code"`
	Data     json.RawMessage `json:"data"`
	Existed  bool            `json:"existed"`
	NextStep string          `json:"nextStep"`
}

func (c *Client) raw(ctx context.Context, method, path string, body any) (int, []byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, &APIError{Code: CodeDecode, Message: "could not encode request", Err: err}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, &APIError{Code: CodeNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, transportError(err)
	}
	return resp.StatusCode, raw, nil
}

func call[T any](ctx context.Context, c *Client, method, path string, body any) (*Response[T], error) {
	status, raw, err := c.raw(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	return decode[T](status, raw)
}

func decode[T any](status int, raw []byte) (*Response[T], error) {
	var env wireEnvelope
	isObject := len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &env) == nil

	if status >= http.StatusBadRequest || (env.OK != nil && !*env.OK) {
		apiErr := &APIError{Status: status, Code: env.Code, Message: env.Message}
		if apiErr.Message == "" {
			apiErr.Message = env.Error
		}
		if !isObject && apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
			if len(apiErr.Message) > 200 {
				apiErr.Message = ""
			}
		}
		return nil, apiErr
	}

	out := &Response[T]{OK: true}
	payload := json.RawMessage(raw)
	if isObject && env.OK != nil {
		out.Message = env.Message
		out.Existed = env.Existed
		out.NextStep = env.NextStep
		payload = env.Data
	}

	// Some handlers wrap the payload twice.
	if isEnvelope(payload) {
		var nested wireEnvelope
		if json.Unmarshal(payload, &nested) == nil {
			if nested.Message != "" {
				out.Message = nested.Message
			}
			out.Existed = out.Existed || nested.Existed
			if nested.NextStep != "" {
				out.NextStep = nested.NextStep
			}
			payload = nested.Data
		}
	}

	if len(bytes.TrimSpace(payload)) == 0 || string(payload) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(payload, &out.Data); err != nil {
		return nil, &APIError{Status: status, Code: CodeDecode,
			Message: fmt.Sprintf("unexpected response from server: %v", err), Err: err}
	}
	return out, nil
}

var envelopeKeys = map[string]bool{"ok": true, "message": true, "data": true, "existed": true, "nextStep": true}

// isEnvelope reports whether payload is an object holding only envelope keys, one of them data.
func isEnvelope(payload []byte) bool {
	var fields map[string]json.RawMessage
	if len(payload) == 0 || json.Unmarshal(payload, &fields) != nil {
		return false
	}
	if _, ok := fields["data"]; !ok {
		return false
	}
	for k := range fields {
		if !envelopeKeys[k] {
			return false
		}
	}
	return true
}
