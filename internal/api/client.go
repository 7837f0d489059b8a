// Package api is the client for the XY-DO athletic programs REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"xydo.org/internal/ids"
	"xydo.org/internal/obs"
	"xydo.org/internal/session"
)

const (
	authHeader      = "Authorization"
	bearer          = "Bearer "
	requestIDHeader = "X-Request-ID"

	// GenericErrorMessage is reported when a failed response names no error.
	GenericErrorMessage = "Something went wrong"
)

// Client issues single-attempt JSON requests against a fixed base URL and
// attaches the stored bearer token. It never retries and sets no timeout of
// its own; callers bound a call through ctx.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Store
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a client for baseURL (for example https://host/api).
func New(baseURL string, store *session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Transport: obs.InstrumentTransport(http.DefaultTransport)},
		session:    store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root requests are issued against.
func (c *Client) BaseURL() string { return c.baseURL }

// Session returns the store the client reads its token from.
func (c *Client) Session() *session.Store { return c.session }

// RequestOptions override the defaults of Request.
type RequestOptions struct {
	// Method defaults to GET.
	Method string
	// Header values replace the defaults, Content-Type included. A stored
	// token always sets Authorization.
	Header http.Header
	// Body is sent as-is when it is json.RawMessage, []byte or string and
	// JSON encoded otherwise. nil sends no body.
	Body any
}

// Request performs one call and returns the parsed JSON body. Any failure,
// from the network or a non-2xx status, is an *Error.
func (c *Client) Request(ctx context.Context, path string, opts RequestOptions) (json.RawMessage, error) {
	raw, _, err := c.send(ctx, path, opts)
	return raw, err
}

// send is Request that also reports the response status.
func (c *Client) send(ctx context.Context, path string, opts RequestOptions) (json.RawMessage, int, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	body, err := encodeBody(opts.Body)
	if err != nil {
		return nil, 0, &Error{Message: err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, &Error{Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range opts.Header {
		req.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	if token, ok := c.session.GetToken(ctx); ok {
		req.Header.Set(authHeader, bearer+token)
	}
	requestID := ids.New()
	req.Header.Set(requestIDHeader, requestID)

	start := time.Now()
	entry := map[string]any{
		"request_id": requestID,
		"method":     method,
		"path":       path,
	}
	defer func() {
		entry["duration_ms"] = time.Since(start).Milliseconds()
		obs.LogRequest(entry)
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		entry["error"] = err.Error()
		return nil, 0, &Error{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	entry["status"] = resp.StatusCode

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		entry["error"] = err.Error()
		return nil, resp.StatusCode, &Error{Status: resp.StatusCode, Message: err.Error(), Err: err}
	}
	parsed, parseErr := parseJSON(data)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := errorFromBody(resp.StatusCode, parsed)
		entry["error"] = apiErr.Message
		return nil, resp.StatusCode, apiErr
	}
	if parseErr != nil {
		entry["error"] = parseErr.Error()
		return nil, resp.StatusCode, &Error{Status: resp.StatusCode, Message: "invalid JSON response", Err: parseErr}
	}
	return parsed, resp.StatusCode, nil
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return bytes.NewReader(data), nil
	}
}

// parseJSON validates data as one JSON document. An empty body parses to nil.
func parseJSON(data []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("response is not valid JSON")
	}
	return json.RawMessage(trimmed), nil
}
