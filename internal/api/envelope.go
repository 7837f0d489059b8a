package api

import (
	"context"
	"encoding/json"
	"fmt"
)

// Envelope is the response shape shared by the API endpoints.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Count   int    `json:"count,omitempty"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`

	// Raw is the response body as received, keys the envelope does not
	// model included.
	Raw json.RawMessage `json:"-"`
}

// RawBody returns the response as received.
func (e *Envelope[T]) RawBody() json.RawMessage { return e.Raw }

// Record is an endpoint payload the client passes through untouched.
type Record map[string]any

// Decode unmarshals a raw body into T. A nil body decodes to the zero value.
func Decode[T any](raw json.RawMessage) (*T, error) {
	var v T
	if len(raw) == 0 {
		return &v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &v, nil
}

func call[T any](ctx context.Context, c *Client, method, path string, body any) (*Envelope[T], error) {
	raw, status, err := c.send(ctx, path, RequestOptions{Method: method, Body: body})
	if err != nil {
		return nil, err
	}
	return decodeEnvelope[T](raw, status)
}

// decodeEnvelope decodes a successful response. A body that does not fit
// the envelope is reported as an *Error carrying the response status.
func decodeEnvelope[T any](raw json.RawMessage, status int) (*Envelope[T], error) {
	resp, err := Decode[Envelope[T]](raw)
	if err != nil {
		return nil, &Error{Status: status, Message: err.Error(), Err: err}
	}
	resp.Raw = raw
	return resp, nil
}
