// Package adapter defines the execution contract shared by the UniFi backend
// adapters, the normalized result union, and the error taxonomy every adapter
// classifies its failures into.
//
// Each backend package (fleet, network, protect) implements Executor on top of
// a Transport. The Transport only performs the single outbound call; envelope
// decoding and pagination stay in the backend packages because the three
// backends disagree on both.
package adapter

import (
	"context"
	"net/http"
	"net/url"
)

// Request is one call against a backend, relative to the adapter's endpoint.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Get builds a GET request.
func Get(path string, query url.Values) Request {
	return Request{Method: http.MethodGet, Path: path, Query: query}
}

// Executor is implemented by every backend adapter.
//
// Execute issues exactly one network call and either returns a normalized
// Result or fails with an *Error. It never retries.
type Executor interface {
	Name() string
	Execute(ctx context.Context, req Request) (Result, error)
	Close() error
}
