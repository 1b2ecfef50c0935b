// Package transport defines the contract between the execution core and the
// collaborator that performs actual HTTP protocol work (TLS, framing, DNS,
// connection pooling, redirects), plus two implementations: a pooled
// net/http transport tuned for mobile use and a retrying variant for hosts
// that opt into transport-level retries.
package transport

import (
	"context"
	"net/http"
)

// Request is the transport-level view of a request. The core has already
// canonicalized the method and headers and derived per-call timeouts into
// the context deadline.
type Request struct {
	Method          string
	URL             string
	Headers         http.Header
	Query           map[string]string
	Body            []byte
	FollowRedirects bool
	MaxRedirects    int
	Decompress      bool
	HTTP3Only       bool
}

// Response is what the collaborator hands back. A non-2xx status is a
// normal response, never an error.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Version    string

	// CompressionSaved is the number of body bytes saved by content
	// decoding, zero when the response was not compressed.
	CompressionSaved int
}

// Transport executes a single HTTP exchange. Implementations must honor
// ctx cancellation and report failures as *Error.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}
