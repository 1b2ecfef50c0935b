package model

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// Wire-level decode errors. All of them are surfaced before a request can
// reach the transport.
var (
	ErrMalformedRequest = errors.New("malformed request")
	ErrEmptyInput       = fmt.Errorf("%w: payload is empty", ErrMalformedRequest)
	ErrInvalidUTF8      = fmt.Errorf("%w: payload is not valid UTF-8", ErrMalformedRequest)
)

// Defaults applied to optional wire fields when the host omits them.
const (
	DefaultTimeoutMs        = 15000
	DefaultConnectTimeoutMs = 5000
	DefaultMaxRedirects     = 5
)

// newRequestWithDefaults returns a request pre-populated with field defaults
// so that absent JSON keys keep them and present keys override them.
func newRequestWithDefaults() EnhancedRequest {
	return EnhancedRequest{
		Request: Request{
			Method:           "GET",
			TimeoutMs:        DefaultTimeoutMs,
			ConnectTimeoutMs: DefaultConnectTimeoutMs,
			MaxRedirects:     DefaultMaxRedirects,
			FollowRedirects:  true,
			Decompress:       true,
		},
		Priority: PriorityNormal,
	}
}

// DecodeRequest parses a serialized EnhancedRequest, applies defaults, and
// validates the result. Unknown fields are ignored.
func DecodeRequest(data []byte) (*EnhancedRequest, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	if !utf8.Valid(data) {
		return nil, ErrInvalidUTF8
	}

	req := newRequestWithDefaults()
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: invalid request JSON: %v", ErrMalformedRequest, err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return &req, nil
}

// DecodeBatch parses a JSON array of EnhancedRequests, applying the same
// defaults and validation to each element.
func DecodeBatch(data []byte) ([]*EnhancedRequest, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	if !utf8.Valid(data) {
		return nil, ErrInvalidUTF8
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid batch JSON: %v", ErrMalformedRequest, err)
	}

	reqs := make([]*EnhancedRequest, 0, len(raw))
	for i, item := range raw {
		req, err := DecodeRequest(item)
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// Validate enforces the request invariants: a scheme-prefixed URL and a
// normalized, token-valid method.
func (r *EnhancedRequest) Validate() error {
	if r.URL == "" {
		return errors.New("url cannot be empty")
	}
	if !strings.HasPrefix(r.URL, "http://") && !strings.HasPrefix(r.URL, "https://") {
		return fmt.Errorf("url must start with http:// or https://: %q", r.URL)
	}

	method, err := NormalizeMethod(r.Method)
	if err != nil {
		return err
	}
	r.Method = method
	return nil
}

// EncodeResponse serializes an EnhancedResponse to its wire form.
func EncodeResponse(resp *EnhancedResponse) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize response: %w", err)
	}
	return data, nil
}

// EncodeBatchResponses serializes a slice of responses-or-errors. A failed
// item is rendered as an error payload in its slot so ordering is preserved.
func EncodeBatchResponses(items []any) ([]byte, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize batch responses: %w", err)
	}
	return data, nil
}

// EncodeError renders the structured error payload. Serialization of the
// payload itself cannot fail; a fallback literal guards against the absurd.
func EncodeError(err error) []byte {
	data, mErr := json.Marshal(ErrorPayload{Error: err.Error()})
	if mErr != nil {
		return []byte(`{"error":"internal serialization failure"}`)
	}
	return data
}

// ParseBody parses a response body as JSON. The schema hint is accepted for
// wire compatibility but not enforced; parse failures are reported so the
// caller can fall back to the raw body.
func ParseBody(body []byte, schema *string) (any, error) {
	_ = schema
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("response body is not valid JSON: %w", err)
	}
	return v, nil
}
