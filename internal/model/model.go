// Package model defines the request/response types exchanged across the
// foreign boundary and their JSON wire format.
package model

// Priority is an advisory scheduling hint carried by enhanced requests.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
	PriorityLow
)

// Request is the canonical representation of an HTTP request received from
// the host runtime. It is constructed once per call and never mutated
// afterwards.
type Request struct {
	URL              string            `json:"url"`
	Method           string            `json:"method"`
	Headers          map[string]string `json:"headers"`
	Body             *string           `json:"body,omitempty"`
	QueryParams      map[string]string `json:"query_params"`
	TimeoutMs        uint64            `json:"timeout_ms"`
	FollowRedirects  bool              `json:"follow_redirects"`
	MaxRedirects     int               `json:"max_redirects"`
	ConnectTimeoutMs uint64            `json:"connect_timeout_ms"`
	ReadTimeoutMs    uint64            `json:"read_timeout_ms"`
	WriteTimeoutMs   uint64            `json:"write_timeout_ms"`
	AutoReferer      bool              `json:"auto_referer"`
	Decompress       bool              `json:"decompress"`
	HTTP3Only        bool              `json:"http3_only"`
}

// EnhancedRequest extends Request with caching and parsing metadata.
// The extension fields are flattened into the same JSON object.
type EnhancedRequest struct {
	Request
	ResponseTypeSchema *string  `json:"response_type_schema,omitempty"`
	ParseResponse      bool     `json:"parse_response"`
	CacheKey           *string  `json:"cache_key,omitempty"`
	Priority           Priority `json:"priority"`
}

// Response is an immutable snapshot of a completed HTTP exchange.
type Response struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	Version    string            `json:"version"`
	URL        string            `json:"url"`
	ElapsedMs  int64             `json:"elapsed_ms"`
}

// EnhancedResponse extends Response with parse results and cache metadata.
// Once placed in the cache an EnhancedResponse is never mutated; callers
// receive cloned snapshots.
type EnhancedResponse struct {
	Response
	ParsedData       any  `json:"parsed_data,omitempty"`
	CacheHit         bool `json:"cache_hit"`
	CompressionSaved *int `json:"compression_saved,omitempty"`
}

// ErrorPayload is the structured error shape returned across the boundary.
type ErrorPayload struct {
	Error string `json:"error"`
}

// Clone returns a copy of the response suitable for handing to a caller
// while the original stays in the cache. Header maps are copied; the body
// string is shared (strings are immutable).
func (r *EnhancedResponse) Clone() *EnhancedResponse {
	cp := *r
	if r.Headers != nil {
		cp.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			cp.Headers[k] = v
		}
	}
	if r.CompressionSaved != nil {
		saved := *r.CompressionSaved
		cp.CompressionSaved = &saved
	}
	return &cp
}
