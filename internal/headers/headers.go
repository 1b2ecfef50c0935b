// Package headers maps common header names and values to pre-interned
// canonical representations so typical mobile API requests build their
// header set without per-request allocation.
package headers

import (
	"net/http"
	"net/textproto"
	"sort"
	"strings"
	"unicode/utf8"
)

// commonNames maps lowercase header names to their canonical MIME form.
// Covers the headers mobile clients send on nearly every request.
var commonNames = map[string]string{
	"content-type":      "Content-Type",
	"content-length":    "Content-Length",
	"user-agent":        "User-Agent",
	"authorization":     "Authorization",
	"accept":            "Accept",
	"accept-language":   "Accept-Language",
	"accept-encoding":   "Accept-Encoding",
	"cache-control":     "Cache-Control",
	"connection":        "Connection",
	"cookie":            "Cookie",
	"set-cookie":        "Set-Cookie",
	"host":              "Host",
	"referer":           "Referer",
	"origin":            "Origin",
	"location":          "Location",
	"etag":              "Etag",
	"last-modified":     "Last-Modified",
	"if-none-match":     "If-None-Match",
	"if-modified-since": "If-Modified-Since",
	"x-requested-with":  "X-Requested-With",
	"x-api-key":         "X-Api-Key",
	"x-auth-token":      "X-Auth-Token",
	"x-request-id":      "X-Request-Id",
	"x-correlation-id":  "X-Correlation-Id",
	"x-device-id":       "X-Device-Id",
	"x-app-version":     "X-App-Version",
	"x-platform":        "X-Platform",
}

// commonValues interns header values seen on most requests so the per-call
// header map shares storage with these constants.
var commonValues = map[string]string{
	"application/json":                "application/json",
	"application/json; charset=utf-8": "application/json; charset=utf-8",
	"gzip":                            "gzip",
	"gzip, deflate, br":               "gzip, deflate, br",
	"keep-alive":                      "keep-alive",
	"no-cache":                        "no-cache",
	"*/*":                             "*/*",
}

// Canonical returns the canonical form of a header name, using the static
// table for common headers and falling back to MIME canonicalization.
func Canonical(name string) string {
	if c, ok := commonNames[name]; ok {
		return c
	}
	if c, ok := commonNames[strings.ToLower(name)]; ok {
		return c
	}
	return textproto.CanonicalMIMEHeaderKey(name)
}

// InternValue returns the interned form of a header value when one exists.
func InternValue(value string) string {
	if v, ok := commonValues[value]; ok {
		return v
	}
	return value
}

// BuildRequestHeaders converts a wire header map into an http.Header.
// Keys are case-insensitive with last-write-wins semantics; because the
// source map is unordered, keys are applied in sorted order so the winner
// of a case collision is deterministic.
func BuildRequestHeaders(raw map[string]string) http.Header {
	h := make(http.Header, len(raw))
	if len(raw) == 0 {
		return h
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		h.Set(Canonical(k), InternValue(raw[k]))
	}
	return h
}

// ExtractResponseHeaders flattens response headers into the wire map.
// Multi-valued headers keep their last value; values that are not valid
// UTF-8 are skipped rather than failing the whole response.
func ExtractResponseHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) == 0 {
			continue
		}
		v := vs[len(vs)-1]
		if !utf8.ValidString(v) {
			continue
		}
		out[strings.ToLower(k)] = v
	}
	return out
}
