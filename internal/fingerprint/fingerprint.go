// Package fingerprint derives the cache and deduplication key for a request.
package fingerprint

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/jeffersonwarrior/httpbridge/internal/model"
)

// Derive computes a deterministic fingerprint over method, url, and query
// parameters. Parameters are sorted by key (then value) before hashing so
// two logically identical requests with different insertion order map to
// the same fingerprint.
func Derive(method, url string, query map[string]string) string {
	h := fnv.New64a()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(url))
	h.Write([]byte{0})

	if len(query) > 0 {
		keys := make([]string, 0, len(query))
		for k := range query {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			h.Write([]byte(k))
			h.Write([]byte{'='})
			h.Write([]byte(query[k]))
			h.Write([]byte{'&'})
		}
	}

	return fmt.Sprintf("req_%016x", h.Sum64())
}

// ForRequest returns the request's cache key: the caller-supplied key
// verbatim when present, otherwise the derived fingerprint.
func ForRequest(req *model.EnhancedRequest) string {
	if req.CacheKey != nil && *req.CacheKey != "" {
		return *req.CacheKey
	}
	return Derive(req.Method, req.URL, req.QueryParams)
}
