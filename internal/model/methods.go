package model

import (
	"fmt"
	"strings"
)

// NormalizeMethod upper-cases and validates an HTTP method. Common methods
// are matched directly to avoid allocating in the hot path; anything else
// must be a valid token per RFC 9110.
func NormalizeMethod(method string) (string, error) {
	switch method {
	case "GET", "get", "Get":
		return "GET", nil
	case "POST", "post", "Post":
		return "POST", nil
	case "PUT", "put":
		return "PUT", nil
	case "DELETE", "delete":
		return "DELETE", nil
	case "HEAD", "head":
		return "HEAD", nil
	case "PATCH", "patch":
		return "PATCH", nil
	case "OPTIONS", "options":
		return "OPTIONS", nil
	case "TRACE", "trace":
		return "TRACE", nil
	case "CONNECT", "connect":
		return "CONNECT", nil
	case "":
		return "GET", nil
	}

	upper := strings.ToUpper(method)
	if !isToken(upper) {
		return "", fmt.Errorf("invalid HTTP method %q", method)
	}
	return upper, nil
}

// IsCacheable reports whether responses to this method are eligible for the
// response cache and for in-flight deduplication. Only GET qualifies:
// HEAD responses carry no body worth caching and everything else may have
// side effects.
func IsCacheable(method string) bool {
	return method == "GET"
}

// IsIdempotent reports whether the method is idempotent per RFC 9110.
func IsIdempotent(method string) bool {
	switch method {
	case "GET", "HEAD", "PUT", "DELETE", "OPTIONS", "TRACE":
		return true
	}
	return false
}

// isToken reports whether s is a valid RFC 9110 token.
func isToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isTokenChar(s[i]) {
			return false
		}
	}
	return true
}

func isTokenChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}
