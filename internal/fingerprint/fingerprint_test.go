package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeffersonwarrior/httpbridge/internal/model"
)

// TestDerive_QueryOrderInvariant verifies the fingerprint depends only on
// the query content, not on map insertion order.
func TestDerive_QueryOrderInvariant(t *testing.T) {
	a := map[string]string{"page": "1", "sort": "asc", "limit": "20"}
	b := map[string]string{"limit": "20", "page": "1", "sort": "asc"}

	fa := Derive("GET", "https://api.example.com/items", a)
	fb := Derive("GET", "https://api.example.com/items", b)

	assert.Equal(t, fa, fb)
}

func TestDerive_Format(t *testing.T) {
	f := Derive("GET", "https://example.com", nil)
	assert.Regexp(t, `^req_[0-9a-f]{16}$`, f)
}

func TestDerive_DistinguishesInputs(t *testing.T) {
	base := Derive("GET", "https://example.com/a", nil)

	assert.NotEqual(t, base, Derive("POST", "https://example.com/a", nil))
	assert.NotEqual(t, base, Derive("GET", "https://example.com/b", nil))
	assert.NotEqual(t, base, Derive("GET", "https://example.com/a", map[string]string{"q": "1"}))
}

func TestDerive_ValueSwapChangesFingerprint(t *testing.T) {
	a := Derive("GET", "https://example.com", map[string]string{"a": "1", "b": "2"})
	b := Derive("GET", "https://example.com", map[string]string{"a": "2", "b": "1"})

	assert.NotEqual(t, a, b)
}

func TestForRequest_ExplicitKeyWins(t *testing.T) {
	key := "user-session-42"
	req := &model.EnhancedRequest{
		Request:  model.Request{URL: "https://example.com", Method: "GET"},
		CacheKey: &key,
	}

	assert.Equal(t, "user-session-42", ForRequest(req))
}

func TestForRequest_EmptyExplicitKeyFallsBack(t *testing.T) {
	empty := ""
	req := &model.EnhancedRequest{
		Request:  model.Request{URL: "https://example.com", Method: "GET"},
		CacheKey: &empty,
	}

	assert.Equal(t, Derive("GET", "https://example.com", nil), ForRequest(req))
}
