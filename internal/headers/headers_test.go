package headers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	assert.Equal(t, "Content-Type", Canonical("content-type"))
	assert.Equal(t, "Content-Type", Canonical("CONTENT-TYPE"))
	assert.Equal(t, "X-Api-Key", Canonical("x-api-key"))
	assert.Equal(t, "X-Custom-Header", Canonical("x-custom-header"))
}

func TestInternValue(t *testing.T) {
	assert.Equal(t, "application/json", InternValue("application/json"))
	assert.Equal(t, "something-else", InternValue("something-else"))
}

func TestBuildRequestHeaders(t *testing.T) {
	h := BuildRequestHeaders(map[string]string{
		"content-type":  "application/json",
		"Authorization": "Bearer tok",
	})

	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.Equal(t, "Bearer tok", h.Get("Authorization"))
}

// TestBuildRequestHeaders_CaseCollisionDeterministic pins last-write-wins
// by sorted key order when the source map holds case variants of one name.
func TestBuildRequestHeaders_CaseCollisionDeterministic(t *testing.T) {
	raw := map[string]string{
		"accept": "text/html",
		"Accept": "application/json",
	}

	for i := 0; i < 20; i++ {
		h := BuildRequestHeaders(raw)
		assert.Equal(t, "text/html", h.Get("Accept"))
		assert.Len(t, h.Values("Accept"), 1)
	}
}

func TestBuildRequestHeaders_Empty(t *testing.T) {
	h := BuildRequestHeaders(nil)
	assert.Empty(t, h)
}

func TestExtractResponseHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Add("Set-Cookie", "a=1")
	h.Add("Set-Cookie", "b=2")
	h.Set("X-Binary", "ok\xff")

	out := ExtractResponseHeaders(h)

	assert.Equal(t, "application/json", out["content-type"])
	assert.Equal(t, "b=2", out["set-cookie"])
	_, present := out["x-binary"]
	assert.False(t, present)
}
