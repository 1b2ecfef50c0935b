package model

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityMarshal(t *testing.T) {
	data, err := json.Marshal(PriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, `"High"`, string(data))

	data, err = json.Marshal(PriorityNormal)
	require.NoError(t, err)
	assert.Equal(t, `"Normal"`, string(data))
}

func TestPriorityUnmarshal(t *testing.T) {
	var p Priority

	require.NoError(t, json.Unmarshal([]byte(`"Low"`), &p))
	assert.Equal(t, PriorityLow, p)

	require.NoError(t, json.Unmarshal([]byte(`null`), &p))
	assert.Equal(t, PriorityNormal, p)

	assert.Error(t, json.Unmarshal([]byte(`"Urgent"`), &p))
	assert.Error(t, json.Unmarshal([]byte(`3`), &p))
}

func TestNormalizeMethod(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"get", "GET"},
		{"GET", "GET"},
		{"Post", "POST"},
		{"delete", "DELETE"},
		{"", "GET"},
		{"purge", "PURGE"},
	}
	for _, tc := range cases {
		got, err := NormalizeMethod(tc.in)
		require.NoError(t, err, "method %q", tc.in)
		assert.Equal(t, tc.want, got)
	}

	_, err := NormalizeMethod("G ET")
	assert.Error(t, err)
	_, err = NormalizeMethod("GET/")
	assert.Error(t, err)
}

func TestIsCacheable(t *testing.T) {
	assert.True(t, IsCacheable("GET"))
	assert.False(t, IsCacheable("HEAD"))
	assert.False(t, IsCacheable("POST"))
	assert.False(t, IsCacheable("DELETE"))
}

func TestIsIdempotent(t *testing.T) {
	for _, m := range []string{"GET", "HEAD", "PUT", "DELETE", "OPTIONS", "TRACE"} {
		assert.True(t, IsIdempotent(m), m)
	}
	for _, m := range []string{"POST", "PATCH", "CONNECT", "PURGE"} {
		assert.False(t, IsIdempotent(m), m)
	}
}
