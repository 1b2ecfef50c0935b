package bridge

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffersonwarrior/httpbridge/internal/config"
	"github.com/jeffersonwarrior/httpbridge/internal/model"
)

func newTestBridge(t *testing.T, cfg *config.Config) *Bridge {
	t.Helper()
	b := New(cfg)
	require.NoError(t, b.Init())
	t.Cleanup(b.Shutdown)
	return b
}

func decodeErrorPayload(t *testing.T, data []byte) string {
	t.Helper()
	var payload model.ErrorPayload
	require.NoError(t, json.Unmarshal(data, &payload))
	require.NotEmpty(t, payload.Error)
	return payload.Error
}

func requestJSON(t *testing.T, url string) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]any{"url": url})
	require.NoError(t, err)
	return data
}

func TestExecute_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"hello":"world"}`)
	}))
	defer srv.Close()

	b := newTestBridge(t, nil)

	out := b.Execute(requestJSON(t, srv.URL))

	var resp model.EnhancedResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, `{"hello":"world"}`, resp.Body)
	assert.Equal(t, srv.URL, resp.URL)
}

func TestExecute_BeforeInit(t *testing.T) {
	b := New(nil)

	msg := decodeErrorPayload(t, b.Execute(requestJSON(t, "https://example.com")))
	assert.Contains(t, msg, "not initialized")
}

// TestExecute_MalformedJSONNeverReachesTransport sends garbage through an
// initialized bridge and verifies the transport is never consulted.
func TestExecute_MalformedJSONNeverReachesTransport(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	b := newTestBridge(t, nil)

	for _, payload := range [][]byte{
		nil,
		[]byte("not json"),
		[]byte(`{"method":"GET"}`),
		[]byte("\xff\xfe"),
	} {
		msg := decodeErrorPayload(t, b.Execute(payload))
		assert.NotEmpty(t, msg)
	}
	assert.Equal(t, int64(0), hits.Load())
}

func TestExecute_CacheHitOnRepeat(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "cached")
	}))
	defer srv.Close()

	b := newTestBridge(t, nil)

	first := b.Execute(requestJSON(t, srv.URL))
	second := b.Execute(requestJSON(t, srv.URL))

	var r1, r2 model.EnhancedResponse
	require.NoError(t, json.Unmarshal(first, &r1))
	require.NoError(t, json.Unmarshal(second, &r2))

	assert.False(t, r1.CacheHit)
	assert.True(t, r2.CacheHit)
	assert.Equal(t, int64(1), hits.Load())
}

func TestExecuteBatch_OrderedResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "body-%s", r.URL.Path[1:])
	}))
	defer srv.Close()

	b := newTestBridge(t, nil)

	batch := fmt.Sprintf(`[{"url":"%s/0"},{"url":"%s/1"},{"url":"%s/2"}]`, srv.URL, srv.URL, srv.URL)
	out := b.ExecuteBatch([]byte(batch), 0)

	var results []model.EnhancedResponse
	require.NoError(t, json.Unmarshal(out, &results))
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("body-%d", i), r.Body)
	}
}

func TestExecuteBatch_TooLarge(t *testing.T) {
	b := newTestBridge(t, nil)

	batch := `[{"url":"https://example.com/a"},{"url":"https://example.com/b"},{"url":"https://example.com/c"}]`
	msg := decodeErrorPayload(t, b.ExecuteBatch([]byte(batch), 2))
	assert.Contains(t, msg, "batch")
}

func TestExecuteBatch_ItemErrorInSlot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	b := newTestBridge(t, nil)

	batch := fmt.Sprintf(`[{"url":"%s"},{"url":"http://127.0.0.1:1/","timeout_ms":500}]`, srv.URL)
	out := b.ExecuteBatch([]byte(batch), 0)

	var raw []json.RawMessage
	require.NoError(t, json.Unmarshal(out, &raw))
	require.Len(t, raw, 2)

	var good model.EnhancedResponse
	require.NoError(t, json.Unmarshal(raw[0], &good))
	assert.Equal(t, "ok", good.Body)

	var bad model.ErrorPayload
	require.NoError(t, json.Unmarshal(raw[1], &bad))
	assert.NotEmpty(t, bad.Error)
}

// TestExecuteBuffer_ReleaseExactlyOnce covers the ownership transfer
// protocol end to end, including the malformed-input path where an error
// payload still arrives in a releasable buffer.
func TestExecuteBuffer_ReleaseExactlyOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "buffered")
	}))
	defer srv.Close()

	b := newTestBridge(t, nil)

	h := b.ExecuteBuffer(requestJSON(t, srv.URL))
	require.NotZero(t, h.Ptr)

	data, ok := b.BufferBytes(h)
	require.True(t, ok)

	var resp model.EnhancedResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "buffered", resp.Body)

	require.NoError(t, b.ReleaseBuffer(h.Ptr, h.Len, h.Cap))
	assert.Error(t, b.ReleaseBuffer(h.Ptr, h.Len, h.Cap))

	// Malformed input: the error payload is itself an owned buffer.
	h2 := b.ExecuteBuffer([]byte("garbage"))
	data, ok = b.BufferBytes(h2)
	require.True(t, ok)
	decodeErrorPayload(t, data)
	require.NoError(t, b.ReleaseBuffer(h2.Ptr, h2.Len, h2.Cap))
}

func TestReleaseBuffer_WrongCapacityRejected(t *testing.T) {
	b := newTestBridge(t, nil)

	h := b.ExecuteBuffer([]byte("garbage"))
	assert.Error(t, b.ReleaseBuffer(h.Ptr, h.Len, h.Cap+1))

	// The original triple still works after the rejected attempt.
	require.NoError(t, b.ReleaseBuffer(h.Ptr, h.Len, h.Cap))
}

func TestStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	b := newTestBridge(t, nil)
	b.Execute(requestJSON(t, srv.URL))
	b.Execute(requestJSON(t, srv.URL))

	stats := b.Stats()
	assert.Equal(t, int64(16), stats.Max)
	assert.Equal(t, int64(0), stats.InFlight)
	assert.Equal(t, int64(1), stats.Cache.Hits)
	assert.GreaterOrEqual(t, stats.Worker.TotalJobs, int64(2))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b.StatsJSON(), &decoded))
	assert.Contains(t, decoded, "inFlight")
}

func TestExecuteAfterShutdown(t *testing.T) {
	b := New(nil)
	require.NoError(t, b.Init())
	b.Shutdown()

	msg := decodeErrorPayload(t, b.Execute(requestJSON(t, "https://example.com")))
	assert.Contains(t, msg, "shut down")
}

func TestInit_Idempotent(t *testing.T) {
	b := newTestBridge(t, nil)
	require.NoError(t, b.Init())
	require.NoError(t, b.Init())
}

// TestPersistentStoreWarmStart verifies a cached response survives a bridge
// restart through the sqlite layer.
func TestPersistentStoreWarmStart(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "persisted")
	}))
	defer srv.Close()

	dbPath := filepath.Join(t.TempDir(), "bridge.db")

	cfg := config.DefaultConfig()
	cfg.Cache.PersistPath = dbPath
	cfg.Journal.Enabled = true

	first := New(cfg)
	require.NoError(t, first.Init())
	first.Execute(requestJSON(t, srv.URL))
	first.Shutdown()

	cfg2 := config.DefaultConfig()
	cfg2.Cache.PersistPath = dbPath

	second := New(cfg2)
	require.NoError(t, second.Init())
	defer second.Shutdown()

	out := second.Execute(requestJSON(t, srv.URL))

	var resp model.EnhancedResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Equal(t, "persisted", resp.Body)
	assert.True(t, resp.CacheHit)
	assert.Equal(t, int64(1), hits.Load())
}

// TestInit_FailureLatched pins the init contract: once the first Init fails,
// every later Init reports that same failure instead of a stale success, and
// the bridge refuses to execute.
func TestInit_FailureLatched(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	cfg := config.DefaultConfig()
	cfg.Cache.PersistPath = filepath.Join(blocker, "bridge.db")

	b := New(cfg)
	first := b.Init()
	require.Error(t, first)
	assert.Contains(t, first.Error(), "persistent store")

	assert.Equal(t, first, b.Init())

	out := b.Execute(requestJSON(t, "http://127.0.0.1:1/"))
	assert.Contains(t, decodeErrorPayload(t, out), "not initialized")
}
