// Package bridge is the boundary surface of httpbridge: the operations a
// foreign host runtime (for example a Flutter application) drives through
// its FFI layer. All inputs and outputs are serialized bytes or owned
// buffer handles; nothing here panics across the boundary.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeffersonwarrior/httpbridge/internal/admission"
	"github.com/jeffersonwarrior/httpbridge/internal/bufpool"
	"github.com/jeffersonwarrior/httpbridge/internal/cache"
	"github.com/jeffersonwarrior/httpbridge/internal/client"
	"github.com/jeffersonwarrior/httpbridge/internal/config"
	"github.com/jeffersonwarrior/httpbridge/internal/dedup"
	"github.com/jeffersonwarrior/httpbridge/internal/logging"
	"github.com/jeffersonwarrior/httpbridge/internal/model"
	"github.com/jeffersonwarrior/httpbridge/internal/store"
	"github.com/jeffersonwarrior/httpbridge/internal/transport"
	"github.com/jeffersonwarrior/httpbridge/internal/worker"
)

// idleReleaser lets Shutdown drop pooled connections regardless of which
// transport variant is configured.
type idleReleaser interface {
	CloseIdleConnections()
}

// Bridge holds every collaborator a request needs: the explicit context
// object that replaces the process-wide singletons of earlier iterations.
// Construct one with New, Init it once, and thread it through the FFI
// layer.
type Bridge struct {
	cfg *config.Config
	log *logrus.Logger

	transport transport.Transport
	client    *client.Client
	pool      *worker.Pool
	buffers   *bufpool.Pool
	db        *store.DB

	initOnce sync.Once
	initErr  error
	ready    bool

	mu     sync.Mutex
	closed bool
}

// New creates an uninitialized bridge. A nil config means defaults.
func New(cfg *config.Config) *Bridge {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Bridge{cfg: cfg}
}

// Init establishes the transport client, the cache, the worker loop, and
// the buffer pool. Idempotent: repeated calls return the first outcome.
func (b *Bridge) Init() error {
	b.initOnce.Do(func() {
		b.initErr = b.initialize()
		b.ready = b.initErr == nil
	})
	return b.initErr
}

func (b *Bridge) initialize() error {
	level, err := logrus.ParseLevel(b.cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logging.InitLogger(level)
	b.log = logging.GetLogger()

	tcfg := transport.Config{
		ConnectTimeout:      time.Duration(b.cfg.Transport.ConnectTimeoutMs) * time.Millisecond,
		MaxIdleConnsPerHost: b.cfg.Transport.MaxIdleConnsPerHost,
	}
	if b.cfg.Transport.Retries > 0 {
		b.transport = transport.NewRetryable(transport.RetryConfig{
			Config:     tcfg,
			MaxRetries: b.cfg.Transport.Retries,
		}, b.log)
	} else {
		b.transport = transport.NewDefault(tcfg)
	}

	var cacheOpts []cache.Option
	var journal *store.DB
	if b.cfg.Cache.PersistPath != "" {
		db, err := store.Open(b.cfg.Cache.PersistPath)
		if err != nil {
			return fmt.Errorf("failed to open persistent store: %w", err)
		}
		b.db = db
		cacheOpts = append(cacheOpts, cache.WithLayer(db.Responses()))
		if b.cfg.Journal.Enabled {
			journal = db
		}
	}

	b.client = client.New(client.Options{
		Transport: b.transport,
		Cache:     cache.New(b.cfg.Cache.Capacity, cacheOpts...),
		Dedup:     dedup.New(),
		Admission: admission.New(b.cfg.Admission.MaxInFlight),
		Journal:   journal,
		Logger:    b.log,
	})

	b.pool = worker.NewPool(b.client, worker.Config{
		Workers:   b.cfg.Worker.Workers,
		QueueSize: b.cfg.Worker.QueueSize,
	})
	b.pool.Start()

	b.buffers = bufpool.New()

	b.log.Info("httpbridge initialized")
	return nil
}

// Shutdown stops the worker loop and releases pooled connections and the
// persistent store. The bridge cannot be reused afterwards.
func (b *Bridge) Shutdown() {
	b.mu.Lock()
	if b.closed || !b.ready {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.pool.Stop()
	if rel, ok := b.transport.(idleReleaser); ok {
		rel.CloseIdleConnections()
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			b.log.WithError(err).Warn("failed to close persistent store")
		}
	}
	b.log.Info("httpbridge shut down")
}

// guard reports the reason an operation cannot proceed, if any.
func (b *Bridge) guard() error {
	if !b.ready {
		return ErrNotInitialized
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBridgeClosed
	}
	return nil
}

// Execute accepts a serialized request and returns a serialized response,
// or a structured error payload. It never panics and never returns nil.
func (b *Bridge) Execute(requestBytes []byte) (out []byte) {
	defer func() {
		if r := recover(); r != nil {
			logging.GetLogger().Errorf("panic at boundary: %v", r)
			out = model.EncodeError(fmt.Errorf("internal failure: %v", r))
		}
	}()

	data, err := b.execute(requestBytes)
	if err != nil {
		return model.EncodeError(err)
	}
	return data
}

// Dispatch is Execute without the error envelope: it hands back the raw
// error so callers can map failures to their own codes. Panics are still
// recovered.
func (b *Bridge) Dispatch(requestBytes []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.GetLogger().Errorf("panic at boundary: %v", r)
			out, err = nil, fmt.Errorf("internal failure: %v", r)
		}
	}()

	return b.execute(requestBytes)
}

func (b *Bridge) execute(requestBytes []byte) ([]byte, error) {
	if err := b.guard(); err != nil {
		return nil, err
	}

	req, err := model.DecodeRequest(requestBytes)
	if err != nil {
		return nil, err
	}

	job := worker.NewJob(context.Background(), req)
	if err := b.pool.SubmitWait(job.Ctx, job); err != nil {
		return nil, err
	}

	select {
	case result := <-job.ResultCh:
		if result.Err != nil {
			return nil, result.Err
		}
		data, err := model.EncodeResponse(result.Resp)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSerializeResponse, err)
		}
		return data, nil

	case <-b.pool.Done():
		return nil, ErrBridgeClosed
	}
}

// ExecuteBuffer is the zero-copy variant of Execute: the serialized
// response (or error payload) is written into an owned buffer from the
// pool and its handle is returned. The host must pass the handle to
// ReleaseBuffer exactly once.
func (b *Bridge) ExecuteBuffer(requestBytes []byte) bufpool.Handle {
	if b.buffers == nil {
		// Uninitialized: issue through a throwaway pool so the caller
		// still receives a releasable payload.
		b.mu.Lock()
		if b.buffers == nil {
			b.buffers = bufpool.New()
		}
		b.mu.Unlock()
	}
	return b.buffers.Issue(b.Execute(requestBytes))
}

// ExecuteBatch accepts a serialized array of requests and returns an array
// of serialized responses in request order; failed items hold an error
// payload in their slot. Batches above maxItems (or the configured cap when
// maxItems is zero) are rejected whole.
func (b *Bridge) ExecuteBatch(requestsBytes []byte, maxItems int) (out []byte) {
	defer func() {
		if r := recover(); r != nil {
			logging.GetLogger().Errorf("panic at boundary: %v", r)
			out = model.EncodeError(fmt.Errorf("internal failure: %v", r))
		}
	}()

	data, err := b.executeBatch(requestsBytes, maxItems)
	if err != nil {
		return model.EncodeError(err)
	}
	return data
}

func (b *Bridge) executeBatch(requestsBytes []byte, maxItems int) ([]byte, error) {
	if err := b.guard(); err != nil {
		return nil, err
	}

	if maxItems <= 0 {
		maxItems = b.cfg.Batch.MaxItems
	}

	reqs, err := model.DecodeBatch(requestsBytes)
	if err != nil {
		return nil, err
	}
	if len(reqs) > maxItems {
		return nil, fmt.Errorf("%w: %d items, cap %d", ErrBatchTooLarge, len(reqs), maxItems)
	}

	results := b.pool.ExecuteBatch(context.Background(), reqs)

	items := make([]any, len(results))
	for i, r := range results {
		if r.Err != nil {
			items[i] = model.ErrorPayload{Error: r.Err.Error()}
		} else {
			items[i] = r.Resp
		}
	}

	data, err := model.EncodeBatchResponses(items)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializeResponse, err)
	}
	return data, nil
}

// ReleaseBuffer returns a previously issued buffer to the pool. The
// (ptr, length, capacity) triple must match the issued handle; mismatches
// are rejected without touching the allocator.
func (b *Bridge) ReleaseBuffer(ptr uintptr, length, capacity int) error {
	if b.buffers == nil {
		return bufpool.ErrUnknownBuffer
	}
	return b.buffers.Release(ptr, length, capacity)
}

// BufferBytes resolves an issued handle back to its bytes for in-process
// hosts; the cgo layer reads the memory directly instead.
func (b *Bridge) BufferBytes(h bufpool.Handle) ([]byte, bool) {
	if b.buffers == nil {
		return nil, false
	}
	return b.buffers.Bytes(h)
}
