// Package client orchestrates a single request's path through the cache,
// the deduplication tracker, the admission controller, and the transport
// collaborator.
package client

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeffersonwarrior/httpbridge/internal/admission"
	"github.com/jeffersonwarrior/httpbridge/internal/cache"
	"github.com/jeffersonwarrior/httpbridge/internal/dedup"
	"github.com/jeffersonwarrior/httpbridge/internal/fingerprint"
	"github.com/jeffersonwarrior/httpbridge/internal/headers"
	"github.com/jeffersonwarrior/httpbridge/internal/logging"
	"github.com/jeffersonwarrior/httpbridge/internal/model"
	"github.com/jeffersonwarrior/httpbridge/internal/store"
	"github.com/jeffersonwarrior/httpbridge/internal/transport"
)

// Client executes enhanced requests. All fields are set at construction and
// never change, so a single Client is safe for concurrent use.
type Client struct {
	transport transport.Transport
	cache     *cache.Cache
	dedup     *dedup.Tracker
	admission *admission.Controller
	journal   *store.DB
	log       *logrus.Logger
}

// Options configures a Client. Transport is required; nil collaborators
// fall back to fresh defaults.
type Options struct {
	Transport transport.Transport
	Cache     *cache.Cache
	Dedup     *dedup.Tracker
	Admission *admission.Controller
	Journal   *store.DB
	Logger    *logrus.Logger
}

// New creates a Client from the given collaborators.
func New(opts Options) *Client {
	c := &Client{
		transport: opts.Transport,
		cache:     opts.Cache,
		dedup:     opts.Dedup,
		admission: opts.Admission,
		journal:   opts.Journal,
		log:       opts.Logger,
	}
	if c.cache == nil {
		c.cache = cache.New(cache.DefaultCapacity)
	}
	if c.dedup == nil {
		c.dedup = dedup.New()
	}
	if c.admission == nil {
		c.admission = admission.New(admission.DefaultMaxInFlight)
	}
	if c.log == nil {
		c.log = logging.GetLogger()
	}
	return c
}

// Execute drives req to completion: cache lookup and deduplication for
// GET requests, admission-gated transport execution for everything that
// misses. The returned response is owned by the caller.
func (c *Client) Execute(ctx context.Context, req *model.EnhancedRequest) (*model.EnhancedResponse, error) {
	key := fingerprint.ForRequest(req)
	cacheable := model.IsCacheable(req.Method)

	if cacheable {
		if resp, ok := c.cache.Lookup(key); ok {
			resp.CacheHit = true
			c.log.WithField("key", key).Debug("cache hit")
			c.record(req, resp, nil, 0)
			return resp, nil
		}

		resp, shared, err := c.dedup.Do(key, func() (*model.EnhancedResponse, error) {
			return c.send(ctx, req, key)
		})
		if shared {
			c.log.WithField("key", key).Debug("joined in-flight request")
		}
		return resp, err
	}

	return c.send(ctx, req, key)
}

// send performs the admission-gated transport exchange. The admission slot
// is released on every exit path, including timeouts and panics inside the
// transport.
func (c *Client) send(ctx context.Context, req *model.EnhancedRequest, key string) (*model.EnhancedResponse, error) {
	if err := c.admission.TryAcquire(req.Priority); err != nil {
		c.log.WithField("url", req.URL).Warn("admission cap reached, rejecting")
		return nil, err
	}
	defer c.admission.Release()

	timeout := time.Duration(req.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = model.DefaultTimeoutMs * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	treq := &transport.Request{
		Method:          req.Method,
		URL:             req.URL,
		Headers:         headers.BuildRequestHeaders(req.Headers),
		Query:           req.QueryParams,
		FollowRedirects: req.FollowRedirects,
		MaxRedirects:    req.MaxRedirects,
		Decompress:      req.Decompress,
		HTTP3Only:       req.HTTP3Only,
	}
	if req.Body != nil {
		treq.Body = []byte(*req.Body)
	}

	start := time.Now()
	tresp, err := c.transport.Send(ctx, treq)
	elapsed := time.Since(start)

	if err != nil {
		c.log.WithError(err).WithField("url", req.URL).Error("transport call failed")
		c.record(req, nil, err, elapsed)
		return nil, err
	}

	resp := c.buildResponse(req, tresp, elapsed)

	if model.IsCacheable(req.Method) && resp.StatusCode == 200 {
		c.cache.Store(key, resp.Clone())
	}

	c.record(req, resp, nil, elapsed)
	return resp, nil
}

// buildResponse converts a transport response into the wire model.
func (c *Client) buildResponse(req *model.EnhancedRequest, tresp *transport.Response, elapsed time.Duration) *model.EnhancedResponse {
	resp := &model.EnhancedResponse{
		Response: model.Response{
			StatusCode: tresp.StatusCode,
			Headers:    headers.ExtractResponseHeaders(tresp.Headers),
			Body:       string(tresp.Body),
			Version:    tresp.Version,
			URL:        req.URL,
			ElapsedMs:  elapsed.Milliseconds(),
		},
	}

	if tresp.CompressionSaved > 0 {
		saved := tresp.CompressionSaved
		resp.CompressionSaved = &saved
	}

	if req.ParseResponse {
		parsed, err := model.ParseBody(tresp.Body, req.ResponseTypeSchema)
		if err != nil {
			// Parse failures leave parsed_data absent; the raw body is
			// still delivered.
			c.log.WithError(err).Debug("response parse requested but body is not JSON")
		} else {
			resp.ParsedData = parsed
		}
	}

	return resp
}

// record writes a journal entry when the journal is configured.
func (c *Client) record(req *model.EnhancedRequest, resp *model.EnhancedResponse, execErr error, elapsed time.Duration) {
	if c.journal == nil {
		return
	}

	e := &store.JournalEntry{
		Method:    req.Method,
		URL:       req.URL,
		LatencyMs: elapsed.Milliseconds(),
	}
	if resp != nil {
		status := resp.StatusCode
		e.StatusCode = &status
		e.CacheHit = resp.CacheHit
	}
	if execErr != nil {
		msg := execErr.Error()
		e.Error = &msg
	}
	c.journal.RecordRequest(e)
}

// CacheStats exposes cache counters for the boundary stats call.
func (c *Client) CacheStats() cache.Stats {
	return c.cache.Stats()
}

// DedupStats exposes deduplication counters.
func (c *Client) DedupStats() dedup.Stats {
	return c.dedup.Stats()
}

// AdmissionStats exposes the in-flight count and cap.
func (c *Client) AdmissionStats() admission.Stats {
	return c.admission.Stats()
}
