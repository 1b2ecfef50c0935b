package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/jeffersonwarrior/httpbridge/internal/model"
)

// RetryConfig tunes the retrying transport wrapper.
type RetryConfig struct {
	Config

	// MaxRetries is the number of retry attempts on retriable failures
	// (connection errors and 429/5xx). The execution core itself never
	// retries; hosts opt into this transport explicitly.
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

func (c *RetryConfig) setDefaults() {
	c.Config.setDefaults()
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.MinWait == 0 {
		c.MinWait = 200 * time.Millisecond
	}
	if c.MaxWait == 0 {
		c.MaxWait = 5 * time.Second
	}
}

// Retryable wraps the default transport with go-retryablehttp's exponential
// backoff. Callers see the same Transport contract: a single Send with
// classified errors; attempts happen below the contract line. Only
// idempotent methods are retried; anything else gets a single attempt.
type Retryable struct {
	plain    *Default
	retrying *Default
}

// NewRetryable builds a retrying transport sharing the default transport's
// pooled connections. Redirect policy is enforced exactly once, above the
// retry layer: each retried attempt never follows a redirect itself, the
// outer client applies the per-request policy and each followed hop is then
// retried independently.
func NewRetryable(cfg RetryConfig, log *logrus.Logger) *Retryable {
	cfg.setDefaults()

	plain := NewDefault(cfg.Config)

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = cfg.MinWait
	rc.RetryWaitMax = cfg.MaxWait
	rc.HTTPClient = &http.Client{
		Transport: plain.transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	if log != nil {
		rc.Logger = log
	} else {
		rc.Logger = nil
	}

	outer := rc.StandardClient()
	outer.CheckRedirect = policyCheckRedirect

	return &Retryable{
		plain:    plain,
		retrying: &Default{client: outer, transport: plain.transport},
	}
}

// Send executes the exchange, retrying retriable failures before reporting.
// Non-idempotent methods bypass the retry layer: a replayed POST could
// apply its side effect twice.
func (r *Retryable) Send(ctx context.Context, req *Request) (*Response, error) {
	if model.IsIdempotent(req.Method) {
		return r.retrying.Send(ctx, req)
	}
	return r.plain.Send(ctx, req)
}

// CloseIdleConnections drops pooled connections.
func (r *Retryable) CloseIdleConnections() {
	r.plain.CloseIdleConnections()
}
