// Package dedup ensures at most one concurrent execution per request
// fingerprint. Late arrivals for an in-flight fingerprint wait for the
// leader's result instead of issuing a second transport call.
//
// The tracker is built on x/sync/singleflight, which provides exactly the
// required lifecycle: the first caller for a key becomes the executor, all
// concurrent callers block on its single result (success or error), and the
// entry is removed only after the result has been published to every
// waiter, so no caller can observe a torn placeholder.
package dedup

import (
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/jeffersonwarrior/httpbridge/internal/model"
)

// Tracker deduplicates concurrent identical requests by fingerprint.
type Tracker struct {
	group singleflight.Group

	executions atomic.Int64
	joins      atomic.Int64
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{}
}

// Do runs fn exactly once per concurrent set of callers sharing key.
// The returned shared flag is true for callers that received the leader's
// result rather than executing themselves; shared responses are cloned so
// each caller owns its snapshot. A leader failure is delivered to every
// waiter as the same error.
func (t *Tracker) Do(key string, fn func() (*model.EnhancedResponse, error)) (*model.EnhancedResponse, bool, error) {
	v, err, shared := t.group.Do(key, func() (any, error) {
		t.executions.Add(1)
		return fn()
	})
	if shared {
		t.joins.Add(1)
	}
	if err != nil {
		return nil, shared, err
	}

	resp := v.(*model.EnhancedResponse)
	if shared {
		resp = resp.Clone()
	}
	return resp, shared, nil
}

// Stats is a snapshot of deduplication counters.
type Stats struct {
	Executions int64
	Joins      int64
}

// Stats returns how many executions ran and how many callers joined an
// in-flight execution instead of starting their own.
func (t *Tracker) Stats() Stats {
	return Stats{Executions: t.executions.Load(), Joins: t.joins.Load()}
}
