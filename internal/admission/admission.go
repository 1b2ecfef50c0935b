// Package admission caps the number of simultaneously in-flight transport
// calls with a lock-free counter. Acquisition is fail-fast: callers that
// cannot get a slot are rejected immediately with a retriable condition
// instead of queuing, pushing backpressure out to the boundary caller.
package admission

import (
	"errors"
	"sync/atomic"

	"github.com/jeffersonwarrior/httpbridge/internal/model"
)

// DefaultMaxInFlight is the mobile profile cap on concurrent transport calls.
const DefaultMaxInFlight = 16

// ErrRateLimited is returned when no slot is available. The condition is
// transient; callers may retry after in-flight work completes.
var ErrRateLimited = errors.New("too many in-flight requests, retry later")

// Controller is a lock-free admission counter bounded by a fixed cap.
//
// Priority is consulted at admission time: high-priority requests may fill
// the whole cap, normal-priority requests are cut off an eighth below it,
// and low-priority requests a quarter below it. Under load the reserved
// headroom keeps slots available for more urgent work.
type Controller struct {
	max      int64
	inFlight atomic.Int64
}

// New creates a controller with the given cap. A non-positive cap falls
// back to DefaultMaxInFlight.
func New(max int) *Controller {
	if max <= 0 {
		max = DefaultMaxInFlight
	}
	return &Controller{max: int64(max)}
}

// limitFor returns the admission threshold for a priority class.
func (c *Controller) limitFor(p model.Priority) int64 {
	switch p {
	case model.PriorityHigh:
		return c.max
	case model.PriorityLow:
		return c.max - c.max/4
	default:
		return c.max - c.max/8
	}
}

// TryAcquire attempts to take a slot without blocking. It returns
// ErrRateLimited when the priority's threshold is reached. On success the
// caller must guarantee Release on every exit path.
func (c *Controller) TryAcquire(p model.Priority) error {
	limit := c.limitFor(p)
	for {
		current := c.inFlight.Load()
		if current >= limit {
			return ErrRateLimited
		}
		if c.inFlight.CompareAndSwap(current, current+1) {
			return nil
		}
		// CAS lost to a concurrent caller, retry.
	}
}

// Release returns a slot unconditionally. Releasing more than acquired is a
// programming error and is clamped at zero to keep the counter sane.
func (c *Controller) Release() {
	for {
		current := c.inFlight.Load()
		if current <= 0 {
			return
		}
		if c.inFlight.CompareAndSwap(current, current-1) {
			return
		}
	}
}

// Stats is an introspective snapshot; it is not authoritative for
// correctness and may be stale the moment it returns.
type Stats struct {
	InFlight int64 `json:"inFlight"`
	Max      int64 `json:"max"`
}

// Stats returns the current in-flight count and the configured cap.
func (c *Controller) Stats() Stats {
	return Stats{InFlight: c.inFlight.Load(), Max: c.max}
}
