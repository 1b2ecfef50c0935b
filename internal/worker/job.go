package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jeffersonwarrior/httpbridge/internal/model"
)

// Job is one unit of work submitted to the pool: a parsed request plus the
// reply channel its submitter waits on. A job is consumed exactly once.
type Job struct {
	// ID correlates log lines across the submit/execute boundary.
	ID string

	// Req is the parsed request; the job owns it after submission.
	Req *model.EnhancedRequest

	// Ctx carries the submitter's cancellation.
	Ctx context.Context

	// ResultCh receives exactly one Result. Buffered with size 1 so a
	// worker never blocks on an abandoned submitter.
	ResultCh chan Result
}

// Result is the outcome of a job execution.
type Result struct {
	Resp     *model.EnhancedResponse
	Err      error
	Duration time.Duration
}

// NewJob creates a job for a parsed request.
func NewJob(ctx context.Context, req *model.EnhancedRequest) Job {
	return Job{
		ID:       uuid.NewString(),
		Req:      req,
		Ctx:      ctx,
		ResultCh: make(chan Result, 1),
	}
}
