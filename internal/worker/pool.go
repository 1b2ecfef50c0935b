// Package worker runs the background execution loop: a many-producer
// channel of jobs consumed by a small set of goroutines distinct from the
// threads issuing boundary calls, so a synchronous boundary call blocks
// only its own caller while it waits for the reply.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jeffersonwarrior/httpbridge/internal/client"
	"github.com/jeffersonwarrior/httpbridge/internal/logging"
	"github.com/jeffersonwarrior/httpbridge/internal/model"
)

// Errors returned by Submit/SubmitWait.
var (
	ErrQueueFull  = errors.New("worker queue is full")
	ErrPoolClosed = errors.New("worker pool is closed")
)

// Pool manages the worker goroutines.
type Pool struct {
	jobQueue   chan Job
	numWorkers int

	exec *client.Client
	log  *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	totalJobs   atomic.Int64
	successJobs atomic.Int64
	failedJobs  atomic.Int64
}

// Config sizes the pool.
type Config struct {
	// Workers is the number of worker goroutines.
	// Default: min(GOMAXPROCS, 8), the mobile runtime sizing.
	Workers int

	// QueueSize is the job queue buffer size. Default: 256.
	QueueSize int
}

// DefaultWorkers returns the default worker count.
func DefaultWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}

// NewPool creates a pool that executes jobs through exec.
func NewPool(exec *client.Client, cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		jobQueue:   make(chan Job, cfg.QueueSize),
		numWorkers: cfg.Workers,
		exec:       exec,
		log:        logging.GetLogger(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.executeJob(job)
		}
	}
}

// executeJob drives one job to completion and posts the result. A panic
// below the worker becomes an error result instead of killing the loop.
func (p *Pool) executeJob(job Job) {
	p.totalJobs.Add(1)
	start := time.Now()

	resp, err := p.executeSafely(job)
	duration := time.Since(start)

	if err != nil {
		p.failedJobs.Add(1)
	} else {
		p.successJobs.Add(1)
	}

	job.ResultCh <- Result{Resp: resp, Err: err, Duration: duration}
}

func (p *Pool) executeSafely(job Job) (resp *model.EnhancedResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("job", job.ID).Errorf("panic during execution: %v", r)
			resp = nil
			err = fmt.Errorf("internal execution failure: %v", r)
		}
	}()
	return p.exec.Execute(job.Ctx, job.Req)
}

// Submit enqueues a job without blocking; a full queue is reported rather
// than waited out.
func (p *Pool) Submit(job Job) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	select {
	case p.jobQueue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// SubmitWait enqueues a job, waiting for queue space until ctx or the pool
// is done.
func (p *Pool) SubmitWait(ctx context.Context, job Job) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	select {
	case p.jobQueue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// ExecuteBatch runs a batch with bounded fan-out and returns results in
// request order. Fan-out scales with the batch: small batches run fully
// parallel, large ones are capped at twice the worker count so a burst
// cannot monopolize the transport's connection pool.
func (p *Pool) ExecuteBatch(ctx context.Context, reqs []*model.EnhancedRequest) []Result {
	results := make([]Result, len(reqs))

	limit := len(reqs)
	if max := 2 * p.numWorkers; limit > max {
		limit = max
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			start := time.Now()
			resp, err := p.executeSafely(NewJob(gctx, req))
			results[i] = Result{Resp: resp, Err: err, Duration: time.Since(start)}
			// Item failures stay in their slot; they never abort the batch.
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// Stop shuts the pool down, waiting for workers to finish their current
// jobs. The queue channel is left open so a racing Submit can never panic;
// jobs still queued at shutdown are abandoned and their submitters observe
// Done.
func (p *Pool) Stop() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.cancel()
	p.wg.Wait()
}

// Done is closed when the pool is shutting down; submitters waiting on a
// reply select on it so shutdown never strands a boundary call.
func (p *Pool) Done() <-chan struct{} {
	return p.ctx.Done()
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Workers       int
	QueueLength   int
	QueueCapacity int
	TotalJobs     int64
	SuccessJobs   int64
	FailedJobs    int64
}

// Stats returns current pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:       p.numWorkers,
		QueueLength:   len(p.jobQueue),
		QueueCapacity: cap(p.jobQueue),
		TotalJobs:     p.totalJobs.Load(),
		SuccessJobs:   p.successJobs.Load(),
		FailedJobs:    p.failedJobs.Load(),
	}
}
