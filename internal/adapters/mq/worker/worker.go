// Package worker runs queued recompute jobs.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/podium/internal/adapters/mq/queue"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 250 * time.Millisecond
	defaultJobTimeout   = 10 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Recomputer rebuilds the scores of one event.
type Recomputer interface {
	RecomputeEvent(ctx context.Context, eventID string) (int, error)
}

// Queue defines how workers receive and re-submit jobs.
type Queue interface {
	Enqueue(ctx context.Context, j queue.Job) bool
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)
	// Shutdown stops the worker after the job in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker runs recompute jobs off a Queue.
type InMemoryWorker struct {
	queue       Queue
	recomputer  Recomputer
	name        string
	maxAttempts int
	backoff     time.Duration
	jobTimeout  time.Duration
	retryable   func(error) bool

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, r Recomputer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       q,
		recomputer:  r,
		name:        "worker",
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultRetryBackoff,
		jobTimeout:  defaultJobTimeout,
		retryable:   func(error) bool { return false },
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("worker")
	}
	w.logger = w.logger.With(logger.String("worker", w.name))
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "recompute job failed",
					logger.String("event_id", job.EventID),
					logger.String("job_id", job.ID),
					logger.Int("attempt", job.Attempt+1),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(metrics.Since(start))
	}()

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	rows, err := w.recomputer.RecomputeEvent(jobCtx, job.EventID)
	if err == nil {
		w.logger.Debug(ctx, "recompute job done",
			logger.String("event_id", job.EventID),
			logger.String("reason", job.Reason),
			logger.Int("rows", rows),
			logger.Duration("queued_for", start.Sub(job.EnqueuedAt)),
		)
		return nil
	}

	metrics.RecordWorkerError()
	metrics.RecordErrorByComponent("worker", "recompute_error")
	if !w.retryable(err) || job.Attempt+1 >= w.maxAttempts {
		return fmt.Errorf("recompute %s: %w", job.EventID, err)
	}
	w.retry(ctx, job)
	return fmt.Errorf("recompute %s (will retry): %w", job.EventID, err)
}

// retry re-enqueues job after a linear backoff.
func (w *InMemoryWorker) retry(ctx context.Context, job queue.Job) {
	job.Attempt++
	delay := w.backoff * time.Duration(job.Attempt)
	metrics.RecordWorkerRetry()
	time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		if !w.queue.Enqueue(ctx, job) {
			w.logger.Warn(ctx, "retry dropped",
				logger.String("event_id", job.EventID),
				logger.Int("attempt", job.Attempt+1),
			)
		}
	})
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers sharing opts.
func NewPool(workerCount int, q Queue, r Recomputer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, r, workerOpts...)
	}
	p.logger = p.workers[0].logger
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for every worker to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
