// Package queue holds recompute jobs between the triggers that create them
// and the workers that run them.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/podium/internal/domain/dedupe"
	"github.com/okian/podium/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Job asks for one full recomputation of an event.
type Job struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	Reason     string    `json:"reason"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewJob creates a first-attempt job for eventID.
func NewJob(eventID, reason string) Job {
	return Job{
		ID:         uuid.NewString(),
		EventID:    eventID,
		Reason:     reason,
		EnqueuedAt: time.Now(),
	}
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. It returns false on backpressure or after Close.
	// A job for an event that is already pending is coalesced and reported
	// as accepted.
	Enqueue(ctx context.Context, j Job) bool

	// Dequeue returns a channel of jobs that is closed with the queue.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the current number of queued jobs.
	Len(ctx context.Context) int

	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int
	pending  dedupe.Deduper

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue implements Queue.Enqueue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) bool {
	return q.Submit(ctx, j) == nil
}

// Submit is Enqueue with the refusal reason: ErrClosed, ErrFull or the
// context error.
func (q *InMemoryQueue) Submit(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}
	if q.pending != nil && q.pending.SeenAndRecord(ctx, j.EventID) {
		metrics.RecordQueueCoalesced()
		return nil
	}
	if j.EnqueuedAt.IsZero() {
		j.EnqueuedAt = time.Now()
	}

	select {
	case q.jobs <- j:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.jobs))
		return nil
	case <-ctx.Done():
		q.release(ctx, j)
		metrics.RecordQueueEnqueueError("context_cancelled")
		return ctx.Err()
	default:
		q.release(ctx, j)
		metrics.RecordQueueEnqueueError("queue_full")
		return ErrFull
	}
}

func (q *InMemoryQueue) release(ctx context.Context, j Job) {
	if q.pending != nil {
		q.pending.Unrecord(ctx, j.EventID)
	}
}

// Dequeue implements Queue.Dequeue. The pending mark of a job is cleared as
// soon as it leaves the buffer, so a trigger that arrives while the job runs
// queues another run.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range q.jobs {
			q.release(ctx, j)
			metrics.UpdateQueueSize(len(q.jobs))
			select {
			case out <- j:
				metrics.RecordQueueDequeue()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len implements Queue.Len.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.jobs)
	metrics.UpdateQueueSize(size)
	return size
}

// Close stops accepting jobs and closes the dequeue channels once drained.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed implements Queue.IsClosed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
