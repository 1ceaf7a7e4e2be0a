package queue

import "github.com/okian/podium/internal/domain/dedupe"

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of queued jobs.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithDeduper sets the tracker of pending events. Without one every job is
// queued, even if its event is already pending.
func WithDeduper(d dedupe.Deduper) Option {
	return func(q *InMemoryQueue) {
		q.pending = d
	}
}
