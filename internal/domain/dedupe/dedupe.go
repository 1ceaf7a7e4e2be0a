// Package dedupe tracks which events already have a recompute job pending,
// so the queue holds at most one job per event.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 10000

// Deduper records pending keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key is pending and marks it if not.
	// Returns true if key was already pending.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord clears the pending mark, either because the job was taken by a
	// worker or because it never reached the queue.
	Unrecord(ctx context.Context, key string)

	// Pending reports whether key is currently marked.
	Pending(key string) bool

	Size() int64
}

// inMemoryDeduper keeps marks in a map plus an insertion-ordered list. In
// bounded mode the oldest mark is evicted first; losing a mark only lets a
// duplicate job through, which recomputation tolerates.
type inMemoryDeduper struct {
	mu      sync.Mutex
	marks   map[string]*list.Element
	order   *list.List
	maxSize int // <= 0 means unbounded
	size    atomic.Int64
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.marks = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.marks[key]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.marks) >= d.maxSize {
		d.evictOldest()
	}
	d.marks[key] = d.order.PushBack(key)
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(ctx context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.marks[key]; ok {
		d.order.Remove(el)
		delete(d.marks, key)
		d.size.Add(-1)
	}
}

func (d *inMemoryDeduper) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.marks[key]
	return ok
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	el := d.order.Front()
	if el == nil {
		return
	}
	d.order.Remove(el)
	delete(d.marks, el.Value.(string))
	d.size.Add(-1)
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
