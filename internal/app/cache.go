package service

import (
	"sync"
	"time"

	"github.com/okian/podium/internal/domain/analytics"
	"github.com/okian/podium/pkg/metrics"
)

// snapshotCache holds analytics snapshots per event for a short TTL.
// Every invalidation bumps the event's generation; a snapshot computed
// under an older generation is never stored.
type snapshotCache struct {
	mu          sync.Mutex
	ttl         time.Duration
	now         func() time.Time
	entries     map[string]cachedSnapshot
	generations map[string]uint64
}

type cachedSnapshot struct {
	snap    analytics.Snapshot
	expires time.Time
}

func newSnapshotCache(ttl time.Duration, now func() time.Time) *snapshotCache {
	return &snapshotCache{
		ttl:         ttl,
		now:         now,
		entries:     make(map[string]cachedSnapshot),
		generations: make(map[string]uint64),
	}
}

func (c *snapshotCache) get(eventID string) (analytics.Snapshot, bool) {
	if c.ttl <= 0 {
		return analytics.Snapshot{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[eventID]
	if !ok || !c.now().Before(e.expires) {
		delete(c.entries, eventID)
		metrics.RecordAnalyticsCache("miss")
		return analytics.Snapshot{}, false
	}
	metrics.RecordAnalyticsCache("hit")
	return e.snap, true
}

// generation returns the event's current generation. Read it before
// loading the data a snapshot is computed from.
func (c *snapshotCache) generation(eventID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[eventID]
}

// put stores snap unless the event was invalidated since gen was read.
func (c *snapshotCache) put(eventID string, gen uint64, snap analytics.Snapshot) bool {
	if c.ttl <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[eventID] != gen {
		return false
	}
	c.entries[eventID] = cachedSnapshot{snap: snap, expires: c.now().Add(c.ttl)}
	return true
}

func (c *snapshotCache) invalidate(eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, eventID)
	c.generations[eventID]++
}

func (c *snapshotCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
