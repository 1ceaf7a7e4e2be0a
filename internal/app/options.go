package service

import (
	"time"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/analytics"
	"github.com/okian/podium/pkg/logger"
)

// IngestMode selects how a changed result triggers recomputation.
type IngestMode string

// Ingest modes.
const (
	IngestSync  IngestMode = "sync"
	IngestQueue IngestMode = "queue"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the datastore. Without one an in-memory store is used.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIngestMode sets whether ingestion recomputes inline or through the queue.
func WithIngestMode(mode IngestMode) Option {
	return func(s *Service) {
		if mode == IngestSync || mode == IngestQueue {
			s.mode = mode
		}
	}
}

// WithWorkerCount sets the number of recompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the recompute queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize caps the number of pending-event marks.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRecomputeTimeout bounds a single recomputation.
func WithRecomputeTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.recomputeTimeout = d
		}
	}
}

// WithRecomputeInterval schedules every known event on this interval.
// Zero disables the periodic run.
func WithRecomputeInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.recomputeInterval = d
		}
	}
}

// WithMaxAttempts caps how many times a queued job runs.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithAnalyticsCacheTTL sets how long a snapshot is served from cache.
// Zero disables the cache.
func WithAnalyticsCacheTTL(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.cacheTTL = d
		}
	}
}

// WithPowerPickMultiplier sets the multiplier used by scoring and insights.
func WithPowerPickMultiplier(m int) Option {
	return func(s *Service) {
		if m > 0 {
			s.multiplier = m
		}
	}
}

// WithThresholds sets the analytics insight thresholds.
func WithThresholds(t analytics.Thresholds) Option {
	return func(s *Service) {
		s.thresholds = t
	}
}

// WithMaxStandingsLimit caps the standings page size.
func WithMaxStandingsLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxStandingsLimit = n
		}
	}
}

// WithClock sets the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
