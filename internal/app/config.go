package service

import (
	"github.com/okian/podium/internal/config"
)

// ConfigOptions translates process configuration into service options.
func ConfigOptions(cfg *config.Config) []Option {
	return []Option{
		WithIngestMode(IngestMode(cfg.IngestMode)),
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithRecomputeTimeout(cfg.RecomputeTimeout()),
		WithRecomputeInterval(cfg.RecomputeInterval()),
		WithMaxAttempts(cfg.RecomputeMaxAttempts),
		WithAnalyticsCacheTTL(cfg.AnalyticsCacheTTL()),
		WithPowerPickMultiplier(cfg.PowerPickMultiplier),
		WithThresholds(cfg.Thresholds()),
		WithMaxStandingsLimit(cfg.MaxStandingsLimit),
	}
}
