// Package config defines service configuration structures and loading hooks.
package config

import (
	"runtime"
	"time"

	"github.com/okian/podium/internal/domain/analytics"
)

// Storage drivers and ingest modes accepted by Validate.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	IngestSync  = "sync"
	IngestQueue = "queue"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBDriver selects the datastore: memory, sqlite or postgres.
	DBDriver string `koanf:"db_driver"`
	// DBDSN is the driver-specific connection string.
	DBDSN string `koanf:"db_dsn"`

	// IngestMode is "sync" (recompute inline) or "queue".
	IngestMode string `koanf:"ingest_mode"`

	// QueueSize bounds the recompute queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize caps the number of pending-event marks.
	DedupeSize int `koanf:"dedupe_size"`

	RecomputeTimeoutMS   int `koanf:"recompute_timeout_ms"`
	RecomputeIntervalMS  int `koanf:"recompute_interval_ms"`
	RecomputeMaxAttempts int `koanf:"recompute_max_attempts"`

	// AnalyticsCacheTTLMS is how long a snapshot is served from cache; 0 disables it.
	AnalyticsCacheTTLMS int `koanf:"analytics_cache_ttl_ms"`

	// PowerPickMultiplier scales the base points of a correct power pick.
	PowerPickMultiplier int `koanf:"power_pick_multiplier"`

	AnalyticsUpsetShare           float64 `koanf:"analytics_upset_share"`
	AnalyticsPowerPickHigh        float64 `koanf:"analytics_power_pick_high"`
	AnalyticsPowerPickLow         float64 `koanf:"analytics_power_pick_low"`
	AnalyticsWisdomCategories     int     `koanf:"analytics_wisdom_categories"`
	AnalyticsParticipationBallots int     `koanf:"analytics_participation_ballots"`

	// MaxStandingsLimit caps GET .../standings?limit.
	MaxStandingsLimit int `koanf:"max_standings_limit"`

	// MetricsNamespace prefixes every Prometheus metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	// MetricsRefreshMS is how often system and service gauges are refreshed.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`
	// MetricsInstance, when set, is attached to every metric as the
	// "instance" label.
	MetricsInstance string `koanf:"metrics_instance"`
}

// New creates a Config populated with defaults.
func New() *Config {
	t := analytics.DefaultThresholds()
	return &Config{
		LogLevel:                      "info",
		LogFormat:                     "text",
		Addr:                          ":9080",
		DBDriver:                      DriverMemory,
		IngestMode:                    IngestSync,
		QueueSize:                     1024,
		WorkerCount:                   runtime.NumCPU(),
		DedupeSize:                    10_000,
		RecomputeTimeoutMS:            30_000,
		RecomputeIntervalMS:           0,
		RecomputeMaxAttempts:          3,
		AnalyticsCacheTTLMS:           30_000,
		PowerPickMultiplier:           3,
		AnalyticsUpsetShare:           t.UpsetShare,
		AnalyticsPowerPickHigh:        t.PowerPickHigh,
		AnalyticsPowerPickLow:         t.PowerPickLow,
		AnalyticsWisdomCategories:     t.WisdomCategories,
		AnalyticsParticipationBallots: t.ParticipationBallots,
		MaxStandingsLimit:             500,
		MetricsNamespace:              "podium",
		MetricsRefreshMS:              10_000,
	}
}

// Thresholds returns the analytics insight thresholds.
func (c *Config) Thresholds() analytics.Thresholds {
	return analytics.Thresholds{
		UpsetShare:           c.AnalyticsUpsetShare,
		PowerPickHigh:        c.AnalyticsPowerPickHigh,
		PowerPickLow:         c.AnalyticsPowerPickLow,
		WisdomCategories:     c.AnalyticsWisdomCategories,
		ParticipationBallots: c.AnalyticsParticipationBallots,
	}
}

// RecomputeTimeout returns RecomputeTimeoutMS as a duration.
func (c *Config) RecomputeTimeout() time.Duration {
	return time.Duration(c.RecomputeTimeoutMS) * time.Millisecond
}

// RecomputeInterval returns RecomputeIntervalMS as a duration.
func (c *Config) RecomputeInterval() time.Duration {
	return time.Duration(c.RecomputeIntervalMS) * time.Millisecond
}

// MetricsRefresh returns MetricsRefreshMS as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}

// AnalyticsCacheTTL returns AnalyticsCacheTTLMS as a duration.
func (c *Config) AnalyticsCacheTTL() time.Duration {
	return time.Duration(c.AnalyticsCacheTTLMS) * time.Millisecond
}
