package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/scoring"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Store is the part of the repository the analyzer reads.
type Store interface {
	Categories(ctx context.Context, eventID string) ([]model.Category, error)
	Results(ctx context.Context, eventID string) ([]model.Result, error)
	Picks(ctx context.Context, eventID string) ([]model.BallotPick, error)
	BallotCount(ctx context.Context, eventID string) (int, error)
}

// Analyzer loads an event and computes its snapshot. It never writes.
type Analyzer struct {
	store      Store
	thresholds Thresholds
	multiplier int
	now        func() time.Time
	logger     logger.Logger
}

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithThresholds replaces the default insight thresholds.
func WithThresholds(t Thresholds) Option {
	return func(a *Analyzer) { a.thresholds = t }
}

// WithMultiplier sets the power-pick multiplier quoted in insights.
func WithMultiplier(m int) Option {
	return func(a *Analyzer) {
		if m > 0 {
			a.multiplier = m
		}
	}
}

// WithClock sets the clock used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets a custom logger for the analyzer.
func WithLogger(l logger.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer creates an Analyzer over store.
func NewAnalyzer(store Store, opts ...Option) *Analyzer {
	a := &Analyzer{
		store:      store,
		thresholds: DefaultThresholds(),
		multiplier: scoring.DefaultPowerPickMultiplier,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Get().Named("analytics")
	}
	return a
}

// Analyze computes the snapshot of eventID from the current picks and results.
func (a *Analyzer) Analyze(ctx context.Context, eventID string) (Snapshot, error) {
	start := time.Now()
	cats, err := a.store.Categories(ctx, eventID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load categories for %s: %w", eventID, err)
	}
	res, err := a.store.Results(ctx, eventID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load results for %s: %w", eventID, err)
	}
	picks, err := a.store.Picks(ctx, eventID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load picks for %s: %w", eventID, err)
	}
	ballots, err := a.store.BallotCount(ctx, eventID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count ballots for %s: %w", eventID, err)
	}

	snap := Compute(Input{
		EventID:     eventID,
		Categories:  cats,
		Results:     res,
		Picks:       picks,
		BallotCount: ballots,
		Thresholds:  a.thresholds,
		Multiplier:  a.multiplier,
		Now:         a.now(),
	})
	metrics.RecordAnalytics(metrics.Since(start))
	a.logger.Debug(ctx, "event analyzed",
		logger.String("event_id", eventID),
		logger.Int("categories", len(snap.Categories)),
		logger.Int("insights", len(snap.Insights)),
	)
	return snap, nil
}
