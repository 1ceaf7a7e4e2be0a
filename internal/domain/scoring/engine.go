package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Store is the part of the repository the engine reads and writes.
type Store interface {
	Categories(ctx context.Context, eventID string) ([]model.Category, error)
	Results(ctx context.Context, eventID string) ([]model.Result, error)
	Picks(ctx context.Context, eventID string) ([]model.BallotPick, error)
	Scores(ctx context.Context, eventID string) ([]model.Score, error)
	WriteScores(ctx context.Context, rows []model.Score) error
}

// Report summarizes one recomputation.
type Report struct {
	EventID  string        `json:"event_id"`
	Rows     int           `json:"rows"`
	Changed  int           `json:"changed"`
	Skipped  []SkippedPick `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Engine recomputes events under a per-event lock.
type Engine struct {
	store      Store
	locker     *KeyedLocker
	multiplier int
	now        func() time.Time
	logger     logger.Logger
}

// NewEngine creates an Engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		multiplier: DefaultPowerPickMultiplier,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.locker == nil {
		e.locker = NewKeyedLocker()
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("scoring")
	}
	return e
}

// Multiplier returns the power-pick multiplier in use.
func (e *Engine) Multiplier() int { return e.multiplier }

// RecomputeEvent rebuilds every Score row of the event and returns the
// number of rows written.
func (e *Engine) RecomputeEvent(ctx context.Context, eventID string) (int, error) {
	r, err := e.Recompute(ctx, eventID)
	return r.Rows, err
}

// Recompute rebuilds every Score row of the event. Rows are written in one
// transaction, so a failure leaves the previous rows in place.
func (e *Engine) Recompute(ctx context.Context, eventID string) (Report, error) {
	start := time.Now()
	report := Report{EventID: eventID}

	unlock, err := e.locker.Lock(ctx, eventID)
	metrics.RecordLockWait(metrics.Since(start))
	if err != nil {
		metrics.RecordRecompute("lock_timeout", metrics.Since(start), 0)
		return report, fmt.Errorf("lock event %s: %w", eventID, err)
	}
	defer unlock()

	in, err := e.load(ctx, eventID)
	if err != nil {
		metrics.RecordRecompute("error", metrics.Since(start), 0)
		return report, err
	}
	out := Compute(in.Input)

	if err := e.store.WriteScores(ctx, out.Rows); err != nil {
		metrics.RecordRecompute("error", metrics.Since(start), 0)
		return report, fmt.Errorf("write scores for %s: %w", eventID, err)
	}

	prior := make(map[model.ScoreKey]model.Score, len(in.Prior))
	for _, s := range in.priorRows {
		prior[s.Key()] = s
	}
	for _, row := range out.Rows {
		if old, ok := prior[row.Key()]; !ok || !old.SameValues(row) {
			report.Changed++
		}
	}
	report.Rows = len(out.Rows)
	report.Skipped = out.Skipped
	report.Duration = time.Since(start)

	metrics.RecordRecompute("ok", metrics.Since(start), report.Rows)
	if len(out.Skipped) > 0 {
		metrics.RecordSkippedPicks(len(out.Skipped))
		e.logger.Warn(ctx, "picks excluded from recompute",
			logger.String("event_id", eventID),
			logger.Int("skipped", len(out.Skipped)),
		)
		for _, s := range out.Skipped {
			e.logger.Debug(ctx, "pick excluded",
				logger.String("ballot_id", s.BallotID),
				logger.String("category_id", s.CategoryID),
				logger.String("nominee_id", s.NomineeID),
				logger.String("reason", s.Reason),
			)
		}
	}
	e.logger.Info(ctx, "event recomputed",
		logger.String("event_id", eventID),
		logger.Int("rows", report.Rows),
		logger.Int("changed", report.Changed),
		logger.Duration("took", report.Duration),
	)
	return report, nil
}

type loaded struct {
	Input
	priorRows []model.Score
}

func (e *Engine) load(ctx context.Context, eventID string) (loaded, error) {
	cats, err := e.store.Categories(ctx, eventID)
	if err != nil {
		return loaded{}, fmt.Errorf("load categories for %s: %w", eventID, err)
	}
	res, err := e.store.Results(ctx, eventID)
	if err != nil {
		return loaded{}, fmt.Errorf("load results for %s: %w", eventID, err)
	}
	picks, err := e.store.Picks(ctx, eventID)
	if err != nil {
		return loaded{}, fmt.Errorf("load picks for %s: %w", eventID, err)
	}
	prior, err := e.store.Scores(ctx, eventID)
	if err != nil {
		return loaded{}, fmt.Errorf("load scores for %s: %w", eventID, err)
	}

	keys := make([]model.ScoreKey, 0, len(prior))
	for _, s := range prior {
		keys = append(keys, s.Key())
	}
	return loaded{
		Input: Input{
			Categories: cats,
			Results:    res,
			Picks:      picks,
			Prior:      keys,
			Multiplier: e.multiplier,
			Now:        e.now(),
		},
		priorRows: prior,
	}, nil
}
