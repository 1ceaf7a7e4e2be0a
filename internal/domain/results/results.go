// Package results records category winners with at most one Result per
// category.
package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Outcome of recording a winner.
type Outcome string

// Recording outcomes.
const (
	Created   Outcome = "created"
	Updated   Outcome = "updated"
	Unchanged Outcome = "unchanged"
)

// Changed reports whether the outcome requires a score recomputation.
func (o Outcome) Changed() bool {
	return o == Created || o == Updated
}

// Store is the part of the repository the recorder needs.
type Store interface {
	Category(ctx context.Context, categoryID string) (model.Category, error)
	CompareAndSetResult(ctx context.Context, categoryID string,
		fn func(current model.Result, found bool) (next model.Result, write bool)) (model.Result, bool, error)
}

// Recorder writes winners through the store's compare-and-set.
type Recorder struct {
	store  Store
	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithClock sets the clock used for AnnouncedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets a custom logger for the recorder.
func WithLogger(l logger.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRecorder creates a Recorder over store.
func NewRecorder(store Store, opts ...Option) *Recorder {
	r := &Recorder{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("results")
	}
	return r
}

// RecordWinner stores nomineeID as the winner of categoryID.
//
// No result yet creates one, the same winner leaves the row untouched, and a
// different winner overwrites it and refreshes AnnouncedAt.
func (r *Recorder) RecordWinner(ctx context.Context, categoryID, nomineeID string) (model.Result, Outcome, error) {
	cat, err := r.store.Category(ctx, categoryID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Result{}, "", fmt.Errorf("%w: %s", ErrUnknownCategory, categoryID)
	}
	if err != nil {
		return model.Result{}, "", fmt.Errorf("load category %s: %w", categoryID, err)
	}
	if !cat.HasNominee(nomineeID) {
		return model.Result{}, "", fmt.Errorf("%w: %s/%s", ErrNomineeNotInCategory, categoryID, nomineeID)
	}

	outcome := Unchanged
	var previous string
	res, _, err := r.store.CompareAndSetResult(ctx, categoryID, func(cur model.Result, found bool) (model.Result, bool) {
		switch {
		case !found:
			outcome = Created
		case cur.WinnerNomineeID == nomineeID:
			outcome = Unchanged
			return cur, false
		default:
			outcome = Updated
			previous = cur.WinnerNomineeID
		}
		return model.Result{CategoryID: categoryID, WinnerNomineeID: nomineeID, AnnouncedAt: r.now()}, true
	})
	if errors.Is(err, repository.ErrNotFound) {
		return model.Result{}, "", fmt.Errorf("%w: %s", ErrUnknownCategory, categoryID)
	}
	if err != nil {
		return model.Result{}, "", fmt.Errorf("record winner %s: %w", categoryID, err)
	}

	metrics.RecordWinnerIngested(string(outcome))
	if outcome == Updated {
		r.logger.Warn(ctx, "result corrected",
			logger.String("category_id", categoryID),
			logger.String("previous_nominee_id", previous),
			logger.String("nominee_id", nomineeID),
		)
	} else {
		r.logger.Debug(ctx, "winner recorded",
			logger.String("category_id", categoryID),
			logger.String("nominee_id", nomineeID),
			logger.String("outcome", string(outcome)),
		)
	}
	return res, outcome, nil
}
