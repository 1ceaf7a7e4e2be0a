package scoring_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/scoring"
	"github.com/okian/podium/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// slowStore tracks how many writes run at once.
type slowStore struct {
	*repository.MemStore
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	fail     error
}

func (s *slowStore) WriteScores(ctx context.Context, rows []model.Score) error {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		m := s.maxSeen.Load()
		if n <= m || s.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	if s.fail != nil {
		return s.fail
	}
	return s.MemStore.WriteScores(ctx, rows)
}

func seedEvent(ctx context.Context, store *repository.MemStore) {
	So(store.SaveCategory(ctx, dramaCategory()), ShouldBeNil)
	for _, b := range []model.Ballot{
		{ID: "b1", UserID: "a", EventID: "gg", LeagueID: "L", Picks: []model.Pick{{CategoryID: "drama", NomineeID: "y", IsPowerPick: true}}},
		{ID: "b2", UserID: "b", EventID: "gg", LeagueID: "L", Picks: []model.Pick{{CategoryID: "drama", NomineeID: "x"}}},
		{ID: "b3", UserID: "c", EventID: "gg", LeagueID: "L", Picks: []model.Pick{{CategoryID: "drama", NomineeID: "x"}}},
	} {
		So(store.SaveBallot(ctx, b), ShouldBeNil)
	}
}

func setWinner(ctx context.Context, store *repository.MemStore, nominee string) {
	_, _, err := store.CompareAndSetResult(ctx, "drama", func(model.Result, bool) (model.Result, bool) {
		return model.Result{WinnerNomineeID: nominee}, true
	})
	So(err, ShouldBeNil)
}

func TestEngine(t *testing.T) {
	Convey("Given a seeded event", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore(repository.WithLogger(logger.Discard()))
		seedEvent(ctx, store)
		engine := scoring.NewEngine(store,
			scoring.WithLogger(logger.Discard()),
			scoring.WithClock(func() time.Time { return now }),
		)

		Convey("When the winner is recorded and the event recomputed", func() {
			setWinner(ctx, store, "y")
			n, err := engine.RecomputeEvent(ctx, "gg")

			Convey("Then every user has a row", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)
				standings, err := store.Standings(ctx, "gg", "L", 10)
				So(err, ShouldBeNil)
				So(standings[0].UserID, ShouldEqual, "a")
				So(standings[0].TotalPoints, ShouldEqual, 150)
			})

			Convey("And the recompute runs again", func() {
				before, _ := store.Scores(ctx, "gg")
				report, err := engine.Recompute(ctx, "gg")
				after, _ := store.Scores(ctx, "gg")

				Convey("Then the rows converge to the same values", func() {
					So(err, ShouldBeNil)
					So(report.Changed, ShouldEqual, 0)
					So(after, ShouldHaveLength, len(before))
					for i := range after {
						So(after[i].SameValues(before[i]), ShouldBeTrue)
					}
				})
			})

			Convey("And the result is corrected", func() {
				setWinner(ctx, store, "x")
				report, err := engine.Recompute(ctx, "gg")

				Convey("Then no stale points survive", func() {
					So(err, ShouldBeNil)
					So(report.Changed, ShouldEqual, 3)
					rows, _ := store.Scores(ctx, "gg")
					got := byUser(rows)
					So(got["a"].TotalPoints, ShouldEqual, 0)
					So(got["b"].TotalPoints, ShouldEqual, 50)
					So(got["c"].TotalPoints, ShouldEqual, 50)
				})
			})
		})

		Convey("When the engine uses the default multiplier", func() {
			Convey("Then it is three", func() {
				So(engine.Multiplier(), ShouldEqual, scoring.DefaultPowerPickMultiplier)
				So(scoring.DefaultPowerPickMultiplier, ShouldEqual, 3)
			})
		})
	})
}

func TestEngineFailures(t *testing.T) {
	Convey("Given a store whose writes fail", t, func() {
		ctx := context.Background()
		mem := repository.NewMemStore(repository.WithLogger(logger.Discard()))
		seedEvent(ctx, mem)
		setWinner(ctx, mem, "y")
		store := &slowStore{MemStore: mem, fail: repository.ErrStoreUnavailable}
		engine := scoring.NewEngine(store, scoring.WithLogger(logger.Discard()))

		Convey("When recomputing", func() {
			_, err := engine.RecomputeEvent(ctx, "gg")

			Convey("Then the error is returned and no rows are written", func() {
				So(errors.Is(err, repository.ErrStoreUnavailable), ShouldBeTrue)
				rows, _ := mem.Scores(ctx, "gg")
				So(rows, ShouldBeEmpty)
			})
		})
	})
}

func TestEngineSerializesSameEvent(t *testing.T) {
	Convey("Given concurrent recomputes of one event", t, func() {
		ctx := context.Background()
		mem := repository.NewMemStore(repository.WithLogger(logger.Discard()))
		seedEvent(ctx, mem)
		setWinner(ctx, mem, "y")
		store := &slowStore{MemStore: mem}
		engine := scoring.NewEngine(store, scoring.WithLogger(logger.Discard()))

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := engine.RecomputeEvent(ctx, "gg")
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		Convey("Then writes never overlap and the final rows are correct", func() {
			for err := range errs {
				So(err, ShouldBeNil)
			}
			So(store.maxSeen.Load(), ShouldEqual, 1)
			rows, _ := mem.Scores(ctx, "gg")
			So(byUser(rows)["a"].TotalPoints, ShouldEqual, 150)
		})
	})
}

func TestKeyedLocker(t *testing.T) {
	Convey("Given a keyed locker", t, func() {
		l := scoring.NewKeyedLocker()
		unlock, err := l.Lock(context.Background(), "gg")
		So(err, ShouldBeNil)

		Convey("When another key is locked", func() {
			other, err := l.Lock(context.Background(), "oscars")

			Convey("Then it does not wait", func() {
				So(err, ShouldBeNil)
				So(l.Len(), ShouldEqual, 2)
				other()
				unlock()
				So(l.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the held key is locked with a deadline", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()
			_, err := l.Lock(ctx, "gg")

			Convey("Then the wait is abandoned", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				unlock()
				unlock()
				So(l.Len(), ShouldEqual, 0)
			})
		})
	})
}
