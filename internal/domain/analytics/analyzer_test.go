package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/analytics"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAnalyzer(t *testing.T) {
	Convey("Given a stored event", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore(repository.WithLogger(logger.Discard()))
		So(store.SaveCategory(ctx, category("c", 50, "x", "y")), ShouldBeNil)
		So(store.SaveBallot(ctx, model.Ballot{ID: "b1", UserID: "u1", EventID: "gg", LeagueID: "L",
			Picks: []model.Pick{{CategoryID: "c", NomineeID: "x", IsPowerPick: true}}}), ShouldBeNil)
		So(store.SaveBallot(ctx, model.Ballot{ID: "b2", UserID: "u2", EventID: "gg", LeagueID: "L",
			Picks: []model.Pick{{CategoryID: "c", NomineeID: "y"}}}), ShouldBeNil)

		a := analytics.NewAnalyzer(store,
			analytics.WithLogger(logger.Discard()),
			analytics.WithClock(func() time.Time { return now }),
		)

		Convey("When analyzing before any result", func() {
			snap, err := a.Analyze(ctx, "gg")

			Convey("Then ballots are counted and nothing is resolved", func() {
				So(err, ShouldBeNil)
				So(snap.EventID, ShouldEqual, "gg")
				So(snap.GeneratedAt, ShouldEqual, now)
				So(snap.Overall.TotalBallots, ShouldEqual, 2)
				So(snap.Overall.ResolvedCategories, ShouldEqual, 0)
			})
		})

		Convey("When a result is recorded", func() {
			_, _, err := store.CompareAndSetResult(ctx, "c", func(model.Result, bool) (model.Result, bool) {
				return model.Result{WinnerNomineeID: "x"}, true
			})
			So(err, ShouldBeNil)
			snap, err := a.Analyze(ctx, "gg")

			Convey("Then the fresh read reflects it", func() {
				So(err, ShouldBeNil)
				So(snap.Categories[0].WinnerNomineeID, ShouldEqual, "x")
				So(snap.Overall.CorrectPowerPicks, ShouldEqual, 1)
			})
		})
	})
}
