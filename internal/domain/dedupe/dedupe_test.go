package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/podium/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("When an event is marked for the first time", func() {
			seen := d.SeenAndRecord(ctx, "gg-2025")

			Convey("Then it is newly pending", func() {
				So(seen, ShouldBeFalse)
				So(d.Pending("gg-2025"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the same event is marked twice", func() {
			d.SeenAndRecord(ctx, "gg-2025")
			seen := d.SeenAndRecord(ctx, "gg-2025")

			Convey("Then the second mark is coalesced", func() {
				So(seen, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a worker takes the job", func() {
			d.SeenAndRecord(ctx, "gg-2025")
			d.Unrecord(ctx, "gg-2025")

			Convey("Then a new trigger is accepted again", func() {
				So(d.Pending("gg-2025"), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "gg-2025"), ShouldBeFalse)
			})
		})

		Convey("When an unknown key is unrecorded", func() {
			d.Unrecord(ctx, "missing")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestDedupeBounded(t *testing.T) {
	Convey("Given a deduper capped at two marks", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
		d.SeenAndRecord(ctx, "a")
		d.SeenAndRecord(ctx, "b")

		Convey("When a third key is marked", func() {
			d.SeenAndRecord(ctx, "c")

			Convey("Then the oldest mark is evicted", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.Pending("a"), ShouldBeFalse)
				So(d.Pending("b"), ShouldBeTrue)
				So(d.Pending("c"), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 100; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("event-%d", i))
		}

		Convey("Then nothing is evicted", func() {
			So(d.Size(), ShouldEqual, 100)
			So(d.Pending("event-0"), ShouldBeTrue)
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given many goroutines marking the same event", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()
		var fresh atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(ctx, "gg-2025") {
					fresh.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one of them wins", func() {
			So(fresh.Load(), ShouldEqual, 1)
			So(d.Size(), ShouldEqual, 1)
		})
	})
}
