package matcher_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/okian/podium/internal/domain/matcher"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/sebdah/goldie/v2"
	. "github.com/smartystreets/goconvey/convey"
)

func catalog() []model.Category {
	return []model.Category{
		{
			ID: "drama", EventID: "gg", Name: "Best Motion Picture – Drama", BasePoints: 50,
			Nominees: []model.Nominee{
				{ID: "brutalist", CategoryID: "drama", Name: "The Brutalist"},
				{ID: "dune", CategoryID: "drama", Name: "Dune: Part Two"},
				{ID: "conclave", CategoryID: "drama", Name: "Conclave"},
			},
		},
		{
			ID: "actor", EventID: "gg", Name: "Best Actor", BasePoints: 30,
			Nominees: []model.Nominee{
				{ID: "brody", CategoryID: "actor", Name: "Adrien Brody"},
			},
		},
		{
			ID: "supporting", EventID: "gg", Name: "Best Supporting Actor", BasePoints: 20,
			Nominees: []model.Nominee{
				{ID: "culkin", CategoryID: "supporting", Name: "Kieran Culkin"},
			},
		},
		{
			ID: "foreign", EventID: "gg", Name: "Best Motion Picture – Non-English Language", BasePoints: 20,
			Nominees: []model.Nominee{
				{ID: "perez", CategoryID: "foreign", Name: "Emilia Pérez"},
			},
		},
	}
}

func TestNormalizeGolden(t *testing.T) {
	inputs := []string{
		"Best Motion Picture – Drama",
		"best picture - drama",
		"  The   Brutalist ",
		"Amélie",
		"Schindler's List",
		"Everything Everywhere All at Once!",
		"Mr. & Mrs. Smith",
		"Musical/Comedy",
		"Emilia Pérez",
		"",
	}
	var buf bytes.Buffer
	for _, in := range inputs {
		fmt.Fprintf(&buf, "%q => %q\n", in, matcher.Normalize(in))
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "normalize", buf.Bytes())
}

func TestResolve(t *testing.T) {
	Convey("Given an index over an award catalog", t, func() {
		idx := matcher.NewIndex(catalog())

		Convey("When the candidate differs in case, punctuation and wording", func() {
			res := idx.Resolve(model.WinnerCandidate{CategoryText: "best picture - drama", WinnerText: "the brutalist"})

			Convey("Then it resolves through the token pass", func() {
				So(res.Matched, ShouldBeTrue)
				So(res.CategoryID, ShouldEqual, "drama")
				So(res.NomineeID, ShouldEqual, "brutalist")
				So(res.CategoryStrategy, ShouldEqual, matcher.StrategyTokens)
				So(res.NomineeStrategy, ShouldEqual, matcher.StrategyExact)
			})
		})

		Convey("When the candidate category contains the stored name", func() {
			res := idx.Resolve(model.WinnerCandidate{CategoryText: "Golden Globe for Best Motion Picture - Drama (2025)", WinnerText: "Brutalist"})

			Convey("Then the substring pass wins and the stored nominee contains the candidate", func() {
				So(res.Matched, ShouldBeTrue)
				So(res.CategoryStrategy, ShouldEqual, matcher.StrategySubstring)
				So(res.NomineeID, ShouldEqual, "brutalist")
				So(res.NomineeStrategy, ShouldEqual, matcher.StrategyStoredHas)
			})
		})

		Convey("When the candidate winner text carries extra words", func() {
			res := idx.Resolve(model.WinnerCandidate{CategoryText: "Best Motion Picture Drama", WinnerText: "Conclave (Focus Features)"})

			Convey("Then the candidate-contains-stored pass matches", func() {
				So(res.Matched, ShouldBeTrue)
				So(res.NomineeID, ShouldEqual, "conclave")
				So(res.NomineeStrategy, ShouldEqual, matcher.StrategyCandidateHas)
			})
		})

		Convey("When accents are missing from the candidate", func() {
			res := idx.Resolve(model.WinnerCandidate{CategoryText: "Best Motion Picture - Non English Language", WinnerText: "emilia perez"})

			Convey("Then the accented nominee still matches", func() {
				So(res.Matched, ShouldBeTrue)
				So(res.NomineeID, ShouldEqual, "perez")
			})
		})

		Convey("When the supporting category is announced", func() {
			res := idx.Resolve(model.WinnerCandidate{CategoryText: "best supporting actor", WinnerText: "Kieran Culkin"})

			Convey("Then it does not collapse onto the shorter category", func() {
				So(res.Matched, ShouldBeTrue)
				So(res.CategoryID, ShouldEqual, "supporting")
			})
		})

		Convey("When no category matches", func() {
			res := idx.Resolve(model.WinnerCandidate{CategoryText: "Best Television Series", WinnerText: "Shogun"})

			Convey("Then the reason is category_not_found", func() {
				So(res.Matched, ShouldBeFalse)
				So(res.Reason, ShouldEqual, matcher.ReasonCategoryNotFound)
				So(res.CategoryID, ShouldBeEmpty)
			})
		})

		Convey("When the category matches but the nominee does not", func() {
			res := idx.Resolve(model.WinnerCandidate{CategoryText: "Best Motion Picture – Drama", WinnerText: "Oppenheimer"})

			Convey("Then the reason is nominee_not_found", func() {
				So(res.Matched, ShouldBeFalse)
				So(res.Reason, ShouldEqual, matcher.ReasonNomineeNotFound)
				So(res.CategoryID, ShouldEqual, "drama")
			})
		})

		Convey("When the candidate is blank or punctuation only", func() {
			blank := idx.Resolve(model.WinnerCandidate{})
			punct := idx.Resolve(model.WinnerCandidate{CategoryText: "Best Actor", WinnerText: "?!"})

			Convey("Then nothing matches and nothing panics", func() {
				So(blank.Reason, ShouldEqual, matcher.ReasonCategoryNotFound)
				So(punct.Reason, ShouldEqual, matcher.ReasonNomineeNotFound)
			})
		})

		Convey("When the index is empty", func() {
			res := matcher.NewIndex(nil).Resolve(model.WinnerCandidate{CategoryText: "x", WinnerText: "y"})

			Convey("Then the candidate is reported as unmatched", func() {
				So(res.Reason, ShouldEqual, matcher.ReasonCategoryNotFound)
			})
		})
	})
}

func TestMatcher(t *testing.T) {
	Convey("Given a matcher", t, func() {
		m := matcher.New(matcher.WithLogger(logger.Discard()))

		Convey("When matching a known candidate", func() {
			res := m.Match(context.Background(), "gg", catalog(), model.WinnerCandidate{CategoryText: "Best Actor", WinnerText: "Adrien Brody"})

			Convey("Then it resolves", func() {
				So(res.Matched, ShouldBeTrue)
				So(res.NomineeID, ShouldEqual, "brody")
			})
		})

		Convey("When matching an unknown candidate", func() {
			res := m.Match(context.Background(), "gg", catalog(), model.WinnerCandidate{CategoryText: "Best Score", WinnerText: "Trent Reznor"})

			Convey("Then it is dropped without an error", func() {
				So(res.Matched, ShouldBeFalse)
				So(res.Reason, ShouldEqual, matcher.ReasonCategoryNotFound)
			})
		})
	})
}
