// Package scoring rebuilds the Score rows of an event from its picks and
// results. Recomputation is always full: the rows written depend only on the
// current picks, results and catalog.
package scoring

import (
	"sort"
	"time"

	"github.com/okian/podium/internal/domain/model"
)

// DefaultPowerPickMultiplier scales the base points of a correct power pick.
const DefaultPowerPickMultiplier = 3

// Reasons a pick is left out of a recomputation.
const (
	SkipUnknownCategory = "unknown_category"
	SkipUnknownNominee  = "unknown_nominee"
)

// SkippedPick is a pick that references catalog data that no longer exists.
type SkippedPick struct {
	BallotID   string `json:"ballot_id"`
	UserID     string `json:"user_id"`
	CategoryID string `json:"category_id"`
	NomineeID  string `json:"nominee_id"`
	Reason     string `json:"reason"`
}

// Input is everything one recomputation reads.
type Input struct {
	Categories []model.Category
	Results    []model.Result
	Picks      []model.BallotPick
	// Prior holds the keys of rows already stored for the event. Keys without
	// picks are written back zeroed.
	Prior      []model.ScoreKey
	Multiplier int
	Now        time.Time
}

// Output is the full set of rows for the event plus the picks left out.
type Output struct {
	Rows    []model.Score
	Skipped []SkippedPick
}

// Compute derives the Score rows of one event. It is pure: the same input
// always yields the same rows in the same order.
func Compute(in Input) Output {
	multiplier := in.Multiplier
	if multiplier <= 0 {
		multiplier = DefaultPowerPickMultiplier
	}

	categories := make(map[string]model.Category, len(in.Categories))
	for _, c := range in.Categories {
		categories[c.ID] = c
	}
	winners := make(map[string]string, len(in.Results))
	for _, r := range in.Results {
		winners[r.CategoryID] = r.WinnerNomineeID
	}

	rows := make(map[model.ScoreKey]*model.Score)
	row := func(k model.ScoreKey) *model.Score {
		s, ok := rows[k]
		if !ok {
			s = &model.Score{UserID: k.UserID, LeagueID: k.LeagueID, EventID: k.EventID, UpdatedAt: in.Now}
			rows[k] = s
		}
		return s
	}

	var out Output
	for _, p := range in.Picks {
		s := row(model.ScoreKey{UserID: p.UserID, LeagueID: p.LeagueID, EventID: p.EventID})

		cat, ok := categories[p.CategoryID]
		if !ok {
			out.Skipped = append(out.Skipped, skipped(p, SkipUnknownCategory))
			continue
		}
		if !cat.HasNominee(p.NomineeID) {
			out.Skipped = append(out.Skipped, skipped(p, SkipUnknownNominee))
			continue
		}
		winner, announced := winners[p.CategoryID]
		if !announced || winner != p.NomineeID {
			continue
		}

		s.CorrectPicks++
		if p.IsPowerPick {
			s.TotalPoints += cat.BasePoints * multiplier
			s.PowerPicksHit++
		} else {
			s.TotalPoints += cat.BasePoints
		}
	}

	for _, k := range in.Prior {
		row(k)
	}

	out.Rows = make([]model.Score, 0, len(rows))
	for _, s := range rows {
		out.Rows = append(out.Rows, *s)
	}
	sort.Slice(out.Rows, func(i, j int) bool {
		a, b := out.Rows[i], out.Rows[j]
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		if a.LeagueID != b.LeagueID {
			return a.LeagueID < b.LeagueID
		}
		return a.UserID < b.UserID
	})
	return out
}

func skipped(p model.BallotPick, reason string) SkippedPick {
	return SkippedPick{
		BallotID:   p.BallotID,
		UserID:     p.UserID,
		CategoryID: p.CategoryID,
		NomineeID:  p.NomineeID,
		Reason:     reason,
	}
}
