// Package analytics derives popularity, upset, consensus and power-pick
// statistics of an event from its picks and results.
package analytics

import (
	"sort"
	"time"

	"github.com/okian/podium/internal/domain/model"
)

// Input is everything one analysis reads.
type Input struct {
	EventID     string
	Categories  []model.Category
	Results     []model.Result
	Picks       []model.BallotPick
	BallotCount int
	Thresholds  Thresholds
	Multiplier  int
	Now         time.Time
}

type tally struct {
	count, correct, power, correctPower int
}

// Compute builds the snapshot. It is pure and never divides by zero.
func Compute(in Input) Snapshot {
	winners := make(map[string]string, len(in.Results))
	for _, r := range in.Results {
		winners[r.CategoryID] = r.WinnerNomineeID
	}

	known := make(map[string]model.Category, len(in.Categories))
	for _, c := range in.Categories {
		known[c.ID] = c
	}

	snap := Snapshot{EventID: in.EventID, GeneratedAt: in.Now}
	snap.Overall.TotalBallots = in.BallotCount

	// category -> nominee -> tally
	tallies := make(map[string]map[string]*tally, len(in.Categories))
	for _, p := range in.Picks {
		cat, ok := known[p.CategoryID]
		if !ok || !cat.HasNominee(p.NomineeID) {
			snap.Overall.SkippedPicks++
			continue
		}
		byNominee, ok := tallies[p.CategoryID]
		if !ok {
			byNominee = make(map[string]*tally)
			tallies[p.CategoryID] = byNominee
		}
		t, ok := byNominee[p.NomineeID]
		if !ok {
			t = &tally{}
			byNominee[p.NomineeID] = t
		}
		hit := winners[p.CategoryID] == p.NomineeID

		t.count++
		snap.Overall.TotalPicks++
		if hit {
			t.correct++
			snap.Overall.TotalCorrectPicks++
		}
		if p.IsPowerPick {
			t.power++
			snap.Overall.TotalPowerPicks++
			if hit {
				t.correctPower++
				snap.Overall.CorrectPowerPicks++
			}
		}
	}

	for _, c := range in.Categories {
		cs := categoryStats(c, winners[c.ID], tallies[c.ID], in.Thresholds.UpsetShare)
		if cs.WinnerNomineeID != "" {
			snap.Overall.ResolvedCategories++
		}
		for _, ns := range cs.Nominees {
			if ns.PowerPickCount == 0 {
				continue
			}
			snap.PowerPicks = append(snap.PowerPicks, PowerPickStats{
				CategoryID:        c.ID,
				NomineeID:         ns.NomineeID,
				NomineeName:       ns.NomineeName,
				PowerPickCount:    ns.PowerPickCount,
				CorrectPowerPicks: ns.CorrectPowerPicks,
				SuccessRate:       ns.PowerPickSuccessRate,
			})
		}
		snap.Categories = append(snap.Categories, cs)
	}
	sort.SliceStable(snap.PowerPicks, func(i, j int) bool {
		return snap.PowerPicks[i].PowerPickCount > snap.PowerPicks[j].PowerPickCount
	})

	snap.Overall.OverallAccuracy = percent(snap.Overall.TotalCorrectPicks, snap.Overall.TotalPicks)
	snap.Overall.PowerPickSuccessRate = percent(snap.Overall.CorrectPowerPicks, snap.Overall.TotalPowerPicks)
	snap.Insights = insights(snap, in.Thresholds, in.Multiplier)
	return snap
}

func categoryStats(c model.Category, winner string, byNominee map[string]*tally, upsetShare float64) CategoryStats {
	cs := CategoryStats{
		CategoryID:   c.ID,
		CategoryName: c.Name,
		BasePoints:   c.BasePoints,
		Nominees:     make([]NomineeStats, 0, len(c.Nominees)),
	}
	for _, t := range byNominee {
		cs.TotalPicks += t.count
	}

	for _, n := range c.Nominees {
		t := byNominee[n.ID]
		if t == nil {
			t = &tally{}
		}
		ns := NomineeStats{
			NomineeID:            n.ID,
			NomineeName:          n.Name,
			Count:                t.count,
			Percentage:           percent(t.count, cs.TotalPicks),
			CorrectPicks:         t.correct,
			Accuracy:             percent(t.correct, t.count),
			PowerPickCount:       t.power,
			CorrectPowerPicks:    t.correctPower,
			PowerPickSuccessRate: percent(t.correctPower, t.power),
			IsWinner:             winner != "" && n.ID == winner,
		}
		if ns.IsWinner {
			cs.WinnerNomineeID = n.ID
			cs.WinnerNomineeName = n.Name
		}
		if t.count > 0 {
			cs.UniqueNomineesPicked++
			// Strictly greater keeps the earlier nominee on ties.
			if cs.MostPopularPick == nil || t.count > cs.MostPopularPick.Count {
				cs.MostPopularPick = &PopularPick{
					NomineeID:   n.ID,
					NomineeName: n.Name,
					Count:       t.count,
					Percentage:  ns.Percentage,
				}
			}
		}
		cs.Nominees = append(cs.Nominees, ns)
	}

	if cs.WinnerNomineeID != "" && cs.MostPopularPick != nil {
		cs.ConsensusCorrect = cs.MostPopularPick.NomineeID == cs.WinnerNomineeID
		cs.Upset = !cs.ConsensusCorrect && cs.MostPopularPick.Percentage > upsetShare
	}
	return cs
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}
