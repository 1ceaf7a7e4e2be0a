package analytics

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

func insights(snap Snapshot, th Thresholds, multiplier int) []Insight {
	out := make([]Insight, 0, 5)

	var popular *CategoryStats
	for i := range snap.Categories {
		c := &snap.Categories[i]
		if c.ConsensusCorrect && (popular == nil || c.MostPopularPick.Count > popular.MostPopularPick.Count) {
			popular = c
		}
	}
	if popular != nil {
		out = append(out, Insight{
			Kind:  InsightPopularWinner,
			Title: "Popular winner",
			Message: fmt.Sprintf("%s won %s, picked by %s %s (%.1f%%).",
				popular.WinnerNomineeName, popular.CategoryName,
				humanize.Comma(int64(popular.MostPopularPick.Count)), plural(popular.MostPopularPick.Count, "player", "players"),
				popular.MostPopularPick.Percentage),
			Impact:     ImpactMedium,
			CategoryID: popular.CategoryID,
		})
	}

	var upset *CategoryStats
	for i := range snap.Categories {
		c := &snap.Categories[i]
		if c.Upset && (upset == nil || c.MostPopularPick.Percentage > upset.MostPopularPick.Percentage) {
			upset = c
		}
	}
	if upset != nil {
		out = append(out, Insight{
			Kind:  InsightBiggestUpset,
			Title: "Biggest upset",
			Message: fmt.Sprintf("%s won %s while %.1f%% of picks backed %s.",
				upset.WinnerNomineeName, upset.CategoryName,
				upset.MostPopularPick.Percentage, upset.MostPopularPick.NomineeName),
			Impact:     ImpactHigh,
			CategoryID: upset.CategoryID,
		})
	}

	o := snap.Overall
	if o.TotalPowerPicks > 0 {
		switch {
		case o.PowerPickSuccessRate > th.PowerPickHigh:
			out = append(out, Insight{
				Kind:  InsightPowerPickPaidOff,
				Title: "Power picks paid off",
				Message: fmt.Sprintf("%s of %s power picks hit (%.1f%%), each worth %d× points.",
					humanize.Comma(int64(o.CorrectPowerPicks)), humanize.Comma(int64(o.TotalPowerPicks)),
					o.PowerPickSuccessRate, multiplier),
				Impact: ImpactHigh,
			})
		case o.PowerPickSuccessRate < th.PowerPickLow:
			out = append(out, Insight{
				Kind:  InsightPowerPickMissed,
				Title: "Power picks missed",
				Message: fmt.Sprintf("Only %s of %s power picks hit (%.1f%%).",
					humanize.Comma(int64(o.CorrectPowerPicks)), humanize.Comma(int64(o.TotalPowerPicks)),
					o.PowerPickSuccessRate),
				Impact: ImpactMedium,
			})
		}
	}

	consensus := 0
	for _, c := range snap.Categories {
		if c.ConsensusCorrect {
			consensus++
		}
	}
	if consensus > th.WisdomCategories {
		out = append(out, Insight{
			Kind:  InsightWisdomOfCrowd,
			Title: "Wisdom of the crowd",
			Message: fmt.Sprintf("The favourite won %s of %s decided categories.",
				humanize.Comma(int64(consensus)), humanize.Comma(int64(o.ResolvedCategories))),
			Impact: ImpactMedium,
		})
	}

	if o.TotalBallots > th.ParticipationBallots {
		out = append(out, Insight{
			Kind:    InsightParticipation,
			Title:   "Big turnout",
			Message: fmt.Sprintf("%s ballots were submitted for this event.", humanize.Comma(int64(o.TotalBallots))),
			Impact:  ImpactLow,
		})
	}
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
