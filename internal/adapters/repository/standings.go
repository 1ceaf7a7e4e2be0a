package repository

import (
	"sort"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/metrics"
)

// rankStandings orders a league's rows by points desc then user id asc and
// returns at most limit entries.
func rankStandings(rows []model.Score, limit int) ([]types.Entry, error) {
	if limit < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	entries := make([]types.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, types.Entry{
			UserID:        r.UserID,
			LeagueID:      r.LeagueID,
			TotalPoints:   r.TotalPoints,
			CorrectPicks:  r.CorrectPicks,
			PowerPicksHit: r.PowerPicksHit,
		})
	}
	sortEntries(entries)
	assignRanksWithTies(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func sortEntries(entries []types.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		return entries[i].UserID < entries[j].UserID
	})
}

// assignRanksWithTies gives equal points the same rank; the next distinct
// score takes the next consecutive rank.
func assignRanksWithTies(entries []types.Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].TotalPoints != entries[i-1].TotalPoints {
			rank++
		}
		entries[i].Rank = rank
	}
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency(op, metrics.Since(start))
}
