// Package types contains read shapes shared by the service and its adapters.
package types

// Entry is one row of a league's standings.
type Entry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"user_id"`
	LeagueID      string `json:"league_id"`
	TotalPoints   int    `json:"total_points"`
	CorrectPicks  int    `json:"correct_picks"`
	PowerPicksHit int    `json:"power_picks_hit"`
}
