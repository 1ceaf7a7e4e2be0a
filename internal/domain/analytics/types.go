package analytics

import "time"

// Impact ranks how prominently an insight should be shown.
type Impact string

// Insight impacts.
const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// Insight kinds, in the order they are generated.
const (
	InsightPopularWinner    = "popular_winner"
	InsightBiggestUpset     = "biggest_upset"
	InsightPowerPickPaidOff = "power_pick_paid_off"
	InsightPowerPickMissed  = "power_pick_missed"
	InsightWisdomOfCrowd    = "wisdom_of_crowd"
	InsightParticipation    = "participation"
)

// Insight is one generated observation about an event.
type Insight struct {
	Kind       string `json:"kind"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Impact     Impact `json:"impact"`
	CategoryID string `json:"category_id,omitempty"`
}

// PopularPick is the nominee with the highest share of a category's picks.
type PopularPick struct {
	NomineeID   string  `json:"nominee_id"`
	NomineeName string  `json:"nominee_name"`
	Count       int     `json:"count"`
	Percentage  float64 `json:"percentage"`
}

// NomineeStats aggregates the picks placed on one nominee.
// Percentage, Accuracy and PowerPickSuccessRate are on a 0-100 scale.
type NomineeStats struct {
	NomineeID            string  `json:"nominee_id"`
	NomineeName          string  `json:"nominee_name"`
	Count                int     `json:"count"`
	Percentage           float64 `json:"percentage"`
	CorrectPicks         int     `json:"correct_picks"`
	Accuracy             float64 `json:"accuracy"`
	PowerPickCount       int     `json:"power_pick_count"`
	CorrectPowerPicks    int     `json:"correct_power_picks"`
	PowerPickSuccessRate float64 `json:"power_pick_success_rate"`
	IsWinner             bool    `json:"is_winner"`
}

// CategoryStats aggregates one category. A category without a winner is
// neither an upset nor consensus-correct.
type CategoryStats struct {
	CategoryID           string         `json:"category_id"`
	CategoryName         string         `json:"category_name"`
	BasePoints           int            `json:"base_points"`
	TotalPicks           int            `json:"total_picks"`
	UniqueNomineesPicked int            `json:"unique_nominees_picked"`
	MostPopularPick      *PopularPick   `json:"most_popular_pick,omitempty"`
	WinnerNomineeID      string         `json:"winner_nominee_id,omitempty"`
	WinnerNomineeName    string         `json:"winner_nominee_name,omitempty"`
	ConsensusCorrect     bool           `json:"consensus_correct"`
	Upset                bool           `json:"upset"`
	Nominees             []NomineeStats `json:"nominees"`
}

// PowerPickStats is the power-pick record of one nominee.
type PowerPickStats struct {
	CategoryID        string  `json:"category_id"`
	NomineeID         string  `json:"nominee_id"`
	NomineeName       string  `json:"nominee_name"`
	PowerPickCount    int     `json:"power_pick_count"`
	CorrectPowerPicks int     `json:"correct_power_picks"`
	SuccessRate       float64 `json:"success_rate"`
}

// Overall aggregates the whole event. Every ratio is 0 when its denominator is 0.
type Overall struct {
	TotalBallots         int     `json:"total_ballots"`
	TotalPicks           int     `json:"total_picks"`
	TotalCorrectPicks    int     `json:"total_correct_picks"`
	OverallAccuracy      float64 `json:"overall_accuracy"`
	TotalPowerPicks      int     `json:"total_power_picks"`
	CorrectPowerPicks    int     `json:"correct_power_picks"`
	PowerPickSuccessRate float64 `json:"power_pick_success_rate"`
	ResolvedCategories   int     `json:"resolved_categories"`
	SkippedPicks         int     `json:"skipped_picks"`
}

// Snapshot is the analytics of one event at one point in time.
type Snapshot struct {
	EventID     string           `json:"event_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Categories  []CategoryStats  `json:"categories"`
	PowerPicks  []PowerPickStats `json:"power_picks"`
	Overall     Overall          `json:"overall"`
	Insights    []Insight        `json:"insights"`
}

// Thresholds tune insight generation. Shares and rates are percentages.
type Thresholds struct {
	UpsetShare           float64 `json:"upset_share"`
	PowerPickHigh        float64 `json:"power_pick_high"`
	PowerPickLow         float64 `json:"power_pick_low"`
	WisdomCategories     int     `json:"wisdom_categories"`
	ParticipationBallots int     `json:"participation_ballots"`
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		UpsetShare:           30,
		PowerPickHigh:        60,
		PowerPickLow:         30,
		WisdomCategories:     10,
		ParticipationBallots: 100,
	}
}
