// Package model contains the domain entities passed between layers.
package model

import (
	"errors"
	"fmt"
	"time"
)

// Validation errors for catalog and ballot data.
var (
	ErrDuplicateNominee = errors.New("duplicate nominee in category")
	ErrDuplicatePick    = errors.New("duplicate pick for category in ballot")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidBallot    = errors.New("invalid ballot")
)

// Category is an award category of one event. Nominees are kept in catalog order.
type Category struct {
	ID         string    `json:"id" yaml:"id"`
	EventID    string    `json:"event_id" yaml:"event_id"`
	Name       string    `json:"name" yaml:"name"`
	BasePoints int       `json:"base_points" yaml:"base_points"`
	Nominees   []Nominee `json:"nominees" yaml:"nominees"`
}

// Nominee belongs to exactly one category.
type Nominee struct {
	ID         string `json:"id" yaml:"id"`
	CategoryID string `json:"category_id" yaml:"category_id"`
	Name       string `json:"name" yaml:"name"`
}

// Nominee returns the nominee with the given id.
func (c Category) Nominee(id string) (Nominee, bool) {
	for _, n := range c.Nominees {
		if n.ID == id {
			return n, true
		}
	}
	return Nominee{}, false
}

// HasNominee reports whether id is one of the category's nominees.
func (c Category) HasNominee(id string) bool {
	_, ok := c.Nominee(id)
	return ok
}

// Validate checks the catalog invariants of a category.
func (c Category) Validate() error {
	if c.ID == "" || c.EventID == "" {
		return fmt.Errorf("%w: id and event_id are required", ErrInvalidCategory)
	}
	if c.BasePoints <= 0 {
		return fmt.Errorf("%w: %s: base_points must be positive", ErrInvalidCategory, c.ID)
	}
	seen := make(map[string]struct{}, len(c.Nominees))
	for _, n := range c.Nominees {
		if n.ID == "" {
			return fmt.Errorf("%w: %s: nominee without id", ErrInvalidCategory, c.ID)
		}
		if n.CategoryID != "" && n.CategoryID != c.ID {
			return fmt.Errorf("%w: nominee %s is owned by %s", ErrInvalidCategory, n.ID, n.CategoryID)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateNominee, c.ID, n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	return nil
}

// Ballot is one user's set of picks for one event within one league.
type Ballot struct {
	ID       string `json:"id" yaml:"id"`
	UserID   string `json:"user_id" yaml:"user_id"`
	EventID  string `json:"event_id" yaml:"event_id"`
	LeagueID string `json:"league_id" yaml:"league_id"`
	Picks    []Pick `json:"picks" yaml:"picks"`
}

// Validate checks that the ballot has an owner and at most one pick per category.
func (b Ballot) Validate() error {
	if b.ID == "" || b.UserID == "" || b.EventID == "" || b.LeagueID == "" {
		return fmt.Errorf("%w: id, user_id, event_id and league_id are required", ErrInvalidBallot)
	}
	seen := make(map[string]struct{}, len(b.Picks))
	for _, p := range b.Picks {
		if p.CategoryID == "" || p.NomineeID == "" {
			return fmt.Errorf("%w: %s: pick without category or nominee", ErrInvalidBallot, b.ID)
		}
		if _, dup := seen[p.CategoryID]; dup {
			return fmt.Errorf("%w: %s/%s", ErrDuplicatePick, b.ID, p.CategoryID)
		}
		seen[p.CategoryID] = struct{}{}
	}
	return nil
}

// Pick is a single category to nominee selection.
type Pick struct {
	CategoryID  string    `json:"category_id" yaml:"category_id"`
	NomineeID   string    `json:"nominee_id" yaml:"nominee_id"`
	IsPowerPick bool      `json:"is_power_pick" yaml:"power_pick"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// BallotPick is a pick joined with the identity of its owning ballot.
type BallotPick struct {
	BallotID string
	UserID   string
	LeagueID string
	EventID  string
	Pick
}

// Result is the recorded winner of a category.
type Result struct {
	CategoryID      string    `json:"category_id"`
	WinnerNomineeID string    `json:"winner_nominee_id"`
	AnnouncedAt     time.Time `json:"announced_at"`
}

// ScoreKey identifies a Score row.
type ScoreKey struct {
	UserID   string
	LeagueID string
	EventID  string
}

// Score is the materialized result of recomputing one (user, league, event).
type Score struct {
	UserID        string    `json:"user_id"`
	LeagueID      string    `json:"league_id"`
	EventID       string    `json:"event_id"`
	TotalPoints   int       `json:"total_points"`
	CorrectPicks  int       `json:"correct_picks"`
	PowerPicksHit int       `json:"power_picks_hit"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Key returns the identity of the row.
func (s Score) Key() ScoreKey {
	return ScoreKey{UserID: s.UserID, LeagueID: s.LeagueID, EventID: s.EventID}
}

// SameValues reports whether two rows carry the same derived values, ignoring UpdatedAt.
func (s Score) SameValues(o Score) bool {
	return s.Key() == o.Key() &&
		s.TotalPoints == o.TotalPoints &&
		s.CorrectPicks == o.CorrectPicks &&
		s.PowerPicksHit == o.PowerPicksHit
}

// WinnerCandidate is a free-text winner announcement from an ingestion source.
type WinnerCandidate struct {
	CategoryText string `json:"category" yaml:"category"`
	WinnerText   string `json:"winner" yaml:"winner"`
}
