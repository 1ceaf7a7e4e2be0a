// Package repository defines the datastore port of the engine and its
// in-memory and SQL implementations.
package repository

import (
	"context"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
)

// Store provides read/write access to catalog, ballots, results and scores.
// Every method that writes does so in a single transaction.
type Store interface {
	// SaveCategory inserts or replaces a category and its nominees.
	SaveCategory(ctx context.Context, c model.Category) error
	// SaveBallot inserts or replaces a ballot and its picks. A ballot with a
	// different id for the same (user, event, league) is replaced.
	SaveBallot(ctx context.Context, b model.Ballot) error

	// Events lists every event that has at least one category.
	Events(ctx context.Context) ([]string, error)
	// Categories returns an event's categories in catalog order.
	Categories(ctx context.Context, eventID string) ([]model.Category, error)
	// Category returns one category. Returns ErrNotFound if it is unknown.
	Category(ctx context.Context, categoryID string) (model.Category, error)

	// Picks returns every pick of every ballot of the event.
	Picks(ctx context.Context, eventID string) ([]model.BallotPick, error)
	// BallotCount returns the number of ballots submitted for the event.
	BallotCount(ctx context.Context, eventID string) (int, error)

	// Results returns the recorded winners of the event in catalog order.
	Results(ctx context.Context, eventID string) ([]model.Result, error)
	// CompareAndSetResult reads the category's result and applies fn to it
	// atomically. fn returns write=false to leave the stored row untouched.
	// It returns the stored row and whether it was written.
	// Returns ErrNotFound if the category is unknown.
	CompareAndSetResult(ctx context.Context, categoryID string,
		fn func(current model.Result, found bool) (next model.Result, write bool)) (model.Result, bool, error)

	// Scores returns every Score row of the event ordered by league then user.
	Scores(ctx context.Context, eventID string) ([]model.Score, error)
	// WriteScores upserts rows in one transaction.
	WriteScores(ctx context.Context, rows []model.Score) error
	// Standings returns the ranked Score rows of one league, best first.
	Standings(ctx context.Context, eventID, leagueID string, limit int) ([]types.Entry, error)

	// Close releases the underlying resources.
	Close() error
}
