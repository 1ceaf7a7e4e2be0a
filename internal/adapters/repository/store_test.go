package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

// stores returns every Store implementation that can run without external
// services, so the same contract is checked against each.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	sqlite, err := OpenSQL(ctx, DriverSQLite, filepath.Join(t.TempDir(), "podium.db"), WithLogger(logger.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]Store{
		"memory": NewMemStore(WithLogger(logger.Discard())),
		"sqlite": sqlite,
	}
}

func seed(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveCategory(ctx, model.Category{
		ID: "drama", EventID: "gg", Name: "Best Motion Picture – Drama", BasePoints: 50,
		Nominees: []model.Nominee{{ID: "x", Name: "X"}, {ID: "y", Name: "Y"}, {ID: "z", Name: "Z"}},
	}))
	require.NoError(t, s.SaveCategory(ctx, model.Category{
		ID: "actor", EventID: "gg", Name: "Best Actor", BasePoints: 20,
		Nominees: []model.Nominee{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
	}))
	require.NoError(t, s.SaveCategory(ctx, model.Category{
		ID: "song", EventID: "oscars", Name: "Best Original Song", BasePoints: 10,
		Nominees: []model.Nominee{{ID: "s", Name: "S"}},
	}))
	created := time.Date(2025, 1, 5, 18, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveBallot(ctx, model.Ballot{
		ID: "b1", UserID: "u1", EventID: "gg", LeagueID: "L",
		Picks: []model.Pick{
			{CategoryID: "drama", NomineeID: "y", IsPowerPick: true, CreatedAt: created},
			{CategoryID: "actor", NomineeID: "a"},
		},
	}))
	require.NoError(t, s.SaveBallot(ctx, model.Ballot{
		ID: "b2", UserID: "u2", EventID: "gg", LeagueID: "L",
		Picks: []model.Pick{{CategoryID: "drama", NomineeID: "x"}},
	}))
}

func TestStore_Catalog(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, s)

			events, err := s.Events(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"gg", "oscars"}, events)

			cats, err := s.Categories(ctx, "gg")
			require.NoError(t, err)
			require.Len(t, cats, 2)
			assert.Equal(t, "drama", cats[0].ID)
			assert.Equal(t, "actor", cats[1].ID)
			require.Len(t, cats[0].Nominees, 3)
			assert.Equal(t, []string{"x", "y", "z"}, []string{cats[0].Nominees[0].ID, cats[0].Nominees[1].ID, cats[0].Nominees[2].ID})
			assert.Equal(t, "drama", cats[0].Nominees[1].CategoryID)

			c, err := s.Category(ctx, "actor")
			require.NoError(t, err)
			assert.Equal(t, 20, c.BasePoints)
			assert.True(t, c.HasNominee("b"))

			_, err = s.Category(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_SaveCategoryReplacesNominees(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, s)
			require.NoError(t, s.SaveCategory(ctx, model.Category{
				ID: "drama", EventID: "gg", Name: "Best Motion Picture – Drama", BasePoints: 60,
				Nominees: []model.Nominee{{ID: "x", Name: "X"}},
			}))

			cats, err := s.Categories(ctx, "gg")
			require.NoError(t, err)
			require.Len(t, cats, 2)
			assert.Equal(t, "drama", cats[0].ID, "catalog order is kept on update")
			assert.Equal(t, 60, cats[0].BasePoints)
			assert.Len(t, cats[0].Nominees, 1)
		})
	}
}

func TestStore_SaveBallotReplacesSameUserLeague(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, s)
			require.NoError(t, s.SaveBallot(ctx, model.Ballot{
				ID: "b1-again", UserID: "u1", EventID: "gg", LeagueID: "L",
				Picks: []model.Pick{{CategoryID: "drama", NomineeID: "z"}},
			}))
			require.NoError(t, s.SaveBallot(ctx, model.Ballot{
				ID: "b1-other-league", UserID: "u1", EventID: "gg", LeagueID: "M",
				Picks: []model.Pick{{CategoryID: "drama", NomineeID: "x"}},
			}))

			n, err := s.BallotCount(ctx, "gg")
			require.NoError(t, err)
			assert.Equal(t, 3, n, "u1 keeps one ballot per league")

			picks, err := s.Picks(ctx, "gg")
			require.NoError(t, err)
			var inL []string
			for _, p := range picks {
				if p.UserID == "u1" && p.LeagueID == "L" {
					inL = append(inL, p.BallotID+":"+p.NomineeID)
				}
			}
			assert.Equal(t, []string{"b1-again:z"}, inL)
		})
	}
}

func TestStore_RejectsInvalidInput(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := s.SaveBallot(ctx, model.Ballot{
				ID: "b", UserID: "u", EventID: "gg", LeagueID: "L",
				Picks: []model.Pick{{CategoryID: "drama", NomineeID: "x"}, {CategoryID: "drama", NomineeID: "y"}},
			})
			assert.ErrorIs(t, err, model.ErrDuplicatePick)

			err = s.SaveCategory(ctx, model.Category{ID: "c", EventID: "gg", Name: "C"})
			assert.ErrorIs(t, err, model.ErrInvalidCategory)
		})
	}
}

func TestStore_Picks(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, s)

			picks, err := s.Picks(ctx, "gg")
			require.NoError(t, err)
			require.Len(t, picks, 3)

			var power model.BallotPick
			for _, p := range picks {
				if p.IsPowerPick {
					power = p
				}
			}
			assert.Equal(t, "b1", power.BallotID)
			assert.Equal(t, "u1", power.UserID)
			assert.Equal(t, "L", power.LeagueID)
			assert.Equal(t, "y", power.NomineeID)
			assert.True(t, power.CreatedAt.Equal(time.Date(2025, 1, 5, 18, 0, 0, 0, time.UTC)))

			n, err := s.BallotCount(ctx, "gg")
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			n, err = s.BallotCount(ctx, "oscars")
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestStore_CompareAndSetResult(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, s)
			at := time.Date(2025, 1, 5, 20, 0, 0, 0, time.UTC)

			set := func(winner string) func(model.Result, bool) (model.Result, bool) {
				return func(cur model.Result, found bool) (model.Result, bool) {
					if found && cur.WinnerNomineeID == winner {
						return cur, false
					}
					return model.Result{WinnerNomineeID: winner, AnnouncedAt: at}, true
				}
			}

			r, written, err := s.CompareAndSetResult(ctx, "drama", set("y"))
			require.NoError(t, err)
			assert.True(t, written)
			assert.Equal(t, "drama", r.CategoryID)

			r, written, err = s.CompareAndSetResult(ctx, "drama", set("y"))
			require.NoError(t, err)
			assert.False(t, written)
			assert.Equal(t, "y", r.WinnerNomineeID)
			assert.True(t, r.AnnouncedAt.Equal(at))

			_, written, err = s.CompareAndSetResult(ctx, "drama", set("x"))
			require.NoError(t, err)
			assert.True(t, written)

			results, err := s.Results(ctx, "gg")
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, "x", results[0].WinnerNomineeID)

			_, _, err = s.CompareAndSetResult(ctx, "missing", set("x"))
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_CompareAndSetResultIsAtomic(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, s)

			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				creates int
			)
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, written, err := s.CompareAndSetResult(ctx, "actor", func(cur model.Result, found bool) (model.Result, bool) {
						if found {
							return cur, false
						}
						return model.Result{WinnerNomineeID: "a", AnnouncedAt: time.Now()}, true
					})
					assert.NoError(t, err)
					if written {
						mu.Lock()
						creates++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, 1, creates)
		})
	}
}

func TestStore_Scores(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2025, 1, 5, 21, 0, 0, 0, time.UTC)
			rows := []model.Score{
				{UserID: "u2", LeagueID: "L", EventID: "gg", TotalPoints: 50, CorrectPicks: 1, UpdatedAt: now},
				{UserID: "u1", LeagueID: "L", EventID: "gg", TotalPoints: 150, CorrectPicks: 1, PowerPicksHit: 1, UpdatedAt: now},
				{UserID: "u3", LeagueID: "L", EventID: "gg", TotalPoints: 50, CorrectPicks: 1, UpdatedAt: now},
				{UserID: "u1", LeagueID: "M", EventID: "gg", UpdatedAt: now},
				{UserID: "u1", LeagueID: "L", EventID: "oscars", TotalPoints: 10, UpdatedAt: now},
			}
			require.NoError(t, s.WriteScores(ctx, rows))

			got, err := s.Scores(ctx, "gg")
			require.NoError(t, err)
			require.Len(t, got, 4)
			assert.Equal(t, "u1", got[0].UserID)
			assert.Equal(t, "L", got[0].LeagueID)
			assert.Equal(t, "M", got[3].LeagueID)
			assert.True(t, got[0].UpdatedAt.Equal(now))

			rows[1].TotalPoints = 0
			require.NoError(t, s.WriteScores(ctx, rows[1:2]))
			got, err = s.Scores(ctx, "gg")
			require.NoError(t, err)
			assert.Len(t, got, 4, "upsert does not duplicate rows")
			assert.Zero(t, got[0].TotalPoints)

			standings, err := s.Standings(ctx, "gg", "L", 10)
			require.NoError(t, err)
			require.Len(t, standings, 3)
			assert.Equal(t, "u2", standings[0].UserID)
			assert.Equal(t, 1, standings[0].Rank)
			assert.Equal(t, "u3", standings[1].UserID)
			assert.Equal(t, 1, standings[1].Rank)
			assert.Equal(t, "u1", standings[2].UserID)
			assert.Equal(t, 2, standings[2].Rank)

			_, err = s.Standings(ctx, "gg", "L", 0)
			assert.ErrorIs(t, err, ErrInvalidLimit)
		})
	}
}

func TestStore_CanceledContextIsUnavailable(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := s.WriteScores(ctx, []model.Score{{UserID: "u", LeagueID: "L", EventID: "gg"}})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrStoreUnavailable))
			assert.True(t, errors.Is(err, context.Canceled))
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, DriverMemory, "", WithLogger(logger.Discard()))
	require.NoError(t, err)
	assert.IsType(t, &MemStore{}, s)

	_, err = Open(ctx, "oracle", "dsn", WithLogger(logger.Discard()))
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driver: DriverPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := &SQLStore{driver: DriverSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}
