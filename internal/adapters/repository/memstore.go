package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
)

// MemStore is an in-memory Store guarded by a single RWMutex. Writes hold
// the write lock for their whole duration, which makes every write atomic.
type MemStore struct {
	mu sync.RWMutex

	categories   map[string]model.Category
	eventCats    map[string][]string
	ballots      map[string]model.Ballot
	eventBallots map[string][]string
	results      map[string]model.Result
	scores       map[model.ScoreKey]model.Score

	opts storeOptions
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore(opts ...Option) *MemStore {
	return &MemStore{
		categories:   make(map[string]model.Category),
		eventCats:    make(map[string][]string),
		ballots:      make(map[string]model.Ballot),
		eventBallots: make(map[string][]string),
		results:      make(map[string]model.Result),
		scores:       make(map[model.ScoreKey]model.Score),
		opts:         newStoreOptions(opts),
	}
}

// SaveCategory implements Store.SaveCategory.
func (s *MemStore) SaveCategory(ctx context.Context, c model.Category) error {
	defer observe("save_category", time.Now())
	if err := c.Validate(); err != nil {
		return err
	}
	c = cloneCategory(c)
	for i := range c.Nominees {
		c.Nominees[i].CategoryID = c.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.categories[c.ID]; ok && old.EventID != c.EventID {
		s.eventCats[old.EventID] = removeID(s.eventCats[old.EventID], c.ID)
		s.eventCats[c.EventID] = append(s.eventCats[c.EventID], c.ID)
	} else if !ok {
		s.eventCats[c.EventID] = append(s.eventCats[c.EventID], c.ID)
	}
	s.categories[c.ID] = c
	return nil
}

// SaveBallot implements Store.SaveBallot.
func (s *MemStore) SaveBallot(ctx context.Context, b model.Ballot) error {
	defer observe("save_ballot", time.Now())
	if err := b.Validate(); err != nil {
		return err
	}
	b.Picks = append([]model.Pick(nil), b.Picks...)

	s.mu.Lock()
	defer s.mu.Unlock()
	// A user holds one ballot per league of an event; a new id for the same
	// key replaces the old ballot.
	for _, id := range s.eventBallots[b.EventID] {
		if old := s.ballots[id]; id != b.ID && old.UserID == b.UserID && old.LeagueID == b.LeagueID {
			delete(s.ballots, id)
			s.eventBallots[b.EventID] = removeID(s.eventBallots[b.EventID], id)
			break
		}
	}
	if old, ok := s.ballots[b.ID]; ok && old.EventID != b.EventID {
		s.eventBallots[old.EventID] = removeID(s.eventBallots[old.EventID], b.ID)
		s.eventBallots[b.EventID] = append(s.eventBallots[b.EventID], b.ID)
	} else if !ok {
		s.eventBallots[b.EventID] = append(s.eventBallots[b.EventID], b.ID)
	}
	s.ballots[b.ID] = b
	return nil
}

// Events implements Store.Events.
func (s *MemStore) Events(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.eventCats))
	for id, cats := range s.eventCats {
		if len(cats) > 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Categories implements Store.Categories.
func (s *MemStore) Categories(ctx context.Context, eventID string) ([]model.Category, error) {
	defer observe("categories", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.eventCats[eventID]
	out := make([]model.Category, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneCategory(s.categories[id]))
	}
	return out, nil
}

// Category implements Store.Category.
func (s *MemStore) Category(ctx context.Context, categoryID string) (model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[categoryID]
	if !ok {
		return model.Category{}, ErrNotFound
	}
	return cloneCategory(c), nil
}

// Picks implements Store.Picks.
func (s *MemStore) Picks(ctx context.Context, eventID string) ([]model.BallotPick, error) {
	defer observe("picks", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.BallotPick
	for _, id := range s.eventBallots[eventID] {
		b := s.ballots[id]
		for _, p := range b.Picks {
			out = append(out, model.BallotPick{
				BallotID: b.ID,
				UserID:   b.UserID,
				LeagueID: b.LeagueID,
				EventID:  b.EventID,
				Pick:     p,
			})
		}
	}
	return out, nil
}

// BallotCount implements Store.BallotCount.
func (s *MemStore) BallotCount(ctx context.Context, eventID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.eventBallots[eventID]), nil
}

// Results implements Store.Results.
func (s *MemStore) Results(ctx context.Context, eventID string) ([]model.Result, error) {
	defer observe("results", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Result
	for _, id := range s.eventCats[eventID] {
		if r, ok := s.results[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// CompareAndSetResult implements Store.CompareAndSetResult.
func (s *MemStore) CompareAndSetResult(ctx context.Context, categoryID string, fn func(model.Result, bool) (model.Result, bool)) (model.Result, bool, error) {
	defer observe("compare_and_set_result", time.Now())
	if err := ctx.Err(); err != nil {
		return model.Result{}, false, unavailable("compare and set result", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[categoryID]; !ok {
		return model.Result{}, false, ErrNotFound
	}
	cur, found := s.results[categoryID]
	next, write := fn(cur, found)
	if !write {
		return cur, false, nil
	}
	next.CategoryID = categoryID
	s.results[categoryID] = next
	return next, true, nil
}

// Scores implements Store.Scores.
func (s *MemStore) Scores(ctx context.Context, eventID string) ([]model.Score, error) {
	defer observe("scores", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Score
	for k, row := range s.scores {
		if k.EventID == eventID {
			out = append(out, row)
		}
	}
	sortScores(out)
	return out, nil
}

// WriteScores implements Store.WriteScores.
func (s *MemStore) WriteScores(ctx context.Context, rows []model.Score) error {
	defer observe("write_scores", time.Now())
	if err := ctx.Err(); err != nil {
		return unavailable("write scores", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.scores[row.Key()] = row
	}
	return nil
}

// Standings implements Store.Standings.
func (s *MemStore) Standings(ctx context.Context, eventID, leagueID string, limit int) ([]types.Entry, error) {
	defer observe("standings", time.Now())
	s.mu.RLock()
	var rows []model.Score
	for k, row := range s.scores {
		if k.EventID == eventID && k.LeagueID == leagueID {
			rows = append(rows, row)
		}
	}
	s.mu.RUnlock()
	return rankStandings(rows, limit)
}

// Close implements Store.Close.
func (s *MemStore) Close() error { return nil }

func cloneCategory(c model.Category) model.Category {
	c.Nominees = append([]model.Nominee(nil), c.Nominees...)
	return c
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func sortScores(rows []model.Score) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].LeagueID != rows[j].LeagueID {
			return rows[i].LeagueID < rows[j].LeagueID
		}
		return rows[i].UserID < rows[j].UserID
	})
}
