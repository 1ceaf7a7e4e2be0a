// Package fixture loads catalog, ballot and winner data from YAML files
// for seeding stores and replaying award nights.
package fixture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/okian/podium/internal/domain/model"
)

// ErrInvalidFixture marks a fixture that fails validation.
var ErrInvalidFixture = errors.New("invalid fixture")

// Fixture is the file layout: events with their categories, ballots and
// the winners to replay.
type Fixture struct {
	Events  []Event        `yaml:"events"`
	Ballots []model.Ballot `yaml:"ballots"`
	Winners []Winner       `yaml:"winners"`
}

// Event groups the categories of one award event.
type Event struct {
	ID         string           `yaml:"id"`
	Categories []model.Category `yaml:"categories"`
}

// Winner is an announcement for one event.
type Winner struct {
	EventID  string `yaml:"event_id"`
	Category string `yaml:"category"`
	Winner   string `yaml:"winner"`
}

// Candidate returns the free-text candidate of the announcement.
func (w Winner) Candidate() model.WinnerCandidate {
	return model.WinnerCandidate{CategoryText: w.Category, WinnerText: w.Winner}
}

// Load reads and parses a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture, rejecting unknown fields, then fills in implied
// identifiers and validates every category and ballot. Ballots without an
// id get one derived from their (event, league, user) key, so parsing the
// same file twice yields the same ids.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	for i := range f.Events {
		ev := &f.Events[i]
		if ev.ID == "" {
			return nil, fmt.Errorf("%w: event %d has no id", ErrInvalidFixture, i)
		}
		for j := range ev.Categories {
			c := &ev.Categories[j]
			if c.EventID == "" {
				c.EventID = ev.ID
			}
			for k := range c.Nominees {
				if c.Nominees[k].CategoryID == "" {
					c.Nominees[k].CategoryID = c.ID
				}
			}
			if err := c.Validate(); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
			}
		}
	}
	for i := range f.Ballots {
		b := &f.Ballots[i]
		if b.ID == "" {
			b.ID = BallotID(b.EventID, b.LeagueID, b.UserID)
		}
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
		}
	}
	for i, w := range f.Winners {
		if w.EventID == "" || w.Category == "" || w.Winner == "" {
			return nil, fmt.Errorf("%w: winner %d needs event_id, category and winner", ErrInvalidFixture, i)
		}
	}
	return &f, nil
}

// BallotID returns the stable id of a user's ballot in one league of an event.
func BallotID(eventID, leagueID, userID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(eventID+"/"+leagueID+"/"+userID)).String()
}

// Sink receives catalog and ballot data.
type Sink interface {
	SaveCategory(ctx context.Context, c model.Category) error
	SaveBallot(ctx context.Context, b model.Ballot) error
}

// Summary counts what Apply stored.
type Summary struct {
	Events     int `json:"events"`
	Categories int `json:"categories"`
	Ballots    int `json:"ballots"`
}

// Apply stores every category and ballot of f. It stops at the first error.
func Apply(ctx context.Context, sink Sink, f *Fixture) (Summary, error) {
	var sum Summary
	for _, ev := range f.Events {
		for _, c := range ev.Categories {
			if err := sink.SaveCategory(ctx, c); err != nil {
				return sum, fmt.Errorf("save category %s: %w", c.ID, err)
			}
			sum.Categories++
		}
		sum.Events++
	}
	for _, b := range f.Ballots {
		if err := sink.SaveBallot(ctx, b); err != nil {
			return sum, fmt.Errorf("save ballot %s: %w", b.ID, err)
		}
		sum.Ballots++
	}
	return sum, nil
}

// WinnersFor returns the announcements of one event in file order.
func (f *Fixture) WinnersFor(eventID string) []model.WinnerCandidate {
	var out []model.WinnerCandidate
	for _, w := range f.Winners {
		if w.EventID == eventID {
			out = append(out, w.Candidate())
		}
	}
	return out
}

// EventIDs lists the fixture's events in file order.
func (f *Fixture) EventIDs() []string {
	ids := make([]string, 0, len(f.Events))
	for _, ev := range f.Events {
		ids = append(ids, ev.ID)
	}
	return ids
}
