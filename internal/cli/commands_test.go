package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/podium/internal/fixture"
)

const (
	fixturePath = "../fixture/testdata/golden-globes.yaml"
	eventID     = "golden-globes-2025"
)

func sqliteArgs(t *testing.T) []string {
	t.Helper()
	return []string{"--driver", "sqlite", "--dsn", filepath.Join(t.TempDir(), "podium.db")}
}

func run(t *testing.T, db []string, args ...string) string {
	t.Helper()
	out, err := execute(t, append(args, db...)...)
	require.NoError(t, err, out)
	return out
}

func TestSeedIngestStandings(t *testing.T) {
	db := sqliteArgs(t)

	var sum fixture.Summary
	out := run(t, db, "seed", "--fixture", fixturePath, "--format", "json")
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, fixture.Summary{Events: 1, Categories: 3, Ballots: 3}, sum)

	var ingested ingestOutput
	out = run(t, db, "ingest", "--event", eventID, "--fixture", fixturePath, "--format", "json")
	require.NoError(t, json.Unmarshal([]byte(out), &ingested))
	require.Len(t, ingested.Reports, 4)
	matched := 0
	for _, r := range ingested.Reports {
		if r.Resolution.Matched {
			matched++
		}
	}
	assert.Equal(t, 3, matched)
	assert.Equal(t, "category_not_found", string(ingested.Reports[3].Resolution.Reason))

	var standings standingsOutput
	out = run(t, db, "standings", "--event", eventID, "--league", "friends", "--format", "json")
	require.NoError(t, json.Unmarshal([]byte(out), &standings))
	require.Len(t, standings.Entries, 3)
	assert.Equal(t, "ana", standings.Entries[0].UserID)
	assert.Equal(t, 180, standings.Entries[0].TotalPoints)
	assert.Equal(t, "ben", standings.Entries[1].UserID)
	assert.Equal(t, 1, standings.Entries[1].Rank)
	assert.Equal(t, "cleo", standings.Entries[2].UserID)
	assert.Equal(t, 50, standings.Entries[2].TotalPoints)
	assert.Equal(t, 2, standings.Entries[2].Rank)

	out = run(t, db, "standings", "--event", eventID, "--league", "friends", "--limit", "1")
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "ana")
	assert.NotContains(t, out, "cleo")
}

func TestIngestSingleWinner(t *testing.T) {
	db := sqliteArgs(t)
	run(t, db, "seed", "--fixture", fixturePath)

	out := run(t, db, "ingest", "--event", eventID, "--category", "best picture drama", "--winner", "conclave")
	assert.Contains(t, out, "created")
	assert.Contains(t, out, "drama-picture/conclave")

	out = run(t, db, "ingest", "--event", eventID, "--category", "best picture drama", "--winner", "conclave")
	assert.Contains(t, out, "unchanged")

	out = run(t, db, "ingest", "--event", eventID, "--category", "best picture drama", "--winner", "nosferatu")
	assert.Contains(t, out, "unmatched")
	assert.Contains(t, out, "nominee_not_found")
}

func TestIngestSeedInMemory(t *testing.T) {
	out := run(t, []string{"--driver", "memory"},
		"ingest", "--event", eventID, "--fixture", fixturePath, "--seed", "--format", "json")

	var ingested ingestOutput
	require.NoError(t, json.Unmarshal([]byte(out), &ingested))
	require.Len(t, ingested.Reports, 4)
	assert.Positive(t, ingested.Reports[2].Recomputed)
}

func TestRecomputeAndAnalyze(t *testing.T) {
	db := sqliteArgs(t)
	run(t, db, "seed", "--fixture", fixturePath)
	run(t, db, "ingest", "--event", eventID, "--fixture", fixturePath)

	out := run(t, db, "recompute", "--event", eventID)
	assert.Contains(t, out, "event "+eventID)
	assert.Contains(t, out, "0 changed")

	var snap struct {
		EventID string `json:"event_id"`
		Overall struct {
			TotalBallots      int `json:"total_ballots"`
			TotalCorrectPicks int `json:"total_correct_picks"`
		} `json:"overall"`
		Insights []struct {
			Kind string `json:"kind"`
		} `json:"insights"`
	}
	out = run(t, db, "analyze", "--event", eventID, "--format", "json")
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, eventID, snap.EventID)
	assert.Equal(t, 3, snap.Overall.TotalBallots)
	assert.NotEmpty(t, snap.Insights)

	out = run(t, db, "analyze", "--event", eventID)
	assert.Contains(t, out, "3 ballots")
	assert.Contains(t, out, "The Brutalist")
}

func TestAnalyzeUnknownEvent(t *testing.T) {
	_, err := execute(t, "analyze", "--event", "nope", "--driver", "memory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}
