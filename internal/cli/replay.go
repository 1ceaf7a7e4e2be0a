package cli

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/okian/podium/internal/domain/matcher"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/internal/fixture"
	"github.com/okian/podium/pkg/logger"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	URL     string
	Fixture string
	Workers int
	Timeout time.Duration
	Limit   int
}

// ReplayStats counts what happened to the submitted announcements.
type ReplayStats struct {
	Submitted int           `json:"submitted"`
	Recorded  int           `json:"recorded"`
	Unchanged int           `json:"unchanged"`
	Unmatched int           `json:"unmatched"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// LeagueStandings is the ranking fetched for one league after a replay.
type LeagueStandings struct {
	EventID  string        `json:"event_id"`
	LeagueID string        `json:"league_id"`
	Entries  []types.Entry `json:"entries"`
}

type replayOutput struct {
	Stats     ReplayStats       `json:"stats"`
	Standings []LeagueStandings `json:"standings"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Post a fixture's winners to a running server",
		Long: `Submit every winner of a fixture to a running podium server with a pool
of concurrent workers, then fetch the standings of every league that has a
ballot in the fixture.

Announcements with the same category text go to the same worker so
corrections keep their file order.`,
		Example: `  podiumctl replay --url http://localhost:9080 --fixture globes.yaml --workers 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "http://localhost:9080", "server base URL")
	cmd.Flags().StringVarP(&opts.Fixture, "fixture", "f", "", "fixture file (required)")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 4, "concurrent submitters")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "per-request timeout")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "maximum standings entries per league")
	_ = cmd.MarkFlagRequired("fixture")

	return cmd
}

func runReplay(cmd *cobra.Command, opts *ReplayOptions) error {
	ctx := cmd.Context()
	if opts.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", opts.Workers)
	}
	f, err := fixture.Load(opts.Fixture)
	if err != nil {
		return err
	}

	level := "warn"
	if opts.Verbose {
		level = "debug"
	}
	if err := logger.InitWith(cmd.ErrOrStderr(), "text"); err != nil {
		return err
	}
	_ = logger.SetLevelString(level)
	log := logger.Get().Named("replay")

	client := newAPIClient(opts.URL, opts.Timeout)
	if err := client.Ready(ctx); err != nil {
		return fmt.Errorf("server not ready: %w", err)
	}

	start := time.Now()
	stats := submitWinners(ctx, client, f.Winners, opts.Workers, log)
	stats.Duration = time.Since(start)

	out := replayOutput{Stats: stats}
	for _, key := range leagues(f.Ballots) {
		entries, err := client.Standings(ctx, key.event, key.league, opts.Limit)
		if err != nil {
			return fmt.Errorf("standings %s/%s: %w", key.event, key.league, err)
		}
		out.Standings = append(out.Standings, LeagueStandings{EventID: key.event, LeagueID: key.league, Entries: entries})
	}

	if err := render(cmd, opts.Format, out, func(w io.Writer) error {
		writef(w, "submitted %s winners in %s: %d recorded, %d unchanged, %d unmatched, %d failed\n",
			humanize.Comma(int64(stats.Submitted)), stats.Duration.Round(time.Millisecond),
			stats.Recorded, stats.Unchanged, stats.Unmatched, stats.Failed)
		for _, s := range out.Standings {
			writeln(w)
			writef(w, "%s / %s\n", s.EventID, s.LeagueID)
			writeStandings(w, s.Entries)
		}
		return nil
	}); err != nil {
		return err
	}

	if stats.Failed > 0 {
		return errors.New(humanize.Comma(int64(stats.Failed)) + " winners failed to submit")
	}
	return nil
}

// submitWinners posts winners through a fixed pool of workers. Winners are
// sharded by normalized category text.
func submitWinners(ctx context.Context, client *apiClient, winners []fixture.Winner, workers int, log logger.Logger) ReplayStats {
	var recorded, unchanged, unmatched, failed, submitted int64

	shards := make([]chan fixture.Winner, workers)
	var wg sync.WaitGroup
	for i := range shards {
		shards[i] = make(chan fixture.Winner, 8)
		wg.Add(1)
		go func(in <-chan fixture.Winner) {
			defer wg.Done()
			for w := range in {
				report, err := client.PostWinner(ctx, w.EventID, w.Candidate())
				atomic.AddInt64(&submitted, 1)
				switch {
				case err != nil:
					atomic.AddInt64(&failed, 1)
					log.Warn(ctx, "winner submission failed",
						logger.String("event_id", w.EventID),
						logger.String("category", w.Category),
						logger.Error(err))
				case !report.Resolution.Matched:
					atomic.AddInt64(&unmatched, 1)
					log.Debug(ctx, "winner unmatched",
						logger.String("category", w.Category),
						logger.String("reason", string(report.Resolution.Reason)))
				case report.Outcome.Changed():
					atomic.AddInt64(&recorded, 1)
				default:
					atomic.AddInt64(&unchanged, 1)
				}
			}
		}(shards[i])
	}

feed:
	for _, w := range winners {
		select {
		case <-ctx.Done():
			break feed
		case shards[shard(w, workers)] <- w:
		}
	}
	for _, ch := range shards {
		close(ch)
	}
	wg.Wait()

	return ReplayStats{
		Submitted: int(submitted),
		Recorded:  int(recorded),
		Unchanged: int(unchanged),
		Unmatched: int(unmatched),
		Failed:    int(failed),
	}
}

func shard(w fixture.Winner, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(w.EventID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(matcher.Normalize(w.Category)))
	return int(h.Sum32() % uint32(n))
}

type leagueKey struct {
	event  string
	league string
}

// leagues lists the distinct (event, league) pairs of ballots, sorted.
func leagues(ballots []model.Ballot) []leagueKey {
	seen := make(map[leagueKey]struct{})
	var keys []leagueKey
	for _, b := range ballots {
		k := leagueKey{event: b.EventID, league: b.LeagueID}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].event != keys[j].event {
			return keys[i].event < keys[j].event
		}
		return keys[i].league < keys[j].league
	})
	return keys
}
