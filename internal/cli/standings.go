package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/okian/podium/internal/domain/types"
)

// StandingsOptions holds flags for the standings command.
type StandingsOptions struct {
	*RootOptions
	Event  string
	League string
	Limit  int
}

type standingsOutput struct {
	EventID  string        `json:"event_id"`
	LeagueID string        `json:"league_id"`
	Entries  []types.Entry `json:"entries"`
}

// NewStandingsCommand creates the standings command.
func NewStandingsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StandingsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "standings",
		Short: "Print a league's ranking",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStandings(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Event, "event", "e", "", "event id (required)")
	cmd.Flags().StringVarP(&opts.League, "league", "l", "", "league id (required)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "maximum entries (0 for the default)")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("league")

	return cmd
}

func runStandings(cmd *cobra.Command, opts *StandingsOptions) error {
	e, err := opts.open(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	entries, err := e.svc.Standings(cmd.Context(), opts.Event, opts.League, opts.Limit)
	if err != nil {
		return err
	}
	out := standingsOutput{EventID: opts.Event, LeagueID: opts.League, Entries: entries}
	return render(cmd, opts.Format, out, func(w io.Writer) error {
		writeStandings(w, entries)
		return nil
	})
}

func writeStandings(w io.Writer, entries []types.Entry) {
	writeln(w, "RANK\tUSER\tPOINTS\tCORRECT\tPOWER")
	for _, e := range entries {
		writef(w, "%d\t%s\t%d\t%d\t%d\n", e.Rank, e.UserID, e.TotalPoints, e.CorrectPicks, e.PowerPicksHit)
	}
}
