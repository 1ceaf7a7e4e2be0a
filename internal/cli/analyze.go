package cli

import (
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Show pick distribution, power-pick stats and insights",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Event, "event", "e", "", "event id (required)")
	_ = cmd.MarkFlagRequired("event")

	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *EventOptions) error {
	e, err := opts.open(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	snap, err := e.svc.Analyze(cmd.Context(), opts.Event)
	if err != nil {
		return err
	}
	return render(cmd, opts.Format, snap, func(w io.Writer) error {
		o := snap.Overall
		writef(w, "event %s: %s ballots, %s picks, %.1f%% correct\n", snap.EventID,
			humanize.Comma(int64(o.TotalBallots)), humanize.Comma(int64(o.TotalPicks)), o.OverallAccuracy)
		writeln(w)
		writeln(w, "CATEGORY\tPICKS\tPOPULAR\tWINNER\tUPSET")
		for _, c := range snap.Categories {
			popular := "-"
			if c.MostPopularPick != nil {
				popular = c.MostPopularPick.NomineeName
			}
			winner := c.WinnerNomineeName
			if winner == "" {
				winner = "-"
			}
			writef(w, "%s\t%d\t%s\t%s\t%t\n", c.CategoryName, c.TotalPicks, popular, winner, c.Upset)
		}
		if len(snap.Insights) > 0 {
			writeln(w)
			for _, in := range snap.Insights {
				writef(w, "[%s] %s: %s\n", in.Impact, in.Title, in.Message)
			}
		}
		return nil
	})
}
