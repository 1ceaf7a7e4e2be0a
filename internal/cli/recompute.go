package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// EventOptions holds flags shared by per-event commands.
type EventOptions struct {
	*RootOptions
	Event string
}

// NewRecomputeCommand creates the recompute command.
func NewRecomputeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild an event's scores from its ballots and results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecompute(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Event, "event", "e", "", "event id (required)")
	_ = cmd.MarkFlagRequired("event")

	return cmd
}

func runRecompute(cmd *cobra.Command, opts *EventOptions) error {
	e, err := opts.open(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	report, err := e.svc.Recompute(cmd.Context(), opts.Event)
	if err != nil {
		return err
	}
	return render(cmd, opts.Format, report, func(w io.Writer) error {
		writef(w, "event %s: %d rows written, %d changed in %s\n",
			report.EventID, report.Rows, report.Changed, report.Duration)
		if len(report.Skipped) > 0 {
			writef(w, "%d picks skipped\n", len(report.Skipped))
		}
		return nil
	})
}
