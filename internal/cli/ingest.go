package cli

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/fixture"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Event    string
	Fixture  string
	Seed     bool
	Category string
	Winner   string
}

// ingestOutput is the result of one ingest run.
type ingestOutput struct {
	EventID string                 `json:"event_id"`
	Reports []service.IngestReport `json:"reports"`
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Record announced winners and recompute scores",
		Long: `Match free-text winner announcements against an event's catalog, record
the ones that resolve and recompute the event's scores.

Announcements come either from the winners of a fixture file or from a
single --category/--winner pair. Unmatched announcements are reported,
not treated as failures.`,
		Example: `  podiumctl ingest --event golden-globes-2025 --category "best picture drama" --winner "the brutalist"
  podiumctl ingest --event golden-globes-2025 --fixture globes.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Event, "event", "e", "", "event id (required)")
	cmd.Flags().StringVarP(&opts.Fixture, "fixture", "f", "", "take winners from this fixture")
	cmd.Flags().BoolVar(&opts.Seed, "seed", false, "store the fixture's catalog and ballots first")
	cmd.Flags().StringVar(&opts.Category, "category", "", "announced category text")
	cmd.Flags().StringVar(&opts.Winner, "winner", "", "announced winner text")
	_ = cmd.MarkFlagRequired("event")

	return cmd
}

func runIngest(cmd *cobra.Command, opts *IngestOptions) error {
	ctx := cmd.Context()

	var (
		f          *fixture.Fixture
		candidates []model.WinnerCandidate
		err        error
	)
	switch {
	case opts.Fixture != "":
		if f, err = fixture.Load(opts.Fixture); err != nil {
			return err
		}
		candidates = f.WinnersFor(opts.Event)
	case opts.Category != "" || opts.Winner != "":
		candidates = []model.WinnerCandidate{{CategoryText: opts.Category, WinnerText: opts.Winner}}
	default:
		return errors.New("either --fixture or --category and --winner is required")
	}
	if opts.Seed && f == nil {
		return errors.New("--seed requires --fixture")
	}

	e, err := opts.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	if opts.Seed {
		if _, err := fixture.Apply(ctx, e.svc, f); err != nil {
			return err
		}
	}

	out := ingestOutput{EventID: opts.Event}
	if len(candidates) > 0 {
		if out.Reports, err = e.svc.IngestWinners(ctx, opts.Event, candidates); err != nil {
			return err
		}
	}

	return render(cmd, opts.Format, out, func(w io.Writer) error {
		writeln(w, "CATEGORY\tWINNER\tOUTCOME\tDETAIL")
		for _, r := range out.Reports {
			detail := r.Resolution.CategoryID + "/" + r.Resolution.NomineeID
			outcome := string(r.Outcome)
			if !r.Resolution.Matched {
				outcome = "unmatched"
				detail = string(r.Resolution.Reason)
			}
			if r.Error != "" {
				detail = r.Error
			}
			writef(w, "%s\t%s\t%s\t%s\n", r.Candidate.CategoryText, r.Candidate.WinnerText, outcome, detail)
		}
		return nil
	})
}
