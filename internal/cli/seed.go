package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/okian/podium/internal/fixture"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Fixture string
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load categories and ballots from a fixture file",
		Long: `Store every category, nominee and ballot of a YAML fixture.

Seeding is idempotent: a user's ballot for a league of an event replaces any
earlier one.`,
		Example: `  podiumctl seed --fixture globes.yaml --driver sqlite --dsn podium.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Fixture, "fixture", "f", "", "fixture file (required)")
	_ = cmd.MarkFlagRequired("fixture")

	return cmd
}

func runSeed(cmd *cobra.Command, opts *SeedOptions) error {
	f, err := fixture.Load(opts.Fixture)
	if err != nil {
		return err
	}
	e, err := opts.open(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	sum, err := fixture.Apply(cmd.Context(), e.svc, f)
	if err != nil {
		return err
	}
	return render(cmd, opts.Format, sum, func(w io.Writer) error {
		writef(w, "seeded %d events, %d categories, %d ballots\n", sum.Events, sum.Categories, sum.Ballots)
		return nil
	})
}
