package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
)

func rangeCmd(o *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "range REFDES FROM TO",
		Short: "Reconstruct every day between two dates, inclusive",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			refdes, from, err := parseDayArgs(args[0], args[1])
			if err != nil {
				return err
			}
			to, err := domain.ParseDay(args[2])
			if err != nil {
				return err
			}
			app, params, err := setup(cmd, o)
			if err != nil {
				return err
			}
			defer app.Close()

			pipeline, err := app.Pipeline()
			if err != nil {
				return fmt.Errorf("failed to open run repository: %w", err)
			}

			reports, err := pipeline.RunRange(cmd.Context(), refdes, from, to, params)
			out := cmd.OutOrStdout()
			for _, r := range reports {
				printReport(out, r, false)
			}
			printMetrics(out, app.Metrics.Snapshot())
			return err
		},
	}
}
