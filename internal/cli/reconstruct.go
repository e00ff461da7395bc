package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
)

func reconstructCmd(o *overrides) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "reconstruct REFDES DATE",
		Short: "Repair every interval of an instrument-day",
		Long: `Reconstruct fetches and repairs every 5 minute interval of the day, retrying
the whole day when intervals fail to fetch or decode.

Examples:
  hydday reconstruct CE04OSBP-LJ01C-11-HYDBBA105 2025/01/16
  hydday reconstruct CE04OSBP-LJ01C-11-HYDBBA105 2025/01/16 --wav --out data`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			refdes, day, err := parseDayArgs(args[0], args[1])
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

			report, err := pipeline.RunDay(cmd.Context(), refdes, day, params)
			if report.Run.ID != "" {
				printReport(cmd.OutOrStdout(), report, !quiet)
			}
			if errors.Is(err, domain.ErrDayFailed) {
				return fmt.Errorf("%s %s: %d intervals failed", refdes, args[1], len(report.Result.Failures()))
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print totals only")
	return cmd
}
