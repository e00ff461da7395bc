package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ooi-data/ooi-hyd-tools/internal/wire"
)

func discoverCmd(o *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "discover REFDES DATE",
		Short: "List the interval files of an instrument-day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			refdes, day, err := parseDayArgs(args[0], args[1])
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, o)
			if err != nil {
				return err
			}
			app := wire.New(cfg)

			intervals, err := app.Reconstructor.Discover(cmd.Context(), refdes, day)
			if err != nil {
				return fmt.Errorf("failed to discover intervals: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(intervals) == 0 {
				fmt.Fprintf(out, "No data available for %s on %s\n", refdes, args[1])
				return nil
			}
			fmt.Fprintf(out, "\n%-5s %-9s %s\n", "#", "START", "URL")
			fmt.Fprintln(out, "────────────────────────────────────────────────────────────────")
			for _, iv := range intervals {
				fmt.Fprintf(out, "%-5d %-9s %s\n", iv.Index, iv.Start.Format(time.TimeOnly), iv.URL)
			}
			fmt.Fprintf(out, "\n%d intervals\n", len(intervals))
			return nil
		},
	}
}
