package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ooi-data/ooi-hyd-tools/internal/wire"
)

func runsCmd(o *overrides) *cobra.Command {
	var (
		refdes string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded day runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, o)
			if err != nil {
				return err
			}
			app := wire.New(cfg)
			defer app.Close()

			repo, err := app.Runs()
			if err != nil {
				return fmt.Errorf("failed to open run repository: %w", err)
			}
			runs, err := repo.ListRuns(cmd.Context(), refdes, limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs found")
				return nil
			}
			fmt.Fprintf(out, "\n%-36s %-28s %-10s %-10s %s\n", "ID", "REFDES", "DAY", "STATUS", "R/D/F")
			fmt.Fprintln(out, "────────────────────────────────────────────────────────────────────────────────────────────────")
			for _, r := range runs {
				rep, dis, fail := r.Counts()
				fmt.Fprintf(out, "%-36s %-28s %-10s %-10s %d/%d/%d\n",
					r.ID, r.RefDes, r.Day.Format(time.DateOnly), r.Status, rep, dis, fail)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&refdes, "refdes", "", "only runs of this reference designator")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to show")
	return cmd
}
