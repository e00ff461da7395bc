package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/ooi-data/ooi-hyd-tools/internal/adapters/localfs"
	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
	"github.com/ooi-data/ooi-hyd-tools/internal/watch"
)

func watchCmd(o *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reconstruct days as they land in a local archive mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, params, err := setup(cmd, o)
			if err != nil {
				return err
			}
			defer app.Close()

			root := app.Config.Archive.Root
			if !localfs.IsLocal(root) {
				return fmt.Errorf("watch needs a local mirror, got archive root %s", root)
			}
			pipeline, err := app.Pipeline()
			if err != nil {
				return fmt.Errorf("failed to open run repository: %w", err)
			}

			out := cmd.OutOrStdout()
			w := watch.New(watch.Options{
				Root:      root,
				Extension: app.Config.Archive.Extension,
				Quiet:     app.Config.WatchQuiet,
			}, func(ctx context.Context, refdes domain.RefDes, day time.Time) {
				report, err := pipeline.RunDay(ctx, refdes, day, params)
				if err != nil {
					log.Printf("ERROR watch: refdes=%s day=%s: %v", refdes, day.Format(domain.DayLayout), err)
				}
				if report.Run.ID != "" {
					printReport(out, report, false)
				}
			})

			ctx := cmd.Context()
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("failed to watch %s: %w", root, err)
			}
			<-ctx.Done()
			return nil
		},
	}
}
