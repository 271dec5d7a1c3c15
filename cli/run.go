package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rental-insights/services"
)

func newRunCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and print the market report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, appConfig, appLogger)
			if err != nil {
				return err
			}
			defer a.Close(appLogger)

			res, err := a.driver.Run(ctx)
			if err != nil {
				return fmt.Errorf("pipeline run: %w", err)
			}

			appLogger.Info("[cli] Run %s finished in %s: %d cards, %d listings, %d statistics rows",
				res.RunID, res.Duration.Round(time.Millisecond), res.Cards, len(res.Batch), len(res.Stats))
			if !quiet {
				services.BuildReport(res.Batch, res.Stats).Print(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "skip the market report")

	return cmd
}
