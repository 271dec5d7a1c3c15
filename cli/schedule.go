package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rental-insights/scheduler"
)

func newScheduleCmd() *cobra.Command {
	var spec string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline now and then on a cron schedule",
		Long:  "Run the pipeline immediately, then again on every tick of the schedule until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if spec == "" {
				spec = appConfig.Schedule
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, appConfig, appLogger)
			if err != nil {
				return err
			}
			defer a.Close(appLogger)

			runner := scheduler.New(ctx, appLogger)
			job := scheduler.PipelineJob(a.driver, appLogger)
			if _, err := runner.Add(spec, job); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", spec, err)
			}

			job(ctx)
			runner.Start()
			appLogger.Info("[cli] Scheduled on %q, press Ctrl+C to stop", spec)

			<-ctx.Done()
			runner.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&spec, "every", "", "cron spec or descriptor, e.g. \"@every 4h\" (default: SCHEDULE)")

	return cmd
}
