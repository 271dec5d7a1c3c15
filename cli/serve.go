package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rental-insights/api"
	"rental-insights/scheduler"
)

func newServeCmd() *cobra.Command {
	var (
		addr       string
		noSchedule bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest listings and statistics over HTTP",
		Long: "Start the JSON API. The last persisted batch is served until a run finishes; " +
			"runs are scheduled on SCHEDULE and can be triggered with POST /runs.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = appConfig.HTTPAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, appConfig, appLogger)
			if err != nil {
				return err
			}
			defer a.Close(appLogger)
			a.seedLatest(ctx, appLogger)

			if !noSchedule && appConfig.Schedule != "" {
				runner := scheduler.New(ctx, appLogger)
				if _, err := runner.Add(appConfig.Schedule, scheduler.PipelineJob(a.driver, appLogger)); err != nil {
					return fmt.Errorf("invalid schedule %q: %w", appConfig.Schedule, err)
				}
				runner.Start()
				defer runner.Stop()
			}

			srv := api.NewServer(ctx, a.latest, a.driver, appLogger)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: HTTP_ADDR)")
	cmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "only serve; runs happen via POST /runs")

	return cmd
}
