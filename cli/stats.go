package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"rental-insights/services"
	"rental-insights/storage"
)

func newStatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the stored area statistics and last enriched batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := storage.NewAreaStatsTable(appConfig.AreaStatsPath(), appLogger).Load()
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			batch, err := storage.NewJSONFileSink(appConfig.EnrichedPath()).Load()
			if err != nil {
				return err
			}
			services.BuildReport(batch, stats).Print(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the statistics table as JSON")

	return cmd
}
