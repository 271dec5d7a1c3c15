// Package cli defines the cobra command tree for rental-insights.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"rental-insights/config"
	"rental-insights/utils"
)

var (
	flagPages     int
	flagCardsFile string
	flagDataDir   string
	flagLogLevel  string

	appConfig *config.Config
	appLogger *utils.Logger
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rental-insights",
		Short: "Scrape rental listings and compute area market statistics",
		Long: "Scrapes rental listing cards, extracts structured listings, maintains a " +
			"historical store and per-area statistics, and enriches every listing with " +
			"market comparisons and a predicted ROI.",
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
	}

	root.PersistentFlags().IntVar(&flagPages, "pages", 0, "number of result pages to fetch (default: PAGES_TO_SCRAPE)")
	root.PersistentFlags().StringVar(&flagCardsFile, "cards-file", "", "read listing cards from a JSON file instead of the browser")
	root.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "directory for the CSV and JSON outputs (default: DATA_DIR)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (default: LOG_LEVEL)")

	root.AddCommand(
		newRunCmd(),
		newScheduleCmd(),
		newServeCmd(),
		newStatsCmd(),
		newExtractCmd(),
	)

	return root
}

// setup loads configuration, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("pages") {
		cfg.PagesToScrape = flagPages
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = flagDataDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	appConfig, appLogger = cfg, logger
	return nil
}

func teardown(*cobra.Command, []string) error {
	if appLogger != nil {
		appLogger.Sync()
	}
	return nil
}
