package cli

import (
	"context"
	"runtime"

	"rental-insights/config"
	"rental-insights/pipeline"
	"rental-insights/scraper"
	"rental-insights/scraper/bayut"
	"rental-insights/services"
	"rental-insights/storage"
	"rental-insights/utils"
)

// app bundles a wired driver with the stores it writes, so commands can read
// them back.
type app struct {
	driver *pipeline.Driver
	latest *pipeline.Latest
	store  *storage.HistoricalStore
	table  *storage.AreaStatsTable
	json   *storage.JSONFileSink
	sql    *storage.SQLWriter
	sinks  []storage.BatchSink
}

// buildApp wires the pipeline from cfg. The SQL sink is only opened when
// SINK_DRIVER is set.
func buildApp(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*app, error) {
	a := &app{
		latest: pipeline.NewLatest(),
		store:  storage.NewHistoricalStore(cfg.HistoricalPath(), logger),
		table:  storage.NewAreaStatsTable(cfg.AreaStatsPath(), logger),
		json:   storage.NewJSONFileSink(cfg.EnrichedPath()),
	}
	a.sinks = []storage.BatchSink{a.json}

	if cfg.SinkDriver != "" {
		w, err := storage.NewSQLWriter(ctx, cfg.SinkDriver, cfg.SinkDSN, logger)
		if err != nil {
			return nil, err
		}
		a.sql = w
		a.sinks = append(a.sinks, w)
	}

	extractor := services.NewExtractor(logger, cfg.CurrencyMarker, cfg.City)
	a.driver = pipeline.New(pipeline.Config{
		Fetcher:      newFetcher(cfg, logger),
		Parser:       services.NewAssembler(extractor, logger),
		Store:        a.store,
		Stats:        a.table,
		Sinks:        a.sinks,
		Latest:       a.latest,
		Logger:       logger,
		MaxPages:     cfg.PagesToScrape,
		ParseWorkers: runtime.NumCPU(),
	})
	return a, nil
}

func newFetcher(cfg *config.Config, logger *utils.Logger) scraper.CardFetcher {
	if flagCardsFile != "" {
		logger.Info("[cli] Reading cards from %s", flagCardsFile)
		return scraper.NewFileFetcher(flagCardsFile, nil)
	}
	return bayut.New(cfg, logger)
}

func (a *app) Close(logger *utils.Logger) {
	for _, s := range a.sinks {
		if err := s.Close(); err != nil {
			logger.Warn("[cli] Closing sink: %v", err)
		}
	}
}

// seedLatest loads the last persisted batch and statistics table so readers
// have data before the first run finishes. The JSON file is preferred; the
// SQL sink is consulted when the file is empty.
func (a *app) seedLatest(ctx context.Context, logger *utils.Logger) {
	listings, err := a.json.Load()
	if err != nil {
		logger.Warn("[cli] Could not read last enriched batch: %v", err)
	}
	if len(listings) == 0 && a.sql != nil {
		if listings, err = a.sql.FetchLatest(ctx); err != nil {
			logger.Warn("[cli] Could not read last batch from database: %v", err)
		}
	}

	stats, err := a.table.Load()
	if err != nil {
		logger.Warn("[cli] Could not read area statistics: %v", err)
	}

	a.latest.Seed("", listings, stats)
	logger.Info("[cli] Seeded %d listings and %d statistics rows from disk", len(listings), len(stats))
}
