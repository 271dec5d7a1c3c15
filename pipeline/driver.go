package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rental-insights/models"
	"rental-insights/scraper"
	"rental-insights/services"
	"rental-insights/storage"
	"rental-insights/utils"
)

var (
	// ErrStageFailed wraps a failure inside AGGREGATED or ENRICHED. The run
	// produces an empty batch when it is returned.
	ErrStageFailed = errors.New("pipeline stage failed")

	// ErrRunInProgress is returned when a run is requested while another is
	// still executing.
	ErrRunInProgress = errors.New("pipeline run already in progress")
)

// CardParser turns one raw card into a Listing.
type CardParser interface {
	Build(card models.RawCard, runDate models.Date) (*models.Listing, error)
}

// StatsComputer recomputes the area statistics table from the full store.
type StatsComputer interface {
	Recompute(obs []models.HistoricalObservation) []models.AreaStatistic
}

// ListingEnricher joins listings with area statistics.
type ListingEnricher interface {
	Enrich(listings []*models.Listing, stats []models.AreaStatistic) []models.EnrichedListing
}

// Config wires a Driver. Fetcher, Parser, Store and Stats are required;
// Aggregator and Enricher default to the services implementations.
type Config struct {
	Fetcher    scraper.CardFetcher
	Parser     CardParser
	Store      storage.ObservationStore
	Stats      storage.StatisticsTable
	Aggregator StatsComputer
	Enricher   ListingEnricher
	Sinks      []storage.BatchSink
	Latest     *Latest
	Logger     *utils.Logger
	Clock      func() time.Time

	MaxPages     int
	ParseWorkers int
}

// Result is the outcome of one run.
type Result struct {
	RunID        string
	RunDate      models.Date
	Cards        int
	Dropped      int
	Observations int
	Batch        []models.EnrichedListing
	Stats        []models.AreaStatistic
	Duration     time.Duration
}

// Driver runs the pipeline FETCHED → PARSED → AGGREGATED → ENRICHED → OUTPUT.
// At most one run executes at a time.
type Driver struct {
	cfg     Config
	running sync.Mutex
}

func New(cfg Config) *Driver {
	if cfg.Logger == nil {
		cfg.Logger = utils.NewNopLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Aggregator == nil {
		cfg.Aggregator = services.NewAggregator(cfg.Logger, cfg.Clock)
	}
	if cfg.Enricher == nil {
		cfg.Enricher = services.NewEnricher(cfg.Logger)
	}
	if cfg.ParseWorkers < 1 {
		cfg.ParseWorkers = 1
	}
	return &Driver{cfg: cfg}
}

// Run executes one pipeline pass and blocks until it finishes. It returns
// ErrRunInProgress without doing anything if another run holds the driver.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	if !d.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer d.running.Unlock()
	return d.run(ctx)
}

// Go starts a run in the background and reports whether it did. done, if not
// nil, receives the outcome.
func (d *Driver) Go(ctx context.Context, done func(*Result, error)) bool {
	if !d.running.TryLock() {
		return false
	}
	go func() {
		res, err := func() (*Result, error) {
			defer d.running.Unlock()
			return d.run(ctx)
		}()
		if done != nil {
			done(res, err)
		}
	}()
	return true
}

func (d *Driver) run(ctx context.Context) (*Result, error) {
	rc := newRunContext(d.cfg.Clock, d.cfg.Logger)
	res := &Result{RunID: rc.ID, RunDate: rc.RunDate, Batch: []models.EnrichedListing{}}
	rc.Logger.Info("[pipeline] Run %s started for %s", rc.ID, rc.RunDate)

	// ── FETCHED ──
	cards, err := d.cfg.Fetcher.FetchCards(ctx, d.cfg.MaxPages)
	if err != nil {
		if ctx.Err() != nil {
			return res, fmt.Errorf("pipeline: fetch: %w", err)
		}
		rc.Logger.Error("[pipeline] Fetch reported an error, continuing with %d cards: %v", len(cards), err)
	}
	res.Cards = len(cards)
	rc.advance(StateFetched, len(cards))

	// ── PARSED ──
	listings, dropped := d.parse(ctx, rc, cards)
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("pipeline: parse: %w", err)
	}
	res.Dropped = dropped
	rc.advance(StateParsed, len(listings))

	obs := d.cfg.Store.Append(listings)
	res.Observations = len(obs)

	// ── AGGREGATED ──
	var stats []models.AreaStatistic
	if err := guard("aggregate", func() { stats = d.cfg.Aggregator.Recompute(obs) }); err != nil {
		rc.Logger.Error("[pipeline] %v", err)
		return res, err
	}
	if err := d.cfg.Stats.Replace(stats); err != nil {
		rc.Logger.Error("[pipeline] %v", err)
	}
	res.Stats = stats
	rc.advance(StateAggregated, len(stats))

	// ── ENRICHED ──
	var batch []models.EnrichedListing
	if err := guard("enrich", func() { batch = d.cfg.Enricher.Enrich(listings, stats) }); err != nil {
		rc.Logger.Error("[pipeline] %v", err)
		res.Stats = nil
		return res, err
	}
	rc.advance(StateEnriched, len(batch))

	// ── OUTPUT ──
	res.Batch = batch
	for _, sink := range d.cfg.Sinks {
		if err := sink.Write(ctx, batch); err != nil {
			rc.Logger.Error("[pipeline] Sink %T: %v", sink, err)
		}
	}
	if d.cfg.Latest != nil {
		d.cfg.Latest.Set(res)
	}
	res.Duration = rc.Elapsed()
	rc.advance(StateOutput, len(batch))

	rc.Logger.Info("[pipeline] Run %s finished: %d cards → %d listings (%d dropped) → %d groups in %s",
		rc.ID, res.Cards, len(batch), res.Dropped, len(stats), res.Duration.Round(time.Millisecond))
	return res, nil
}

// parse builds listings on a bounded pool. Output order follows card order;
// cards that fail are logged and dropped.
func (d *Driver) parse(ctx context.Context, rc *RunContext, cards []models.RawCard) ([]*models.Listing, int) {
	built := make([]*models.Listing, len(cards))
	pool := utils.NewWorkerPool(d.cfg.ParseWorkers, 0)

	for i, card := range cards {
		ok := pool.Submit(ctx, func() {
			l, err := d.cfg.Parser.Build(card, rc.RunDate)
			if err != nil {
				rc.Logger.Warn("[pipeline] Dropping card %d: %v", i, err)
				return
			}
			built[i] = l
		})
		if !ok {
			break
		}
	}
	pool.Wait()

	listings := make([]*models.Listing, 0, len(built))
	for _, l := range built {
		if l != nil {
			listings = append(listings, l)
		}
	}
	return listings, len(cards) - len(listings)
}

// guard runs fn and converts a panic into an ErrStageFailed error.
func guard(stage string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrStageFailed, stage, r)
		}
	}()
	fn()
	return nil
}
