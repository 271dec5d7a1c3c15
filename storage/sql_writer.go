package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"rental-insights/models"
	"rental-insights/utils"
)

// Supported SQL drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

const (
	insertBatchSize = 50
	pingAttempts    = 10
	pingInterval    = 2 * time.Second
)

var enrichedColumns = []string{
	"listing_key", "url", "title", "property_type", "bedrooms", "bathrooms", "area_sqft",
	"location", "neighborhood", "building", "current_rent", "previous_rent", "annual_rent",
	"furnishing", "listing_date", "scraped_date", "average_area_price", "area_price_per_sqft",
	"trend_percentage", "predicted_roi", "price_vs_average_percent",
}

// SQLWriter persists enriched batches to PostgreSQL or SQLite. A listing is
// stored once per scrape date; re-running the same day keeps the first copy.
type SQLWriter struct {
	db     *sql.DB
	driver string
	logger *utils.Logger
}

// NewSQLWriter opens a connection, waits for the database to answer, runs
// schema migrations and returns a ready-to-use SQLWriter.
func NewSQLWriter(ctx context.Context, driver, dsn string, logger *utils.Logger) (*SQLWriter, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("sql sink: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql sink: open: %w", err)
	}
	if driver == DriverSQLite {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	}

	for i := 0; i < pingAttempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		logger.Warn("[sql] Ping %d/%d failed: %v", i+1, pingAttempts, err)
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("sql sink: ping: %w", ctx.Err())
		case <-time.After(pingInterval):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sql sink: ping failed after retries: %w", err)
	}

	w := &SQLWriter{db: db, driver: driver, logger: logger}
	if err := w.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sql sink: migrate: %w", err)
	}
	return w, nil
}

func (w *SQLWriter) migrate(ctx context.Context) error {
	id := "id SERIAL PRIMARY KEY"
	if w.driver == DriverSQLite {
		id = "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS enriched_listings (
			` + id + `,
			listing_key              TEXT          NOT NULL,
			url                      TEXT          NOT NULL DEFAULT '',
			title                    TEXT          NOT NULL DEFAULT '',
			property_type            VARCHAR(20)   NOT NULL,
			bedrooms                 INTEGER       NOT NULL DEFAULT 0,
			bathrooms                INTEGER       NOT NULL DEFAULT 0,
			area_sqft                NUMERIC(12,2) NOT NULL DEFAULT 0,
			location                 TEXT          NOT NULL DEFAULT '',
			neighborhood             TEXT          NOT NULL DEFAULT '',
			building                 TEXT          NOT NULL DEFAULT '',
			current_rent             NUMERIC(14,2) NOT NULL DEFAULT 0,
			previous_rent            NUMERIC(14,2),
			annual_rent              NUMERIC(14,2),
			furnishing               VARCHAR(20)   NOT NULL DEFAULT 'unknown',
			listing_date             VARCHAR(10),
			scraped_date             VARCHAR(10)   NOT NULL,
			average_area_price       NUMERIC(14,2) NOT NULL DEFAULT 0,
			area_price_per_sqft      NUMERIC(12,2) NOT NULL DEFAULT 0,
			trend_percentage         NUMERIC(8,2)  NOT NULL DEFAULT 0,
			predicted_roi            NUMERIC(8,2)  NOT NULL DEFAULT 0,
			price_vs_average_percent NUMERIC(8,2)  NOT NULL DEFAULT 0,
			created_at               TIMESTAMP     NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (listing_key, scraped_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_enriched_scraped_date ON enriched_listings(scraped_date)`,
		`CREATE INDEX IF NOT EXISTS idx_enriched_neighborhood ON enriched_listings(neighborhood)`,
		`CREATE INDEX IF NOT EXISTS idx_enriched_roi          ON enriched_listings(predicted_roi)`,
	}
	for _, stmt := range stmts {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Write batch-inserts the enriched listings in a single transaction.
func (w *SQLWriter) Write(ctx context.Context, batch []models.EnrichedListing) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sql sink: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var inserted int64
	for i := 0; i < len(batch); i += insertBatchSize {
		end := min(i+insertBatchSize, len(batch))
		n, err := w.insertBatch(ctx, tx, batch[i:end])
		if err != nil {
			return fmt.Errorf("sql sink: insert: %w", err)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sql sink: commit: %w", err)
	}
	w.logger.Info("[sql] Stored %d of %d listings (%d already present)",
		inserted, len(batch), int64(len(batch))-inserted)
	return nil
}

func (w *SQLWriter) placeholder(n int) string {
	if w.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (w *SQLWriter) insertBatch(ctx context.Context, tx *sql.Tx, batch []models.EnrichedListing) (int64, error) {
	cols := len(enrichedColumns)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*cols)

	for idx, l := range batch {
		ph := make([]string, cols)
		for c := range ph {
			ph[c] = w.placeholder(idx*cols + c + 1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")

		var listingDate any
		if l.ListingDate != nil {
			listingDate = l.ListingDate.String()
		}
		valueArgs = append(valueArgs,
			ListingKey(&l.Listing), l.URL, l.Title, string(l.PropertyType), l.Bedrooms, l.Bathrooms, l.AreaSqft,
			l.Location, l.Neighborhood, l.Building, l.CurrentRent, l.PreviousRent, l.AnnualRent,
			string(l.Furnishing), listingDate, l.ScrapedDate.String(), l.AverageAreaPrice, l.AreaPricePerSqft,
			l.TrendPercentage, l.PredictedROI, l.PriceVsAveragePercent,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO enriched_listings (%s)
		VALUES %s
		ON CONFLICT (listing_key, scraped_date) DO NOTHING
	`, strings.Join(enrichedColumns, ", "), strings.Join(valueStrings, ","))

	res, err := tx.ExecContext(ctx, query, valueArgs...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListingKey is the natural key of a listing in the SQL sink: its URL, or a
// feature fingerprint when the card carried none.
func ListingKey(l *models.Listing) string {
	if l.URL != "" {
		return l.URL
	}
	return fmt.Sprintf("%s|%s|%s|%d|%s|%s",
		l.Title, l.Neighborhood, l.PropertyType, l.Bedrooms,
		formatFloat(l.AreaSqft), formatFloat(l.CurrentRent))
}

func (w *SQLWriter) Close() error {
	return w.db.Close()
}

// FetchLatest retrieves the listings of the most recent scrape date, used to
// warm the API after a restart.
func (w *SQLWriter) FetchLatest(ctx context.Context) ([]models.EnrichedListing, error) {
	const query = `
		SELECT url, title, property_type, bedrooms, bathrooms, area_sqft, location, neighborhood,
		       building, current_rent, previous_rent, annual_rent, furnishing, listing_date,
		       scraped_date, average_area_price, area_price_per_sqft, trend_percentage,
		       predicted_roi, price_vs_average_percent
		FROM enriched_listings
		WHERE scraped_date = (SELECT MAX(scraped_date) FROM enriched_listings)
		ORDER BY id
	`
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sql sink: fetch latest: %w", err)
	}
	defer rows.Close()

	var out []models.EnrichedListing
	for rows.Next() {
		var (
			l                     models.EnrichedListing
			propertyType, furnish string
			previous, annual      sql.NullFloat64
			listingDate           sql.NullString
			scrapedDate           string
		)
		if err := rows.Scan(
			&l.URL, &l.Title, &propertyType, &l.Bedrooms, &l.Bathrooms, &l.AreaSqft, &l.Location,
			&l.Neighborhood, &l.Building, &l.CurrentRent, &previous, &annual, &furnish, &listingDate,
			&scrapedDate, &l.AverageAreaPrice, &l.AreaPricePerSqft, &l.TrendPercentage,
			&l.PredictedROI, &l.PriceVsAveragePercent,
		); err != nil {
			return nil, fmt.Errorf("sql sink: scan row: %w", err)
		}

		l.PropertyType = models.ParsePropertyType(propertyType)
		l.Furnishing = models.Furnishing(furnish)
		if previous.Valid {
			l.PreviousRent = &previous.Float64
		}
		if annual.Valid {
			l.AnnualRent = &annual.Float64
		}
		if listingDate.Valid && listingDate.String != "" {
			if d, err := models.ParseDate(listingDate.String); err == nil {
				l.ListingDate = &d
			}
		}
		if l.ScrapedDate, err = models.ParseDate(scrapedDate); err != nil {
			return nil, fmt.Errorf("sql sink: scan row: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
