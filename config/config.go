package config

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	SourceURL      string        `env:"SOURCE_URL" envDefault:"https://www.bayut.com/to-rent/property/dubai/"`
	PagesToScrape  int           `env:"PAGES_TO_SCRAPE" envDefault:"3"`
	MaxConcurrency int           `env:"MAX_CONCURRENCY" envDefault:"3"`
	RateLimitMs    int           `env:"RATE_LIMIT_MS" envDefault:"2000"`
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"3"`
	PageTimeout    time.Duration `env:"PAGE_TIMEOUT" envDefault:"90s"`
	ChromeBin      string        `env:"CHROME_BIN"`

	City           string `env:"CITY" envDefault:"Dubai"`
	CurrencyMarker string `env:"CURRENCY_MARKER" envDefault:"AED"`

	DataDir        string `env:"DATA_DIR" envDefault:"./data"`
	HistoricalFile string `env:"HISTORICAL_FILE" envDefault:"historical_data.csv"`
	AreaStatsFile  string `env:"AREA_STATS_FILE" envDefault:"area_statistics.csv"`
	EnrichedFile   string `env:"ENRICHED_FILE" envDefault:"enriched_listings.json"`

	SinkDriver string `env:"SINK_DRIVER"`
	SinkDSN    string `env:"SINK_DSN"`

	Schedule string `env:"SCHEDULE" envDefault:"@every 4h"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogEncoding string `env:"LOG_ENCODING" envDefault:"console"`
}

// Load reads the .env file, if any, and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.PagesToScrape < 0 {
		return fmt.Errorf("config: PAGES_TO_SCRAPE must be >= 0, got %d", c.PagesToScrape)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("config: MAX_CONCURRENCY must be >= 1, got %d", c.MaxConcurrency)
	}
	switch c.SinkDriver {
	case "", "postgres", "sqlite3":
	default:
		return fmt.Errorf("config: unsupported SINK_DRIVER %q", c.SinkDriver)
	}
	if c.SinkDriver != "" && c.SinkDSN == "" {
		return fmt.Errorf("config: SINK_DSN is required when SINK_DRIVER is %q", c.SinkDriver)
	}
	return nil
}

// RateLimit returns the minimum spacing between page fetches.
func (c *Config) RateLimit() time.Duration {
	return time.Duration(c.RateLimitMs) * time.Millisecond
}

func (c *Config) HistoricalPath() string { return filepath.Join(c.DataDir, c.HistoricalFile) }
func (c *Config) AreaStatsPath() string  { return filepath.Join(c.DataDir, c.AreaStatsFile) }
func (c *Config) EnrichedPath() string   { return filepath.Join(c.DataDir, c.EnrichedFile) }
