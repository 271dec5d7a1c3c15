package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.PagesToScrape)
	assert.Equal(t, "Dubai", cfg.City)
	assert.Equal(t, "AED", cfg.CurrencyMarker)
	assert.Equal(t, "@every 4h", cfg.Schedule)
	assert.Equal(t, 2*time.Second, cfg.RateLimit())
	assert.Equal(t, filepath.Join("data", "historical_data.csv"), cfg.HistoricalPath())
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PAGES_TO_SCRAPE", "7")
	t.Setenv("DATA_DIR", "/var/lib/rent")
	t.Setenv("SINK_DRIVER", "sqlite3")
	t.Setenv("SINK_DSN", "file:rent.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.PagesToScrape)
	assert.Equal(t, "/var/lib/rent/area_statistics.csv", cfg.AreaStatsPath())
	assert.Equal(t, "sqlite3", cfg.SinkDriver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{MaxConcurrency: 1}, false},
		{"negative pages", Config{PagesToScrape: -1, MaxConcurrency: 1}, true},
		{"zero concurrency", Config{}, true},
		{"unknown driver", Config{MaxConcurrency: 1, SinkDriver: "mysql", SinkDSN: "x"}, true},
		{"driver without dsn", Config{MaxConcurrency: 1, SinkDriver: "postgres"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
