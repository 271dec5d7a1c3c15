package storage

import (
	"fmt"
	"strconv"
	"sync"

	"rental-insights/models"
	"rental-insights/utils"
)

var areaStatsColumns = []string{
	"neighborhood", "property_type", "bedrooms", "avg_price", "price_per_sqft", "trend_percentage", "date",
}

// AreaStatsTable persists the area statistics snapshot as a CSV file. Every
// Replace overwrites the previous snapshot entirely.
type AreaStatsTable struct {
	mu     sync.RWMutex
	path   string
	logger *utils.Logger
}

// NewAreaStatsTable returns a table backed by the CSV file at path.
func NewAreaStatsTable(path string, logger *utils.Logger) *AreaStatsTable {
	return &AreaStatsTable{path: path, logger: logger}
}

// Replace writes stats as the new snapshot.
func (t *AreaStatsTable) Replace(stats []models.AreaStatistic) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Neighborhood,
			string(s.PropertyType),
			strconv.Itoa(s.Bedrooms),
			formatFloat(s.AvgPrice),
			formatFloat(s.PricePerSqft),
			formatFloat(s.TrendPercentage),
			s.Date.String(),
		})
	}
	if err := writeCSVAtomic(t.path, areaStatsColumns, rows); err != nil {
		return fmt.Errorf("area stats: replace: %w", err)
	}
	t.logger.Info("[store] Area statistics: wrote %d rows to %s", len(stats), t.path)
	return nil
}

// Load reads the current snapshot. A missing file is an empty table.
func (t *AreaStatsTable) Load() ([]models.AreaStatistic, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tbl, err := readCSV(t.path, areaStatsColumns)
	if err != nil {
		return nil, fmt.Errorf("area stats: load: %w", err)
	}

	out := make([]models.AreaStatistic, 0, len(tbl.rows))
	for i, row := range tbl.rows {
		s, err := parseAreaStatistic(tbl, row)
		if err != nil {
			t.logger.Warn("[store] Skipping area statistics row %d: %v", i+2, err)
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func parseAreaStatistic(t *csvTable, row []string) (models.AreaStatistic, error) {
	s := models.AreaStatistic{
		Neighborhood: t.get(row, "neighborhood"),
		PropertyType: models.ParsePropertyType(t.get(row, "property_type")),
	}

	var err error
	if s.Bedrooms, err = parseInt(t.get(row, "bedrooms")); err != nil {
		return s, fmt.Errorf("bedrooms: %w", err)
	}
	if s.AvgPrice, err = parseFloat(t.get(row, "avg_price")); err != nil {
		return s, fmt.Errorf("avg_price: %w", err)
	}
	if s.PricePerSqft, err = parseFloat(t.get(row, "price_per_sqft")); err != nil {
		return s, fmt.Errorf("price_per_sqft: %w", err)
	}
	if s.TrendPercentage, err = parseFloat(t.get(row, "trend_percentage")); err != nil {
		return s, fmt.Errorf("trend_percentage: %w", err)
	}
	if s.Date, err = models.ParseDate(t.get(row, "date")); err != nil {
		return s, fmt.Errorf("date: %w", err)
	}
	return s, nil
}
