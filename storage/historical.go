package storage

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"rental-insights/models"
	"rental-insights/utils"
)

var historicalColumns = []string{"neighborhood", "property_type", "bedrooms", "area", "current_rent", "date"}

// HistoricalStore is the append-and-deduplicate time series of observations,
// persisted as a flat CSV file. It is safe for concurrent use within one
// process.
type HistoricalStore struct {
	mu     sync.Mutex
	path   string
	logger *utils.Logger
}

// NewHistoricalStore returns a store backed by the CSV file at path. The file
// is created on the first Append.
func NewHistoricalStore(path string, logger *utils.Logger) *HistoricalStore {
	return &HistoricalStore{path: path, logger: logger}
}

// Load reads every persisted observation. Rows that cannot be parsed are
// skipped and logged.
func (s *HistoricalStore) Load() ([]models.HistoricalObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *HistoricalStore) load() ([]models.HistoricalObservation, error) {
	t, err := readCSV(s.path, historicalColumns)
	if err != nil {
		return nil, fmt.Errorf("historical store: load: %w", err)
	}

	out := make([]models.HistoricalObservation, 0, len(t.rows))
	for i, row := range t.rows {
		o, err := parseObservation(t, row)
		if err != nil {
			s.logger.Warn("[store] Skipping historical row %d: %v", i+2, err)
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// Append projects listings onto observations, merges them after the existing
// contents, deduplicates keeping the last occurrence of each key and persists
// the result. It returns the store's full contents after the update.
//
// A load failure is treated as an empty store: the unreadable file is first
// moved aside to "<path>.corrupt-<timestamp>" so it is not overwritten. A
// write failure is logged. Neither is returned, so the caller always gets the
// in-memory snapshot.
func (s *HistoricalStore) Append(listings []*models.Listing) []models.HistoricalObservation {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil {
		s.logger.Error("[store] %v; starting from an empty store", err)
		existing = nil
		if aside, qerr := quarantine(s.path, time.Now()); qerr != nil {
			s.logger.Error("[store] %v", qerr)
		} else if aside != "" {
			s.logger.Warn("[store] Unreadable historical file kept as %s", aside)
		}
	}

	combined := make([]models.HistoricalObservation, 0, len(existing)+len(listings))
	combined = append(combined, existing...)
	for _, l := range listings {
		combined = append(combined, models.ObservationFromListing(l))
	}

	merged := DedupKeepLast(combined)

	if err := writeCSVAtomic(s.path, historicalColumns, observationRows(merged)); err != nil {
		s.logger.Error("[store] historical store: persist: %v", err)
	} else {
		s.logger.Info("[store] Historical store: %d existing + %d new → %d observations",
			len(existing), len(listings), len(merged))
	}
	return merged
}

// DedupKeepLast drops every observation whose key recurs later in obs. The
// survivors keep their relative order.
func DedupKeepLast(obs []models.HistoricalObservation) []models.HistoricalObservation {
	seen := make(map[models.ObservationKey]struct{}, len(obs))
	out := make([]models.HistoricalObservation, 0, len(obs))
	for i := len(obs) - 1; i >= 0; i-- {
		k := obs[i].Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, obs[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func observationRows(obs []models.HistoricalObservation) [][]string {
	rows := make([][]string, 0, len(obs))
	for _, o := range obs {
		rows = append(rows, []string{
			o.Neighborhood,
			string(o.PropertyType),
			strconv.Itoa(o.Bedrooms),
			formatFloat(o.Area),
			formatFloat(o.CurrentRent),
			o.Date.String(),
		})
	}
	return rows
}

func parseObservation(t *csvTable, row []string) (models.HistoricalObservation, error) {
	o := models.HistoricalObservation{
		Neighborhood: t.get(row, "neighborhood"),
		PropertyType: models.ParsePropertyType(t.get(row, "property_type")),
	}

	var err error
	if o.Bedrooms, err = parseInt(t.get(row, "bedrooms")); err != nil {
		return o, fmt.Errorf("bedrooms: %w", err)
	}
	if o.Area, err = parseFloat(t.get(row, "area")); err != nil {
		return o, fmt.Errorf("area: %w", err)
	}
	if o.CurrentRent, err = parseFloat(t.get(row, "current_rent")); err != nil {
		return o, fmt.Errorf("current_rent: %w", err)
	}
	if o.Date, err = models.ParseDate(t.get(row, "date")); err != nil {
		return o, fmt.Errorf("date: %w", err)
	}
	return o, nil
}
