package pipeline

import (
	"sync"

	"rental-insights/models"
)

// Latest holds the most recent enriched batch and statistics table for
// readers such as the HTTP API. It is safe for concurrent use.
type Latest struct {
	mu       sync.RWMutex
	runID    string
	listings []models.EnrichedListing
	stats    []models.AreaStatistic
}

func NewLatest() *Latest {
	return &Latest{
		listings: []models.EnrichedListing{},
		stats:    []models.AreaStatistic{},
	}
}

// Set publishes the output of a finished run.
func (l *Latest) Set(r *Result) {
	l.Seed(r.RunID, r.Batch, r.Stats)
}

// Seed publishes listings and stats directly, e.g. from persisted files at
// startup. Nil slices are stored as empty ones.
func (l *Latest) Seed(runID string, listings []models.EnrichedListing, stats []models.AreaStatistic) {
	if listings == nil {
		listings = []models.EnrichedListing{}
	}
	if stats == nil {
		stats = []models.AreaStatistic{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.runID, l.listings, l.stats = runID, listings, stats
}

// RunID is the ID of the run that produced the current data, or "" when the
// data was seeded from disk.
func (l *Latest) RunID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.runID
}

func (l *Latest) Listings() []models.EnrichedListing {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.listings
}

func (l *Latest) Stats() []models.AreaStatistic {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}
