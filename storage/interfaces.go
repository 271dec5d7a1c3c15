package storage

import (
	"context"

	"rental-insights/models"
)

// BatchSink is the interface any output backend for the enriched batch must satisfy.
type BatchSink interface {
	Write(ctx context.Context, batch []models.EnrichedListing) error
	Close() error
}

// ObservationStore is the durable historical time series.
type ObservationStore interface {
	Load() ([]models.HistoricalObservation, error)
	Append(listings []*models.Listing) []models.HistoricalObservation
}

// StatisticsTable holds the latest area statistics snapshot.
type StatisticsTable interface {
	Replace(stats []models.AreaStatistic) error
	Load() ([]models.AreaStatistic, error)
}
