package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-insights/models"
	"rental-insights/utils"
)

func fixedClock() time.Time {
	return time.Date(2025, 6, 15, 13, 45, 0, 0, time.UTC)
}

func obs(neighborhood string, pt models.PropertyType, beds int, area, rent float64, daysAgo int) models.HistoricalObservation {
	return models.HistoricalObservation{
		Neighborhood: neighborhood,
		PropertyType: pt,
		Bedrooms:     beds,
		Area:         area,
		CurrentRent:  rent,
		Date:         models.NewDate(fixedClock()).AddDays(-daysAgo),
	}
}

func TestRecompute_TrendAgainstBaseline(t *testing.T) {
	a := NewAggregator(utils.NewNopLogger(), fixedClock)

	stats := a.Recompute([]models.HistoricalObservation{
		obs("Dubai Marina", models.PropertyApartment, 2, 1000, 10000, 0),
		obs("Dubai Marina", models.PropertyApartment, 2, 1000, 10000, 10),
		obs("Dubai Marina", models.PropertyApartment, 2, 900, 9000, 100),
	})

	require.Len(t, stats, 1)
	s := stats[0]
	assert.Equal(t, 10000.0, s.AvgPrice)
	assert.Equal(t, 10.0, s.PricePerSqft)
	assert.Equal(t, 11.11, s.TrendPercentage)
	assert.True(t, s.HasTrend())
	assert.Equal(t, 2, s.SampleSize)
	assert.Equal(t, 1, s.BaselineSize)
	assert.Equal(t, "2025-06-15", s.Date.String())
}

func TestRecompute_NoBaselineIsZeroTrend(t *testing.T) {
	a := NewAggregator(utils.NewNopLogger(), fixedClock)

	stats := a.Recompute([]models.HistoricalObservation{
		obs("JVC", models.PropertyStudio, 0, 450, 4000, 1),
	})

	require.Len(t, stats, 1)
	assert.Zero(t, stats[0].TrendPercentage)
	assert.Zero(t, stats[0].BaselineSize)
	assert.False(t, stats[0].HasTrend())
}

func TestRecompute_WindowBoundaries(t *testing.T) {
	a := NewAggregator(utils.NewNopLogger(), fixedClock)

	stats := a.Recompute([]models.HistoricalObservation{
		obs("Downtown", models.PropertyApartment, 1, 800, 8000, 30),  // recent, inclusive
		obs("Downtown", models.PropertyApartment, 1, 800, 99999, 31), // gap
		obs("Downtown", models.PropertyApartment, 1, 800, 99999, 60), // gap
		obs("Downtown", models.PropertyApartment, 1, 800, 6000, 90),  // baseline, inclusive
		obs("Downtown", models.PropertyApartment, 1, 800, 10000, 120),
		obs("Downtown", models.PropertyApartment, 1, 800, 99999, 121), // too old
	})

	require.Len(t, stats, 1)
	assert.Equal(t, 8000.0, stats[0].AvgPrice)
	assert.Equal(t, 2, stats[0].BaselineSize)
	assert.Zero(t, stats[0].TrendPercentage) // baseline avg is 8000 too
}

func TestRecompute_SkipsUnpricedAndUnknownArea(t *testing.T) {
	a := NewAggregator(utils.NewNopLogger(), fixedClock)

	stats := a.Recompute([]models.HistoricalObservation{
		obs("Business Bay", models.PropertyApartment, 1, 0, 9000, 2),
		obs("Business Bay", models.PropertyApartment, 1, 900, 7000, 3),
		obs("Business Bay", models.PropertyApartment, 1, 900, 0, 4),
	})

	require.Len(t, stats, 1)
	assert.Equal(t, 8000.0, stats[0].AvgPrice)
	assert.Equal(t, 8.89, stats[0].PricePerSqft)
	assert.Equal(t, 2, stats[0].SampleSize)
}

func TestRecompute_BaselineOnlyGroupOmitted(t *testing.T) {
	a := NewAggregator(utils.NewNopLogger(), fixedClock)

	stats := a.Recompute([]models.HistoricalObservation{
		obs("Al Barsha", models.PropertyVilla, 4, 3000, 20000, 100),
	})
	assert.Empty(t, stats)
}

func TestRecompute_EmptyStore(t *testing.T) {
	a := NewAggregator(utils.NewNopLogger(), fixedClock)
	assert.Empty(t, a.Recompute(nil))
}

func TestRecompute_SortedGroups(t *testing.T) {
	a := NewAggregator(utils.NewNopLogger(), fixedClock)

	stats := a.Recompute([]models.HistoricalObservation{
		obs("JVC", models.PropertyApartment, 2, 1000, 7000, 1),
		obs("Downtown", models.PropertyVilla, 3, 3000, 30000, 1),
		obs("Downtown", models.PropertyApartment, 2, 1000, 12000, 1),
		obs("Downtown", models.PropertyApartment, 1, 700, 9000, 1),
	})

	require.Len(t, stats, 4)
	got := make([]models.GroupKey, len(stats))
	for i, s := range stats {
		got[i] = s.Group()
	}
	assert.Equal(t, []models.GroupKey{
		{Neighborhood: "Downtown", PropertyType: models.PropertyApartment, Bedrooms: 1},
		{Neighborhood: "Downtown", PropertyType: models.PropertyApartment, Bedrooms: 2},
		{Neighborhood: "Downtown", PropertyType: models.PropertyVilla, Bedrooms: 3},
		{Neighborhood: "JVC", PropertyType: models.PropertyApartment, Bedrooms: 2},
	}, got)
}
