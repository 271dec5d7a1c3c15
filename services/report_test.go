package services

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-insights/models"
)

func enriched(title string, rent, roi float64) models.EnrichedListing {
	return models.EnrichedListing{
		Listing:      models.Listing{Title: title, CurrentRent: rent},
		PredictedROI: roi,
	}
}

func TestBuildReport(t *testing.T) {
	batch := []models.EnrichedListing{
		enriched("low", 9000, 4.5),
		enriched("unpriced", 0, 0),
		enriched("high", 7000, 5.5),
		enriched("mid", 8000, 5),
	}
	rising := stat("JVC", models.PropertyApartment, 1, 5000, 7, 12.5)
	rising.BaselineSize = 3
	falling := stat("Downtown", models.PropertyApartment, 2, 15000, 14, -4)
	falling.BaselineSize = 2
	flat := stat("Marina", models.PropertyStudio, 0, 4000, 9, 0)

	r := BuildReport(batch, []models.AreaStatistic{falling, rising, flat})

	assert.Equal(t, 4, r.TotalListings)
	assert.Equal(t, 3, r.PricedListings)
	assert.Equal(t, 8000.0, r.AverageRent)
	assert.Equal(t, 3, r.AreaGroups)
	assert.Equal(t, 2, r.GroupsWithTrend)

	require.Len(t, r.TopROI, 3)
	assert.Equal(t, "high", r.TopROI[0].Title)
	assert.Equal(t, "low", r.TopROI[2].Title)

	require.Len(t, r.Rising, 1)
	assert.Equal(t, "JVC", r.Rising[0].Neighborhood)
	require.Len(t, r.Falling, 1)
	assert.Equal(t, "Downtown", r.Falling[0].Neighborhood)
}

func TestMarketReport_Print(t *testing.T) {
	var buf bytes.Buffer
	BuildReport(nil, nil).Print(&buf)

	out := buf.String()
	assert.Contains(t, out, "RENTAL MARKET INSIGHTS")
	assert.Contains(t, out, "No priced listings")
	assert.Contains(t, out, "No statistics yet")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Jumeira...", truncate("Jumeirah Village Circle", 10))
}
