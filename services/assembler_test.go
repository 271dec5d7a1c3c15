package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-insights/models"
	"rental-insights/utils"
)

var testRunDate = models.NewDate(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))

func newTestAssembler() *Assembler {
	return NewAssembler(newTestExtractor(), utils.NewNopLogger())
}

func TestBuild_RentalCard(t *testing.T) {
	card := models.RawCard{Text: rentalCard, URL: "  https://www.bayut.com/property/details-1.html "}

	l, err := newTestAssembler().Build(card, testRunDate)
	require.NoError(t, err)

	assert.Equal(t, "Dubai Marina, Dubai", l.Title)
	assert.Equal(t, 120000.0, l.CurrentRent)
	require.NotNil(t, l.PreviousRent)
	require.NotNil(t, l.AnnualRent)
	assert.InDelta(t, 114000.0, *l.PreviousRent, 0.001)
	assert.InDelta(t, 1440000.0, *l.AnnualRent, 0.001)
	assert.Equal(t, "Dubai Marina", l.Neighborhood)
	assert.Equal(t, "Marina Gate", l.Building)
	assert.Equal(t, testRunDate, l.ScrapedDate)
	assert.Equal(t, "https://www.bayut.com/property/details-1.html", l.URL)
}

func TestBuild_EmptyCard(t *testing.T) {
	_, err := newTestAssembler().Build(models.RawCard{Text: "  \n"}, testRunDate)
	assert.ErrorIs(t, err, ErrEmptyCard)
}

func TestAssemble_MissingRent(t *testing.T) {
	fs := models.FieldSet{Title: "JVC, Dubai", Location: "N/A", PropertyType: models.PropertyStudio}

	l := newTestAssembler().Assemble(fs, models.RawCard{}, testRunDate)

	assert.Zero(t, l.CurrentRent)
	assert.False(t, l.HasRent())
	assert.Nil(t, l.PreviousRent)
	assert.Nil(t, l.AnnualRent)
	assert.Equal(t, "N/A", l.Neighborhood)
	assert.Equal(t, "N/A", l.Building)
	assert.Equal(t, models.FurnishingUnknown, l.Furnishing)
}

func TestAssemble_ClampsNegativeCounts(t *testing.T) {
	fs := models.FieldSet{Bedrooms: -1, Bathrooms: -2, Price: 5000}

	l := newTestAssembler().Assemble(fs, models.RawCard{}, testRunDate)

	assert.Zero(t, l.Bedrooms)
	assert.Zero(t, l.Bathrooms)
	assert.Equal(t, models.PropertyApartment, l.PropertyType)
}

func TestExtractNeighborhood(t *testing.T) {
	tests := []struct {
		location, want string
	}{
		{"Marina Gate, Dubai Marina, Dubai", "Dubai Marina"},
		{"Business Bay", "Business Bay"},
		{"", "N/A"},
		{"N/A", "N/A"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractNeighborhood(tt.location), tt.location)
	}
}

func TestExtractBuilding(t *testing.T) {
	assert.Equal(t, "Marina Gate Tower", ExtractBuilding("Apartment in Marina Gate Tower, Dubai", "Dubai Marina, Dubai"))
	assert.Equal(t, "Marina Gate", ExtractBuilding("Dubai Marina, Dubai", "Marina Gate, Dubai Marina, Dubai"))
	assert.Equal(t, "N/A", ExtractBuilding("Dubai", "N/A"))
}
