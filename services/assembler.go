package services

import (
	"errors"
	"fmt"
	"strings"

	"rental-insights/models"
	"rental-insights/utils"
)

const (
	// previousRentFactor is a fixed historical discount assumption, not a measurement.
	previousRentFactor = 0.95
	monthsPerYear      = 12
)

// ErrEmptyCard is returned for cards with no text to extract from.
var ErrEmptyCard = errors.New("empty card text")

// Assembler builds canonical Listings from extracted fields and card metadata.
type Assembler struct {
	extractor *Extractor
	logger    *utils.Logger
}

// NewAssembler creates an Assembler that extracts fields with extractor.
func NewAssembler(extractor *Extractor, logger *utils.Logger) *Assembler {
	return &Assembler{extractor: extractor, logger: logger}
}

// Build runs extraction and assembly for one card. A panic inside either step
// is converted into an error so a single malformed card cannot abort a batch.
func (a *Assembler) Build(card models.RawCard, runDate models.Date) (listing *models.Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			listing, err = nil, fmt.Errorf("assemble card %q: panic: %v", card.URL, r)
		}
	}()

	if strings.TrimSpace(card.Text) == "" {
		return nil, fmt.Errorf("assemble card %q: %w", card.URL, ErrEmptyCard)
	}
	return a.Assemble(a.extractor.Extract(card.Text), card, runDate), nil
}

// Assemble combines extracted fields with card metadata and derives the
// secondary fields. scraped_date is always the run date.
func (a *Assembler) Assemble(fs models.FieldSet, card models.RawCard, runDate models.Date) *models.Listing {
	l := &models.Listing{
		Title:        fs.Title,
		PropertyType: fs.PropertyType,
		Bedrooms:     nonNegative(fs.Bedrooms),
		Bathrooms:    nonNegative(fs.Bathrooms),
		AreaSqft:     fs.AreaSqft,
		Location:     fs.Location,
		Neighborhood: ExtractNeighborhood(fs.Location),
		Building:     ExtractBuilding(fs.Title, fs.Location),
		CurrentRent:  fs.Price,
		Furnishing:   fs.Furnishing,
		ListingDate:  fs.ListingDate,
		ScrapedDate:  runDate,
		URL:          strings.TrimSpace(card.URL),
	}
	if l.PropertyType == "" {
		l.PropertyType = models.PropertyApartment
	}
	if l.Furnishing == "" {
		l.Furnishing = models.FurnishingUnknown
	}

	if l.CurrentRent > 0 {
		prev := l.CurrentRent * previousRentFactor
		annual := l.CurrentRent * monthsPerYear
		l.PreviousRent = &prev
		l.AnnualRent = &annual
	} else {
		l.CurrentRent = 0
		a.logger.Debug("[assembler] No price for %q (%s)", l.Title, l.URL)
	}

	if fs.ListingDate == nil && fs.ListingDateRaw != "" {
		a.logger.Debug("[assembler] Listing date %q left empty", fs.ListingDateRaw)
	}
	return l
}

// ExtractNeighborhood returns the second comma-separated segment of location,
// or the first when there is only one.
func ExtractNeighborhood(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return notAvailable
	}
	parts := strings.Split(location, ",")
	if len(parts) >= 2 {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(parts[0])
}

// ExtractBuilding prefers an "in <Building>" phrase in the title and falls
// back to the first segment of location.
func ExtractBuilding(title, location string) string {
	if m := buildingNameRegexp.FindStringSubmatch(title); len(m) >= 2 {
		if b := strings.TrimSpace(m[1]); b != "" {
			return b
		}
	}
	location = strings.TrimSpace(location)
	if location == "" || location == notAvailable {
		return notAvailable
	}
	return strings.TrimSpace(strings.Split(location, ",")[0])
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
