package models

import (
	"strings"
	"time"
)

// RawCard is one unprocessed listing card exactly as the fetcher saw it.
// It is consumed once by the extractor and never persisted.
type RawCard struct {
	Text      string    `json:"text"`
	URL       string    `json:"url"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// PropertyType is the normalised property category of a listing.
type PropertyType string

const (
	PropertyApartment PropertyType = "apartment"
	PropertyVilla     PropertyType = "villa"
	PropertyTownhouse PropertyType = "townhouse"
	PropertyStudio    PropertyType = "studio"
	PropertyPenthouse PropertyType = "penthouse"
	PropertyHouse     PropertyType = "house"
)

// ParsePropertyType maps free text onto a PropertyType, defaulting to apartment.
func ParsePropertyType(s string) PropertyType {
	switch t := PropertyType(strings.ToLower(strings.TrimSpace(s))); t {
	case PropertyApartment, PropertyVilla, PropertyTownhouse,
		PropertyStudio, PropertyPenthouse, PropertyHouse:
		return t
	}
	return PropertyApartment
}

// Furnishing describes how a unit is let.
type Furnishing string

const (
	FurnishingFurnished     Furnishing = "furnished"
	FurnishingSemiFurnished Furnishing = "semi-furnished"
	FurnishingUnfurnished   Furnishing = "unfurnished"
	FurnishingUnknown       Furnishing = "unknown"
)

// ListingCategory selects which bedroom/bathroom patterns apply to a card.
type ListingCategory string

const (
	CategoryRental  ListingCategory = "rental"
	CategoryOffPlan ListingCategory = "off-plan"
	CategorySale    ListingCategory = "sale"
)

// FieldSet is the raw output of the field extractor for a single card.
// Unresolved fields hold their sentinel: 0, "N/A", FurnishingUnknown or nil.
type FieldSet struct {
	Category       ListingCategory
	Title          string
	Price          float64
	Location       string
	Bedrooms       int
	Bathrooms      int
	AreaSqft       float64
	PropertyType   PropertyType
	Furnishing     Furnishing
	ListingDate    *Date
	ListingDateRaw string

	// Strategies records which named strategy resolved each cascaded field.
	Strategies map[string]string
}

// Listing is one scraped property observation. A zero CurrentRent means the
// price was not found and must be treated as missing.
type Listing struct {
	Title        string       `json:"title"`
	PropertyType PropertyType `json:"property_type"`
	Bedrooms     int          `json:"bedrooms"`
	Bathrooms    int          `json:"bathrooms"`
	AreaSqft     float64      `json:"area_sqft"`
	Location     string       `json:"location"`
	Neighborhood string       `json:"neighborhood"`
	Building     string       `json:"building"`
	CurrentRent  float64      `json:"current_rent"`
	PreviousRent *float64     `json:"previous_rent"`
	AnnualRent   *float64     `json:"annual_rent"`
	Furnishing   Furnishing   `json:"furnishing"`
	ListingDate  *Date        `json:"listing_date"`
	ScrapedDate  Date         `json:"scraped_date"`

	// URL is kept for sinks that need a natural key; it is not served.
	URL string `json:"-"`
}

// HasRent reports whether a price was extracted for the listing.
func (l *Listing) HasRent() bool {
	return l.CurrentRent > 0
}

// EnrichedListing is a Listing joined with its area statistics and the
// derived investment metrics.
type EnrichedListing struct {
	Listing

	AverageAreaPrice      float64 `json:"average_area_price"`
	AreaPricePerSqft      float64 `json:"area_price_per_sqft"`
	TrendPercentage       float64 `json:"trend_percentage"`
	PredictedROI          float64 `json:"predicted_roi"`
	PriceVsAveragePercent float64 `json:"price_vs_average_percent"`

	// Match is the statistics lookup level that supplied the area fields.
	Match string `json:"-"`
}
