package models

// ObservationKey is the dedup identity of a historical observation.
type ObservationKey struct {
	Neighborhood string
	PropertyType PropertyType
	Bedrooms     int
	Area         float64
	CurrentRent  float64
}

// GroupKey identifies one area statistics group.
type GroupKey struct {
	Neighborhood string
	PropertyType PropertyType
	Bedrooms     int
}

// HistoricalObservation is the aggregation-relevant projection of a Listing.
type HistoricalObservation struct {
	Neighborhood string
	PropertyType PropertyType
	Bedrooms     int
	Area         float64
	CurrentRent  float64
	Date         Date
}

// ObservationFromListing projects a listing onto the historical columns.
func ObservationFromListing(l *Listing) HistoricalObservation {
	return HistoricalObservation{
		Neighborhood: l.Neighborhood,
		PropertyType: l.PropertyType,
		Bedrooms:     l.Bedrooms,
		Area:         l.AreaSqft,
		CurrentRent:  l.CurrentRent,
		Date:         l.ScrapedDate,
	}
}

func (o HistoricalObservation) Key() ObservationKey {
	return ObservationKey{
		Neighborhood: o.Neighborhood,
		PropertyType: o.PropertyType,
		Bedrooms:     o.Bedrooms,
		Area:         o.Area,
		CurrentRent:  o.CurrentRent,
	}
}

func (o HistoricalObservation) Group() GroupKey {
	return GroupKey{Neighborhood: o.Neighborhood, PropertyType: o.PropertyType, Bedrooms: o.Bedrooms}
}

// AreaStatistic is one row of the area statistics table. TrendPercentage is
// exactly 0 when the group has no baseline-window observations; BaselineSize
// tells that case apart from a measured flat trend.
type AreaStatistic struct {
	Neighborhood    string       `json:"neighborhood"`
	PropertyType    PropertyType `json:"property_type"`
	Bedrooms        int          `json:"bedrooms"`
	AvgPrice        float64      `json:"avg_price"`
	PricePerSqft    float64      `json:"price_per_sqft"`
	TrendPercentage float64      `json:"trend_percentage"`
	Date            Date         `json:"date"`

	SampleSize   int `json:"-"`
	BaselineSize int `json:"-"`
}

func (s AreaStatistic) Group() GroupKey {
	return GroupKey{Neighborhood: s.Neighborhood, PropertyType: s.PropertyType, Bedrooms: s.Bedrooms}
}

// HasTrend reports whether TrendPercentage was measured against a baseline.
// Rows loaded from disk carry no BaselineSize, so a non-zero trend counts too.
func (s AreaStatistic) HasTrend() bool {
	return s.BaselineSize > 0 || s.TrendPercentage != 0
}
