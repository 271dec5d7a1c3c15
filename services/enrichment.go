package services

import (
	"rental-insights/models"
	"rental-insights/utils"
)

// priceToRentRatios is the assumed number of years of rent that equal a
// property's purchase price.
var priceToRentRatios = map[models.PropertyType]float64{
	models.PropertyApartment: 20,
	models.PropertyVilla:     25,
	models.PropertyTownhouse: 22,
	models.PropertyStudio:    18,
	models.PropertyPenthouse: 28,
}

const (
	defaultPriceToRentRatio = 22

	belowMarketThreshold = 0.9
	aboveMarketThreshold = 1.1
	belowMarketBoost     = 1.10
	aboveMarketPenalty   = 0.90
)

// Match levels recorded on enriched listings.
const (
	MatchExact            = "exact"
	MatchNeighborhoodType = "neighborhood+type"
	MatchType             = "type"
	MatchNone             = "none"
)

// PriceToRentRatio returns the ratio for pt, or the default for unknown types.
func PriceToRentRatio(pt models.PropertyType) float64 {
	if r, ok := priceToRentRatios[pt]; ok {
		return r
	}
	return defaultPriceToRentRatio
}

type neighborhoodType struct {
	neighborhood string
	propertyType models.PropertyType
}

// areaMatch is the statistics a listing is compared against.
type areaMatch struct {
	level        string
	avgPrice     float64
	pricePerSqft float64
	trend        float64
}

// statsIndex answers the three lookup levels used by enrichment.
type statsIndex struct {
	exact   map[models.GroupKey]models.AreaStatistic
	byNType map[neighborhoodType][]models.AreaStatistic
	byType  map[models.PropertyType][]models.AreaStatistic
}

func newStatsIndex(stats []models.AreaStatistic) *statsIndex {
	idx := &statsIndex{
		exact:   make(map[models.GroupKey]models.AreaStatistic, len(stats)),
		byNType: make(map[neighborhoodType][]models.AreaStatistic),
		byType:  make(map[models.PropertyType][]models.AreaStatistic),
	}
	for _, s := range stats {
		idx.exact[s.Group()] = s
		nt := neighborhoodType{s.Neighborhood, s.PropertyType}
		idx.byNType[nt] = append(idx.byNType[nt], s)
		idx.byType[s.PropertyType] = append(idx.byType[s.PropertyType], s)
	}
	return idx
}

// lookup applies the precedence exact > neighborhood+type > type > none.
// Fallback levels average the matching rows.
func (idx *statsIndex) lookup(l *models.Listing) areaMatch {
	key := models.GroupKey{Neighborhood: l.Neighborhood, PropertyType: l.PropertyType, Bedrooms: l.Bedrooms}
	if s, ok := idx.exact[key]; ok {
		return areaMatch{level: MatchExact, avgPrice: s.AvgPrice, pricePerSqft: s.PricePerSqft, trend: s.TrendPercentage}
	}
	if rows := idx.byNType[neighborhoodType{l.Neighborhood, l.PropertyType}]; len(rows) > 0 {
		return averageMatch(MatchNeighborhoodType, rows)
	}
	if rows := idx.byType[l.PropertyType]; len(rows) > 0 {
		return averageMatch(MatchType, rows)
	}
	return areaMatch{level: MatchNone}
}

func averageMatch(level string, rows []models.AreaStatistic) areaMatch {
	m := areaMatch{level: level}
	for _, s := range rows {
		m.avgPrice += s.AvgPrice
		m.pricePerSqft += s.PricePerSqft
		m.trend += s.TrendPercentage
	}
	n := float64(len(rows))
	m.avgPrice = round2(m.avgPrice / n)
	m.pricePerSqft = round2(m.pricePerSqft / n)
	m.trend = round2(m.trend / n)
	return m
}

// Enricher joins listings with area statistics and derives investment metrics.
type Enricher struct {
	logger *utils.Logger
}

// NewEnricher returns an Enricher that reports per-run match levels to logger.
func NewEnricher(logger *utils.Logger) *Enricher {
	return &Enricher{logger: logger}
}

// Enrich returns one EnrichedListing per input listing, in input order.
func (e *Enricher) Enrich(listings []*models.Listing, stats []models.AreaStatistic) []models.EnrichedListing {
	idx := newStatsIndex(stats)
	out := make([]models.EnrichedListing, 0, len(listings))
	levels := make(map[string]int)

	for _, l := range listings {
		m := idx.lookup(l)
		levels[m.level]++

		out = append(out, models.EnrichedListing{
			Listing:               *l,
			AverageAreaPrice:      m.avgPrice,
			AreaPricePerSqft:      m.pricePerSqft,
			TrendPercentage:       m.trend,
			PredictedROI:          PredictROI(l, m.avgPrice),
			PriceVsAveragePercent: PriceVsAverage(l.CurrentRent, m.avgPrice),
			Match:                 m.level,
		})
	}

	e.logger.Info("[enrich] Enriched %d listings (exact %d | neighborhood+type %d | type %d | none %d)",
		len(out), levels[MatchExact], levels[MatchNeighborhoodType], levels[MatchType], levels[MatchNone])
	return out
}

// PredictROI computes (annual_rent / (annual_rent × ratio)) × 100, adjusted
// by ±10% when the listing is priced outside 90–110% of its area average.
// The rent cancels out, so before adjustment the ROI is 100/ratio per type.
func PredictROI(l *models.Listing, avgAreaPrice float64) float64 {
	if !l.HasRent() || l.AnnualRent == nil || *l.AnnualRent <= 0 {
		return 0
	}

	annual := *l.AnnualRent
	estimatedValue := annual * PriceToRentRatio(l.PropertyType)
	roi := annual / estimatedValue * 100

	if avgAreaPrice > 0 {
		switch ratio := l.CurrentRent / avgAreaPrice; {
		case ratio < belowMarketThreshold:
			roi *= belowMarketBoost
		case ratio > aboveMarketThreshold:
			roi *= aboveMarketPenalty
		}
	}
	return round2(roi)
}

// PriceVsAverage is the listing's deviation from the area average in percent.
// It is 0 when either side is unknown.
func PriceVsAverage(currentRent, avgAreaPrice float64) float64 {
	if avgAreaPrice <= 0 || currentRent <= 0 {
		return 0
	}
	return round2((currentRent - avgAreaPrice) / avgAreaPrice * 100)
}
