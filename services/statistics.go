package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"rental-insights/models"
	"rental-insights/utils"
)

const (
	// RecentWindowDays is the span, ending today, that feeds avg_price.
	RecentWindowDays = 30
	// The baseline window runs from BaselineFromDays to BaselineToDays ago.
	BaselineFromDays = 120
	BaselineToDays   = 90
)

// Aggregator recomputes the area statistics table from the full historical
// store on every run. There is no incremental state.
type Aggregator struct {
	logger *utils.Logger
	now    func() time.Time
}

// NewAggregator creates an Aggregator. now defaults to time.Now.
func NewAggregator(logger *utils.Logger, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{logger: logger, now: now}
}

type groupAccumulator struct {
	rentSum   float64
	rentCount int
	areaSum   float64
	areaCount int
}

func (g *groupAccumulator) add(o models.HistoricalObservation) {
	g.rentSum += o.CurrentRent
	g.rentCount++
	if o.Area > 0 {
		g.areaSum += o.Area
		g.areaCount++
	}
}

func (g *groupAccumulator) avgRent() float64 {
	if g == nil || g.rentCount == 0 {
		return 0
	}
	return g.rentSum / float64(g.rentCount)
}

func (g *groupAccumulator) avgArea() float64 {
	if g.areaCount == 0 {
		return 0
	}
	return g.areaSum / float64(g.areaCount)
}

// Recompute builds one AreaStatistic per (neighborhood, property_type,
// bedrooms) group seen in the recent window. Observations without a rent are
// ignored; an empty store yields an empty table.
func (a *Aggregator) Recompute(observations []models.HistoricalObservation) []models.AreaStatistic {
	today := models.NewDate(a.now())
	recentFrom := today.AddDays(-RecentWindowDays)
	baselineFrom := today.AddDays(-BaselineFromDays)
	baselineTo := today.AddDays(-BaselineToDays)

	recent := make(map[models.GroupKey]*groupAccumulator)
	baseline := make(map[models.GroupKey]*groupAccumulator)

	for _, o := range observations {
		if o.CurrentRent <= 0 {
			continue
		}
		switch {
		case within(o.Date, recentFrom, today):
			accumulate(recent, o)
		case within(o.Date, baselineFrom, baselineTo):
			accumulate(baseline, o)
		}
	}

	stats := make([]models.AreaStatistic, 0, len(recent))
	for key, acc := range recent {
		avgPrice := acc.avgRent()

		var perSqft float64
		if meanArea := acc.avgArea(); meanArea > 0 {
			perSqft = avgPrice / meanArea
		}

		var trend float64
		base := baseline[key]
		if baseAvg := base.avgRent(); baseAvg > 0 {
			trend = (avgPrice - baseAvg) / baseAvg * 100
		}

		stat := models.AreaStatistic{
			Neighborhood:    key.Neighborhood,
			PropertyType:    key.PropertyType,
			Bedrooms:        key.Bedrooms,
			AvgPrice:        round2(avgPrice),
			PricePerSqft:    round2(perSqft),
			TrendPercentage: round2(trend),
			Date:            today,
			SampleSize:      acc.rentCount,
		}
		if base != nil {
			stat.BaselineSize = base.rentCount
		}
		stats = append(stats, stat)
	}

	SortStatistics(stats)
	a.logger.Info("[stats] Recomputed %d area groups from %d observations (%d groups with baseline)",
		len(stats), len(observations), countWithTrend(stats))
	return stats
}

func accumulate(groups map[models.GroupKey]*groupAccumulator, o models.HistoricalObservation) {
	acc, ok := groups[o.Group()]
	if !ok {
		acc = &groupAccumulator{}
		groups[o.Group()] = acc
	}
	acc.add(o)
}

// within reports whether d lies in the closed interval [from, to].
func within(d, from, to models.Date) bool {
	return !d.Before(from.Time) && !d.After(to.Time)
}

func countWithTrend(stats []models.AreaStatistic) int {
	n := 0
	for _, s := range stats {
		if s.HasTrend() {
			n++
		}
	}
	return n
}

// SortStatistics orders rows by neighborhood, property type, then bedrooms.
func SortStatistics(stats []models.AreaStatistic) {
	sort.Slice(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if a.Neighborhood != b.Neighborhood {
			return a.Neighborhood < b.Neighborhood
		}
		if a.PropertyType != b.PropertyType {
			return a.PropertyType < b.PropertyType
		}
		return a.Bedrooms < b.Bedrooms
	})
}

func round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}
