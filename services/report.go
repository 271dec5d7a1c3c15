package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"rental-insights/models"
)

// MarketReport summarises one pipeline run for the console.
type MarketReport struct {
	TotalListings   int
	PricedListings  int
	AverageRent     float64
	AreaGroups      int
	GroupsWithTrend int
	TopROI          []models.EnrichedListing
	Rising          []models.AreaStatistic
	Falling         []models.AreaStatistic
	Stats           []models.AreaStatistic
}

// BuildReport derives the console summary from an enriched batch and the
// current statistics table.
func BuildReport(batch []models.EnrichedListing, stats []models.AreaStatistic) *MarketReport {
	r := &MarketReport{TotalListings: len(batch), AreaGroups: len(stats), Stats: stats}

	var total float64
	priced := make([]models.EnrichedListing, 0, len(batch))
	for _, l := range batch {
		if l.HasRent() {
			total += l.CurrentRent
			priced = append(priced, l)
		}
	}
	r.PricedListings = len(priced)
	if len(priced) > 0 {
		r.AverageRent = round2(total / float64(len(priced)))
	}

	sort.SliceStable(priced, func(i, j int) bool {
		return priced[i].PredictedROI > priced[j].PredictedROI
	})
	r.TopROI = firstN(priced, 5)

	var withTrend []models.AreaStatistic
	for _, s := range stats {
		if s.HasTrend() {
			withTrend = append(withTrend, s)
		}
	}
	r.GroupsWithTrend = len(withTrend)

	sort.SliceStable(withTrend, func(i, j int) bool {
		return withTrend[i].TrendPercentage > withTrend[j].TrendPercentage
	})
	for _, s := range withTrend {
		switch {
		case s.TrendPercentage > 0 && len(r.Rising) < 4:
			r.Rising = append(r.Rising, s)
		case s.TrendPercentage < 0:
			r.Falling = append(r.Falling, s)
		}
	}
	// Falling was collected mildest first.
	for i, j := 0, len(r.Falling)-1; i < j; i, j = i+1, j-1 {
		r.Falling[i], r.Falling[j] = r.Falling[j], r.Falling[i]
	}
	r.Falling = firstN(r.Falling, 4)

	return r
}

// Print writes the report to w.
func (r *MarketReport) Print(w io.Writer) {
	sep := strings.Repeat("═", 64)
	thin := strings.Repeat("─", 64)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  RENTAL MARKET INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Listings this run      : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Listings with a price  : \033[1m%d\033[0m\n", r.PricedListings)
	if r.AverageRent > 0 {
		fmt.Fprintf(w, "  Average rent           : \033[1;32m%.2f\033[0m\n", r.AverageRent)
	}
	fmt.Fprintf(w, "  Area groups            : \033[1m%d\033[0m (%d with trend data)\n", r.AreaGroups, r.GroupsWithTrend)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Top Predicted ROI\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopROI) == 0 {
		fmt.Fprintf(w, "  No priced listings\n")
	}
	for i, l := range r.TopROI {
		fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%6.2f%%\033[0m  (%+.2f%% vs area)\n",
			i+1, truncate(l.Title, 38), l.PredictedROI, l.PriceVsAveragePercent)
	}
	fmt.Fprintln(w)

	printTrendSection(w, thin, "Rising Areas", "↑", r.Rising)
	printTrendSection(w, thin, "Falling Areas", "↓", r.Falling)

	fmt.Fprintf(w, "\033[1;33m  Area Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Stats) == 0 {
		fmt.Fprintf(w, "  No statistics yet\n")
	} else {
		fmt.Fprintf(w, "  %-24s %-10s %3s %12s %9s %8s\n", "Neighborhood", "Type", "BR", "Avg price", "Per sqft", "Trend")
		for _, s := range r.Stats {
			trend := "n/a"
			if s.HasTrend() {
				trend = fmt.Sprintf("%+.2f%%", s.TrendPercentage)
			}
			fmt.Fprintf(w, "  %-24s %-10s %3d %12.2f %9.2f %8s\n",
				truncate(s.Neighborhood, 24), s.PropertyType, s.Bedrooms, s.AvgPrice, s.PricePerSqft, trend)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func printTrendSection(w io.Writer, thin, heading, arrow string, rows []models.AreaStatistic) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", heading)
	fmt.Fprintf(w, "  %s\n", thin)
	for _, s := range rows {
		label := fmt.Sprintf("%s %dBR %s", s.Neighborhood, s.Bedrooms, s.PropertyType)
		fmt.Fprintf(w, "  %s %-44s %+.2f%%\n", arrow, truncate(label, 44), s.TrendPercentage)
	}
	fmt.Fprintln(w)
}

func firstN[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
