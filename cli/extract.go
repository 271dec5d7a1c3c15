package cli

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"rental-insights/models"
	"rental-insights/scraper"
	"rental-insights/services"
)

// extractedCard is the debugging view of one card's FieldSet.
type extractedCard struct {
	URL          string              `json:"url,omitempty"`
	Category     string              `json:"category"`
	Title        string              `json:"title"`
	Price        float64             `json:"price"`
	Location     string              `json:"location"`
	Bedrooms     int                 `json:"bedrooms"`
	Bathrooms    int                 `json:"bathrooms"`
	AreaSqft     float64             `json:"area_sqft"`
	PropertyType models.PropertyType `json:"property_type"`
	Furnishing   models.Furnishing   `json:"furnishing"`
	ListingDate  *models.Date        `json:"listing_date"`
	Strategies   map[string]string   `json:"strategies"`
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract [cards-file]",
		Short: "Run field extraction over a cards file and print the results",
		Long: "Run field extraction over a JSON cards file and print every card's fields " +
			"together with the strategy that resolved them. Nothing is stored.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flagCardsFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("a cards file is required (argument or --cards-file)")
			}

			cards, err := scraper.NewFileFetcher(path, nil).FetchCards(cmd.Context(), 0)
			if err != nil {
				return err
			}

			extractor := services.NewExtractor(appLogger, appConfig.CurrencyMarker, appConfig.City)
			out := make([]extractedCard, 0, len(cards))
			for _, card := range cards {
				fs := extractor.Extract(card.Text)
				out = append(out, extractedCard{
					URL:          card.URL,
					Category:     string(fs.Category),
					Title:        fs.Title,
					Price:        fs.Price,
					Location:     fs.Location,
					Bedrooms:     fs.Bedrooms,
					Bathrooms:    fs.Bathrooms,
					AreaSqft:     fs.AreaSqft,
					PropertyType: fs.PropertyType,
					Furnishing:   fs.Furnishing,
					ListingDate:  fs.ListingDate,
					Strategies:   fs.Strategies,
				})
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
