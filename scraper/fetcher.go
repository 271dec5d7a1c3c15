package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"rental-insights/models"
)

// CardFetcher is the input boundary of the pipeline. Implementations tolerate
// partial failure: an unreachable page is logged and skipped, and whatever
// cards were retrieved are returned.
type CardFetcher interface {
	FetchCards(ctx context.Context, maxPages int) ([]models.RawCard, error)
}

// FileFetcher serves cards from a JSON file holding an array of
// {"text", "url", "scraped_at"} objects. It is used for offline runs and for
// replaying a captured scrape.
type FileFetcher struct {
	path string
	now  func() time.Time
}

// NewFileFetcher creates a FileFetcher. now stamps cards that carry no
// scraped_at and defaults to time.Now.
func NewFileFetcher(path string, now func() time.Time) *FileFetcher {
	if now == nil {
		now = time.Now
	}
	return &FileFetcher{path: path, now: now}
}

// FetchCards returns every card in the file with non-blank text. maxPages is
// ignored: a card file has no pages.
func (f *FileFetcher) FetchCards(ctx context.Context, _ int) ([]models.RawCard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("file fetcher: read %q: %w", f.path, err)
	}

	var raw []models.RawCard
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("file fetcher: decode %q: %w", f.path, err)
	}

	stamp := f.now()
	cards := make([]models.RawCard, 0, len(raw))
	for _, c := range raw {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		if c.ScrapedAt.IsZero() {
			c.ScrapedAt = stamp
		}
		cards = append(cards, c)
	}
	return cards, nil
}
