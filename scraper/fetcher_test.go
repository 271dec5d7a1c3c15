package scraper

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileFetcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.json")
	content := `[
		{"text": "Dubai MarinaAED120,000Yearly32", "url": "https://www.bayut.com/property/details-1.html"},
		{"text": "   ", "url": "https://www.bayut.com/property/details-2.html"},
		{"text": "JVCAED55,000Yearly11", "scraped_at": "2025-05-01T10:00:00Z"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	now := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	cards, err := NewFileFetcher(path, func() time.Time { return now }).FetchCards(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	assert.Equal(t, "https://www.bayut.com/property/details-1.html", cards[0].URL)
	assert.Equal(t, now, cards[0].ScrapedAt)
	assert.Equal(t, time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC), cards[1].ScrapedAt)
}

func TestFileFetcher_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFileFetcher(filepath.Join(dir, "missing.json"), nil).FetchCards(context.Background(), 1)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"text": 1}`), 0644))
	_, err = NewFileFetcher(bad, nil).FetchCards(context.Background(), 1)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewFileFetcher(bad, nil).FetchCards(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
