package bayut

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-insights/services"
	"rental-insights/utils"
)

func TestPageURL(t *testing.T) {
	const source = "https://www.bayut.com/to-rent/property/dubai/"

	assert.Equal(t, source, PageURL(source, 1))
	assert.Equal(t, source+"page/2/", PageURL(source, 2))
	assert.Equal(t, source+"page/5/", PageURL(strings.TrimSuffix(source, "/"), 5))
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "https://www.bayut.com/property/details-1.html", ResolveURL("/property/details-1.html"))
	assert.Equal(t, "https://www.bayut.com/property/details-1.html", ResolveURL("https://www.bayut.com/property/details-1.html"))
	assert.Empty(t, ResolveURL("  "))
}

func TestCollectCards(t *testing.T) {
	at := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	pages := [][]jsCard{
		{
			{Text: "Dubai MarinaAED120,000Yearly32", Href: "/property/details-1.html"},
			{Text: "  ", Href: "/property/details-2.html"},
		},
		nil, // failed page
		{
			{Text: "Dubai MarinaAED120,000Yearly32", Href: "/property/details-1.html"},
			{Text: "JVCAED55,000Yearly11", Href: ""},
			{Text: "JVCAED55,000Yearly11", Href: ""},
		},
	}

	cards := collectCards(pages, at)

	require.Len(t, cards, 3)
	assert.Equal(t, "https://www.bayut.com/property/details-1.html", cards[0].URL)
	assert.Equal(t, at, cards[0].ScrapedAt)
	// Cards without a link cannot be deduplicated by URL.
	assert.Empty(t, cards[1].URL)
	assert.Empty(t, cards[2].URL)
}

func TestExtractCardsJS_ListsSelectorsInOrder(t *testing.T) {
	js := extractCardsJS()

	prev := -1
	for _, sel := range cardSelectors {
		i := strings.Index(js, sel)
		require.GreaterOrEqual(t, i, 0, sel)
		assert.Greater(t, i, prev, sel)
		prev = i
	}
}

func TestFindChromeBinary_PrefersConfigured(t *testing.T) {
	assert.Equal(t, "/opt/chrome", findChromeBinary("/opt/chrome"))
}

func TestExtractCardsJS_ReadsTextContent(t *testing.T) {
	js := extractCardsJS()

	assert.Contains(t, js, "cards[j].textContent")
	assert.NotContains(t, js, "innerText")
}

// textContent of a live rental card: the price, period, bed and bath badges
// and area are adjacent elements with no separators between them.
func TestCollectCards_TextContentLayoutExtracts(t *testing.T) {
	pages := [][]jsCard{{
		{
			Text: "  Apartment for Rent in Dubai MarinaAED120,000Yearly32Furnished1,200 sqft" +
				"Marina Gate, Dubai Marina, DubaiAgentCall  ",
			Href: "/property/details-1.html",
		},
	}}

	cards := collectCards(pages, time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC))
	require.Len(t, cards, 1)

	fs := services.NewExtractor(utils.NewNopLogger(), "AED", "Dubai").Extract(cards[0].Text)
	assert.Equal(t, 120000.0, fs.Price)
	assert.Equal(t, 3, fs.Bedrooms)
	assert.Equal(t, 2, fs.Bathrooms)
	assert.Equal(t, "yearly-digits", fs.Strategies["bedrooms"])
	assert.Equal(t, 1200.0, fs.AreaSqft)
	assert.Equal(t, "Marina Gate, Dubai Marina, Dubai", fs.Location)
}
