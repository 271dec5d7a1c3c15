package bayut

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"

	"rental-insights/config"
	"rental-insights/models"
	"rental-insights/utils"
)

const siteRoot = "https://www.bayut.com"

// cardSelectors are tried in order; the first that matches anything wins.
var cardSelectors = []string{
	"article",
	"div.card",
	"div._357a9937",
	"div[data-testid*='property-card']",
}

// Fetcher drives a headless browser over the paginated search results and
// returns one RawCard per listing card.
type Fetcher struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig
	now    func() time.Time
}

// New creates a ready-to-use Fetcher.
func New(cfg *config.Config, logger *utils.Logger) *Fetcher {
	return &Fetcher{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		now: time.Now,
	}
}

// jsCard mirrors the objects returned by the in-page extraction script.
type jsCard struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// FetchCards loads pages 1..maxPages of the configured search. Pages are
// fetched on a bounded pool with a minimum spacing between page loads; a page
// that still fails after retries is logged and skipped. Cards are returned in
// page order with duplicate URLs removed.
func (f *Fetcher) FetchCards(ctx context.Context, maxPages int) ([]models.RawCard, error) {
	if maxPages <= 0 {
		maxPages = f.cfg.PagesToScrape
	}
	f.logger.Info("[bayut] Starting scrape — target: %d pages from %s", maxPages, f.cfg.SourceURL)

	chromeBin := findChromeBinary(f.cfg.ChromeBin)
	f.logger.Info("[bayut] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...any) {}))
	defer cancelBrowser()

	// Start the browser once so page tabs share it.
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("bayut: start browser: %w", err)
	}

	pool := utils.NewWorkerPool(f.cfg.MaxConcurrency, f.cfg.RateLimit())
	pages := make([][]jsCard, maxPages)
	var failed atomic.Int32

	for page := 1; page <= maxPages; page++ {
		ok := pool.Submit(ctx, func() {
			pageURL := PageURL(f.cfg.SourceURL, page)
			cards, err := f.fetchPage(browserCtx, pageURL, page)
			if err != nil {
				failed.Add(1)
				f.logger.Error("[bayut] Page %d skipped: %v", page, err)
				return
			}
			pages[page-1] = cards
			f.logger.Info("[bayut] Page %d done — %d cards", page, len(cards))
		})
		if !ok {
			break
		}
	}
	pool.Wait()

	cards := collectCards(pages, f.now())
	f.logger.Info("[bayut] Scrape complete — %d unique cards from %d pages (%d failed)",
		len(cards), maxPages, failed.Load())

	if err := ctx.Err(); err != nil {
		return cards, fmt.Errorf("bayut: %w", err)
	}
	return cards, nil
}

// fetchPage loads one results page and extracts the text and first link of
// every card.
func (f *Fetcher) fetchPage(browserCtx context.Context, pageURL string, page int) ([]jsCard, error) {
	var cards []jsCard

	err := f.retry.Do(browserCtx, "page-"+strconv.Itoa(page), func(context.Context) error {
		tabCtx, cancel := chromedp.NewContext(browserCtx)
		defer cancel()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.cfg.PageTimeout)
		defer cancelTimeout()

		var found []jsCard
		err := chromedp.Run(tabCtx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(3*time.Second),

			// Scroll so lazily rendered cards are attached
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
			chromedp.Sleep(1*time.Second),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(1*time.Second),

			chromedp.Evaluate(extractCardsJS(), &found),
		)
		if err != nil {
			return fmt.Errorf("chromedp page scrape: %w", err)
		}

		f.logger.Debug("[bayut] Page %d — found %d cards", page, len(found))
		cards = found
		return nil
	})
	return cards, err
}

// extractCardsJS returns a script that tries each selector in order and maps
// the first non-empty match to {text, href} objects. Text must be the
// card's textContent: the extractor patterns expect adjacent elements glued
// together with no separators.
func extractCardsJS() string {
	quoted := make([]string, len(cardSelectors))
	for i, s := range cardSelectors {
		quoted[i] = strconv.Quote(s)
	}
	return `
		(function() {
			var selectors = [` + strings.Join(quoted, ", ") + `];
			var cards = [];
			for (var i = 0; i < selectors.length; i++) {
				cards = document.querySelectorAll(selectors[i]);
				if (cards.length > 0) break;
			}

			var results = [];
			for (var j = 0; j < cards.length; j++) {
				var link = cards[j].querySelector('a[href]');
				results.push({
					text: cards[j].textContent || '',
					href: link ? link.getAttribute('href') : ''
				});
			}
			return results;
		})()
	`
}

// collectCards flattens pages in order, drops cards without text and
// removes repeated URLs.
func collectCards(pages [][]jsCard, scrapedAt time.Time) []models.RawCard {
	visited := utils.NewURLSet()
	var out []models.RawCard

	for _, page := range pages {
		for _, c := range page {
			text := strings.TrimSpace(c.Text)
			if text == "" {
				continue
			}
			link := ResolveURL(c.Href)
			if link != "" && !visited.Add(link) {
				continue
			}
			out = append(out, models.RawCard{Text: text, URL: link, ScrapedAt: scrapedAt})
		}
	}
	return out
}

// PageURL returns the URL of results page n. Page 1 is the source itself.
func PageURL(source string, n int) string {
	if n <= 1 {
		return source
	}
	return strings.TrimSuffix(source, "/") + "/page/" + strconv.Itoa(n) + "/"
}

// ResolveURL makes a card link absolute against the site root.
func ResolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	base, _ := url.Parse(siteRoot)
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
