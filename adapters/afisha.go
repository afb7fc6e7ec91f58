package adapters

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"events-crawler/config"
	"events-crawler/models"
	"events-crawler/utils"
)

const (
	afishaDefaultBaseURL = "https://afisha.example.org"
	afishaPlatform       = "afisha"
)

// Afisha scrapes a city-afisha listings site with a headless browser.
// The markup selectors below are the swappable part; the surrounding
// navigation, retry and enrichment machinery is source-agnostic.
type Afisha struct {
	name     string
	baseURL  string
	maxPages int

	cfg     *config.Config
	logger  *utils.Logger
	pool    *utils.WorkerPool
	visited *utils.URLSet
	retry   *utils.RetryConfig

	mu   sync.Mutex
	raws []*models.RawEvent
}

// NewAfisha creates a browser-driven adapter from a sources.yml entry.
func NewAfisha(sc config.SourceConfig, cfg *config.Config, logger *utils.Logger) *Afisha {
	name := sc.Name
	if name == "" {
		name = afishaPlatform
	}
	baseURL := sc.BaseURL
	if baseURL == "" {
		baseURL = afishaDefaultBaseURL
	}
	maxPages := sc.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	return &Afisha{
		name:     name,
		baseURL:  baseURL,
		maxPages: maxPages,
		cfg:      cfg,
		logger:   logger,
		pool:     utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		visited:  utils.NewURLSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

func (a *Afisha) SourceName() string { return a.name }

func (a *Afisha) BaseURL() string { return a.baseURL }

// FetchEvents drives the browser over the listing pages and returns the
// accumulated raw events. Detail pages are visited concurrently through
// the adapter's worker pool to fill in descriptions.
func (a *Afisha) FetchEvents(ctx context.Context) ([]*models.RawEvent, error) {
	a.resetRun()

	chromeBin := findChromeBinary(a.cfg.ChromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	silentCtx, cancelSilent := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelSilent()

	pageURL := a.baseURL + "/events"
	for page := 1; page <= a.maxPages; page++ {
		cards, nextURL, err := a.scrapePage(silentCtx, pageURL, page)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("afisha: page %d: %w", page, err)
			}
			a.logger.Warn("[afisha] page %d failed, keeping earlier pages: %v", page, err)
			break
		}
		if len(cards) == 0 {
			a.logger.Debug("[afisha] page %d returned 0 cards — stopping", page)
			break
		}

		a.enrichDescriptions(silentCtx, cards)

		a.mu.Lock()
		a.raws = append(a.raws, cards...)
		a.mu.Unlock()

		if nextURL == "" {
			break
		}
		pageURL = nextURL
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*models.RawEvent, len(a.raws))
	copy(out, a.raws)
	return out, nil
}

// resetRun clears all per-run state. The visited set exists only to
// dedup pagination overlap within one fetch; carrying it across runs
// would make a second crawl silently yield nothing.
func (a *Afisha) resetRun() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.raws = a.raws[:0]
	a.visited = utils.NewURLSet()
}

// afishaCard is one event card as extracted from the listing page DOM.
type afishaCard struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	Location string `json:"location"`
	Price    string `json:"price"`
	Image    string `json:"image"`
	URL      string `json:"url"`
}

// scrapePage loads one listing page and extracts event cards.
func (a *Afisha) scrapePage(allocCtx context.Context, pageURL string, pageNum int) ([]*models.RawEvent, string, error) {
	var raws []*models.RawEvent
	var nextURL string

	err := a.retry.Do(fmt.Sprintf("afisha-page-%d", pageNum), func() error {
		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 90*time.Second)
		defer cancelTimeout()

		var cards []afishaCard
		var nextPageURL string

		err := chromedp.Run(ctx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(4*time.Second),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(2*time.Second),

			chromedp.Evaluate(`
				(function() {
					var results = [];
					var seen = {};
					var cards = document.querySelectorAll('[data-testid="event-card"], article.event-card, li.event-item');
					for (var i = 0; i < cards.length; i++) {
						var card = cards[i];
						var linkEl = card.querySelector('a[href*="/event"]') || card.querySelector('a');
						var url = linkEl ? linkEl.href : '';
						if (!url || seen[url]) continue;
						seen[url] = true;

						var pick = function(sel) {
							var el = card.querySelector(sel);
							return el ? el.innerText.trim() : '';
						};
						var imgEl = card.querySelector('img');

						results.push({
							title:    pick('[data-testid="event-title"], .event-title, h2, h3'),
							date:     pick('[data-testid="event-date"], .event-date, time'),
							location: pick('[data-testid="event-venue"], .event-venue, .venue'),
							price:    pick('[data-testid="event-price"], .event-price, .price'),
							image:    imgEl ? (imgEl.src || '') : '',
							url:      url
						});
					}
					return results;
				})()
			`, &cards),

			chromedp.Evaluate(`
				(function() {
					var next = document.querySelector('a[rel="next"]') ||
					           document.querySelector('[data-testid="pagination-next"]') ||
					           document.querySelector('a[aria-label="Next"]');
					return next && next.href ? next.href : '';
				})()
			`, &nextPageURL),
		)
		if err != nil {
			return fmt.Errorf("chromedp page scrape: %w", err)
		}

		a.logger.Debug("[afisha] page %d — found %d cards", pageNum, len(cards))

		raws = append(raws, a.collectCards(cards)...)
		nextURL = nextPageURL
		return nil
	})

	return raws, nextURL, err
}

// collectCards maps extracted cards to raw events, skipping incomplete
// cards and URLs already seen earlier in this run.
func (a *Afisha) collectCards(cards []afishaCard) []*models.RawEvent {
	var raws []*models.RawEvent

	for _, c := range cards {
		if c.URL == "" || c.Title == "" {
			continue
		}
		if !a.visited.Add(c.URL) {
			a.logger.Debug("[afisha] skipping duplicate card: %s", c.URL)
			continue
		}

		raws = append(raws, &models.RawEvent{
			SourceID:    c.URL,
			OriginURL:   c.URL,
			RawTitle:    c.Title,
			RawDate:     c.Date,
			RawLocation: c.Location,
			RawPrice:    c.Price,
			RawImage:    c.Image,
			FetchedAt:   time.Now(),
			Source:      a.name,
		})
	}

	return raws
}

// enrichDescriptions visits detail pages through the worker pool to pick
// up the long description missing from listing cards.
func (a *Afisha) enrichDescriptions(allocCtx context.Context, raws []*models.RawEvent) {
	for _, raw := range raws {
		r := raw
		if r.OriginURL == "" {
			continue
		}

		a.pool.Submit(func() {
			desc, err := a.scrapeDescription(allocCtx, r.OriginURL)
			if err != nil {
				a.logger.Warn("[afisha] detail page failed for %s: %v", r.OriginURL, err)
				return
			}
			r.RawDescription = desc
		})
	}
	a.pool.Wait()
}

func (a *Afisha) scrapeDescription(allocCtx context.Context, url string) (string, error) {
	var desc string

	err := a.retry.Do("afisha-detail", func() error {
		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 60*time.Second)
		defer cancelTimeout()

		return chromedp.Run(ctx,
			chromedp.Navigate(url),
			chromedp.Sleep(3*time.Second),
			chromedp.Evaluate(`
				(function() {
					var el = document.querySelector('[data-testid="event-description"]') ||
					         document.querySelector('.event-description') ||
					         document.querySelector('article p');
					return el ? el.innerText.trim() : '';
				})()
			`, &desc),
		)
	})

	return desc, err
}

// findChromeBinary locates a usable Chrome/Chromium binary, preferring
// the configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
