// Package scraper fetches the Amazon.com.br bestsellers page and extracts
// the raw carousel cards that feed the ranking pipeline.
package scraper

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"bestsellers/config"
	"bestsellers/models"
)

// CSS selectors for the bestsellers page carousels. Amazon reshuffles its
// class names rarely but wholesale; keeping them in one table makes the
// next breakage a one-table fix.
var selectors = struct {
	carousel string
	heading  string
	card     string
	title    string
	link     string
	image    string
	rank     string
	price    string
	stars    string
	reviews  string
}{
	carousel: ".a-carousel-container",
	heading:  "h2.a-carousel-heading",
	card:     "li.a-carousel-card div[data-asin]",
	title:    ".p13n-sc-truncate-desktop-type2, .p13n-sc-truncated",
	link:     `a.a-link-normal.aok-block[href*="/dp/"]`,
	image:    "img.p13n-product-image",
	rank:     ".zg-bdg-text",
	price:    `[class*="p13n-sc-price"]`,
	stars:    ".a-icon-star-small .a-icon-alt",
	reviews:  ".a-icon-row .a-size-small",
}

var rankDigits = regexp.MustCompile(`\d+`)

// Scraper wraps a colly collector configured for the bestsellers page.
type Scraper struct {
	cfg       config.ScraperConfig
	collector *colly.Collector
	Metrics   *Metrics

	mu           sync.Mutex
	cards        []models.ScrapedCard
	titles       []string
	requestCount int
	errorCount   int
	errorsByType map[string]int
	lastErr      error

	handlersOnce sync.Once
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg config.ScraperConfig) (*Scraper, error) {
	parsed, err := url.Parse(cfg.SourceURL)
	if err != nil {
		return nil, err
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	return &Scraper{
		cfg:          cfg,
		collector:    collector,
		Metrics:      NewMetrics(),
		errorsByType: make(map[string]int),
	}, nil
}

// WithTransport swaps the collector transport. Tests inject a mock here.
func (s *Scraper) WithTransport(rt http.RoundTripper) {
	s.collector.WithTransport(rt)
}

// Run fetches the bestsellers page, retrying transient failures with
// bounded exponential backoff, and returns the extracted cards together
// with the carousel headings in presentation order.
func (s *Scraper) Run(ctx context.Context) (*models.ScrapeResult, error) {
	s.configureHandlers()
	start := time.Now()

	backoff := s.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}

	retries := 0
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			retries++
			s.Metrics.IncRetries()
			slog.Debug("retrying scrape",
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			if next := backoff * 2; s.cfg.RetryBackoffMax <= 0 || next <= s.cfg.RetryBackoffMax {
				backoff = next
			} else {
				backoff = s.cfg.RetryBackoffMax
			}
		}

		err := s.visit(ctx)
		if err == nil {
			break
		}
		if attempt >= s.cfg.MaxRetries {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := &models.ScrapeResult{
		Cards:          append([]models.ScrapedCard(nil), s.cards...),
		CategoryTitles: append([]string(nil), s.titles...),
		StartTime:      start,
		EndTime:        time.Now(),
		RequestCount:   s.requestCount,
		ErrorCount:     s.errorCount,
		RetryCount:     retries,
		ErrorsByType:   make(map[string]int, len(s.errorsByType)),
	}
	for k, v := range s.errorsByType {
		result.ErrorsByType[k] = v
	}

	if len(result.Cards) == 0 {
		slog.Warn("scrape produced no cards; page layout may have changed",
			slog.String("url", s.cfg.SourceURL),
		)
	}
	return result, nil
}

func (s *Scraper) visit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.cards = nil
	s.titles = nil
	s.lastErr = nil
	s.mu.Unlock()

	visitErr := s.collector.Visit(s.cfg.SourceURL)
	s.collector.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	// OnError records a classified ScrapeError for the same failure Visit
	// reports; prefer the classified one.
	if s.lastErr != nil {
		return s.lastErr
	}
	return visitErr
}

func (s *Scraper) configureHandlers() {
	s.handlersOnce.Do(func() {
		s.collector.OnRequest(func(r *colly.Request) {
			r.Ctx.Put("start", time.Now())
			s.mu.Lock()
			s.requestCount++
			s.mu.Unlock()
			s.Metrics.IncRequest()
		})

		s.collector.OnResponse(func(r *colly.Response) {
			if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
				s.Metrics.ObserveDuration(time.Since(start))
			}
		})

		s.collector.OnError(func(r *colly.Response, err error) {
			statusCode := 0
			if r != nil {
				statusCode = r.StatusCode
			}
			kind := classifyError(err, statusCode)

			s.mu.Lock()
			s.errorCount++
			s.errorsByType[kind.String()]++
			s.lastErr = &ScrapeError{Kind: kind, Status: statusCode, Err: err}
			s.mu.Unlock()

			slog.Error("scrape request failed",
				slog.String("url", s.cfg.SourceURL),
				slog.Int("status", statusCode),
				slog.String("kind", kind.String()),
				slog.Any("error", err),
			)
			s.Metrics.IncError(kind.String())
		})

		s.collector.OnHTML(selectors.carousel, func(e *colly.HTMLElement) {
			s.extractCarousel(e)
		})
	})
}

// extractCarousel pulls the heading and up to MaxPerCategory cards out of
// one carousel. Carousels whose heading lacks the category prefix (deal
// banners, recommendations) are skipped entirely.
func (s *Scraper) extractCarousel(e *colly.HTMLElement) {
	heading := strings.TrimSpace(e.ChildText(selectors.heading))
	if !strings.HasPrefix(heading, s.cfg.CategoryPrefix) {
		return
	}
	categoryTitle := strings.TrimSpace(strings.TrimPrefix(heading, s.cfg.CategoryPrefix))

	var cards []models.ScrapedCard
	e.ForEach(selectors.card, func(i int, card *colly.HTMLElement) {
		if i >= s.cfg.MaxPerCategory {
			return
		}

		rank := i + 1
		if match := rankDigits.FindString(card.ChildText(selectors.rank)); match != "" {
			if parsed, err := strconv.Atoi(match); err == nil {
				rank = parsed
			}
		}

		href := card.ChildAttr(selectors.link, "href")
		if href != "" {
			href = e.Request.AbsoluteURL(href)
		}

		cards = append(cards, models.ScrapedCard{
			Rank:          rank,
			Title:         strings.TrimSpace(card.ChildText(selectors.title)),
			Href:          href,
			CategoryTitle: categoryTitle,
			Image:         e.Request.AbsoluteURL(card.ChildAttr(selectors.image, "src")),
			PriceText:     strings.TrimSpace(card.ChildText(selectors.price)),
			StarsText:     strings.TrimSpace(card.ChildText(selectors.stars)),
			ReviewsText:   strings.TrimSpace(card.ChildText(selectors.reviews)),
		})
		s.Metrics.IncCards()
	})

	s.mu.Lock()
	s.titles = append(s.titles, categoryTitle)
	s.cards = append(s.cards, cards...)
	s.mu.Unlock()
}
