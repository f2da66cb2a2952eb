package scraper

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"bestsellers/config"
)

const pageURL = "http://example.test/bestsellers"

const bestsellersHTML = `<!DOCTYPE html>
<html><body>
<div class="a-carousel-container">
  <h2 class="a-carousel-heading">Mais Vendidos em Livros</h2>
  <ol class="a-carousel">
    <li class="a-carousel-card">
      <div data-asin="B001">
        <span class="zg-bdg-text">#1</span>
        <a class="a-link-normal aok-block" href="/dp/B001">
          <div class="p13n-sc-truncated">Dom Casmurro</div>
          <img class="p13n-product-image" src="/images/b001.jpg">
        </a>
        <span class="a-color-price p13n-sc-price">R$ 29,90</span>
        <i class="a-icon-star-small"><span class="a-icon-alt">4,7 de 5 estrelas</span></i>
        <div class="a-icon-row"><span class="a-size-small">1.234</span></div>
      </div>
    </li>
    <li class="a-carousel-card">
      <div data-asin="B002">
        <a class="a-link-normal aok-block" href="/dp/B002">
          <div class="p13n-sc-truncated">Memórias Póstumas</div>
        </a>
        <span class="p13n-sc-price">R$ 34,90</span>
      </div>
    </li>
    <li class="a-carousel-card">
      <div data-asin="B003">
        <span class="zg-bdg-text">#3</span>
        <a class="a-link-normal aok-block" href="/dp/B003">
          <div class="p13n-sc-truncated">Grande Sertão</div>
        </a>
      </div>
    </li>
    <li class="a-carousel-card">
      <div data-asin="B004">
        <span class="zg-bdg-text">#4</span>
        <a class="a-link-normal aok-block" href="/dp/B004">
          <div class="p13n-sc-truncated">Quarto Colocado</div>
        </a>
      </div>
    </li>
  </ol>
</div>
<div class="a-carousel-container">
  <h2 class="a-carousel-heading">Ofertas do Dia</h2>
  <ol class="a-carousel">
    <li class="a-carousel-card">
      <div data-asin="D001">
        <a class="a-link-normal aok-block" href="/dp/D001">
          <div class="p13n-sc-truncated">Banner de oferta</div>
        </a>
      </div>
    </li>
  </ol>
</div>
<div class="a-carousel-container">
  <h2 class="a-carousel-heading">Mais Vendidos em Games e Consoles</h2>
  <ol class="a-carousel">
    <li class="a-carousel-card">
      <div data-asin="G001">
        <span class="zg-bdg-text">#1</span>
        <a class="a-link-normal aok-block" href="/dp/G001">
          <div class="p13n-sc-truncate-desktop-type2">Console Portátil</div>
        </a>
      </div>
    </li>
  </ol>
</div>
</body></html>`

func testConfig() config.ScraperConfig {
	cfg := config.DefaultConfig().Scraper
	cfg.SourceURL = pageURL
	cfg.MaxPerCategory = 3
	cfg.MaxRetries = 0
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 2 * time.Millisecond
	cfg.Timeout = 2 * time.Second
	return cfg
}

func htmlResponder(status int, body string) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(status, body)
		resp.Header.Set("Content-Type", "text/html; charset=utf-8")
		resp.Request = req
		return resp, nil
	}
}

func TestScraperExtractsCards(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", pageURL, htmlResponder(http.StatusOK, bestsellersHTML))

	s, err := NewScraper(testConfig())
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.WithTransport(transport)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	wantTitles := []string{"Livros", "Games e Consoles"}
	if len(result.CategoryTitles) != len(wantTitles) {
		t.Fatalf("category titles = %v, want %v", result.CategoryTitles, wantTitles)
	}
	for i := range wantTitles {
		if result.CategoryTitles[i] != wantTitles[i] {
			t.Errorf("titles[%d] = %q, want %q", i, result.CategoryTitles[i], wantTitles[i])
		}
	}

	// Four cards in Livros capped to three, one in Games, banner skipped.
	if len(result.Cards) != 4 {
		t.Fatalf("cards = %d, want 4", len(result.Cards))
	}

	first := result.Cards[0]
	if first.Rank != 1 {
		t.Errorf("rank = %d, want 1 from badge", first.Rank)
	}
	if first.Title != "Dom Casmurro" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Href != "http://example.test/dp/B001" {
		t.Errorf("href = %q, want absolute URL", first.Href)
	}
	if first.Image != "http://example.test/images/b001.jpg" {
		t.Errorf("image = %q, want absolute URL", first.Image)
	}
	if first.PriceText != "R$ 29,90" {
		t.Errorf("priceText = %q", first.PriceText)
	}
	if first.StarsText != "4,7 de 5 estrelas" {
		t.Errorf("starsText = %q", first.StarsText)
	}
	if first.ReviewsText != "1.234" {
		t.Errorf("reviewsText = %q", first.ReviewsText)
	}
	if first.CategoryTitle != "Livros" {
		t.Errorf("categoryTitle = %q", first.CategoryTitle)
	}

	// No badge on the second card: rank falls back to the 1-based index.
	second := result.Cards[1]
	if second.Rank != 2 {
		t.Errorf("fallback rank = %d, want 2", second.Rank)
	}

	for _, card := range result.Cards {
		if card.Title == "Quarto Colocado" {
			t.Errorf("cap of 3 per carousel not applied")
		}
		if card.Title == "Banner de oferta" {
			t.Errorf("non-category carousel was not skipped")
		}
	}
}

func TestScraperClassifiesHTTPFailure(t *testing.T) {
	tests := []struct {
		status   int
		expected ErrorKind
	}{
		{status: http.StatusForbidden, expected: KindForbidden},
		{status: http.StatusTooManyRequests, expected: KindRateLimited},
		{status: http.StatusInternalServerError, expected: KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.expected.String(), func(t *testing.T) {
			transport := httpmock.NewMockTransport()
			transport.RegisterResponder("GET", pageURL, htmlResponder(tt.status, ""))

			s, err := NewScraper(testConfig())
			if err != nil {
				t.Fatalf("new scraper: %v", err)
			}
			s.WithTransport(transport)

			_, err = s.Run(context.Background())
			if err == nil {
				t.Fatalf("expected error for status %d", tt.status)
			}

			var scrapeErr *ScrapeError
			if !errors.As(err, &scrapeErr) {
				t.Fatalf("err = %v, want *ScrapeError", err)
			}
			if scrapeErr.Kind != tt.expected {
				t.Errorf("kind = %v, want %v", scrapeErr.Kind, tt.expected)
			}
		})
	}
}

func TestScraperRetriesTransientFailure(t *testing.T) {
	attempts := 0
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", pageURL, func(req *http.Request) (*http.Response, error) {
		attempts++
		if attempts == 1 {
			return htmlResponder(http.StatusTooManyRequests, "")(req)
		}
		return htmlResponder(http.StatusOK, bestsellersHTML)(req)
	})

	cfg := testConfig()
	cfg.MaxRetries = 2

	s, err := NewScraper(cfg)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.WithTransport(transport)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run after retry: %v", err)
	}
	if result.RetryCount != 1 {
		t.Errorf("retries = %d, want 1", result.RetryCount)
	}
	if len(result.Cards) == 0 {
		t.Errorf("no cards after successful retry")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   ErrorKind
	}{
		{name: "context timeout", err: context.DeadlineExceeded, expected: KindTimeout},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, expected: KindTimeout},
		{name: "forbidden", statusCode: http.StatusForbidden, expected: KindForbidden},
		{name: "rate limited", statusCode: http.StatusTooManyRequests, expected: KindRateLimited},
		{name: "other", err: errors.New("boom"), expected: KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(tt.err, tt.statusCode); got != tt.expected {
				t.Errorf("classifyError = %v, want %v", got, tt.expected)
			}
		})
	}
}
