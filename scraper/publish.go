package scraper

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"bestsellers/config"
	"bestsellers/models"
)

// Publisher submits a grouped snapshot to the API's refresh endpoint.
type Publisher struct {
	client *resty.Client
	url    string
	apiKey string
}

// NewPublisher builds the refresh client from the scrape job config.
func NewPublisher(cfg config.ScraperConfig) *Publisher {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Publisher{
		client: client,
		url:    cfg.RefreshURL,
		apiKey: cfg.APIKey,
	}
}

// HTTPClient exposes the underlying client. Tests hook a mock transport in.
func (p *Publisher) HTTPClient() *http.Client {
	return p.client.GetClient()
}

// Publish POSTs the payload to the refresh endpoint. A non-2xx answer is an
// error carrying the status and the server's message.
func (p *Publisher) Publish(ctx context.Context, payload models.RefreshPayload) error {
	if p.apiKey == "" {
		return fmt.Errorf("publish refresh: api key is not configured")
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", p.apiKey).
		SetBody(payload).
		Post(p.url)
	if err != nil {
		return fmt.Errorf("publish refresh: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("publish refresh: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
