package events

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/fleet-console/fleet-console/internal/config"
)

// WebhookPublisher POSTs each event as JSON to a fixed endpoint.
type WebhookPublisher struct {
	client *resty.Client
	url    string
}

// NewWebhookPublisher creates a publisher for cfg.URL. The configured headers
// are sent with every request.
func NewWebhookPublisher(cfg config.WebhookConfig) *WebhookPublisher {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "fleet-console-webhook/1.0")
	for k, v := range cfg.Headers {
		client.SetHeader(k, v)
	}
	return &WebhookPublisher{client: client, url: cfg.URL}
}

// Publish delivers e. Any non-2xx answer is an error.
func (p *WebhookPublisher) Publish(ctx context.Context, e Event) error {
	body, err := e.payload()
	if err != nil {
		return err
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("X-Fleet-Event", e.Entity+"."+e.Action).
		SetBody(body).
		Post(p.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}

// Close implements Publisher.
func (p *WebhookPublisher) Close() error { return nil }
