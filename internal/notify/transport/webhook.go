package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"kitmatch/internal/notify/models"
)

// WebhookPayload is what the WhatsApp gateway receives: one text per
// recipient.
type WebhookPayload struct {
	MatchID  string            `json:"match_id"`
	Messages []models.Outbound `json:"messages"`
}

// Webhook posts outbound texts to a WhatsApp gateway.
type Webhook struct {
	client *resty.Client
	url    string
}

type WebhookOption func(*resty.Client)

// WithRetries sets how often a failed or 5xx delivery is retried and the
// initial wait between attempts.
func WithRetries(count int, wait time.Duration) WebhookOption {
	return func(c *resty.Client) {
		c.SetRetryCount(count).SetRetryWaitTime(wait).SetRetryMaxWaitTime(4 * wait)
	}
}

func WithTimeout(d time.Duration) WebhookOption {
	return func(c *resty.Client) {
		c.SetTimeout(d)
	}
}

func NewWebhook(url, token string, opts ...WebhookOption) *Webhook {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	for _, opt := range opts {
		opt(client)
	}
	return &Webhook{client: client, url: url}
}

func (t *Webhook) Name() string { return NameWebhook }

func (t *Webhook) Send(ctx context.Context, msg *models.Message) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(WebhookPayload{MatchID: msg.MatchID.String(), Messages: msg.Outbounds()}).
		Post(t.url)
	if err != nil {
		return fmt.Errorf("post notification webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode())
	}
	return nil
}
