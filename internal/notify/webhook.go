package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coursewatch/coursewatch-api/pkg/config"
)

// WebhookChannel posts the notification payload as JSON to a
// configured endpoint.
type WebhookChannel struct {
	cfg  config.WebhookConfig
	http *http.Client
}

// NewWebhookChannel constructs the channel from config.
func NewWebhookChannel(cfg config.WebhookConfig) *WebhookChannel {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookChannel{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

// Name implements Channel.
func (c *WebhookChannel) Name() string { return "webhook" }

type webhookEvent struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Send delivers the event, treating any non-2xx response as failure.
func (c *WebhookChannel) Send(ctx context.Context, payload Payload) error {
	if c.cfg.URL == "" {
		return fmt.Errorf("webhook channel not configured")
	}

	event := webhookEvent{
		Event:     "course_available",
		Timestamp: payload.Section.FetchedAt,
		Data: map[string]interface{}{
			"course":     payload.Course,
			"section":    payload.Section,
			"transition": payload.Transition,
		},
	}

	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
