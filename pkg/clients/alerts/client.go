// Package alerts posts operational notifications (expired batches,
// positive cultures, low stock) to the hospital's staff webhook.
package alerts

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hgp-lactario/milkbank/internal/config"
)

// Severity grades an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is one notification payload.
type Alert struct {
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Entity   string   `json:"entity,omitempty"`
	Folio    string   `json:"folio,omitempty"`
}

// Client exposes the alert operations used by the application.
type Client interface {
	Notify(ctx context.Context, alert Alert) error
}

// WebhookClient is a resty-backed implementation of Client.
type WebhookClient struct {
	httpClient *resty.Client
	channel    string
}

// NewClient builds an alert webhook client using the provided configuration values.
func NewClient(cfg config.AlertsConfig) *WebhookClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.WebhookURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)

	if cfg.AuthToken != "" {
		restyClient.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.AuthToken))
	}

	return &WebhookClient{httpClient: restyClient, channel: cfg.Channel}
}

// apiError represents an error payload from the webhook endpoint.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Notify posts one alert. Non-2xx responses are returned as errors so
// callers can log them; alert delivery is best effort and never blocks
// the domain operation that raised it.
func (c *WebhookClient) Notify(ctx context.Context, alert Alert) error {
	payload := map[string]any{
		"channel":  c.channel,
		"severity": alert.Severity,
		"title":    alert.Title,
		"message":  alert.Message,
	}
	if alert.Entity != "" {
		payload["entity"] = alert.Entity
	}
	if alert.Folio != "" {
		payload["folio"] = alert.Folio
	}

	errPayload := new(apiError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetError(errPayload).
		Post("")
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		if errPayload.Error.Message != "" {
			return fmt.Errorf("alert webhook returned %d: %s", resp.StatusCode(), errPayload.Error.Message)
		}
		return fmt.Errorf("alert webhook returned %d", resp.StatusCode())
	}

	return nil
}
