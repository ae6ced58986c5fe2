package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"sentryflow/shared/logging"
	"sentryflow/shared/types"
)

// embedColor is the red accent on alert embeds.
const embedColor = 15158332

// WebhookSink posts alert decisions to a Discord-compatible webhook as an
// embed with device, score, and window fields.
type WebhookSink struct {
	url        string
	httpClient *http.Client
}

func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type webhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type webhookEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []webhookField `json:"fields"`
}

type webhookMessage struct {
	Embeds []webhookEmbed `json:"embeds"`
}

func (w *WebhookSink) Deliver(ctx context.Context, alert types.AlertDecision) {
	if w.url == "" {
		logging.Warnf("alert: webhook URL is not set, skipping delivery for %s", alert.DeviceID)
		return
	}
	msg := webhookMessage{
		Embeds: []webhookEmbed{{
			Title:       "🚨 IoT Security Alert",
			Description: fmt.Sprintf("High anomaly score detected for device **%s**", alert.DeviceID),
			Color:       embedColor,
			Fields: []webhookField{
				{Name: "Device ID", Value: alert.DeviceID, Inline: true},
				{Name: "Anomaly Score", Value: fmt.Sprintf("%.4f", alert.Score), Inline: true},
				{Name: "Timestamp", Value: alert.Window, Inline: true},
			},
		}},
	}
	body, err := json.Marshal(msg)
	if err != nil {
		logging.Errorf("alert: marshal webhook message: %v", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		logging.Errorf("alert: build webhook request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.httpClient.Do(req)
	if err != nil {
		logging.Errorf("alert: webhook delivery failed for %s: %v", alert.DeviceID, err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		logging.Errorf("alert: webhook returned status %d for %s", resp.StatusCode, alert.DeviceID)
		return
	}
	logging.Infof("alert: webhook delivered for %s", alert.DeviceID)
}

// LogSink writes alert decisions to the service log.
type LogSink struct{}

func NewLogSink() LogSink { return LogSink{} }

func (LogSink) Deliver(_ context.Context, alert types.AlertDecision) {
	logging.Warnf("ALERT: device %s scored %.4f in window %s", alert.DeviceID, alert.Score, alert.Window)
}
