package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"skybook/internal/booking"
)

// ChatAlerter delivers saga alerts to a chat webhook. Delivery is best
// effort: a failed post is logged and dropped, never surfaced to the
// caller.
type ChatAlerter struct {
	webhookURL string
	httpClient *http.Client
}

// NewChatAlerter constructs a ChatAlerter for the given webhook URL.
func NewChatAlerter(webhookURL string) *ChatAlerter {
	return &ChatAlerter{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type chatMessage struct {
	Severity string            `json:"severity"`
	Summary  string            `json:"summary"`
	Fields   map[string]string `json:"fields,omitempty"`
	SentAt   time.Time         `json:"sent_at"`
}

// Alert posts the alert to the webhook.
func (a *ChatAlerter) Alert(ctx context.Context, alert booking.Alert) {
	if a == nil || a.webhookURL == "" {
		return
	}

	body, err := json.Marshal(chatMessage{
		Severity: alert.Severity,
		Summary:  alert.Summary,
		Fields:   alert.Fields,
		SentAt:   time.Now().UTC(),
	})
	if err != nil {
		log.Printf("alert: marshal: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL, bytes.NewReader(body))
	if err != nil {
		log.Printf("alert: build request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		log.Printf("alert: post %s: %v", alert.Severity, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("alert: webhook returned %d for %s alert", resp.StatusCode, alert.Severity)
	}
}
