package observability

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"skybook/internal/booking"
)

func TestChatAlerterPostsJSON(t *testing.T) {
	var got chatMessage
	received := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received++
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("unmarshal webhook body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	alerter := NewChatAlerter(srv.URL)
	alerter.Alert(context.Background(), booking.Alert{
		Severity: booking.SeverityCritical,
		Summary:  "refund failed",
		Fields:   map[string]string{"attempt_id": "attempt-1"},
	})

	if received != 1 {
		t.Fatalf("expected one webhook post, got %d", received)
	}
	if got.Severity != booking.SeverityCritical || got.Summary != "refund failed" {
		t.Fatalf("unexpected message: %+v", got)
	}
	if got.Fields["attempt_id"] != "attempt-1" {
		t.Fatalf("fields not carried: %+v", got.Fields)
	}
	if got.SentAt.IsZero() {
		t.Fatalf("expected sent_at timestamp")
	}
}

func TestChatAlerterSwallowsWebhookErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	// Must not panic or surface anything.
	NewChatAlerter(srv.URL).Alert(context.Background(), booking.Alert{
		Severity: booking.SeverityInfo,
		Summary:  "booking confirmed",
	})
}

func TestChatAlerterNoURLIsNoop(t *testing.T) {
	NewChatAlerter("").Alert(context.Background(), booking.Alert{Severity: booking.SeverityInfo})

	var a *ChatAlerter
	a.Alert(context.Background(), booking.Alert{Severity: booking.SeverityInfo})
}
