package booking

import (
	"context"
	"encoding/json"
	"time"
)

// Counter names emitted by the saga.
const (
	CounterBookingsConfirmed = "bookings_confirmed"
	CounterBookingsFailed    = "bookings_failed"
	CounterCapturesSucceeded = "captures_succeeded"
	CounterCapturesFailed    = "captures_failed"
	CounterOrdersCreated     = "orders_created"
	CounterOrdersFailed      = "orders_failed"
	CounterRefundsSucceeded  = "refunds_succeeded"
	CounterRefundsFailed     = "refunds_failed"
)

// Counters receives fire-and-forget saga counters.
type Counters interface {
	Inc(name string)
}

// Alert severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert is a chat-ops notification. Critical alerts mean manual
// reconciliation is required.
type Alert struct {
	Severity string
	Summary  string
	Fields   map[string]string
}

// Alerter delivers alerts. Implementations must never block the saga
// on delivery failures.
type Alerter interface {
	Alert(ctx context.Context, a Alert)
}

// Event is a booking lifecycle notification for live consumers.
type Event struct {
	Type          string    `json:"type"`
	TripRequestID string    `json:"trip_request_id"`
	AttemptID     string    `json:"attempt_id"`
	BookingID     string    `json:"booking_id,omitempty"`
	OrderID       string    `json:"order_id,omitempty"`
	Amount        float64   `json:"amount,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	Message       string    `json:"message,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Event types.
const (
	EventBookingConfirmed = "booking_confirmed"
	EventBookingFailed    = "booking_failed"
	EventRefundCompleted  = "refund_completed"
)

// EventPublisher pushes booking events to live consumers.
type EventPublisher interface {
	Publish(ctx context.Context, e Event)
}

// Broadcaster pushes raw messages to connected clients.
type Broadcaster interface {
	Broadcast(msg []byte)
}

// BroadcastPublisher serializes events and fans them out to a
// broadcaster (the websocket hub).
type BroadcastPublisher struct {
	broadcaster Broadcaster
}

// NewBroadcastPublisher constructs a BroadcastPublisher.
func NewBroadcastPublisher(b Broadcaster) *BroadcastPublisher {
	return &BroadcastPublisher{broadcaster: b}
}

// Publish marshals and broadcasts the event. Marshal failures are
// dropped: events are advisory.
func (p *BroadcastPublisher) Publish(ctx context.Context, e Event) {
	if p == nil || p.broadcaster == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	p.broadcaster.Broadcast(data)
}

func nowUTC() time.Time { return time.Now().UTC() }

// NoopCounters is a Counters sink that discards everything.
type NoopCounters struct{}

func (NoopCounters) Inc(string) {}

// NoopAlerter is an Alerter that discards everything.
type NoopAlerter struct{}

func (NoopAlerter) Alert(context.Context, Alert) {}

// NoopPublisher is an EventPublisher that discards everything.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) {}
