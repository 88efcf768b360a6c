package booking

import (
	"context"
	"fmt"
	"log"

	"skybook/internal/payments"
)

// PaymentClient captures and refunds payments by reference.
type PaymentClient interface {
	Capture(ctx context.Context, paymentIntentID string, amount float64, currency, idempotencyKey string) (payments.Capture, error)
	Refund(ctx context.Context, paymentIntentID, idempotencyKey string) (payments.Refund, error)
}

// Compensator reverses a captured payment when order creation fails.
// It is the only component allowed to issue refunds.
type Compensator struct {
	payments PaymentClient
	ledger   Ledger
	counters Counters
	alerts   Alerter
	events   EventPublisher
}

// NewCompensator constructs a Compensator.
func NewCompensator(payments PaymentClient, ledger Ledger, counters Counters, alerts Alerter, events EventPublisher) *Compensator {
	return &Compensator{
		payments: payments,
		ledger:   ledger,
		counters: counters,
		alerts:   alerts,
		events:   events,
	}
}

// Compensate refunds the capture and marks the attempt failed. The
// derived idempotency key makes repeated compensation runs return the
// original refund instead of refunding twice. The returned error is
// the user-visible saga failure and always states the refund
// disposition.
//
// A failed refund is not retried here: a refund that might have
// partially succeeded cannot be safely replayed without the key, and
// looping risks double-refunding. It escalates to a critical alert
// for manual reconciliation instead.
func (c *Compensator) Compensate(ctx context.Context, attempt Attempt, capture payments.Capture, cause error) error {
	refundKey := RefundKey(attempt.IdempotencyKey)

	refund, refundErr := c.payments.Refund(ctx, capture.PaymentIntentID, refundKey)
	if refundErr != nil {
		c.counters.Inc(CounterRefundsFailed)
		if err := c.ledger.Fail(ctx, attempt.ID, cause.Error(), "", RefundFailed); err != nil {
			log.Printf("compensate: record refund failure on attempt %s: %v", attempt.ID, err)
		}
		c.alerts.Alert(ctx, Alert{
			Severity: SeverityCritical,
			Summary:  "refund failed after order creation failure; manual reconciliation required",
			Fields: map[string]string{
				"attempt_id":        attempt.ID,
				"trip_request_id":   attempt.TripRequestID,
				"payment_intent_id": capture.PaymentIntentID,
				"amount":            fmt.Sprintf("%.2f %s", capture.Amount, capture.Currency),
				"booking_error":     cause.Error(),
				"refund_error":      refundErr.Error(),
			},
		})
		return fmt.Errorf("booking failed: %w; refund failed, manual reconciliation required: %v", cause, refundErr)
	}

	c.counters.Inc(CounterRefundsSucceeded)
	if err := c.ledger.Fail(ctx, attempt.ID, cause.Error(), refund.ID, RefundCompleted); err != nil {
		log.Printf("compensate: record refund %s on attempt %s: %v", refund.ID, attempt.ID, err)
	}
	c.alerts.Alert(ctx, Alert{
		Severity: SeverityWarning,
		Summary:  "booking failed after capture; payment refunded",
		Fields: map[string]string{
			"attempt_id":      attempt.ID,
			"trip_request_id": attempt.TripRequestID,
			"refund_id":       refund.ID,
			"amount":          fmt.Sprintf("%.2f %s", capture.Amount, capture.Currency),
			"booking_error":   cause.Error(),
		},
	})
	c.events.Publish(ctx, Event{
		Type:          EventRefundCompleted,
		TripRequestID: attempt.TripRequestID,
		AttemptID:     attempt.ID,
		Amount:        capture.Amount,
		Currency:      capture.Currency,
		Message:       cause.Error(),
		Timestamp:     nowUTC(),
	})

	return fmt.Errorf("booking failed: %w; payment has been refunded", cause)
}
