package booking

import (
	"context"
	"errors"
)

// AttemptStatus captures the lifecycle of a booking attempt.
type AttemptStatus string

const (
	AttemptInitiated  AttemptStatus = "initiated"
	AttemptProcessing AttemptStatus = "processing"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptFailed     AttemptStatus = "failed"
)

// RefundStatus records the outcome of a compensation refund on the
// attempt. Empty means no compensation was ever required.
type RefundStatus string

const (
	RefundNone      RefundStatus = ""
	RefundPending   RefundStatus = "pending"
	RefundCompleted RefundStatus = "completed"
	RefundFailed    RefundStatus = "failed"
)

// Attempt is the durable record of one saga run. Attempts are never
// deleted; they are the audit trail.
type Attempt struct {
	ID             string
	TripRequestID  string
	IdempotencyKey string
	Status         AttemptStatus
	ErrorMessage   string
	RefundID       string
	RefundStatus   RefundStatus
}

// Completion carries everything the finalize step persists in one
// atomic unit.
type Completion struct {
	AttemptID        string
	TripRequestID    string
	OrderID          string
	BookingReference string
	PaymentIntentID  string
	Amount           float64
	Currency         string
}

// Ledger persists booking attempts and finished bookings. Claim must
// enforce that at most one attempt per trip is in flight.
type Ledger interface {
	// Claim returns the in-flight attempt for the trip. created is
	// true when this call created it; false means another saga run
	// already holds the trip.
	Claim(ctx context.Context, tripRequestID, idempotencyKey string) (Attempt, bool, error)
	// Fail marks the attempt failed, recording the error and any
	// refund outcome.
	Fail(ctx context.Context, attemptID, message, refundID string, refundStatus RefundStatus) error
	// Complete marks the attempt completed and creates the booking
	// row in a single transaction, returning the booking id.
	Complete(ctx context.Context, c Completion) (string, error)
}

// ErrAttemptNotFound signals a fail/complete against an unknown or
// already-terminal attempt.
var ErrAttemptNotFound = errors.New("booking attempt not found")

// The attempt's idempotency key seeds the keys for every external
// side effect, so a replayed saga run cannot double-charge,
// double-book, or double-refund.

// CaptureKey derives the payment capture idempotency key.
func CaptureKey(attemptKey string) string { return "charge-" + attemptKey }

// OrderKey derives the airline order idempotency key.
func OrderKey(attemptKey string) string { return attemptKey }

// RefundKey derives the compensation refund idempotency key.
func RefundKey(attemptKey string) string { return "refund-" + attemptKey }
