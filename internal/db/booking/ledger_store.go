package bookingdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"skybook/internal/booking"
)

// LedgerStore persists booking attempts and bookings in Postgres. The
// partial unique index on in-flight attempts is what makes Claim safe
// under concurrent saga runs.
type LedgerStore struct {
	db    *sql.DB
	newID func() string
}

// NewLedgerStore constructs a LedgerStore backed by Postgres.
func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db, newID: uuid.NewString}
}

// NewLedgerStoreWithSchema initializes the schema then returns the store.
func NewLedgerStoreWithSchema(ctx context.Context, db *sql.DB) (*LedgerStore, error) {
	store := NewLedgerStore(db)
	if err := store.InitSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// InitSchema creates the ledger tables if they do not exist.
func (s *LedgerStore) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS booking_attempts (
			id TEXT PRIMARY KEY,
			trip_request_id TEXT NOT NULL,
			idempotency_key TEXT UNIQUE NOT NULL,
			status TEXT NOT NULL,
			error_message TEXT,
			refund_id TEXT,
			refund_status TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS booking_attempts_in_flight
			ON booking_attempts (trip_request_id)
			WHERE status IN ('initiated', 'processing')`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id TEXT PRIMARY KEY,
			attempt_id TEXT NOT NULL REFERENCES booking_attempts(id),
			trip_request_id TEXT NOT NULL,
			order_id TEXT NOT NULL,
			booking_reference TEXT NOT NULL,
			payment_intent_id TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}

// Claim inserts a new attempt for the trip, or returns the in-flight
// one. The insert races on the partial unique index: exactly one
// concurrent caller gets created=true.
func (s *LedgerStore) Claim(ctx context.Context, tripRequestID, idempotencyKey string) (booking.Attempt, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return booking.Attempt{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	id := s.newID()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO booking_attempts (id, trip_request_id, idempotency_key, status)
		VALUES ($1, $2, $3, 'initiated')
		ON CONFLICT (trip_request_id) WHERE status IN ('initiated', 'processing') DO NOTHING`,
		id, tripRequestID, idempotencyKey,
	)
	if err != nil {
		return booking.Attempt{}, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return booking.Attempt{}, false, err
	}
	created := affected == 1

	if created {
		if _, err := tx.ExecContext(ctx, `
			UPDATE booking_attempts
			SET status = 'processing', updated_at = NOW()
			WHERE id = $1`,
			id,
		); err != nil {
			return booking.Attempt{}, false, err
		}
	}

	row := tx.QueryRowContext(ctx, `
		SELECT id, trip_request_id, idempotency_key, status,
			COALESCE(error_message, ''), COALESCE(refund_id, ''), COALESCE(refund_status, '')
		FROM booking_attempts
		WHERE trip_request_id = $1 AND status IN ('initiated', 'processing')`,
		tripRequestID,
	)
	var attempt booking.Attempt
	var status, refundStatus string
	if err := row.Scan(&attempt.ID, &attempt.TripRequestID, &attempt.IdempotencyKey, &status,
		&attempt.ErrorMessage, &attempt.RefundID, &refundStatus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return booking.Attempt{}, false, fmt.Errorf("attempt not found after insert")
		}
		return booking.Attempt{}, false, err
	}
	attempt.Status = booking.AttemptStatus(status)
	attempt.RefundStatus = booking.RefundStatus(refundStatus)

	if err := tx.Commit(); err != nil {
		return booking.Attempt{}, false, err
	}
	return attempt, created, nil
}

// Fail marks an in-flight attempt failed, recording the error and any
// refund outcome.
func (s *LedgerStore) Fail(ctx context.Context, attemptID, message, refundID string, refundStatus booking.RefundStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE booking_attempts
		SET status = 'failed',
			error_message = $2,
			refund_id = NULLIF($3, ''),
			refund_status = NULLIF($4, ''),
			updated_at = NOW()
		WHERE id = $1 AND status IN ('initiated', 'processing')`,
		attemptID, message, refundID, string(refundStatus),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return booking.ErrAttemptNotFound
	}
	return nil
}

// Complete marks the attempt completed and creates the booking row in
// one transaction.
func (s *LedgerStore) Complete(ctx context.Context, c booking.Completion) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE booking_attempts
		SET status = 'completed', updated_at = NOW()
		WHERE id = $1 AND status IN ('initiated', 'processing')`,
		c.AttemptID,
	)
	if err != nil {
		return "", err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if affected == 0 {
		return "", booking.ErrAttemptNotFound
	}

	bookingID := s.newID()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bookings (id, attempt_id, trip_request_id, order_id, booking_reference, payment_intent_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'confirmed')`,
		bookingID, c.AttemptID, c.TripRequestID, c.OrderID, c.BookingReference, c.PaymentIntentID, c.Amount, c.Currency,
	); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return bookingID, nil
}
