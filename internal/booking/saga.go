package booking

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"skybook/internal/airline"
)

// OrderPlacer is the slice of the airline client the saga uses to
// create orders.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, req airline.OrderRequest) (airline.Order, error)
}

// Deps wires the saga's collaborators. Counters, alerts and events may
// be nil-safe noops; everything else is required.
type Deps struct {
	Trips       TripSource
	Ledger      Ledger
	Selector    *OfferSelector
	Payments    PaymentClient
	Airline     OrderPlacer
	Compensator *Compensator
	Counters    Counters
	Alerts      Alerter
	Events      EventPublisher
}

// Saga runs the automated booking flow for a trip request: claim an
// attempt, pick the cheapest admissible offer, capture the payment
// hold, place the airline order, and persist the booking. Failures
// after capture are compensated by refunding before the saga returns.
type Saga struct {
	trips       TripSource
	ledger      Ledger
	selector    *OfferSelector
	payments    PaymentClient
	airline     OrderPlacer
	compensator *Compensator
	counters    Counters
	alerts      Alerter
	events      EventPublisher

	newKey func() string
}

// NewSaga constructs a Saga from its dependencies.
func NewSaga(d Deps) *Saga {
	if d.Counters == nil {
		d.Counters = NoopCounters{}
	}
	if d.Alerts == nil {
		d.Alerts = NoopAlerter{}
	}
	if d.Events == nil {
		d.Events = NoopPublisher{}
	}
	return &Saga{
		trips:       d.Trips,
		ledger:      d.Ledger,
		selector:    d.Selector,
		payments:    d.Payments,
		airline:     d.Airline,
		compensator: d.Compensator,
		counters:    d.Counters,
		alerts:      d.Alerts,
		events:      d.Events,
		newKey:      uuid.NewString,
	}
}

// Result is the outcome of a saga run that did not error.
type Result struct {
	AlreadyInProgress bool
	BookingID         string
	OrderID           string
	BookingReference  string
	TotalAmount       float64
	Currency          string
}

// Execute books the trip end to end. maxPrice, when positive,
// overrides the budget ceiling stored on the trip request. The run is
// single-flight per trip: a concurrent run for the same trip returns
// AlreadyInProgress without side effects.
func (s *Saga) Execute(ctx context.Context, tripRequestID string, maxPrice float64) (Result, error) {
	trip, err := s.trips.TripRequest(ctx, tripRequestID)
	if err != nil {
		return Result{}, err
	}

	key := fmt.Sprintf("auto-book-%s-%s", trip.ID, s.newKey())
	attempt, created, err := s.ledger.Claim(ctx, trip.ID, key)
	if err != nil {
		return Result{}, fmt.Errorf("claim booking attempt: %w", err)
	}
	if !created {
		log.Printf("saga: trip %s already has attempt %s in flight", trip.ID, attempt.ID)
		return Result{AlreadyInProgress: true}, nil
	}
	log.Printf("saga: trip %s attempt %s started", trip.ID, attempt.ID)

	if err := trip.ValidateForBooking(); err != nil {
		return Result{}, s.abort(ctx, attempt, err)
	}

	budget := trip.MaxPrice
	if maxPrice > 0 {
		budget = maxPrice
	}

	offer, err := s.selector.Select(ctx, trip.SearchParams(), budget)
	if err != nil {
		return Result{}, s.abort(ctx, attempt, err)
	}
	if err := s.selector.Recheck(offer); err != nil {
		return Result{}, s.abort(ctx, attempt, err)
	}
	log.Printf("saga: trip %s selected offer %s at %.2f %s", trip.ID, offer.ID, offer.TotalAmount, offer.Currency)

	// Once money moves the run must reach a terminal state: caller
	// cancellation no longer interrupts capture, order placement or
	// compensation.
	ctx = context.WithoutCancel(ctx)

	capture, err := s.payments.Capture(ctx, trip.PaymentIntentID, offer.TotalAmount, offer.Currency, CaptureKey(attempt.IdempotencyKey))
	if err != nil {
		s.counters.Inc(CounterCapturesFailed)
		return Result{}, s.abort(ctx, attempt, fmt.Errorf("capture payment: %w", err))
	}
	s.counters.Inc(CounterCapturesSucceeded)

	order, err := s.airline.CreateOrder(ctx, airline.OrderRequest{
		OfferID:        offer.ID,
		Passengers:     trip.Passengers(offer),
		IdempotencyKey: OrderKey(attempt.IdempotencyKey),
	})
	if err != nil {
		s.counters.Inc(CounterOrdersFailed)
		s.counters.Inc(CounterBookingsFailed)
		compErr := s.compensator.Compensate(ctx, attempt, capture, fmt.Errorf("create order: %w", err))
		s.publishFailure(ctx, attempt, compErr)
		return Result{}, compErr
	}
	s.counters.Inc(CounterOrdersCreated)

	bookingID, err := s.ledger.Complete(ctx, Completion{
		AttemptID:        attempt.ID,
		TripRequestID:    trip.ID,
		OrderID:          order.ID,
		BookingReference: order.BookingReference,
		PaymentIntentID:  capture.PaymentIntentID,
		Amount:           capture.Amount,
		Currency:         capture.Currency,
	})
	if err != nil {
		// Money moved and the order exists; only the local record is
		// wrong. Escalate rather than unwind a real reservation.
		s.counters.Inc(CounterBookingsFailed)
		s.alerts.Alert(ctx, Alert{
			Severity: SeverityCritical,
			Summary:  "order placed but booking record failed; manual verification required",
			Fields: map[string]string{
				"attempt_id":        attempt.ID,
				"trip_request_id":   trip.ID,
				"order_id":          order.ID,
				"booking_reference": order.BookingReference,
				"error":             err.Error(),
			},
		})
		failErr := fmt.Errorf("order %s placed but booking record failed: %w", order.ID, err)
		if ferr := s.ledger.Fail(ctx, attempt.ID, failErr.Error(), "", RefundNone); ferr != nil {
			log.Printf("saga: record completion failure on attempt %s: %v", attempt.ID, ferr)
		}
		s.publishFailure(ctx, attempt, failErr)
		return Result{}, failErr
	}

	s.counters.Inc(CounterBookingsConfirmed)
	log.Printf("saga: trip %s booked: order %s ref %s booking %s", trip.ID, order.ID, order.BookingReference, bookingID)
	s.alerts.Alert(ctx, Alert{
		Severity: SeverityInfo,
		Summary:  "booking confirmed",
		Fields: map[string]string{
			"trip_request_id":   trip.ID,
			"booking_id":        bookingID,
			"order_id":          order.ID,
			"booking_reference": order.BookingReference,
			"amount":            fmt.Sprintf("%.2f %s", capture.Amount, capture.Currency),
		},
	})
	s.events.Publish(ctx, Event{
		Type:          EventBookingConfirmed,
		TripRequestID: trip.ID,
		AttemptID:     attempt.ID,
		BookingID:     bookingID,
		OrderID:       order.ID,
		Amount:        capture.Amount,
		Currency:      capture.Currency,
		Timestamp:     nowUTC(),
	})

	return Result{
		BookingID:        bookingID,
		OrderID:          order.ID,
		BookingReference: order.BookingReference,
		TotalAmount:      capture.Amount,
		Currency:         capture.Currency,
	}, nil
}

// abort records a pre-capture failure. No money has moved, so there is
// nothing to compensate.
func (s *Saga) abort(ctx context.Context, attempt Attempt, cause error) error {
	s.counters.Inc(CounterBookingsFailed)
	if err := s.ledger.Fail(ctx, attempt.ID, cause.Error(), "", RefundNone); err != nil {
		log.Printf("saga: record failure on attempt %s: %v", attempt.ID, err)
	}
	s.alerts.Alert(ctx, Alert{
		Severity: SeverityWarning,
		Summary:  "booking failed before payment capture",
		Fields: map[string]string{
			"attempt_id":      attempt.ID,
			"trip_request_id": attempt.TripRequestID,
			"error":           cause.Error(),
		},
	})
	s.publishFailure(ctx, attempt, cause)
	return cause
}

func (s *Saga) publishFailure(ctx context.Context, attempt Attempt, cause error) {
	s.events.Publish(ctx, Event{
		Type:          EventBookingFailed,
		TripRequestID: attempt.TripRequestID,
		AttemptID:     attempt.ID,
		Message:       cause.Error(),
		Timestamp:     nowUTC(),
	})
}

// sagaTimeout bounds a full run: search, capture and order placement
// each carry their own retries, and the rate limiter can hold a call
// for most of a minute.
const sagaTimeout = 5 * time.Minute

// ExecuteWithTimeout runs Execute under the standard saga deadline.
func (s *Saga) ExecuteWithTimeout(ctx context.Context, tripRequestID string, maxPrice float64) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, sagaTimeout)
	defer cancel()
	return s.Execute(ctx, tripRequestID, maxPrice)
}
