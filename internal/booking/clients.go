package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"skybook/internal/airline"
	"skybook/internal/payments"
)

// NewInMemoryTripSource constructs an empty in-memory trip source.
func NewInMemoryTripSource() *InMemoryTripSource {
	return &InMemoryTripSource{trips: make(map[string]TripRequest)}
}

// InMemoryTripSource serves trip requests from memory.
type InMemoryTripSource struct {
	mu    sync.Mutex
	trips map[string]TripRequest
}

// Put stores or replaces a trip request.
func (s *InMemoryTripSource) Put(t TripRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips[t.ID] = t
}

func (s *InMemoryTripSource) TripRequest(ctx context.Context, id string) (TripRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return TripRequest{}, ErrTripNotFound
	}
	return t, nil
}

// NewInMemoryLedger constructs an empty in-memory attempt ledger.
func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{
		attempts: make(map[string]*Attempt),
		inFlight: make(map[string]string),
		bookings: make(map[string]Completion),
	}
}

// InMemoryLedger keeps booking attempts and bookings in memory. It
// enforces the same single-in-flight rule as the database-backed
// ledger.
type InMemoryLedger struct {
	mu       sync.Mutex
	seq      int
	attempts map[string]*Attempt
	inFlight map[string]string // tripRequestID -> attemptID
	bookings map[string]Completion
}

func (l *InMemoryLedger) Claim(ctx context.Context, tripRequestID, idempotencyKey string) (Attempt, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id, ok := l.inFlight[tripRequestID]; ok {
		return *l.attempts[id], false, nil
	}
	l.seq++
	a := &Attempt{
		ID:             fmt.Sprintf("attempt-%d", l.seq),
		TripRequestID:  tripRequestID,
		IdempotencyKey: idempotencyKey,
		Status:         AttemptProcessing,
	}
	l.attempts[a.ID] = a
	l.inFlight[tripRequestID] = a.ID
	return *a, true, nil
}

func (l *InMemoryLedger) Fail(ctx context.Context, attemptID, message, refundID string, refundStatus RefundStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.attempts[attemptID]
	if !ok || (a.Status != AttemptInitiated && a.Status != AttemptProcessing) {
		return ErrAttemptNotFound
	}
	a.Status = AttemptFailed
	a.ErrorMessage = message
	a.RefundID = refundID
	a.RefundStatus = refundStatus
	delete(l.inFlight, a.TripRequestID)
	return nil
}

func (l *InMemoryLedger) Complete(ctx context.Context, c Completion) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.attempts[c.AttemptID]
	if !ok || (a.Status != AttemptInitiated && a.Status != AttemptProcessing) {
		return "", ErrAttemptNotFound
	}
	a.Status = AttemptCompleted
	delete(l.inFlight, a.TripRequestID)
	l.seq++
	bookingID := fmt.Sprintf("booking-%d", l.seq)
	l.bookings[bookingID] = c
	return bookingID, nil
}

// AttemptByID returns a copy of the attempt (for testing/inspection).
func (l *InMemoryLedger) AttemptByID(id string) (Attempt, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.attempts[id]
	if !ok {
		return Attempt{}, false
	}
	return *a, true
}

// Booking returns a stored booking (for testing/inspection).
func (l *InMemoryLedger) Booking(id string) (Completion, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.bookings[id]
	return c, ok
}

// NewInMemoryPaymentClient constructs an in-memory payment client.
func NewInMemoryPaymentClient() *InMemoryPaymentClient {
	return &InMemoryPaymentClient{
		captures: make(map[string]payments.Capture),
		refunds:  make(map[string]payments.Refund),
	}
}

// InMemoryPaymentClient tracks captures and refunds in memory, keyed
// by idempotency key so replays return the original result.
type InMemoryPaymentClient struct {
	mu       sync.Mutex
	seq      int
	captures map[string]payments.Capture
	refunds  map[string]payments.Refund

	// FailCapture and FailRefund switch the corresponding call to an
	// error (for testing).
	FailCapture error
	FailRefund  error
}

func (c *InMemoryPaymentClient) Capture(ctx context.Context, paymentIntentID string, amount float64, currency, idempotencyKey string) (payments.Capture, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.captures[idempotencyKey]; ok {
		return prev, nil
	}
	if c.FailCapture != nil {
		return payments.Capture{}, c.FailCapture
	}
	if paymentIntentID == "" {
		return payments.Capture{}, errors.New("capture without payment intent")
	}
	res := payments.Capture{
		PaymentIntentID: paymentIntentID,
		Amount:          amount,
		Currency:        currency,
		IdempotencyKey:  idempotencyKey,
	}
	c.captures[idempotencyKey] = res
	return res, nil
}

func (c *InMemoryPaymentClient) Refund(ctx context.Context, paymentIntentID, idempotencyKey string) (payments.Refund, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.refunds[idempotencyKey]; ok {
		return prev, nil
	}
	if c.FailRefund != nil {
		return payments.Refund{}, c.FailRefund
	}
	captured := false
	for _, capture := range c.captures {
		if capture.PaymentIntentID == paymentIntentID {
			captured = true
			break
		}
	}
	if !captured {
		return payments.Refund{}, errors.New("refund without capture")
	}
	c.seq++
	r := payments.Refund{ID: fmt.Sprintf("re-%d", c.seq), Status: "succeeded"}
	c.refunds[idempotencyKey] = r
	return r, nil
}

// WasCaptured reports whether a capture ran under the key (for
// testing/inspection).
func (c *InMemoryPaymentClient) WasCaptured(idempotencyKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.captures[idempotencyKey]
	return ok
}

// WasRefunded reports whether a refund ran under the key (for
// testing/inspection).
func (c *InMemoryPaymentClient) WasRefunded(idempotencyKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.refunds[idempotencyKey]
	return ok
}

// RefundCount returns the number of distinct refunds issued.
func (c *InMemoryPaymentClient) RefundCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.refunds)
}

// NewInMemoryAirlineClient constructs an in-memory airline client.
func NewInMemoryAirlineClient() *InMemoryAirlineClient {
	return &InMemoryAirlineClient{orders: make(map[string]airline.Order)}
}

// InMemoryAirlineClient serves canned offers and records orders in
// memory, keyed by idempotency key.
type InMemoryAirlineClient struct {
	mu     sync.Mutex
	seq    int
	offers []airline.Offer
	orders map[string]airline.Order

	// SearchErr and FailOrder switch the corresponding call to an
	// error (for testing).
	SearchErr error
	FailOrder error
}

// SetOffers replaces the canned search results.
func (c *InMemoryAirlineClient) SetOffers(offers []airline.Offer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offers = offers
}

func (c *InMemoryAirlineClient) SearchOffers(ctx context.Context, params airline.SearchParams) ([]airline.Offer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SearchErr != nil {
		return nil, c.SearchErr
	}
	out := make([]airline.Offer, len(c.offers))
	copy(out, c.offers)
	return out, nil
}

func (c *InMemoryAirlineClient) CreateOrder(ctx context.Context, req airline.OrderRequest) (airline.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.orders[req.IdempotencyKey]; ok {
		return prev, nil
	}
	if c.FailOrder != nil {
		return airline.Order{}, c.FailOrder
	}
	var offer airline.Offer
	found := false
	for _, o := range c.offers {
		if o.ID == req.OfferID {
			offer = o
			found = true
			break
		}
	}
	if !found {
		return airline.Order{}, &airline.APIError{Status: 404, Code: "offer_not_found", Message: "offer not found"}
	}
	c.seq++
	order := airline.Order{
		ID:               fmt.Sprintf("ord-%d", c.seq),
		BookingReference: fmt.Sprintf("REF%03d", c.seq),
		Status:           "confirmed",
		TotalAmount:      offer.TotalAmount,
		Currency:         offer.Currency,
	}
	c.orders[req.IdempotencyKey] = order
	return order, nil
}

// OrderByKey returns the order placed under the key (for
// testing/inspection).
func (c *InMemoryAirlineClient) OrderByKey(idempotencyKey string) (airline.Order, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.orders[idempotencyKey]
	return o, ok
}

// OrderCount returns the number of distinct orders placed.
func (c *InMemoryAirlineClient) OrderCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.orders)
}
