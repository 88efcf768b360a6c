package airline

import (
	"fmt"
	"time"
)

// Op classifies an outbound call for rate-limiting purposes. The
// airline API enforces separate per-minute quotas for searches, order
// mutations, and everything else.
type Op string

const (
	OpSearch Op = "search"
	OpOrder  Op = "order"
	OpOther  Op = "other"
)

// CabinClass values accepted by the offers API.
const (
	CabinEconomy        = "economy"
	CabinPremiumEconomy = "premium_economy"
	CabinBusiness       = "business"
	CabinFirst          = "first"
)

// SearchParams describes one offer search.
type SearchParams struct {
	Origin        string
	Destination   string
	DepartureDate string
	ReturnDate    string
	Passengers    int
	CabinClass    string
}

// Segment is one flight leg within an offer or order slice.
type Segment struct {
	Origin       string    `json:"origin"`
	Destination  string    `json:"destination"`
	DepartingAt  time.Time `json:"departing_at"`
	ArrivingAt   time.Time `json:"arriving_at"`
	CarrierCode  string    `json:"carrier_code"`
	CarrierName  string    `json:"carrier_name"`
	FlightNumber string    `json:"flight_number"`
}

// Slice is one direction of travel, made of consecutive segments.
type Slice struct {
	Segments []Segment `json:"segments"`
}

// OfferPassenger identifies a passenger slot priced into an offer.
type OfferPassenger struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Offer is a priced, time-bounded itinerary. Validity is a function
// of wall-clock time against ExpiresAt, never a stored flag.
type Offer struct {
	ID          string
	ExpiresAt   time.Time
	TotalAmount float64
	Currency    string
	Slices      []Slice
	Passengers  []OfferPassenger
}

// Passenger carries the traveler identity fields an order requires.
type Passenger struct {
	ID             string
	Type           string
	Title          string
	Gender         string
	GivenName      string
	FamilyName     string
	BornOn         string
	Email          string
	PhoneNumber    string
	PassportNumber string
	Nationality    string
}

// OrderRequest books a selected offer.
type OrderRequest struct {
	OfferID        string
	Passengers     []Passenger
	IdempotencyKey string
}

// Order is the airline's record of a successful booking.
type Order struct {
	ID               string
	BookingReference string
	Status           string
	TotalAmount      float64
	Currency         string
}

// APIError is a non-2xx response from the airline API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("airline api %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("airline api %d: %s", e.Status, e.Message)
}

// Retryable reports whether the error is worth retrying: rate limits
// and server errors only. Other 4xx indicate a malformed request that
// cannot succeed on replay.
func (e *APIError) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}
