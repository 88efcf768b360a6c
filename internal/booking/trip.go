package booking

import (
	"context"
	"errors"

	"skybook/internal/airline"
)

// ErrTripNotFound signals an unknown trip request id.
var ErrTripNotFound = errors.New("trip request not found")

// ErrIncompleteTraveler signals missing required traveler identity
// fields.
var ErrIncompleteTraveler = errors.New("traveler data incomplete: first name, last name and email are required")

// ErrPassportRequired signals an international itinerary without a
// passport number on file.
var ErrPassportRequired = errors.New("passport number required for international travel")

// ErrNoPaymentMethod signals a trip without a pre-authorized payment
// hold to capture.
var ErrNoPaymentMethod = errors.New("trip request has no pre-authorized payment")

// TravelerData is the identity block attached to a trip request.
type TravelerData struct {
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	DateOfBirth    string
	Gender         string
	Title          string
	PassportNumber string
	Nationality    string
}

// TripRequest is the stored trip intent the saga books against. It is
// owned by the intake subsystem and read-only here.
type TripRequest struct {
	ID                 string
	UserID             string
	Origin             string
	Destination        string
	OriginCountry      string
	DestinationCountry string
	DepartureDate      string
	ReturnDate         string
	Adults             int
	CabinClass         string
	MaxPrice           float64
	Currency           string
	Traveler           TravelerData
	PaymentIntentID    string
}

// TripSource loads trip requests.
type TripSource interface {
	TripRequest(ctx context.Context, id string) (TripRequest, error)
}

// International reports whether the itinerary crosses a border,
// based on the country codes recorded with the route.
func (t TripRequest) International() bool {
	return t.OriginCountry != "" && t.DestinationCountry != "" &&
		t.OriginCountry != t.DestinationCountry
}

// ValidateForBooking checks the trip can be booked unattended: the
// traveler block must be complete, international itineraries need a
// passport, and a payment hold must exist to capture.
func (t TripRequest) ValidateForBooking() error {
	tr := t.Traveler
	if tr.FirstName == "" || tr.LastName == "" || tr.Email == "" {
		return ErrIncompleteTraveler
	}
	if t.International() && tr.PassportNumber == "" {
		return ErrPassportRequired
	}
	if t.PaymentIntentID == "" {
		return ErrNoPaymentMethod
	}
	return nil
}

// SearchParams maps the trip onto an airline offer search.
func (t TripRequest) SearchParams() airline.SearchParams {
	adults := t.Adults
	if adults < 1 {
		adults = 1
	}
	return airline.SearchParams{
		Origin:        t.Origin,
		Destination:   t.Destination,
		DepartureDate: t.DepartureDate,
		ReturnDate:    t.ReturnDate,
		Passengers:    adults,
		CabinClass:    t.CabinClass,
	}
}

// Passengers maps the traveler block onto the passenger slots priced
// into the offer. The lead traveler fills every slot; multi-traveler
// profiles belong to the intake subsystem.
func (t TripRequest) Passengers(offer airline.Offer) []airline.Passenger {
	tr := t.Traveler
	title := tr.Title
	if title == "" {
		title = "mr"
	}
	gender := tr.Gender
	if gender == "" {
		gender = "male"
	}

	passengers := make([]airline.Passenger, 0, len(offer.Passengers))
	for _, slot := range offer.Passengers {
		passengers = append(passengers, airline.Passenger{
			ID:             slot.ID,
			Type:           slot.Type,
			Title:          title,
			Gender:         gender,
			GivenName:      tr.FirstName,
			FamilyName:     tr.LastName,
			BornOn:         tr.DateOfBirth,
			Email:          tr.Email,
			PhoneNumber:    tr.Phone,
			PassportNumber: tr.PassportNumber,
			Nationality:    tr.Nationality,
		})
	}
	if len(passengers) == 0 {
		passengers = append(passengers, airline.Passenger{
			Type:           "adult",
			Title:          title,
			Gender:         gender,
			GivenName:      tr.FirstName,
			FamilyName:     tr.LastName,
			BornOn:         tr.DateOfBirth,
			Email:          tr.Email,
			PhoneNumber:    tr.Phone,
			PassportNumber: tr.PassportNumber,
			Nationality:    tr.Nationality,
		})
	}
	return passengers
}
