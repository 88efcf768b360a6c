package booking

import (
	"errors"
	"testing"

	"skybook/internal/airline"
)

func TestTripRequest_International(t *testing.T) {
	trip := testTrip()
	if !trip.International() {
		t.Fatalf("GB->US should be international")
	}

	trip.DestinationCountry = "GB"
	if trip.International() {
		t.Fatalf("GB->GB should be domestic")
	}

	trip.OriginCountry = ""
	if trip.International() {
		t.Fatalf("unknown origin country must not count as international")
	}
}

func TestTripRequest_ValidateForBooking(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*TripRequest)
		wantErr error
	}{
		{"complete", func(*TripRequest) {}, nil},
		{"missing first name", func(tr *TripRequest) { tr.Traveler.FirstName = "" }, ErrIncompleteTraveler},
		{"missing last name", func(tr *TripRequest) { tr.Traveler.LastName = "" }, ErrIncompleteTraveler},
		{"missing email", func(tr *TripRequest) { tr.Traveler.Email = "" }, ErrIncompleteTraveler},
		{"international without passport", func(tr *TripRequest) { tr.Traveler.PassportNumber = "" }, ErrPassportRequired},
		{"no payment hold", func(tr *TripRequest) { tr.PaymentIntentID = "" }, ErrNoPaymentMethod},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trip := testTrip()
			tc.mutate(&trip)
			err := trip.ValidateForBooking()
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestTripRequest_ValidateForBooking_DomesticNoPassport(t *testing.T) {
	trip := testTrip()
	trip.DestinationCountry = "GB"
	trip.Traveler.PassportNumber = ""
	if err := trip.ValidateForBooking(); err != nil {
		t.Fatalf("domestic trips do not need a passport: %v", err)
	}
}

func TestTripRequest_SearchParams(t *testing.T) {
	trip := testTrip()
	params := trip.SearchParams()
	if params.Origin != "LHR" || params.Destination != "JFK" {
		t.Fatalf("unexpected route: %+v", params)
	}
	if params.Passengers != 1 || params.CabinClass != airline.CabinEconomy {
		t.Fatalf("unexpected params: %+v", params)
	}

	trip.Adults = 0
	if got := trip.SearchParams().Passengers; got != 1 {
		t.Fatalf("zero adults must default to 1, got %d", got)
	}
}

func TestTripRequest_Passengers_FillsOfferSlots(t *testing.T) {
	trip := testTrip()
	offer := airline.Offer{Passengers: []airline.OfferPassenger{
		{ID: "pas-1", Type: "adult"},
		{ID: "pas-2", Type: "adult"},
	}}

	passengers := trip.Passengers(offer)
	if len(passengers) != 2 {
		t.Fatalf("expected one passenger per slot, got %d", len(passengers))
	}
	if passengers[0].ID != "pas-1" || passengers[1].ID != "pas-2" {
		t.Fatalf("slot ids not carried over: %+v", passengers)
	}
	for _, p := range passengers {
		if p.GivenName != "Ada" || p.FamilyName != "Lovelace" {
			t.Fatalf("traveler identity not applied: %+v", p)
		}
		if p.Title != "mr" {
			t.Fatalf("missing title must default, got %q", p.Title)
		}
	}
}

func TestTripRequest_Passengers_NoSlotsFallsBackToAdult(t *testing.T) {
	trip := testTrip()
	trip.Traveler.Title = "ms"
	trip.Traveler.Gender = "female"

	passengers := trip.Passengers(airline.Offer{})
	if len(passengers) != 1 {
		t.Fatalf("expected single fallback passenger, got %d", len(passengers))
	}
	p := passengers[0]
	if p.Type != "adult" || p.Title != "ms" || p.Gender != "female" {
		t.Fatalf("unexpected fallback passenger: %+v", p)
	}
}
