package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"skybook/internal/airline"
)

func newTestSelector(search OfferSearcher, now time.Time) *OfferSelector {
	s := NewOfferSelector(search)
	s.now = func() time.Time { return now }
	return s
}

func offerAt(id string, amount float64, expiresAt time.Time) airline.Offer {
	return airline.Offer{ID: id, TotalAmount: amount, Currency: "USD", ExpiresAt: expiresAt}
}

func TestOfferSelector_Select_CheapestWithinBudget(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	client := NewInMemoryAirlineClient()
	client.SetOffers([]airline.Offer{
		offerAt("off-200", 200, now.Add(time.Hour)),
		offerAt("off-80", 80, now.Add(time.Hour)),
		offerAt("off-120", 120, now.Add(time.Hour)),
	})

	selector := newTestSelector(client, now)
	offer, err := selector.Select(context.Background(), airline.SearchParams{}, 150)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if offer.ID != "off-80" {
		t.Fatalf("expected cheapest admissible offer, got %s", offer.ID)
	}
}

func TestOfferSelector_Select_SkipsNearExpiry(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	client := NewInMemoryAirlineClient()
	client.SetOffers([]airline.Offer{
		// Cheapest, but expires in 90s: inside the selection buffer.
		offerAt("off-expiring", 80, now.Add(90*time.Second)),
		offerAt("off-valid", 120, now.Add(time.Hour)),
	})

	selector := newTestSelector(client, now)
	offer, err := selector.Select(context.Background(), airline.SearchParams{}, 150)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if offer.ID != "off-valid" {
		t.Fatalf("expected near-expiry offer skipped, got %s", offer.ID)
	}
}

func TestOfferSelector_Select_NoOffersFound(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	client := NewInMemoryAirlineClient()

	selector := newTestSelector(client, now)
	_, err := selector.Select(context.Background(), airline.SearchParams{}, 150)
	if !errors.Is(err, ErrNoOffersFound) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOfferSelector_Select_NoneWithinBudget(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	client := NewInMemoryAirlineClient()
	client.SetOffers([]airline.Offer{
		offerAt("off-200", 200, now.Add(time.Hour)),
		offerAt("off-300", 300, now.Add(time.Hour)),
	})

	selector := newTestSelector(client, now)
	_, err := selector.Select(context.Background(), airline.SearchParams{}, 150)
	if !errors.Is(err, ErrNoOffersWithinBudget) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOfferSelector_Select_BudgetBoundaryInclusive(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	client := NewInMemoryAirlineClient()
	client.SetOffers([]airline.Offer{
		offerAt("off-exact", 150, now.Add(time.Hour)),
	})

	selector := newTestSelector(client, now)
	offer, err := selector.Select(context.Background(), airline.SearchParams{}, 150)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if offer.ID != "off-exact" {
		t.Fatalf("offer at exactly the budget must be admissible")
	}
}

func TestOfferSelector_Select_PropagatesSearchError(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	client := NewInMemoryAirlineClient()
	client.SearchErr = errors.New("search down")

	selector := newTestSelector(client, now)
	if _, err := selector.Select(context.Background(), airline.SearchParams{}, 150); err == nil {
		t.Fatalf("expected search error")
	}
}

func TestOfferSelector_Recheck(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	selector := newTestSelector(NewInMemoryAirlineClient(), now)

	if err := selector.Recheck(offerAt("off-ok", 100, now.Add(5*time.Minute))); err != nil {
		t.Fatalf("Recheck: %v", err)
	}
	err := selector.Recheck(offerAt("off-tight", 100, now.Add(30*time.Second)))
	if !errors.Is(err, ErrOfferExpired) {
		t.Fatalf("unexpected error: %v", err)
	}
	err = selector.Recheck(offerAt("off-exact", 100, now.Add(time.Minute)))
	if !errors.Is(err, ErrOfferExpired) {
		t.Fatalf("offer expiring exactly at the buffer must be rejected, got %v", err)
	}
}
