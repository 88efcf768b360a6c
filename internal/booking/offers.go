package booking

import (
	"context"
	"errors"
	"sort"
	"time"

	"skybook/internal/airline"
)

// Offers closer to expiry than this are never selected: the saga
// still has to capture payment and book before they lapse.
const selectExpiryBuffer = 2 * time.Minute

// Offers are re-checked immediately before money moves; under this
// margin the saga aborts instead of racing the expiry.
const bookExpiryBuffer = time.Minute

// ErrNoOffersFound signals an empty search result.
var ErrNoOffersFound = errors.New("no flights found for the trip criteria")

// ErrNoOffersWithinBudget signals offers existed but all exceeded the
// budget ceiling.
var ErrNoOffersWithinBudget = errors.New("no offers found within budget")

// ErrOfferExpired signals the selected offer lapsed (or is about to)
// before booking.
var ErrOfferExpired = errors.New("offer expired before booking")

// OfferSearcher is the slice of the airline client the selector uses.
type OfferSearcher interface {
	SearchOffers(ctx context.Context, params airline.SearchParams) ([]airline.Offer, error)
}

// OfferSelector finds the cheapest admissible offer for a trip.
type OfferSelector struct {
	search OfferSearcher
	now    func() time.Time
}

// NewOfferSelector constructs an OfferSelector.
func NewOfferSelector(search OfferSearcher) *OfferSelector {
	return &OfferSelector{search: search, now: time.Now}
}

// Select searches and returns the cheapest offer at or under budget
// with enough validity left to book safely.
func (s *OfferSelector) Select(ctx context.Context, params airline.SearchParams, budget float64) (airline.Offer, error) {
	offers, err := s.search.SearchOffers(ctx, params)
	if err != nil {
		return airline.Offer{}, err
	}
	if len(offers) == 0 {
		return airline.Offer{}, ErrNoOffersFound
	}

	now := s.now()
	admissible := make([]airline.Offer, 0, len(offers))
	for _, offer := range offers {
		if offer.TotalAmount > budget {
			continue
		}
		if !offer.ExpiresAt.After(now.Add(selectExpiryBuffer)) {
			continue
		}
		admissible = append(admissible, offer)
	}
	if len(admissible) == 0 {
		return airline.Offer{}, ErrNoOffersWithinBudget
	}

	sort.Slice(admissible, func(i, j int) bool {
		return admissible[i].TotalAmount < admissible[j].TotalAmount
	})
	return admissible[0], nil
}

// Recheck re-validates the offer's expiry immediately before capture
// and booking. Offers can lapse between selection and order creation.
func (s *OfferSelector) Recheck(offer airline.Offer) error {
	if !offer.ExpiresAt.After(s.now().Add(bookExpiryBuffer)) {
		return ErrOfferExpired
	}
	return nil
}
