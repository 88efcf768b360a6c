package bookingdb

import (
	"context"
	"database/sql"
	"errors"

	"skybook/internal/booking"
)

// TripStore reads trip requests from Postgres. The table is owned by
// the trip intake service; this store never writes it.
type TripStore struct {
	db *sql.DB
}

// NewTripStore constructs a TripStore backed by Postgres.
func NewTripStore(db *sql.DB) *TripStore {
	return &TripStore{db: db}
}

// TripRequest loads a trip request by id.
func (s *TripStore) TripRequest(ctx context.Context, id string) (booking.TripRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, origin, destination,
			COALESCE(origin_country, ''), COALESCE(destination_country, ''),
			departure_date, COALESCE(return_date, ''),
			adults, COALESCE(cabin_class, ''),
			COALESCE(max_price, 0), COALESCE(currency, ''),
			COALESCE(traveler_first_name, ''), COALESCE(traveler_last_name, ''),
			COALESCE(traveler_email, ''), COALESCE(traveler_phone, ''),
			COALESCE(traveler_date_of_birth, ''), COALESCE(traveler_gender, ''),
			COALESCE(traveler_title, ''), COALESCE(traveler_passport_number, ''),
			COALESCE(traveler_nationality, ''),
			COALESCE(payment_intent_id, '')
		FROM trip_requests
		WHERE id = $1`,
		id,
	)

	var t booking.TripRequest
	if err := row.Scan(
		&t.ID, &t.UserID, &t.Origin, &t.Destination,
		&t.OriginCountry, &t.DestinationCountry,
		&t.DepartureDate, &t.ReturnDate,
		&t.Adults, &t.CabinClass,
		&t.MaxPrice, &t.Currency,
		&t.Traveler.FirstName, &t.Traveler.LastName,
		&t.Traveler.Email, &t.Traveler.Phone,
		&t.Traveler.DateOfBirth, &t.Traveler.Gender,
		&t.Traveler.Title, &t.Traveler.PassportNumber,
		&t.Traveler.Nationality,
		&t.PaymentIntentID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return booking.TripRequest{}, booking.ErrTripNotFound
		}
		return booking.TripRequest{}, err
	}
	return t, nil
}
