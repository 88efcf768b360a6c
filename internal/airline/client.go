package airline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

// offerPollDelay gives the airline time to price an offer request
// before the offers list is fetched.
const offerPollDelay = 3 * time.Second

// Client calls the airline inventory/booking API. Every call waits on
// the per-class rate limiter and runs under the retry policy.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    CallLimiter
	retry      RetryPolicy
	sleep      func(context.Context, time.Duration) error
}

// NewClient constructs a Client. limiter may be nil to disable
// rate limiting (tests).
func NewClient(baseURL, token string, limiter CallLimiter, retry RetryPolicy) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    limiter,
		retry:      retry,
		sleep:      sleepWithContext,
	}
}

type sliceRequest struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
}

type passengerRequest struct {
	Type string `json:"type"`
}

type offerRequestBody struct {
	Data struct {
		Slices     []sliceRequest     `json:"slices"`
		Passengers []passengerRequest `json:"passengers"`
		CabinClass string             `json:"cabin_class"`
	} `json:"data"`
}

type offerJSON struct {
	ID            string           `json:"id"`
	ExpiresAt     time.Time        `json:"expires_at"`
	TotalAmount   string           `json:"total_amount"`
	TotalCurrency string           `json:"total_currency"`
	Slices        []Slice          `json:"slices"`
	Passengers    []OfferPassenger `json:"passengers"`
}

type orderJSON struct {
	ID               string `json:"id"`
	BookingReference string `json:"booking_reference"`
	Status           string `json:"status"`
	TotalAmount      string `json:"total_amount"`
	TotalCurrency    string `json:"total_currency"`
}

// SearchOffers creates an offer request for the trip and returns the
// priced offers. The offer request counts against the search quota;
// the follow-up offers fetch against the general quota.
func (c *Client) SearchOffers(ctx context.Context, params SearchParams) ([]Offer, error) {
	body := offerRequestBody{}
	body.Data.Slices = []sliceRequest{{
		Origin:        params.Origin,
		Destination:   params.Destination,
		DepartureDate: params.DepartureDate,
	}}
	if params.ReturnDate != "" {
		body.Data.Slices = append(body.Data.Slices, sliceRequest{
			Origin:        params.Destination,
			Destination:   params.Origin,
			DepartureDate: params.ReturnDate,
		})
	}
	passengers := params.Passengers
	if passengers < 1 {
		passengers = 1
	}
	for i := 0; i < passengers; i++ {
		body.Data.Passengers = append(body.Data.Passengers, passengerRequest{Type: "adult"})
	}
	body.Data.CabinClass = params.CabinClass
	if body.Data.CabinClass == "" {
		body.Data.CabinClass = CabinEconomy
	}

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, OpSearch, http.MethodPost, "/air/offer_requests", body, "", &created); err != nil {
		return nil, fmt.Errorf("create offer request: %w", err)
	}

	// The airline needs a moment to collect offers for the request.
	if err := c.sleep(ctx, offerPollDelay); err != nil {
		return nil, err
	}

	var listed struct {
		Data []offerJSON `json:"data"`
	}
	path := "/air/offers?offer_request_id=" + created.Data.ID + "&limit=50"
	if err := c.do(ctx, OpOther, http.MethodGet, path, nil, "", &listed); err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}

	offers := make([]Offer, 0, len(listed.Data))
	for _, raw := range listed.Data {
		offer, err := mapOffer(raw)
		if err != nil {
			log.Printf("airline: skipping unparsable offer %s: %v", raw.ID, err)
			continue
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

// GetOffer fetches a single offer by id.
func (c *Client) GetOffer(ctx context.Context, offerID string) (Offer, error) {
	var fetched struct {
		Data offerJSON `json:"data"`
	}
	if err := c.do(ctx, OpOther, http.MethodGet, "/air/offers/"+offerID, nil, "", &fetched); err != nil {
		return Offer{}, fmt.Errorf("get offer %s: %w", offerID, err)
	}
	return mapOffer(fetched.Data)
}

// CreateOrder books the offer. The idempotency key makes replays of a
// crashed saga return the original order instead of booking twice.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	type passengerJSON struct {
		ID          string `json:"id,omitempty"`
		Title       string `json:"title"`
		Gender      string `json:"gender"`
		GivenName   string `json:"given_name"`
		FamilyName  string `json:"family_name"`
		BornOn      string `json:"born_on"`
		Email       string `json:"email,omitempty"`
		PhoneNumber string `json:"phone_number,omitempty"`
	}
	body := struct {
		Data struct {
			SelectedOffers []string        `json:"selected_offers"`
			Passengers     []passengerJSON `json:"passengers"`
		} `json:"data"`
	}{}
	body.Data.SelectedOffers = []string{req.OfferID}
	for _, p := range req.Passengers {
		body.Data.Passengers = append(body.Data.Passengers, passengerJSON{
			ID:          p.ID,
			Title:       p.Title,
			Gender:      p.Gender,
			GivenName:   p.GivenName,
			FamilyName:  p.FamilyName,
			BornOn:      p.BornOn,
			Email:       p.Email,
			PhoneNumber: p.PhoneNumber,
		})
	}

	var created struct {
		Data orderJSON `json:"data"`
	}
	if err := c.do(ctx, OpOrder, http.MethodPost, "/air/orders", body, req.IdempotencyKey, &created); err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	return mapOrder(created.Data)
}

func (c *Client) do(ctx context.Context, op Op, method, path string, body any, idempotencyKey string, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	attempt := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, op); err != nil {
				return err
			}
		}
		return c.roundTrip(ctx, method, path, payload, idempotencyKey, out)
	}
	return c.retry.Do(ctx, attempt)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, idempotencyKey string, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	apiErr := &APIError{Status: resp.StatusCode, Message: string(raw)}

	var parsed struct {
		Errors []struct {
			Type    string `json:"type"`
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if len(parsed.Errors) > 0 {
			first := parsed.Errors[0]
			apiErr.Code = first.Code
			if apiErr.Code == "" {
				apiErr.Code = first.Type
			}
			apiErr.Message = first.Message
		} else if parsed.Message != "" {
			apiErr.Message = parsed.Message
		}
	}
	return apiErr
}

func mapOffer(raw offerJSON) (Offer, error) {
	amount, err := strconv.ParseFloat(raw.TotalAmount, 64)
	if err != nil {
		return Offer{}, fmt.Errorf("offer %s amount %q: %w", raw.ID, raw.TotalAmount, err)
	}
	return Offer{
		ID:          raw.ID,
		ExpiresAt:   raw.ExpiresAt,
		TotalAmount: amount,
		Currency:    raw.TotalCurrency,
		Slices:      raw.Slices,
		Passengers:  raw.Passengers,
	}, nil
}

func mapOrder(raw orderJSON) (Order, error) {
	amount, err := strconv.ParseFloat(raw.TotalAmount, 64)
	if err != nil {
		return Order{}, fmt.Errorf("order %s amount %q: %w", raw.ID, raw.TotalAmount, err)
	}
	return Order{
		ID:               raw.ID,
		BookingReference: raw.BookingReference,
		Status:           raw.Status,
		TotalAmount:      amount,
		Currency:         raw.TotalCurrency,
	}, nil
}
