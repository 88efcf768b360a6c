package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"skybook/internal/booking"
	"skybook/internal/observability"
)

type stubService struct {
	result booking.Result
	err    error

	gotTripID   string
	gotMaxPrice float64
}

func (s *stubService) Execute(_ context.Context, tripRequestID string, maxPrice float64) (booking.Result, error) {
	s.gotTripID = tripRequestID
	s.gotMaxPrice = maxPrice
	return s.result, s.err
}

func doAutoBook(t *testing.T, svc BookingService, body string) (*httptest.ResponseRecorder, autoBookResponse) {
	t.Helper()

	handler := NewHandler(svc, observability.NewMetrics())
	req := httptest.NewRequest(http.MethodPost, "/auto-book", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.AutoBook(rr, req)

	var resp autoBookResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return rr, resp
}

func TestAutoBook_Success(t *testing.T) {
	svc := &stubService{result: booking.Result{
		BookingID:        "booking-1",
		OrderID:          "ord-1",
		BookingReference: "ABC123",
		TotalAmount:      180,
		Currency:         "USD",
	}}

	rr, resp := doAutoBook(t, svc, `{"tripRequestId":"trip-1","maxPrice":250}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !resp.Success || resp.Status != "confirmed" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.BookingID != "booking-1" || resp.BookingReference != "ABC123" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if svc.gotTripID != "trip-1" || svc.gotMaxPrice != 250 {
		t.Fatalf("request not passed through: %s %.2f", svc.gotTripID, svc.gotMaxPrice)
	}
}

func TestAutoBook_AlreadyInProgress(t *testing.T) {
	svc := &stubService{result: booking.Result{AlreadyInProgress: true}}

	rr, resp := doAutoBook(t, svc, `{"tripRequestId":"trip-1"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !resp.Success || resp.Message == "" {
		t.Fatalf("expected in-progress message, got %+v", resp)
	}
	if resp.BookingID != "" {
		t.Fatalf("no booking id expected: %+v", resp)
	}
}

func TestAutoBook_SagaFailure(t *testing.T) {
	svc := &stubService{err: errors.New("booking failed: create order: boom; payment has been refunded")}

	rr, resp := doAutoBook(t, svc, `{"tripRequestId":"trip-1"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if resp.Success {
		t.Fatalf("expected failure envelope: %+v", resp)
	}
	if !strings.Contains(resp.Error, "payment has been refunded") {
		t.Fatalf("refund disposition missing from error: %+v", resp)
	}
	if resp.Timestamp == "" {
		t.Fatalf("expected timestamp on failure envelope")
	}
}

func TestAutoBook_TripNotFound(t *testing.T) {
	svc := &stubService{err: booking.ErrTripNotFound}

	rr, resp := doAutoBook(t, svc, `{"tripRequestId":"trip-missing"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if resp.Success {
		t.Fatalf("expected failure envelope: %+v", resp)
	}
}

func TestAutoBook_BadRequests(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"tripRequestId":`},
		{"missing trip id", `{"maxPrice":100}`},
		{"negative max price", `{"tripRequestId":"trip-1","maxPrice":-5}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{}
			rr, resp := doAutoBook(t, svc, tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			if resp.Success {
				t.Fatalf("expected failure envelope: %+v", resp)
			}
			if svc.gotTripID != "" {
				t.Fatalf("service must not be called on bad input")
			}
		})
	}
}

func TestAutoBook_MethodNotAllowed(t *testing.T) {
	handler := NewHandler(&stubService{}, observability.NewMetrics())
	req := httptest.NewRequest(http.MethodGet, "/auto-book", nil)
	rr := httptest.NewRecorder()
	handler.AutoBook(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestRegister_Healthz(t *testing.T) {
	mux := http.NewServeMux()
	NewHandler(&stubService{}, observability.NewMetrics()).Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
