package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"skybook/internal/booking"
	"skybook/internal/observability"
)

// BookingService defines the behavior needed by the HTTP adapter.
type BookingService interface {
	Execute(ctx context.Context, tripRequestID string, maxPrice float64) (booking.Result, error)
}

// Handler adapts BookingService to HTTP.
type Handler struct {
	service BookingService
	metrics *observability.Metrics
}

// NewHandler constructs a Handler.
func NewHandler(svc BookingService, metrics *observability.Metrics) *Handler {
	return &Handler{service: svc, metrics: metrics}
}

// Register mounts the booking routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/auto-book", h.AutoBook)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type autoBookRequest struct {
	TripRequestID string  `json:"tripRequestId"`
	MaxPrice      float64 `json:"maxPrice,omitempty"`
}

type autoBookResponse struct {
	Success          bool    `json:"success"`
	BookingID        string  `json:"bookingId,omitempty"`
	OrderID          string  `json:"orderId,omitempty"`
	BookingReference string  `json:"bookingReference,omitempty"`
	TotalAmount      float64 `json:"totalAmount,omitempty"`
	Currency         string  `json:"currency,omitempty"`
	Status           string  `json:"status,omitempty"`
	Message          string  `json:"message,omitempty"`
	Error            string  `json:"error,omitempty"`
	Timestamp        string  `json:"timestamp,omitempty"`
}

// AutoBook runs the booking flow for a trip request. Saga failures are
// reported in the response envelope, not as bare HTTP errors: the
// caller always gets a JSON body saying what happened.
func (h *Handler) AutoBook(w http.ResponseWriter, r *http.Request) {
	span := h.metrics.Start("httpapi.AutoBook")

	if r.Method != http.MethodPost {
		span.End(nil)
		writeJSON(w, http.StatusMethodNotAllowed, autoBookResponse{
			Success: false,
			Error:   "method not allowed",
		})
		return
	}

	var req autoBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.End(nil)
		writeJSON(w, http.StatusBadRequest, autoBookResponse{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}
	if req.TripRequestID == "" {
		span.End(nil)
		writeJSON(w, http.StatusBadRequest, autoBookResponse{
			Success: false,
			Error:   "tripRequestId is required",
		})
		return
	}
	if req.MaxPrice < 0 {
		span.End(nil)
		writeJSON(w, http.StatusBadRequest, autoBookResponse{
			Success: false,
			Error:   "maxPrice must be positive",
		})
		return
	}

	res, err := h.service.Execute(r.Context(), req.TripRequestID, req.MaxPrice)
	span.End(err)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, booking.ErrTripNotFound) {
			status = http.StatusNotFound
		}
		log.Printf("auto-book %s: %v", req.TripRequestID, err)
		writeJSON(w, status, autoBookResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	if res.AlreadyInProgress {
		writeJSON(w, http.StatusOK, autoBookResponse{
			Success: true,
			Message: "booking already in progress for this trip request",
		})
		return
	}

	writeJSON(w, http.StatusOK, autoBookResponse{
		Success:          true,
		BookingID:        res.BookingID,
		OrderID:          res.OrderID,
		BookingReference: res.BookingReference,
		TotalAmount:      res.TotalAmount,
		Currency:         res.Currency,
		Status:           "confirmed",
	})
}

func writeJSON(w http.ResponseWriter, status int, body autoBookResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}
