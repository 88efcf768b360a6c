// Package payments talks to the payment processor. The saga only
// ever converts an existing authorization hold into a charge or
// reverses one; creating the hold belongs to the intake flow.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Capture is the processor's confirmation that a hold was charged.
type Capture struct {
	PaymentIntentID string
	Amount          float64
	Currency        string
	IdempotencyKey  string
}

// Refund is the processor's confirmation that a charge was reversed.
type Refund struct {
	ID     string
	Status string
}

// ProcessorError is a non-2xx response from the payment processor.
type ProcessorError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProcessorError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment processor %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("payment processor %d: %s", e.Status, e.Message)
}

// Client captures and refunds payments by reference. Amounts cross
// the wire in integer minor units; the domain carries decimals.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient constructs a payment processor client.
func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Capture converts the pre-authorized hold into a charge for exactly
// amount/currency. Replaying the same idempotency key returns the
// prior capture instead of charging twice.
func (c *Client) Capture(ctx context.Context, paymentIntentID string, amount float64, currency, idempotencyKey string) (Capture, error) {
	if paymentIntentID == "" {
		return Capture{}, fmt.Errorf("payment intent id required")
	}

	form := url.Values{}
	form.Set("amount_to_capture", strconv.FormatInt(toMinorUnits(amount), 10))

	var resp struct {
		ID             string `json:"id"`
		Status         string `json:"status"`
		AmountReceived int64  `json:"amount_received"`
		Currency       string `json:"currency"`
	}
	path := "/v1/payment_intents/" + paymentIntentID + "/capture"
	if err := c.post(ctx, path, form, idempotencyKey, &resp); err != nil {
		return Capture{}, fmt.Errorf("capture %s: %w", paymentIntentID, err)
	}

	return Capture{
		PaymentIntentID: resp.ID,
		Amount:          fromMinorUnits(resp.AmountReceived),
		Currency:        strings.ToUpper(resp.Currency),
		IdempotencyKey:  idempotencyKey,
	}, nil
}

// Refund reverses the captured charge in full. The idempotency key
// makes repeated compensation attempts return the original refund.
func (c *Client) Refund(ctx context.Context, paymentIntentID, idempotencyKey string) (Refund, error) {
	if paymentIntentID == "" {
		return Refund{}, fmt.Errorf("payment intent id required")
	}

	form := url.Values{}
	form.Set("payment_intent", paymentIntentID)
	form.Set("reason", "requested_by_customer")

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.post(ctx, "/v1/refunds", form, idempotencyKey, &resp); err != nil {
		return Refund{}, fmt.Errorf("refund %s: %w", paymentIntentID, err)
	}
	return Refund{ID: resp.ID, Status: resp.Status}, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, idempotencyKey string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeProcessorError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeProcessorError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	procErr := &ProcessorError{Status: resp.StatusCode, Message: string(raw)}

	var parsed struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		procErr.Code = parsed.Error.Code
		procErr.Message = parsed.Error.Message
	}
	return procErr
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromMinorUnits(minor int64) float64 {
	return float64(minor) / 100
}
