// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/paysync/internal/config"
	"github.com/tomtom215/paysync/internal/logging"
	"github.com/tomtom215/paysync/internal/metrics"
	"github.com/tomtom215/paysync/internal/models"
)

const (
	opCreateCharge = "create_charge"
	opFetchStatus  = "fetch_status"

	// maxResponseBytes bounds how much of a gateway response is read.
	maxResponseBytes = 1 << 20
	// maxErrorBody bounds the body kept on a RejectedError.
	maxErrorBody = 512
)

// Gateway is the narrow surface the engine and HTTP adapters depend on.
type Gateway interface {
	CreateCharge(ctx context.Context, order models.Order) (*models.ChargeReference, error)
	FetchStatus(ctx context.Context, orderID string) (*models.Snapshot, error)
	VerifySignature(rawBody []byte, signature string) bool
}

// URLs are the callback addresses placed in order_meta.
type URLs struct {
	// DashboardURL is the browser return address for existing users.
	DashboardURL string
	// RegistrationURL is the browser return address after sign-up checkout.
	RegistrationURL string
	// NotifyURL receives the gateway's webhook pushes.
	NotifyURL string
}

// Client handles communication with the Cashfree PG orders API.
//
// Each logical call runs under the circuit breaker (when enabled) and retries
// transient failures with exponential backoff. Every attempt, retries
// included, first waits on the outbound rate limiter.
//
// Thread Safety: Safe for concurrent use.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	apiVersion   string

	client         *http.Client
	maxAttempts    int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration

	limiter *rate.Limiter
	breaker *breaker
	urls    URLs
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// NewClient creates a gateway client from configuration.
func NewClient(cfg *config.GatewayConfig, urls URLs, opts ...Option) *Client {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		clientID:       cfg.ClientID,
		clientSecret:   cfg.ClientSecret,
		apiVersion:     cfg.APIVersion,
		client:         &http.Client{Timeout: timeout},
		maxAttempts:    attempts,
		retryBaseDelay: cfg.RetryBaseDelay,
		retryMaxDelay:  cfg.RetryMaxDelay,
		limiter:        rate.NewLimiter(limit, burst),
		urls:           urls,
	}
	if cfg.BreakerEnabled {
		c.breaker = newBreaker(breakerName)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BreakerState reports the circuit state ("disabled" when no breaker is configured).
func (c *Client) BreakerState() string {
	return c.breaker.state()
}

type chargeCustomer struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type chargeMeta struct {
	ReturnURL string `json:"return_url"`
	NotifyURL string `json:"notify_url"`
}

type chargeRequest struct {
	OrderID       string         `json:"order_id"`
	OrderAmount   float64        `json:"order_amount"`
	OrderCurrency string         `json:"order_currency"`
	Customer      chargeCustomer `json:"customer_details"`
	OrderMeta     chargeMeta     `json:"order_meta"`
	OrderNote     string         `json:"order_note,omitempty"`
}

// CreateCharge registers an order with the gateway. Plan, promo code and
// original amount travel in order_note and are echoed back on every status
// read and webhook.
func (c *Client) CreateCharge(ctx context.Context, order models.Order) (*models.ChargeReference, error) {
	if err := models.ValidateOrderID(order.ID); err != nil {
		return nil, err
	}

	body, err := json.Marshal(c.buildChargeRequest(order))
	if err != nil {
		return nil, fmt.Errorf("encode charge request: %w", err)
	}

	data, err := c.call(ctx, opCreateCharge, http.MethodPost, c.baseURL, body)
	if err != nil {
		return nil, err
	}

	var ref models.ChargeReference
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("%w: decode charge response: %v", ErrMalformedPayload, err)
	}
	if ref.OrderID == "" {
		ref.OrderID = order.ID
	}
	return &ref, nil
}

func (c *Client) buildChargeRequest(order models.Order) chargeRequest {
	amount := RoundAmount(order.Amount)
	phone := digitsOnly(order.Customer.Phone)

	currency := order.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}

	// OrderNote holds only strings and floats; Marshal cannot fail.
	noteJSON, _ := json.Marshal(NoteForOrder(order))

	return chargeRequest{
		OrderID:       order.ID,
		OrderAmount:   amount,
		OrderCurrency: currency,
		Customer: chargeCustomer{
			CustomerID:    phone,
			CustomerName:  strings.TrimSpace(order.Customer.Name),
			CustomerEmail: strings.ToLower(strings.TrimSpace(order.Customer.Email)),
			CustomerPhone: phone,
		},
		OrderMeta: chargeMeta{
			ReturnURL: c.returnURL(order),
			NotifyURL: c.urls.NotifyURL,
		},
		OrderNote: string(noteJSON),
	}
}

func (c *Client) returnURL(order models.Order) string {
	if order.Context == models.OrderContextRegistration && c.urls.RegistrationURL != "" {
		return c.urls.RegistrationURL
	}
	return c.urls.DashboardURL
}

// NoteForOrder builds the order_note metadata. The plan defaults to silver
// and the original amount to the charged amount.
func NoteForOrder(order models.Order) models.OrderNote {
	plan := order.PlanType
	if plan == "" {
		plan = models.PlanTypeSilver
	}
	original := RoundAmount(order.Amount)
	if order.OriginalAmount != nil && *order.OriginalAmount > 0 {
		original = *order.OriginalAmount
	}
	note := models.OrderNote{PlanType: plan, OriginalAmount: &original}
	if order.PromoCode != "" {
		note.PromoCode = models.StringPtr(order.PromoCode)
	}
	return note
}

// FetchStatus retrieves the current order document. The read is eventually
// consistent with the gateway's own settlement.
func (c *Client) FetchStatus(ctx context.Context, orderID string) (*models.Snapshot, error) {
	if err := models.ValidateOrderID(orderID); err != nil {
		return nil, err
	}

	data, err := c.call(ctx, opFetchStatus, http.MethodGet, c.baseURL+"/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, err
	}

	snap, err := DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	if snap.OrderID == "" {
		snap.OrderID = orderID
	}
	return snap, nil
}

// DecodeSnapshot decodes an order document and keeps the raw bytes.
func DecodeSnapshot(data []byte) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: decode order: %v", ErrMalformedPayload, err)
	}
	snap.Raw = append(json.RawMessage(nil), data...)
	return &snap, nil
}

// call runs one logical gateway call under the breaker and records metrics.
func (c *Client) call(ctx context.Context, op, method, reqURL string, body []byte) ([]byte, error) {
	start := time.Now()
	data, err := c.breaker.execute(op, func() ([]byte, error) {
		return c.doWithRetry(ctx, op, method, reqURL, body)
	})

	result := "ok"
	switch {
	case errors.Is(err, ErrGatewayRejected):
		result = "rejected"
	case err != nil:
		result = "unavailable"
	}
	metrics.RecordGatewayCall(op, result, time.Since(start))
	return data, err
}

// doWithRetry performs the HTTP exchange. Network errors, 5xx and 429 are
// retried with exponential backoff (base * 2^attempt, capped); a numeric
// Retry-After header overrides the computed delay. Other 4xx fail at once.
func (c *Client) doWithRetry(ctx context.Context, op, method, reqURL string, body []byte) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, &UnavailableError{Op: op, Err: ctx.Err()}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &UnavailableError{Op: op, Err: err}
		}

		data, retryAfter, err := c.doOnce(ctx, op, method, reqURL, body)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrGatewayUnavailable) {
			return nil, err
		}
		lastErr = err

		if attempt == c.maxAttempts-1 {
			break
		}

		delay := c.backoff(attempt, retryAfter)
		metrics.GatewayRetries.WithLabelValues(op).Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("operation", op).Int("attempt", attempt+1).Int("max_attempts", c.maxAttempts).Dur("delay", delay).Msg("Gateway call failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, &UnavailableError{Op: op, Err: ctx.Err()}
		}
	}

	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, op, method, reqURL string, body []byte) ([]byte, time.Duration, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-client-secret", c.clientSecret)
	req.Header.Set("x-api-version", c.apiVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, &UnavailableError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, 0, &UnavailableError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return data, 0, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")),
			&UnavailableError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	default:
		return nil, 0, &RejectedError{Op: op, StatusCode: resp.StatusCode, Body: truncate(string(data), maxErrorBody)}
	}
}

func (c *Client) backoff(attempt int, retryAfter time.Duration) time.Duration {
	delay := retryAfter
	if delay <= 0 {
		delay = c.retryBaseDelay * time.Duration(1<<uint(attempt))
	}
	if c.retryMaxDelay > 0 && delay > c.retryMaxDelay {
		delay = c.retryMaxDelay
	}
	return delay
}

// parseRetryAfter reads the delay-seconds form of Retry-After (RFC 9110).
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// RoundAmount rounds to two decimal places for the gateway.
func RoundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
