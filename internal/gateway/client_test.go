// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/paysync/internal/config"
	"github.com/tomtom215/paysync/internal/models"
)

func testConfig(baseURL string) *config.GatewayConfig {
	return &config.GatewayConfig{
		BaseURL:        baseURL,
		ClientID:       "app-id",
		ClientSecret:   "secret-key",
		APIVersion:     "2022-09-01",
		Timeout:        2 * time.Second,
		MaxAttempts:    3,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
	}
}

var testURLs = URLs{
	DashboardURL:    "http://app.test/user/userDashboard",
	RegistrationURL: "http://app.test/activation-pending?registration_success=true",
	NotifyURL:       "http://api.test/api/v1/payments/webhook",
}

func TestCreateChargeRequestShape(t *testing.T) {
	t.Parallel()

	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("x-client-id") != "app-id" || r.Header.Get("x-client-secret") != "secret-key" {
			t.Errorf("credential headers missing: %v", r.Header)
		}
		if r.Header.Get("x-api-version") != "2022-09-01" {
			t.Errorf("expected api version header, got %q", r.Header.Get("x-api-version"))
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"order_id":"ORD-1","cf_order_id":2149460581,"order_status":"ACTIVE","payment_session_id":"session_x","order_amount":499}`))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), testURLs)
	original := 999.0
	ref, err := c.CreateCharge(context.Background(), models.Order{
		ID:             "ORD-1",
		Amount:         499.004,
		Customer:       models.Customer{Name: "  Jane Doe ", Email: " Jane@Example.COM ", Phone: "+91 98765-43210"},
		PlanType:       models.PlanTypePremium,
		PromoCode:      "SAVE50",
		OriginalAmount: &original,
		Context:        models.OrderContextRegistration,
	})
	if err != nil {
		t.Fatalf("CreateCharge failed: %v", err)
	}
	if ref.CFOrderID != "2149460581" {
		t.Errorf("expected numeric cf_order_id decoded as string, got %q", ref.CFOrderID)
	}
	if ref.PaymentSessionID != "session_x" {
		t.Errorf("expected payment session id, got %q", ref.PaymentSessionID)
	}

	if got["order_amount"] != 499.0 {
		t.Errorf("expected amount rounded to 2dp, got %v", got["order_amount"])
	}
	if got["order_currency"] != "INR" {
		t.Errorf("expected default currency INR, got %v", got["order_currency"])
	}
	customer := got["customer_details"].(map[string]interface{})
	if customer["customer_id"] != "919876543210" || customer["customer_phone"] != "919876543210" {
		t.Errorf("expected digits-only phone as id and phone, got %v", customer)
	}
	if customer["customer_name"] != "Jane Doe" || customer["customer_email"] != "jane@example.com" {
		t.Errorf("expected trimmed name and lowercased email, got %v", customer)
	}
	meta := got["order_meta"].(map[string]interface{})
	if meta["return_url"] != testURLs.RegistrationURL {
		t.Errorf("expected registration return url, got %v", meta["return_url"])
	}
	if meta["notify_url"] != testURLs.NotifyURL {
		t.Errorf("expected notify url, got %v", meta["notify_url"])
	}

	var note models.OrderNote
	if err := json.Unmarshal([]byte(got["order_note"].(string)), &note); err != nil {
		t.Fatalf("order_note is not JSON: %v", err)
	}
	if note.PlanType != models.PlanTypePremium || note.PromoCode == nil || *note.PromoCode != "SAVE50" {
		t.Errorf("unexpected note: %+v", note)
	}
	if note.OriginalAmount == nil || *note.OriginalAmount != 999 {
		t.Errorf("expected original amount 999, got %v", note.OriginalAmount)
	}
}

func TestNoteForOrderDefaults(t *testing.T) {
	t.Parallel()

	note := NoteForOrder(models.Order{ID: "ORD-2", Amount: 10.555})
	if note.PlanType != models.PlanTypeSilver {
		t.Errorf("expected silver default, got %q", note.PlanType)
	}
	if note.PromoCode != nil {
		t.Errorf("expected no promo code, got %v", *note.PromoCode)
	}
	if note.OriginalAmount == nil || *note.OriginalAmount != 10.56 {
		t.Errorf("expected original amount to default to the rounded charge, got %v", note.OriginalAmount)
	}
}

func TestReturnURLDefaultsToDashboard(t *testing.T) {
	t.Parallel()

	c := NewClient(testConfig("http://unused"), testURLs)
	for _, ctxName := range []models.OrderContext{"", models.OrderContextExistingUser} {
		if got := c.returnURL(models.Order{Context: ctxName}); got != testURLs.DashboardURL {
			t.Errorf("context %q: expected dashboard url, got %s", ctxName, got)
		}
	}
}

func TestFetchStatusRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ORD-3" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(`{"order_id":"ORD-3","cf_order_id":"77","order_amount":1,"order_status":"PAID","payment_status":"SUCCESS","customer_details":{"customer_email":"a@b.com"}}`))
		}
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), testURLs)
	snap, err := c.FetchStatus(context.Background(), "ORD-3")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if snap.NormalizedOrderStatus() != models.OrderStatusPaid {
		t.Errorf("expected PAID, got %s", snap.OrderStatus)
	}
	if ps, ok := snap.NormalizedPaymentStatus(); !ok || ps != models.PaymentStatusSuccess {
		t.Errorf("expected payment status SUCCESS, got %q (present=%v)", ps, ok)
	}
	if len(snap.Raw) == 0 {
		t.Error("expected raw body to be kept")
	}
}

func TestFetchStatusDoesNotRetryRejections(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"order not found","code":"order_not_found"}`))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), testURLs)
	_, err := c.FetchStatus(context.Background(), "ORD-404")

	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rejected.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rejected.StatusCode)
	}
	if !errors.Is(err, ErrGatewayRejected) || IsRetryable(err) {
		t.Errorf("expected non-retryable rejection, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestFetchStatusRetriesExhausted(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), testURLs)
	_, err := c.FetchStatus(context.Background(), "ORD-5")

	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	if unavailable.StatusCode != http.StatusBadGateway {
		t.Errorf("expected last status 502, got %d", unavailable.StatusCode)
	}
	if !IsRetryable(err) {
		t.Error("expected unavailable error to be retryable")
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestFetchStatusHonoursContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.RetryBaseDelay = time.Hour
	cfg.RetryMaxDelay = time.Hour
	c := NewClient(cfg, testURLs)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.FetchStatus(ctx, "ORD-6")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("backoff wait ignored context cancellation")
	}
}

func TestFetchStatusRejectsInvalidOrderID(t *testing.T) {
	t.Parallel()

	c := NewClient(testConfig("http://unused"), testURLs)
	for _, id := range []string{"", "{orderId}", "ORD-abcdefghijklmnopqrstuvwxyz-abcdefghijklmnopqrstuvwxyz"} {
		if _, err := c.FetchStatus(context.Background(), id); !errors.Is(err, models.ErrInvalidOrderID) {
			t.Errorf("id %q: expected ErrInvalidOrderID, got %v", id, err)
		}
	}
}

func TestBreakerOpensAfterSustainedFailures(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxAttempts = 1
	cfg.BreakerEnabled = true
	c := NewClient(cfg, testURLs)

	for i := 0; i < 10; i++ {
		_, _ = c.FetchStatus(context.Background(), "ORD-7")
	}
	if c.BreakerState() != "open" {
		t.Fatalf("expected open breaker, got %s", c.BreakerState())
	}

	_, err := c.FetchStatus(context.Background(), "ORD-7")
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Errorf("expected unavailable while open, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 10 {
		t.Errorf("expected open breaker to short-circuit, server saw %d calls", calls)
	}
}

func TestBreakerIgnoresRejections(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.BreakerEnabled = true
	c := NewClient(cfg, testURLs)

	for i := 0; i < 15; i++ {
		_, _ = c.FetchStatus(context.Background(), "ORD-8")
	}
	if c.BreakerState() != "closed" {
		t.Errorf("expected closed breaker after client errors, got %s", c.BreakerState())
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	c := &Client{retryBaseDelay: 100 * time.Millisecond, retryMaxDelay: time.Second}
	tests := []struct {
		attempt    int
		retryAfter time.Duration
		want       time.Duration
	}{
		{0, 0, 100 * time.Millisecond},
		{1, 0, 200 * time.Millisecond},
		{3, 0, 800 * time.Millisecond},
		{4, 0, time.Second},
		{0, 500 * time.Millisecond, 500 * time.Millisecond},
		{0, 30 * time.Second, time.Second},
	}
	for _, tt := range tests {
		if got := c.backoff(tt.attempt, tt.retryAfter); got != tt.want {
			t.Errorf("backoff(%d, %s): expected %s, got %s", tt.attempt, tt.retryAfter, tt.want, got)
		}
	}

	if parseRetryAfter("3") != 3*time.Second {
		t.Error("expected Retry-After seconds to parse")
	}
	if parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT") != 0 {
		t.Error("expected HTTP-date Retry-After to be ignored")
	}
}
