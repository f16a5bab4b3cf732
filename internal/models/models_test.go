// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestValidateOrderID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"plain", "ORD-1", false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"unrendered template", "{order_id}", true},
		{"trailing brace", "ORD-1}", true},
		{"too long", strings.Repeat("a", MaxOrderIDLength+1), true},
		{"max length", strings.Repeat("a", MaxOrderIDLength), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateOrderID(tt.id)
			if tt.wantErr && !errors.Is(err, ErrInvalidOrderID) {
				t.Errorf("expected ErrInvalidOrderID, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestSnapshotDecodesGatewayShapes(t *testing.T) {
	t.Parallel()

	payload := `{
		"order_id": "ORD-1",
		"cf_order_id": 2149460581,
		"order_amount": 999,
		"order_status": "PAID",
		"payment_status": "NOT_ATTEMPTED",
		"payments": [
			{"cf_payment_id": "p-1", "payment_status": "FAILED", "payment_method": {"card": {"card_network": "visa"}}},
			{"cf_payment_id": 5114, "status": "SUCCESS", "payment_method": "UPI"},
			{"cf_payment_id": "p-3", "status": "SUCCESS", "payment_method": "NETBANKING"}
		],
		"customer_details": {"customer_email": "a@b.com", "customer_phone": "9999999999"}
	}`

	var snap Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if snap.CFOrderID != "2149460581" {
		t.Errorf("expected numeric cf_order_id as string, got %q", snap.CFOrderID)
	}
	status, ok := snap.NormalizedPaymentStatus()
	if !ok || status != PaymentStatusNotAttempted {
		t.Errorf("expected NOT_ATTEMPTED present, got %q (%v)", status, ok)
	}
	if snap.PaymentMethod != nil {
		t.Errorf("expected absent order-level payment method, got %v", *snap.PaymentMethod)
	}

	attempts := snap.Attempts()
	if len(attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(attempts))
	}
	if attempts[0].PaymentMethod != "CARD" {
		t.Errorf("expected object method decoded to CARD, got %q", attempts[0].PaymentMethod)
	}

	first, ok := snap.FirstSuccessfulAttempt()
	if !ok {
		t.Fatal("expected a successful attempt")
	}
	if first.CFPaymentID != "5114" || first.PaymentMethod != "UPI" {
		t.Errorf("expected first successful attempt 5114/UPI, got %s/%s", first.CFPaymentID, first.PaymentMethod)
	}
}

func TestSnapshotWithoutOptionalFields(t *testing.T) {
	t.Parallel()

	var snap Snapshot
	if err := json.Unmarshal([]byte(`{"order_id":"ORD-2","order_status":"active"}`), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := snap.NormalizedPaymentStatus(); ok {
		t.Error("expected payment status to be absent")
	}
	if snap.Attempts() != nil {
		t.Error("expected nil attempts")
	}
	if snap.NormalizedOrderStatus() != OrderStatusActive {
		t.Errorf("expected ACTIVE, got %s", snap.NormalizedOrderStatus())
	}
	if raw := snap.RawOrMarshal(); !strings.Contains(string(raw), `"ORD-2"`) {
		t.Errorf("expected re-encoded snapshot, got %s", raw)
	}
}

func TestOutcomeSucceeded(t *testing.T) {
	t.Parallel()

	for _, o := range []Outcome{OutcomeAlreadySettled, OutcomeConfirmedSuccess} {
		if !o.Succeeded() {
			t.Errorf("expected %s to count as succeeded", o)
		}
	}
	for _, o := range []Outcome{OutcomeConfirmedFailure, OutcomeAmbiguousQuarantine, OutcomeNotCompleted, OutcomeAmbiguousRetry} {
		if o.Succeeded() {
			t.Errorf("expected %s not to count as succeeded", o)
		}
	}
}

func TestLedgerEntrySettled(t *testing.T) {
	t.Parallel()

	var nilEntry *LedgerEntry
	if nilEntry.Settled() {
		t.Error("nil entry must not be settled")
	}
	if (&LedgerEntry{Outcome: LedgerFailure}).Settled() {
		t.Error("failure entry must not be settled")
	}
	if !(&LedgerEntry{Outcome: LedgerSuccess}).Settled() {
		t.Error("success entry must be settled")
	}
}
