// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package models

import "time"

// LedgerOutcome is the settled result recorded for an order.
type LedgerOutcome string

const (
	LedgerSuccess LedgerOutcome = "SUCCESS"
	LedgerFailure LedgerOutcome = "FAILURE"
)

// Source identifies the entry path an event arrived on.
type Source string

const (
	SourceWebhook  Source = "webhook"
	SourceRedirect Source = "redirect"
	SourcePoll     Source = "poll"
)

// Valid reports whether s is a known entry path.
func (s Source) Valid() bool {
	switch s {
	case SourceWebhook, SourceRedirect, SourcePoll:
		return true
	}
	return false
}

// ResolutionStrategy records which identifier matched the paying customer
// to an account.
type ResolutionStrategy string

const (
	ResolvedByEmail ResolutionStrategy = "email"
	ResolvedByPhone ResolutionStrategy = "phone"
	ResolvedByToken ResolutionStrategy = "account_token"
)

// LedgerEntry is the durable record of a settled charge attempt. There is at
// most one SUCCESS entry per OrderID. A FAILURE entry may later be replaced by
// a SUCCESS entry for the same order; the reverse never happens.
type LedgerEntry struct {
	OrderID          string             `json:"order_id"`
	Sequence         uint64             `json:"sequence"`
	GatewayPaymentID string             `json:"gateway_payment_id"`
	PaymentMethod    string             `json:"payment_method"`
	BankReference    string             `json:"bank_reference,omitempty"`
	Amount           float64            `json:"amount"`
	Outcome          LedgerOutcome      `json:"outcome"`
	AccountID        string             `json:"account_id"`
	Plan             Tier               `json:"plan"`
	UserType         UserType           `json:"user_type"`
	PromoCode        string             `json:"promo_code,omitempty"`
	DiscountAmount   float64            `json:"discount_amount"`
	OriginalAmount   float64            `json:"original_amount"`
	ResolvedBy       ResolutionStrategy `json:"resolved_by,omitempty"`
	// ExpiryDate is the entitlement expiry granted by this settlement.
	ExpiryDate       *time.Time         `json:"expiry_date,omitempty"`
	Source           Source             `json:"source"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Settled reports whether the entry is a SUCCESS.
func (e *LedgerEntry) Settled() bool {
	return e != nil && e.Outcome == LedgerSuccess
}
