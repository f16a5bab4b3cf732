// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package models

import "time"

// Outcome is the reconciliation verdict for one observation of an order.
type Outcome string

const (
	OutcomeAlreadySettled      Outcome = "ALREADY_SETTLED"
	OutcomeConfirmedSuccess    Outcome = "CONFIRMED_SUCCESS"
	OutcomeConfirmedFailure    Outcome = "CONFIRMED_FAILURE"
	OutcomeAmbiguousRetry      Outcome = "AMBIGUOUS_RETRY"
	OutcomeAmbiguousQuarantine Outcome = "AMBIGUOUS_QUARANTINE"
	OutcomeNotCompleted        Outcome = "NOT_COMPLETED"
)

// Succeeded reports whether the order is (now or previously) paid and settled.
func (o Outcome) Succeeded() bool {
	return o == OutcomeAlreadySettled || o == OutcomeConfirmedSuccess
}

// ReconciliationEvent is published on the event bus after every reconcile call.
type ReconciliationEvent struct {
	EventID          string             `json:"event_id"`
	OrderID          string             `json:"order_id"`
	Outcome          Outcome            `json:"outcome"`
	Source           Source             `json:"source"`
	GatewayPaymentID string             `json:"gateway_payment_id,omitempty"`
	Amount           float64            `json:"amount"`
	Plan             Tier               `json:"plan,omitempty"`
	ResolvedBy       ResolutionStrategy `json:"resolved_by,omitempty"`
	Quarantined      bool               `json:"quarantined,omitempty"`
	OccurredAt       time.Time          `json:"occurred_at"`
}
