// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package reconcile

import (
	"github.com/tomtom215/paysync/internal/models"
)

// Observation counts how many times the engine has looked at an order in
// one reconciliation.
type Observation int

const (
	// FirstObservation is the snapshot the event arrived with.
	FirstObservation Observation = iota + 1
	// ReObservation is the single re-fetch after the ambiguity delay.
	ReObservation
)

// Classification is the classifier's verdict. Attempt is set when a specific
// payment attempt proved the success; Reason is set for quarantine verdicts.
type Classification struct {
	Outcome models.Outcome
	Attempt *models.PaymentAttempt
	Reason  models.QuarantineReason
}

// Classifier maps a gateway snapshot to an outcome.
type Classifier struct {
	// TrustPaidAggregate settles a PAID order whose payment-level status is
	// absent or unrecognised. Off by default: such orders are quarantined.
	TrustPaidAggregate bool
}

// Classify is pure: it reads only its arguments.
//
//  1. prior SUCCESS entry: ALREADY_SETTLED
//  2. PAID and payment SUCCESS: CONFIRMED_SUCCESS
//  3. PAID, payment PENDING/NOT_ATTEMPTED, a SUCCESS attempt: CONFIRMED_SUCCESS
//  4. as 3 without a SUCCESS attempt, first look: AMBIGUOUS_RETRY
//  5. as 4 on the re-observation: AMBIGUOUS_QUARANTINE
//  6. PAID otherwise: CONFIRMED_SUCCESS if the aggregate is trusted, else AMBIGUOUS_QUARANTINE
//  7. not PAID: CONFIRMED_FAILURE on an explicit failure signal, else NOT_COMPLETED
func (c Classifier) Classify(snap *models.Snapshot, prior *models.LedgerEntry, obs Observation) Classification {
	if prior.Settled() {
		return Classification{Outcome: models.OutcomeAlreadySettled}
	}
	if snap == nil {
		return Classification{Outcome: models.OutcomeNotCompleted}
	}

	orderStatus := snap.NormalizedOrderStatus()
	paymentStatus, hasPaymentStatus := snap.NormalizedPaymentStatus()

	if orderStatus != models.OrderStatusPaid {
		if hasExplicitFailure(orderStatus, paymentStatus, snap) {
			return Classification{Outcome: models.OutcomeConfirmedFailure}
		}
		return Classification{Outcome: models.OutcomeNotCompleted}
	}

	if hasPaymentStatus && paymentStatus == models.PaymentStatusSuccess {
		res := Classification{Outcome: models.OutcomeConfirmedSuccess}
		if a, ok := snap.FirstSuccessfulAttempt(); ok {
			res.Attempt = &a
		}
		return res
	}

	// The attempt list is the most specific signal and beats the aggregate.
	if a, ok := snap.FirstSuccessfulAttempt(); ok {
		return Classification{Outcome: models.OutcomeConfirmedSuccess, Attempt: &a}
	}

	switch {
	case paymentStatus == models.PaymentStatusPending || paymentStatus == models.PaymentStatusNotAttempted:
		if obs < ReObservation {
			return Classification{Outcome: models.OutcomeAmbiguousRetry}
		}
		return Classification{Outcome: models.OutcomeAmbiguousQuarantine, Reason: models.ReasonAmbiguousStatus}
	case isFailureStatus(paymentStatus):
		// PAID over a failed payment contradicts itself.
		return Classification{Outcome: models.OutcomeAmbiguousQuarantine, Reason: models.ReasonAmbiguousStatus}
	case c.TrustPaidAggregate:
		return Classification{Outcome: models.OutcomeConfirmedSuccess}
	default:
		return Classification{Outcome: models.OutcomeAmbiguousQuarantine, Reason: models.ReasonUntrustedAggregate}
	}
}

func hasExplicitFailure(orderStatus, paymentStatus string, snap *models.Snapshot) bool {
	switch orderStatus {
	case models.OrderStatusFailed, models.OrderStatusExpired, models.OrderStatusTerminated, models.OrderStatusCancelled:
		return true
	}
	if isFailureStatus(paymentStatus) {
		return true
	}
	if _, ok := snap.FirstSuccessfulAttempt(); ok {
		return false
	}
	for _, a := range snap.Attempts() {
		if a.Status() == models.PaymentStatusFailed {
			return true
		}
	}
	return false
}

func isFailureStatus(paymentStatus string) bool {
	switch paymentStatus {
	case models.PaymentStatusFailed, models.PaymentStatusUserDropped, models.PaymentStatusCancelled, models.PaymentStatusVoid:
		return true
	}
	return false
}
