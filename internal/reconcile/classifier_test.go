// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/paysync/internal/models"
)

func attempt(id, status string) models.PaymentAttempt {
	return models.PaymentAttempt{
		CFPaymentID:   models.FlexString(id),
		PaymentStatus: models.StringPtr(status),
		PaymentMethod: "UPI",
	}
}

func snapshot(orderStatus string, paymentStatus *string, attempts ...models.PaymentAttempt) *models.Snapshot {
	s := &models.Snapshot{
		OrderID:       "ORD-1",
		CFOrderID:     "cf-1",
		OrderAmount:   999,
		OrderStatus:   orderStatus,
		PaymentStatus: paymentStatus,
	}
	if attempts != nil {
		s.Payments = &attempts
	}
	return s
}

func TestClassify(t *testing.T) {
	t.Parallel()

	success := models.StringPtr(models.PaymentStatusSuccess)
	notAttempted := models.StringPtr(models.PaymentStatusNotAttempted)
	pending := models.StringPtr("pending")

	tests := []struct {
		name    string
		snap    *models.Snapshot
		prior   *models.LedgerEntry
		obs     Observation
		trust   bool
		want    models.Outcome
		reason  models.QuarantineReason
		attempt string
	}{
		{
			name:  "prior success short-circuits",
			snap:  snapshot(models.OrderStatusFailed, nil),
			prior: &models.LedgerEntry{Outcome: models.LedgerSuccess},
			obs:   FirstObservation,
			want:  models.OutcomeAlreadySettled,
		},
		{
			name: "paid and success",
			snap: snapshot("paid", success),
			obs:  FirstObservation,
			want: models.OutcomeConfirmedSuccess,
		},
		{
			name:    "paid, not attempted, successful attempt",
			snap:    snapshot(models.OrderStatusPaid, notAttempted, attempt("p-fail", "FAILED"), attempt("p-ok", "SUCCESS"), attempt("p-late", "SUCCESS")),
			obs:     FirstObservation,
			want:    models.OutcomeConfirmedSuccess,
			attempt: "p-ok",
		},
		{
			name: "paid, pending, no attempts, first look",
			snap: snapshot(models.OrderStatusPaid, pending),
			obs:  FirstObservation,
			want: models.OutcomeAmbiguousRetry,
		},
		{
			name:   "paid, not attempted, re-observation",
			snap:   snapshot(models.OrderStatusPaid, notAttempted),
			obs:    ReObservation,
			want:   models.OutcomeAmbiguousQuarantine,
			reason: models.ReasonAmbiguousStatus,
		},
		{
			name:    "ambiguity resolves on the third snapshot",
			snap:    snapshot(models.OrderStatusPaid, notAttempted, attempt("p-3", "SUCCESS")),
			obs:     ReObservation,
			want:    models.OutcomeConfirmedSuccess,
			attempt: "p-3",
		},
		{
			name:   "paid without payment status, aggregate untrusted",
			snap:   snapshot(models.OrderStatusPaid, nil),
			obs:    FirstObservation,
			want:   models.OutcomeAmbiguousQuarantine,
			reason: models.ReasonUntrustedAggregate,
		},
		{
			name:  "paid without payment status, aggregate trusted",
			snap:  snapshot(models.OrderStatusPaid, nil),
			obs:   FirstObservation,
			trust: true,
			want:  models.OutcomeConfirmedSuccess,
		},
		{
			name:   "paid over a failed payment",
			snap:   snapshot(models.OrderStatusPaid, models.StringPtr("FAILED")),
			obs:    FirstObservation,
			trust:  true,
			want:   models.OutcomeAmbiguousQuarantine,
			reason: models.ReasonAmbiguousStatus,
		},
		{
			name: "failed order",
			snap: snapshot(models.OrderStatusFailed, nil),
			obs:  FirstObservation,
			want: models.OutcomeConfirmedFailure,
		},
		{
			name: "user dropped payment on open order",
			snap: snapshot("", models.StringPtr(models.PaymentStatusUserDropped)),
			obs:  FirstObservation,
			want: models.OutcomeConfirmedFailure,
		},
		{
			name: "active order with a failed attempt",
			snap: snapshot(models.OrderStatusActive, nil, attempt("p-x", "FAILED")),
			obs:  FirstObservation,
			want: models.OutcomeConfirmedFailure,
		},
		{
			name: "active order, nothing yet",
			snap: snapshot(models.OrderStatusActive, pending),
			obs:  FirstObservation,
			want: models.OutcomeNotCompleted,
		},
		{
			name:  "prior failure does not block success",
			snap:  snapshot(models.OrderStatusPaid, success),
			prior: &models.LedgerEntry{Outcome: models.LedgerFailure},
			obs:   FirstObservation,
			want:  models.OutcomeConfirmedSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classifier{TrustPaidAggregate: tt.trust}
			got := c.Classify(tt.snap, tt.prior, tt.obs)
			assert.Equal(t, tt.want, got.Outcome)
			assert.Equal(t, tt.reason, got.Reason)
			if tt.attempt != "" {
				require.NotNil(t, got.Attempt)
				assert.Equal(t, tt.attempt, got.Attempt.CFPaymentID.String())
			}
		})
	}
}

func TestClassifyIsPure(t *testing.T) {
	t.Parallel()

	snap := snapshot(models.OrderStatusPaid, models.StringPtr(models.PaymentStatusNotAttempted))
	c := Classifier{}
	first := c.Classify(snap, nil, FirstObservation)
	second := c.Classify(snap, nil, FirstObservation)
	assert.Equal(t, first, second)
	assert.Nil(t, snap.Payments, "classification must not mutate the snapshot")
}
