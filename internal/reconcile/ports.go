// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/paysync/internal/models"
)

var (
	// ErrAccountUnresolvable means no account matched the gateway's customer
	// details. Successful payments in this state are quarantined.
	ErrAccountUnresolvable = errors.New("account unresolvable")

	// ErrMissingSnapshot is returned when an event has neither a snapshot nor
	// a way to fetch one.
	ErrMissingSnapshot = errors.New("event has no snapshot")
)

// LedgerStore is the settlement ledger. Implementations return
// store.ErrNotFound for a missing entry and store.ErrDuplicateSettlement
// when a SUCCESS already exists.
type LedgerStore interface {
	GetLedgerEntry(ctx context.Context, orderID string) (*models.LedgerEntry, error)
	InsertLedgerEntry(ctx context.Context, entry models.LedgerEntry) (*models.LedgerEntry, error)
}

// QuarantineStore holds orders that could not be classified.
type QuarantineStore interface {
	UpsertQuarantine(ctx context.Context, rec models.QuarantineRecord) (*models.QuarantineRecord, bool, error)
	GetQuarantine(ctx context.Context, orderID string) (*models.QuarantineRecord, error)
	ResolveQuarantine(ctx context.Context, orderID, resolvedBy, notes string) (*models.QuarantineRecord, error)
}

// StatusFetcher reads the gateway's current view of an order.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, orderID string) (*models.Snapshot, error)
}

// Accounts is the account directory as seen by the engine.
type Accounts interface {
	AccountFinder
	ApplyEntitlement(ctx context.Context, accountID string, tier models.Tier, expiry time.Time) error
	GetActivePromoter(ctx context.Context, code string) (*models.Promoter, error)
	CreateReferralCredit(ctx context.Context, credit models.ReferralCredit) (bool, error)
}

// Notifier delivers best-effort messages. Errors are logged by the engine
// and never change a result.
type Notifier interface {
	PaymentSucceeded(ctx context.Context, n models.PaymentNotice) error
	ReferralCredited(ctx context.Context, n models.ReferralNotice) error
}

// Publisher fans reconciliation results out to the event bus.
type Publisher interface {
	Publish(ctx context.Context, event models.ReconciliationEvent) error
}

type nopNotifier struct{}

func (nopNotifier) PaymentSucceeded(context.Context, models.PaymentNotice) error  { return nil }
func (nopNotifier) ReferralCredited(context.Context, models.ReferralNotice) error { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.ReconciliationEvent) error { return nil }
