// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// MaxTicketEvidence is the number of files a customer may attach to a ticket.
const MaxTicketEvidence = 3

// QuarantineReason explains why an order could not be settled automatically.
type QuarantineReason string

const (
	ReasonAmbiguousStatus    QuarantineReason = "ambiguous_status"
	ReasonAccountUnresolved  QuarantineReason = "account_unresolved"
	ReasonUntrustedAggregate QuarantineReason = "untrusted_paid_aggregate"
)

// Evidence is a reference to a file held by the evidence object store.
type Evidence struct {
	URL  string `json:"url"`
	Key  string `json:"key"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Ticket is the customer's own account of an unsettled payment.
type Ticket struct {
	Description string     `json:"description"`
	Evidence    []Evidence `json:"evidence"`
	RaisedAt    time.Time  `json:"raised_at"`
}

// QuarantineRecord holds an order whose gateway state could not be proved to
// be a definite success or failure. Records are updated in place and never
// deleted.
type QuarantineRecord struct {
	OrderID              string           `json:"order_id"`
	TransactionID        string           `json:"transaction_id,omitempty"`
	Amount               float64          `json:"amount"`
	Customer             CustomerDetails  `json:"customer"`
	AccountID            string           `json:"account_id,omitempty"`
	PaymentMethod        string           `json:"payment_method,omitempty"`
	GatewayOrderStatus   string           `json:"gateway_order_status"`
	GatewayPaymentStatus string           `json:"gateway_payment_status"`
	Reason               QuarantineReason `json:"reason"`
	Snapshot             json.RawMessage  `json:"snapshot"`
	Observations         int              `json:"observations"`
	Source               Source           `json:"source"`
	Resolved             bool             `json:"resolved"`
	ResolvedBy           string           `json:"resolved_by,omitempty"`
	ResolutionNotes      string           `json:"resolution_notes,omitempty"`
	TicketRaised         bool             `json:"ticket_raised"`
	Ticket               *Ticket          `json:"ticket,omitempty"`
	AdminNotified        bool             `json:"admin_notified"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
	ResolvedAt           *time.Time       `json:"resolved_at,omitempty"`
}

// QuarantineFilter selects records for admin triage and the sweeper. Results
// are newest first unless OldestFirst is set.
type QuarantineFilter struct {
	// Resolved filters on the resolved flag; nil returns both.
	Resolved *bool
	// CreatedBefore limits results to records created strictly before this time.
	CreatedBefore time.Time
	Limit         int
	// OldestFirst walks the index in creation order.
	OldestFirst bool
	// After resumes an OldestFirst walk strictly past this position.
	After *QuarantineCursor
}

// QuarantineCursor is a position in the creation-time order.
type QuarantineCursor struct {
	CreatedAt time.Time
	OrderID   string
}

// CursorOf returns the position of rec.
func CursorOf(rec *QuarantineRecord) *QuarantineCursor {
	return &QuarantineCursor{CreatedAt: rec.CreatedAt, OrderID: rec.OrderID}
}
