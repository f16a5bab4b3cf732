// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes audit events.
type EventType string

const (
	EventTypeAuthSuccess EventType = "auth.success"
	EventTypeAuthFailure EventType = "auth.failure"

	EventTypeQuarantineResolved EventType = "quarantine.resolved"
	EventTypeTicketRaised       EventType = "quarantine.ticket_raised"
	EventTypeEvidenceRead       EventType = "evidence.read"
	EventTypeOrderRetried       EventType = "order.retried"
)

// Severity indicates the severity level of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Outcome indicates whether an action succeeded or failed.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one audited action.
type Event struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Type        EventType       `json:"type"`
	Severity    Severity        `json:"severity"`
	Outcome     Outcome         `json:"outcome"`
	Actor       Actor           `json:"actor"`
	Target      *Target         `json:"target,omitempty"`
	Source      Source          `json:"source"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	RequestID   string          `json:"request_id,omitempty"`
}

// Actor is who performed an action. Type is admin, customer or system.
type Actor struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
	Role string `json:"role,omitempty"`
}

// Target is the object of an action, usually an order.
type Target struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Source is where a request originated.
type Source struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event *Event) error
	// Query returns matching events newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
}

// QueryFilter selects audit events. Zero fields match everything.
type QueryFilter struct {
	Types    []EventType
	Actor    string
	TargetID string
	Since    *time.Time
	Limit    int
}

// DefaultQueryLimit caps unbounded queries.
const DefaultQueryLimit = 100
