// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package api

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/paysync/internal/audit"
	"github.com/tomtom215/paysync/internal/auth"
	"github.com/tomtom215/paysync/internal/config"
	"github.com/tomtom215/paysync/internal/evidence"
	"github.com/tomtom215/paysync/internal/models"
	"github.com/tomtom215/paysync/internal/reconcile"
	ws "github.com/tomtom215/paysync/internal/websocket"
)

// Reconciler is the subset of *reconcile.Engine the entry paths call.
type Reconciler interface {
	Reconcile(ctx context.Context, ev reconcile.Event) (*reconcile.Result, error)
	FetchAndReconcile(ctx context.Context, orderID string, source models.Source) (*reconcile.Result, error)
}

// Checkout creates orders and authenticates webhooks.
type Checkout interface {
	CreateCharge(ctx context.Context, order models.Order) (*models.ChargeReference, error)
	VerifySignature(rawBody []byte, signature string) bool
}

// Records is read access to the ledger plus the quarantine operations that
// sit outside the engine: tickets and admin triage.
type Records interface {
	GetLedgerEntry(ctx context.Context, orderID string) (*models.LedgerEntry, error)
	GetQuarantine(ctx context.Context, orderID string) (*models.QuarantineRecord, error)
	ListQuarantine(ctx context.Context, filter models.QuarantineFilter) ([]models.QuarantineRecord, error)
	ResolveQuarantine(ctx context.Context, orderID, resolvedBy, notes string) (*models.QuarantineRecord, error)
	AttachTicket(ctx context.Context, orderID string, ticket models.Ticket) (*models.QuarantineRecord, error)
	MarkAdminNotified(ctx context.Context, orderID string) (*models.QuarantineRecord, error)
}

// TicketNotifier alerts operators about a raised ticket and reports whether
// anyone was told.
type TicketNotifier interface {
	TicketRaised(ctx context.Context, rec *models.QuarantineRecord) bool
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// Dependencies are the collaborators of the HTTP handlers. Notifier, Hub,
// Audit, JWT and Basic are optional; admin login is disabled without the
// last two.
type Dependencies struct {
	Engine   Reconciler
	Gateway  Checkout
	Records  Records
	Evidence evidence.Store
	Notifier TicketNotifier
	Hub      *ws.Hub
	Audit    *audit.Logger
	JWT      *auth.JWTManager
	Basic    *auth.BasicAuthManager
	Checks   map[string]HealthCheck
	Version  string
}

// Handler holds the HTTP handlers.
type Handler struct {
	config    *config.Config
	engine    Reconciler
	gateway   Checkout
	records   Records
	evidence  evidence.Store
	notifier  TicketNotifier
	wsHub     *ws.Hub
	audit     *audit.Logger
	upgrader  websocket.Upgrader
	jwt       *auth.JWTManager
	basic     *auth.BasicAuthManager
	checks    map[string]HealthCheck
	version   string
	startTime time.Time
	now       func() time.Time
}

// NewHandler creates the handler set.
func NewHandler(cfg *config.Config, deps Dependencies) *Handler {
	return &Handler{
		config:    cfg,
		engine:    deps.Engine,
		gateway:   deps.Gateway,
		records:   deps.Records,
		evidence:  deps.Evidence,
		notifier:  deps.Notifier,
		wsHub:     deps.Hub,
		audit:     deps.Audit,
		upgrader:  ws.Upgrader(cfg.Security.CORSOrigins),
		jwt:       deps.JWT,
		basic:     deps.Basic,
		checks:    deps.Checks,
		version:   deps.Version,
		startTime: time.Now(),
		now:       time.Now,
	}
}
