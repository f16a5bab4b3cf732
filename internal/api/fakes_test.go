// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package api

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/paysync/internal/audit"
	"github.com/tomtom215/paysync/internal/auth"
	"github.com/tomtom215/paysync/internal/authz"
	"github.com/tomtom215/paysync/internal/config"
	"github.com/tomtom215/paysync/internal/evidence"
	"github.com/tomtom215/paysync/internal/gateway"
	"github.com/tomtom215/paysync/internal/models"
	"github.com/tomtom215/paysync/internal/reconcile"
	"github.com/tomtom215/paysync/internal/store"
)

const (
	testWebhookSecret = "webhook-test-secret"
	testJWTSecret     = "0123456789abcdef0123456789abcdef"
	testAdminUser     = "ops"
	testAdminPassword = "correct-horse-battery"
)

type fakeEngine struct {
	mu      sync.Mutex
	result  *reconcile.Result
	err     error
	panics  bool
	events  []reconcile.Event
	fetches []string
}

func (f *fakeEngine) Reconcile(_ context.Context, ev reconcile.Event) (*reconcile.Result, error) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
	if f.panics {
		panic("engine exploded")
	}
	return f.result, f.err
}

func (f *fakeEngine) FetchAndReconcile(_ context.Context, orderID string, _ models.Source) (*reconcile.Result, error) {
	f.mu.Lock()
	f.fetches = append(f.fetches, orderID)
	f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events) + len(f.fetches)
}

type fakeCheckout struct {
	ref    *models.ChargeReference
	err    error
	orders []models.Order
}

func (f *fakeCheckout) CreateCharge(_ context.Context, order models.Order) (*models.ChargeReference, error) {
	f.orders = append(f.orders, order)
	if f.err != nil {
		return nil, f.err
	}
	if f.ref != nil {
		return f.ref, nil
	}
	return &models.ChargeReference{OrderID: order.ID, OrderStatus: "ACTIVE", PaymentSessionID: "session_" + order.ID, OrderAmount: order.Amount}, nil
}

func (f *fakeCheckout) VerifySignature(raw []byte, signature string) bool {
	return gateway.VerifySignature(testWebhookSecret, raw, signature)
}

type fakeRecords struct {
	mu         sync.Mutex
	ledger     map[string]*models.LedgerEntry
	quarantine map[string]*models.QuarantineRecord
	ledgerErr  error
	notified   int
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		ledger:     map[string]*models.LedgerEntry{},
		quarantine: map[string]*models.QuarantineRecord{},
	}
}

func (f *fakeRecords) GetLedgerEntry(_ context.Context, orderID string) (*models.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ledgerErr != nil {
		return nil, f.ledgerErr
	}
	e, ok := f.ledger[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeRecords) GetQuarantine(_ context.Context, orderID string) (*models.QuarantineRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.quarantine[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRecords) ListQuarantine(_ context.Context, filter models.QuarantineFilter) ([]models.QuarantineRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.QuarantineRecord{}
	for _, rec := range f.quarantine {
		if filter.Resolved != nil && rec.Resolved != *filter.Resolved {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeRecords) ResolveQuarantine(ctx context.Context, orderID, resolvedBy, notes string) (*models.QuarantineRecord, error) {
	return f.mutate(orderID, func(rec *models.QuarantineRecord) {
		now := time.Now().UTC()
		rec.Resolved = true
		rec.ResolvedBy = resolvedBy
		rec.ResolutionNotes = notes
		rec.ResolvedAt = &now
	})
}

func (f *fakeRecords) AttachTicket(_ context.Context, orderID string, ticket models.Ticket) (*models.QuarantineRecord, error) {
	return f.mutate(orderID, func(rec *models.QuarantineRecord) {
		rec.TicketRaised = true
		rec.Ticket = &ticket
	})
}

func (f *fakeRecords) MarkAdminNotified(_ context.Context, orderID string) (*models.QuarantineRecord, error) {
	f.mu.Lock()
	f.notified++
	f.mu.Unlock()
	return f.mutate(orderID, func(rec *models.QuarantineRecord) { rec.AdminNotified = true })
}

func (f *fakeRecords) mutate(orderID string, fn func(*models.QuarantineRecord)) (*models.QuarantineRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.quarantine[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	fn(rec)
	cp := *rec
	return &cp, nil
}

type fakeEvidence struct {
	mu    sync.Mutex
	puts  []string
	files map[string][]byte
}

func (f *fakeEvidence) Put(_ context.Context, orderID, name string, data []byte) (models.Evidence, error) {
	if _, err := (evidence.Limits{}).Check(data); err != nil {
		return models.Evidence{}, err
	}
	key := evidence.ObjectKey("", orderID, name, data)
	f.mu.Lock()
	f.puts = append(f.puts, key)
	if f.files == nil {
		f.files = map[string][]byte{}
	}
	f.files[key] = data
	f.mu.Unlock()
	return models.Evidence{URL: "https://evidence.test/" + key, Key: key, Name: name, Size: int64(len(data))}, nil
}

func (f *fakeEvidence) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[key]
	if !ok {
		return nil, evidence.ErrNotFound
	}
	return data, nil
}

func (f *fakeEvidence) Backend() string { return "memory" }

type fakeNotifier struct {
	delivered bool
	calls     int
}

func (f *fakeNotifier) TicketRaised(context.Context, *models.QuarantineRecord) bool {
	f.calls++
	return f.delivered
}

type testEnv struct {
	cfg      *config.Config
	engine   *fakeEngine
	checkout *fakeCheckout
	records  *fakeRecords
	evidence *fakeEvidence
	notifier *fakeNotifier
	jwt      *auth.JWTManager
	audit    *audit.Logger
	trail    *audit.MemoryStore
	handler  *Handler
	router   http.Handler
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Security.RateLimitDisabled = true
	cfg.Security.JWTSecret = testJWTSecret
	cfg.Redirect.FrontendURL = "https://app.example.com"
	if mutate != nil {
		mutate(cfg)
	}

	jwtMgr, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	basic, err := auth.NewBasicAuthManager(testAdminUser, testAdminPassword, "admin", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBasicAuthManager: %v", err)
	}
	enforcer, err := authz.NewEnforcer("")
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}

	trail := audit.NewMemoryStore(100)
	auditLog := audit.NewLogger(trail, config.AuditConfig{Enabled: true, BufferSize: 64})
	t.Cleanup(func() { _ = auditLog.Close() })

	env := &testEnv{
		cfg:      cfg,
		engine:   &fakeEngine{},
		checkout: &fakeCheckout{},
		records:  newFakeRecords(),
		evidence: &fakeEvidence{},
		notifier: &fakeNotifier{delivered: true},
		jwt:      jwtMgr,
		audit:    auditLog,
		trail:    trail,
	}
	env.handler = NewHandler(cfg, Dependencies{
		Engine:   env.engine,
		Gateway:  env.checkout,
		Records:  env.records,
		Evidence: env.evidence,
		Notifier: env.notifier,
		Audit:    auditLog,
		JWT:      jwtMgr,
		Basic:    basic,
		Version:  "test",
	})
	env.router = NewRouter(
		env.handler,
		NewChiMiddleware(ChiMiddlewareConfigFromSecurity(&cfg.Security)),
		auth.NewMiddleware(jwtMgr),
		authz.NewMiddleware(enforcer),
	).SetupChi()
	return env
}

func (e *testEnv) token(t *testing.T, role string) string {
	t.Helper()
	tok, _, err := e.jwt.GenerateToken("tester", role)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

// auditEvents flushes the audit writer and returns what it recorded, newest
// first.
func (e *testEnv) auditEvents(t *testing.T) []audit.Event {
	t.Helper()
	if err := e.audit.Close(); err != nil {
		t.Fatalf("close audit logger: %v", err)
	}
	events, err := e.trail.Query(context.Background(), audit.QueryFilter{Limit: 100})
	if err != nil {
		t.Fatalf("query audit trail: %v", err)
	}
	return events
}
