// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/paysync/internal/audit"
	"github.com/tomtom215/paysync/internal/models"
	"github.com/tomtom215/paysync/internal/reconcile"
)

func TestAudit_LoginAttempts(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	good := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	good.SetBasicAuth(testAdminUser, testAdminPassword)
	env.router.ServeHTTP(httptest.NewRecorder(), good)

	bad := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	bad.SetBasicAuth("mallory", "guess")
	env.router.ServeHTTP(httptest.NewRecorder(), bad)

	events := env.auditEvents(t)
	if len(events) != 2 {
		t.Fatalf("expected 2 audit events, got %d", len(events))
	}
	if events[0].Type != audit.EventTypeAuthFailure || events[0].Actor.Name != "mallory" || events[0].Outcome != audit.OutcomeFailure {
		t.Errorf("unexpected failure event %+v", events[0])
	}
	if events[1].Type != audit.EventTypeAuthSuccess || events[1].Actor.Name != testAdminUser {
		t.Errorf("unexpected success event %+v", events[1])
	}
}

func TestAudit_OrderActions(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	env.records.quarantine["ORD-1"] = &models.QuarantineRecord{OrderID: "ORD-1"}
	env.records.quarantine["ORD-2"] = &models.QuarantineRecord{OrderID: "ORD-2"}
	env.engine.result = &reconcile.Result{Outcome: models.OutcomeConfirmedFailure}

	if rec := adminRequest(t, env, http.MethodPost, "/api/v1/admin/quarantine/ORD-1/resolve", `{"notes":"refunded"}`, "support"); rec.Code != http.StatusOK {
		t.Fatalf("resolve: expected 200, got %d", rec.Code)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, ticketRequest(t, "ORD-2", "charged twice", map[string][]byte{"a.png": pngBytes}))
	if rec.Code != http.StatusOK {
		t.Fatalf("ticket: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/payments/orders/ORD-3/retry", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("retry: expected 200, got %d", rec.Code)
	}
	ref, err := env.evidence.Put(context.Background(), "ORD-2", "b.png", pngBytes)
	if err != nil {
		t.Fatal(err)
	}
	if rec := adminRequest(t, env, http.MethodGet, "/api/v1/admin/evidence/"+ref.Key, "", "support"); rec.Code != http.StatusOK {
		t.Fatalf("evidence: expected 200, got %d", rec.Code)
	}

	events := env.auditEvents(t)
	want := []struct {
		typ     audit.EventType
		actor   string
		orderID string
	}{
		{audit.EventTypeEvidenceRead, "tester", "ORD-2"},
		{audit.EventTypeOrderRetried, "", "ORD-3"},
		{audit.EventTypeTicketRaised, "", "ORD-2"},
		{audit.EventTypeQuarantineResolved, "tester", "ORD-1"},
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(events), events)
	}
	for i, w := range want {
		ev := events[i]
		if ev.Type != w.typ || ev.Actor.Name != w.actor || ev.Target == nil || ev.Target.ID != w.orderID {
			t.Errorf("event %d: got %s by %q on %+v, want %s by %q on %s", i, ev.Type, ev.Actor.Name, ev.Target, w.typ, w.actor, w.orderID)
		}
	}
	if events[3].Actor.Role != "support" {
		t.Errorf("resolution should record the operator role, got %+v", events[3].Actor)
	}
	if string(events[2].Metadata) != `{"files":1}` {
		t.Errorf("unexpected ticket metadata %s", events[2].Metadata)
	}
}

func TestAudit_FailedActionsNotRecorded(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	adminRequest(t, env, http.MethodPost, "/api/v1/admin/quarantine/ORD-9/resolve", `{"notes":"x"}`, "admin")
	adminRequest(t, env, http.MethodGet, "/api/v1/admin/evidence/ORD-9/none.png", "", "admin")

	if events := env.auditEvents(t); len(events) != 0 {
		t.Errorf("expected no audit events, got %+v", events)
	}
}

func seedTrail(t *testing.T, env *testEnv) {
	t.Helper()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	events := []audit.Event{
		{ID: "1", Timestamp: base, Type: audit.EventTypeAuthSuccess, Severity: audit.SeverityInfo, Outcome: audit.OutcomeSuccess, Actor: audit.AdminActor("ops", "admin")},
		{ID: "2", Timestamp: base.Add(time.Hour), Type: audit.EventTypeQuarantineResolved, Severity: audit.SeverityInfo, Outcome: audit.OutcomeSuccess,
			Actor: audit.AdminActor("ops", "support"), Target: &audit.Target{ID: "ORD-1", Type: "order"}, Description: "Quarantine record resolved"},
		{ID: "3", Timestamp: base.Add(2 * time.Hour), Type: audit.EventTypeOrderRetried, Severity: audit.SeverityInfo, Outcome: audit.OutcomeSuccess,
			Actor: audit.CustomerActor(), Target: &audit.Target{ID: "ORD-2", Type: "order"}},
	}
	for i := range events {
		if err := env.trail.Save(context.Background(), &events[i]); err != nil {
			t.Fatal(err)
		}
	}
}

func TestAdmin_AuditLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"all", "", []string{"3", "2", "1"}},
		{"by actor", "?actor=ops", []string{"2", "1"}},
		{"by order", "?order_id=ORD-2", []string{"3"}},
		{"by types", "?type=auth.success,%20order.retried", []string{"3", "1"}},
		{"since", "?since=2026-10-01T13:00:00Z", []string{"3", "2"}},
		{"limit", "?limit=1", []string{"3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, nil)
			seedTrail(t, env)

			rec := adminRequest(t, env, http.MethodGet, "/api/v1/admin/audit"+tt.query, "", "admin")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			var resp struct {
				Data AuditList `json:"data"`
			}
			decodeBody(t, rec, &resp)
			got := make([]string, 0, len(resp.Data.Events))
			for _, ev := range resp.Data.Events {
				got = append(got, ev.ID)
			}
			if strings.Join(got, ",") != strings.Join(tt.wantIDs, ",") || resp.Data.Count != len(tt.wantIDs) {
				t.Errorf("got %v (count %d), want %v", got, resp.Data.Count, tt.wantIDs)
			}
		})
	}
}

func TestAdmin_AuditLogCEF(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	seedTrail(t, env)

	rec := adminRequest(t, env, http.MethodGet, "/api/v1/admin/audit?format=cef&order_id=ORD-1", "", "admin")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected text/plain, got %q", ct)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "CEF:0|tomtom215|Paysync|test|quarantine.resolved|Quarantine record resolved|3|") {
		t.Errorf("unexpected CEF line %q", body)
	}
	if !strings.Contains(body, "cs1=ORD-1") {
		t.Errorf("expected order extension in %q", body)
	}
}

func TestAdmin_AuditLogBadParams(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	for _, q := range []string{"?limit=0", "?limit=501", "?since=yesterday", "?format=xml"} {
		if rec := adminRequest(t, env, http.MethodGet, "/api/v1/admin/audit"+q, "", "admin"); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestAdmin_AuditLogRequiresAdmin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	if rec := adminRequest(t, env, http.MethodGet, "/api/v1/admin/audit", "", "support"); rec.Code != http.StatusForbidden {
		t.Errorf("support must not read the audit trail, got %d", rec.Code)
	}
}
