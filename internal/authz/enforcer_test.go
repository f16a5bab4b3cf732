// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package authz

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/paysync/internal/auth"
)

func TestEmbeddedPolicy(t *testing.T) {
	t.Parallel()
	e, err := NewEnforcer("")
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}

	tests := []struct {
		role, obj, act string
		want           bool
	}{
		{"support", "/api/v1/admin/quarantine", ActionRead, true},
		{"support", "/api/v1/admin/quarantine/ORD-1", ActionRead, true},
		{"support", "/api/v1/admin/quarantine/ORD-1/resolve", ActionWrite, true},
		{"support", "/api/v1/admin/ledger/ORD-1", ActionRead, true},
		{"support", "/api/v1/admin/ledger/ORD-1", ActionWrite, false},
		{"support", "/api/v1/admin/quarantine/ORD-1", ActionDelete, false},
		{"admin", "/api/v1/admin/quarantine/ORD-1", ActionDelete, true},
		{"admin", "/api/v1/admin/events/ws", ActionRead, true},
		{"admin", "/api/v1/payments/orders", ActionWrite, false},
		{"guest", "/api/v1/admin/quarantine", ActionRead, false},
	}
	for _, tt := range tests {
		got, err := e.Enforce(tt.role, tt.obj, tt.act)
		if err != nil {
			t.Fatalf("Enforce(%s,%s,%s): %v", tt.role, tt.obj, tt.act, err)
		}
		if got != tt.want {
			t.Errorf("Enforce(%s, %s, %s) = %v, expected %v", tt.role, tt.obj, tt.act, got, tt.want)
		}
	}

	if len(e.Roles()) == 0 {
		t.Error("expected roles from the embedded policy")
	}
}

func TestPolicyFileOverride(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "policy.csv")
	if err := os.WriteFile(path, []byte("p, auditor, /api/v1/admin/ledger/:id, read\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	e, err := NewEnforcer(path)
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	if ok, _ := e.Enforce("auditor", "/api/v1/admin/ledger/ORD-9", ActionRead); !ok {
		t.Error("expected file policy to allow auditor")
	}
	if ok, _ := e.Enforce("admin", "/api/v1/admin/ledger/ORD-9", ActionRead); ok {
		t.Error("file policy replaces the embedded one")
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	e, err := NewEnforcer("")
	if err != nil {
		t.Fatal(err)
	}
	h := NewMiddleware(e).AuthorizeRequest(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		claims *auth.Claims
		method string
		path   string
		status int
	}{
		{"no claims", nil, http.MethodGet, "/api/v1/admin/quarantine", http.StatusForbidden},
		{"support read", &auth.Claims{Role: "support"}, http.MethodGet, "/api/v1/admin/quarantine", http.StatusOK},
		{"support resolve", &auth.Claims{Role: "support"}, http.MethodPost, "/api/v1/admin/quarantine/ORD-1/resolve", http.StatusOK},
		{"support write ledger", &auth.Claims{Role: "support"}, http.MethodPost, "/api/v1/admin/ledger/ORD-1", http.StatusForbidden},
		{"admin delete", &auth.Claims{Role: "admin"}, http.MethodDelete, "/api/v1/admin/quarantine/ORD-1", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.claims != nil {
				req = req.WithContext(auth.ContextWithClaims(req.Context(), tt.claims))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
		})
	}
}
