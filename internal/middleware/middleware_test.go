// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/paysync/internal/logging"
	"github.com/tomtom215/paysync/internal/metrics"
)

func TestRequestIDGenerates(t *testing.T) {
	t.Parallel()
	var gotReq, gotCorr string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotReq = logging.RequestIDFromContext(r.Context())
		gotCorr = logging.CorrelationIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if gotReq == "" || gotCorr == "" {
		t.Fatalf("expected ids in context, got %q %q", gotReq, gotCorr)
	}
	if rec.Header().Get(RequestIDHeader) != gotReq {
		t.Errorf("expected response header %q, got %q", gotReq, rec.Header().Get(RequestIDHeader))
	}
	if rec.Header().Get(CorrelationIDHeader) != gotCorr {
		t.Errorf("expected correlation header %q, got %q", gotCorr, rec.Header().Get(CorrelationIDHeader))
	}
}

func TestRequestIDReusesInbound(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		inbound string
		reused  bool
	}{
		{"plain", "req-123_abc.1", true},
		{"spaces", "req 123", false},
		{"newline", "req\n123", false},
		{"too long", strings.Repeat("a", maxInboundID+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = logging.RequestIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(RequestIDHeader, tt.inbound)
			req.Header.Set(CorrelationIDHeader, "corr-1")
			h.ServeHTTP(httptest.NewRecorder(), req)

			if (got == tt.inbound) != tt.reused {
				t.Errorf("inbound %q: expected reused=%v, got id %q", tt.inbound, tt.reused, got)
			}
		})
	}
}

func TestPrometheusMetricsUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/orders/{orderID}/status", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/orders/{orderID}/status", "202")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"ORD-1", "ORD-2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/"+id+"/status", nil))
	}

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("expected 2 requests on the pattern series, got %v", got)
	}
}

func TestStatusRecorderKeepsFirstStatus(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	rw := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}
	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rw.status)
	}
	if _, _, err := rw.Hijack(); err == nil {
		t.Error("expected hijack error on a recorder")
	}
}
