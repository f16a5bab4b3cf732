// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paysync_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paysync_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "paysync_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paysync_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Gateway Metrics
	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paysync_gateway_requests_total",
			Help: "Outbound payment gateway requests by operation and result",
		},
		[]string{"operation", "result"}, // result: "ok", "rejected", "unavailable"
	)

	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paysync_gateway_request_duration_seconds",
			Help:    "Duration of gateway calls including retries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	GatewayRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paysync_gateway_retries_total",
			Help: "Retried gateway attempts",
		},
		[]string{"operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paysync_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paysync_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paysync_circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paysync_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Reconciliation Metrics
	ReconcileOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paysync_reconcile_outcomes_total",
			Help: "Reconciliation results by final outcome and entry path",
		},
		[]string{"outcome", "source"},
	)

	ReconcileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paysync_reconcile_duration_seconds",
			Help:    "End-to-end reconciliation time, including the ambiguous-status delay",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	ReconcileErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paysync_reconcile_errors_total",
			Help: "Reconciliation failures by stage",
		},
		[]string{"stage"}, // "ledger", "gateway", "directory", "quarantine", "referral"
	)

	QuarantineOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "paysync_quarantine_open_records",
			Help: "Unresolved quarantine records seen by the last sweep",
		},
	)

	SweeperRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paysync_sweeper_runs_total",
			Help: "Quarantine sweeper passes",
		},
		[]string{"result"},
	)

	// Notification Metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paysync_notifications_total",
			Help: "Notifications attempted by channel, kind and result",
		},
		[]string{"channel", "kind", "result"},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paysync_events_published_total",
			Help: "Reconciliation events published to the bus",
		},
		[]string{"result"},
	)

	EventsConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "paysync_events_consumed_total",
			Help: "Reconciliation events delivered to local subscribers",
		},
	)

	// Evidence Metrics
	EvidenceUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paysync_evidence_uploads_total",
			Help: "Ticket evidence uploads by backend and result",
		},
		[]string{"backend", "result"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "paysync_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "paysync_websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paysync_websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Audit Metrics
	AuditEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paysync_audit_events_total",
			Help: "Total number of audit events recorded",
		},
		[]string{"type"},
	)

	AuditDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "paysync_audit_events_dropped_total",
			Help: "Audit events dropped because the buffer was full",
		},
	)

	// Application Info
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paysync_app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "paysync_app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordGatewayCall records one logical gateway call.
func RecordGatewayCall(operation, result string, duration time.Duration) {
	GatewayRequests.WithLabelValues(operation, result).Inc()
	GatewayRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordReconcile records a finished reconciliation.
func RecordReconcile(outcome, source string, duration time.Duration) {
	ReconcileOutcomes.WithLabelValues(outcome, source).Inc()
	ReconcileDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordNotification records one channel delivery attempt.
func RecordNotification(channel, kind string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	NotificationsSent.WithLabelValues(channel, kind, result).Inc()
}

// RecordEventPublish records a publish to the event bus.
func RecordEventPublish(err error) {
	if err != nil {
		EventsPublished.WithLabelValues("failure").Inc()
		return
	}
	EventsPublished.WithLabelValues("success").Inc()
}

// RecordEvidenceUpload records a ticket evidence upload.
func RecordEvidenceUpload(backend string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EvidenceUploads.WithLabelValues(backend, result).Inc()
}
