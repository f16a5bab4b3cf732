// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are package-level promauto vars registered with the default
registry and exposed at /metrics in Prometheus text format:

	curl http://localhost:3000/metrics

# Available Metrics

HTTP Metrics:
  - paysync_api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - paysync_api_request_duration_seconds: Request latency (histogram)
  - paysync_api_active_requests: In-flight requests (gauge)
  - paysync_api_rate_limit_hits_total: Requests rejected by httprate

Gateway Metrics:
  - paysync_gateway_requests_total: Labels operation (create_charge, fetch_status), result
  - paysync_gateway_request_duration_seconds: Including retries and backoff
  - paysync_gateway_retries_total

Circuit Breaker Metrics:
  - paysync_circuit_breaker_state: 0=closed, 1=half-open, 2=open
  - paysync_circuit_breaker_requests_total: Labels name, result (success, failure, rejected)
  - paysync_circuit_breaker_consecutive_failures
  - paysync_circuit_breaker_state_transitions_total

Reconciliation Metrics:
  - paysync_reconcile_outcomes_total: Labels outcome, source
  - paysync_reconcile_duration_seconds
  - paysync_reconcile_errors_total: Labels stage
  - paysync_quarantine_open_records
  - paysync_sweeper_runs_total

Delivery Metrics:
  - paysync_notifications_total: Labels channel (email, webhook), kind, result
  - paysync_events_published_total, paysync_events_consumed_total
  - paysync_evidence_uploads_total: Labels backend (local, s3), result
  - paysync_websocket_connections, paysync_websocket_messages_sent_total, paysync_websocket_errors_total

Ledger and quarantine write counters live next to the store in
internal/store.

# Alerting

	groups:
	  - name: paysync
	    rules:
	      - alert: GatewayCircuitOpen
	        expr: paysync_circuit_breaker_state{name="cashfree-pg"} == 2
	        for: 2m
	      - alert: QuarantineBacklog
	        expr: paysync_quarantine_open_records > 20
	        for: 30m
*/
package metrics
