// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

// Package middleware holds the chi middleware shared by every route:
// request and correlation ids (RequestID) and Prometheus request
// instrumentation keyed by route pattern (PrometheusMetrics).
package middleware
