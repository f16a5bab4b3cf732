// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for store operations
var (
	// conflictRetries counts read-write transactions re-run after a Badger conflict.
	conflictRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paysync_store_conflict_retries_total",
		Help: "Total number of store transactions retried after a write conflict",
	})

	// ledgerWrites counts ledger writes by outcome and result.
	ledgerWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paysync_ledger_writes_total",
		Help: "Total number of ledger write attempts by outcome and result",
	}, []string{"outcome", "result"})

	// quarantineUpserts counts quarantine upserts, split into created and updated.
	quarantineUpserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paysync_quarantine_upserts_total",
		Help: "Total number of quarantine upserts",
	}, []string{"result"})
)
