// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

// Package audit records who did what to which order.
//
// Recorded events:
//   - auth.success, auth.failure: admin logins
//   - quarantine.resolved: an operator closed a quarantine record
//   - quarantine.ticket_raised: a customer raised a ticket
//   - evidence.read: an operator opened a ticket attachment
//   - order.retried: a forced gateway re-fetch
//
// Events flow through a buffered channel to a background writer:
//
//	Logger.Log() -> chan *Event -> asyncWriter -> Store (+ zerolog line)
//
// Log never blocks. A full buffer drops the event and increments
// paysync_audit_events_dropped_total. MemoryStore keeps a bounded recent
// window for the admin API; the zerolog stream is the durable copy.
//
// # Export
//
// JSONExporter and CEFExporter render query results. CEF output is one
// line per event for SIEM ingestion:
//
//	CEF:0|tomtom215|Paysync|1.0|quarantine.resolved|Quarantine record resolved|3|rt=... suser=ops ...
package audit
