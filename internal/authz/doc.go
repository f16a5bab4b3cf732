// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

// Package authz enforces role-based access to the admin API using Casbin.
//
// The model is RBAC with keyMatch2 path patterns:
//
//	m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && r.act == p.act
//
// The embedded policy grants "support" read access to quarantine, ledger and
// the live feed plus quarantine resolution; "admin" inherits support and may
// do anything under /api/v1/admin. A CSV file at security.policy_path
// replaces the embedded policy.
package authz
