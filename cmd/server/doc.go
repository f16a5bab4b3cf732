// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

/*
Package main is the entry point for the Paysync server.

Paysync sits between a hosted-checkout payment gateway and the account
directory. Every observation of an order, whether a webhook push, a
browser redirect, a status poll or a sweeper re-poll, is classified and
either applied exactly once through the ledger or parked in quarantine
for an operator.

# Application Architecture

	RootSupervisor ("paysync")
	├── StorageSupervisor ("storage-layer")
	│   └── ledger-gc (Badger value log GC)
	├── WorkerSupervisor ("worker-layer")
	│   ├── websocket-hub
	│   ├── websocket-forwarder (event bus to hub)
	│   └── quarantine-sweeper (optional)
	└── APISupervisor ("api-layer")
	    └── http-server

Component initialization order:

 1. Configuration: Koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog, bridged to slog for the supervisor
 3. Ledger store: BadgerDB
 4. Account directory: SQLite, PostgreSQL or DuckDB
 5. Event bus: Watermill over go channels or NATS JetStream
 6. Gateway client, notifier and evidence store
 7. Reconciliation engine
 8. Admin authentication (JWT, Basic, Casbin) when configured
 9. Audit trail (bounded in memory, mirrored to the log stream)
 10. HTTP router and supervisor tree

# Configuration

	export CASHFREE_CLIENT_ID=...
	export CASHFREE_CLIENT_SECRET=...
	export PUBLIC_URL=https://pay.example.com
	export FRONTEND_URL=https://app.example.com
	export JWT_SECRET=$(openssl rand -hex 32)
	export ADMIN_USERNAME=ops
	export ADMIN_PASSWORD=...
	./paysync

Admin routes answer 503 until the admin credentials and JWT secret are set.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
server with a bounded shutdown, then the workers, then the
storage layer; deferred closes drain the audit buffer and release Badger,
the directory and the bus.
*/
package main
