// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

/*
Package supervisor runs Paysync's long-lived services under suture v4.

# Tree

	paysync
	├── storage-layer
	│   └── ledger-gc
	├── worker-layer
	│   ├── websocket-hub
	│   ├── websocket-forwarder (event bus -> hub)
	│   └── quarantine-sweeper (if sweeper.enabled)
	└── api-layer
	    └── http-server

Each layer restarts its own children. A sweeper that keeps failing backs off
inside the worker layer, and the HTTP server keeps accepting webhooks and
redirects meanwhile.

Supervisor events (restarts, backoff, stop timeouts) are logged through
sutureslog into the zerolog-backed slog handler from internal/logging.

# Shutdown

Canceling the context passed to Serve stops all layers. Services get
ShutdownTimeout to return; UnstoppedServiceReport lists the ones that did
not. The HTTP service drains open requests, so a reconciliation that is
waiting out the ambiguous-status delay finishes before the process exits.

Service wrappers live in the services subpackage.
*/
package supervisor
