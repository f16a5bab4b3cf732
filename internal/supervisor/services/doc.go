// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

/*
Package services adapts Paysync components to suture.Service.

Each wrapper turns a component's own lifecycle (ListenAndServe, RunWithContext,
a periodic job) into Serve(ctx) error and names itself through fmt.Stringer so
supervisor events identify it.

# Available Services

HTTPServerService wraps *http.Server. Shutdown drains connections for the
configured timeout after the context is canceled.

HubService runs the admin websocket hub.

SweeperService re-polls unresolved quarantine records older than a minimum
age through the poll path, one bounded batch per interval. A pass stops early
when the gateway is unavailable.

GCService runs ledger value-log garbage collection on an interval.

# Example

	tree.AddStorageService(services.NewGCService(ledger, time.Hour))
	tree.AddWorkerService(services.NewHubService(hub))
	tree.AddWorkerService(services.NewSweeperService(ledger, engine, cfg.Sweeper))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
*/
package services
