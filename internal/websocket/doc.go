// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

/*
Package websocket streams reconciliation outcomes to connected admin consoles.

A Hub owns the set of connected clients and fans messages out to them. Each
Client runs a read pump (handles pings and detects disconnects) and a write
pump (drains the client's send buffer and keeps the connection alive).

The hub is fed from the event bus through Forwarder, so every instance's feed
sees every event when the bus is backed by NATS:

	forwarder := websocket.NewForwarder(bus, hub)
	go hub.RunWithContext(ctx)
	go forwarder.Serve(ctx)

Messages are JSON objects of the form {"type": "...", "data": ...}. The only
server-originated type is "reconciliation", whose data is a
models.ReconciliationEvent. Clients may send {"type":"ping"} and receive
{"type":"pong"}.

Slow clients whose send buffer fills are disconnected rather than allowed to
stall the broadcast.
*/
package websocket
