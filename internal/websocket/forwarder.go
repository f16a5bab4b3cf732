// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package websocket

import (
	"context"

	"github.com/tomtom215/paysync/internal/models"
)

// EventSource is satisfied by *events.Bus.
type EventSource interface {
	Run(ctx context.Context, h func(ctx context.Context, ev models.ReconciliationEvent) error) error
}

// Forwarder relays bus events to the hub. It is a suture service.
type Forwarder struct {
	source EventSource
	hub    *Hub
}

// NewForwarder creates a Forwarder.
func NewForwarder(source EventSource, hub *Hub) *Forwarder {
	return &Forwarder{source: source, hub: hub}
}

// Serve blocks until ctx ends or the source fails.
func (f *Forwarder) Serve(ctx context.Context) error {
	return f.source.Run(ctx, func(_ context.Context, ev models.ReconciliationEvent) error {
		// A full hub is not worth redelivery; the feed is best effort.
		_ = f.hub.BroadcastReconciliation(ev)
		return nil
	})
}

func (f *Forwarder) String() string { return "websocket-forwarder" }
