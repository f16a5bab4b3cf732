// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/paysync/internal/logging"
)

// GarbageCollector is satisfied by *store.Store.
type GarbageCollector interface {
	RunGC() error
}

// GCService compacts the ledger's value log on an interval.
type GCService struct {
	store    GarbageCollector
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewGCService creates the service. A non-positive interval means 1h.
func NewGCService(store GarbageCollector, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &GCService{
		store:    store,
		interval: interval,
		logger:   logging.WithComponent("ledger-gc"),
		name:     "ledger-gc",
	}
}

// Serve implements suture.Service. GC failures are logged and retried on the
// next tick.
func (s *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.store.RunGC(); err != nil {
				s.logger.Warn().Err(err).Msg("Ledger value log GC failed")
				continue
			}
			s.logger.Debug().Dur("duration", time.Since(start)).Msg("Ledger value log GC complete")
		}
	}
}

func (s *GCService) String() string {
	return s.name
}
