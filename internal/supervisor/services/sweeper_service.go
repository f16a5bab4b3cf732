// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/paysync/internal/config"
	"github.com/tomtom215/paysync/internal/gateway"
	"github.com/tomtom215/paysync/internal/logging"
	"github.com/tomtom215/paysync/internal/metrics"
	"github.com/tomtom215/paysync/internal/models"
	"github.com/tomtom215/paysync/internal/reconcile"
)

// Sweeper pass results, used as the paysync_sweeper_runs_total label.
const (
	SweepOK                 = "ok"
	SweepPartial            = "partial"
	SweepGatewayUnavailable = "gateway_unavailable"
	SweepListFailed         = "list_failed"
)

// QuarantineLister reads open quarantine records.
type QuarantineLister interface {
	ListQuarantine(ctx context.Context, filter models.QuarantineFilter) ([]models.QuarantineRecord, error)
}

// Repoller re-reads an order from the gateway and reconciles it.
type Repoller interface {
	FetchAndReconcile(ctx context.Context, orderID string, source models.Source) (*reconcile.Result, error)
}

// SweepReport summarizes one pass.
type SweepReport struct {
	Seen     int
	Resolved int
	Failed   int
	Result   string
}

// SweeperService periodically re-polls quarantined orders that nobody has
// polled since they were parked. Records younger than MinAge are left to the
// customer's own retries. Passes walk the open records oldest first and
// resume where the previous pass stopped, wrapping at the end, so every
// record is revisited however many stay open.
type SweeperService struct {
	lister   QuarantineLister
	repoller Repoller
	config   config.SweeperConfig
	logger   zerolog.Logger
	now      func() time.Time
	name     string

	mu     sync.Mutex
	cursor *models.QuarantineCursor
}

// NewSweeperService creates the sweeper. Zero config values take the
// defaults: every 5m, records older than 10m, 25 per pass.
func NewSweeperService(lister QuarantineLister, repoller Repoller, cfg config.SweeperConfig) *SweeperService {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.MinAge <= 0 {
		cfg.MinAge = 10 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	return &SweeperService{
		lister:   lister,
		repoller: repoller,
		config:   cfg,
		logger:   logging.WithComponent("sweeper"),
		now:      time.Now,
		name:     "quarantine-sweeper",
	}
}

// Serve implements suture.Service.
func (s *SweeperService) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.config.Interval).
		Dur("min_age", s.config.MinAge).
		Int("batch_size", s.config.BatchSize).
		Msg("Quarantine sweeper starting")

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Quarantine sweeper stopping")
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and records its metrics.
func (s *SweeperService) Sweep(ctx context.Context) SweepReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	open := false
	after := s.cursor
	records, err := s.lister.ListQuarantine(ctx, models.QuarantineFilter{
		Resolved:      &open,
		CreatedBefore: s.now().Add(-s.config.MinAge),
		Limit:         s.config.BatchSize,
		OldestFirst:   true,
		After:         after,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list open quarantine records")
		metrics.SweeperRuns.WithLabelValues(SweepListFailed).Inc()
		return SweepReport{Result: SweepListFailed}
	}

	report := SweepReport{Seen: len(records), Result: SweepOK}
	visited := 0
	for i := range records {
		if ctx.Err() != nil {
			break
		}
		orderID := records[i].OrderID
		res, err := s.repoller.FetchAndReconcile(logging.ContextWithOrderID(ctx, orderID), orderID, models.SourcePoll)
		if err != nil {
			if errors.Is(err, gateway.ErrGatewayUnavailable) {
				// The rest of the batch would fail the same way.
				s.logger.Warn().Err(err).Str("order_id", orderID).Msg("Gateway unavailable, ending sweep early")
				report.Result = SweepGatewayUnavailable
				report.Failed++
				break
			}
			s.logger.Warn().Err(err).Str("order_id", orderID).Msg("Sweep re-poll failed")
			visited++
			report.Failed++
			report.Result = SweepPartial
			continue
		}
		visited++
		if res != nil && res.QuarantineResolved {
			report.Resolved++
		}
	}

	// Resume after the last record re-polled; a short page means the walk
	// reached the end and the next pass starts over.
	switch {
	case visited == 0:
		if len(records) == 0 {
			s.cursor = nil
		}
	case len(records) < s.config.BatchSize && visited == len(records):
		s.cursor = nil
	default:
		s.cursor = models.CursorOf(&records[visited-1])
	}

	// Only a pass that saw the whole open set knows its size.
	if after == nil && len(records) < s.config.BatchSize {
		metrics.QuarantineOpen.Set(float64(report.Seen - report.Resolved))
	}
	metrics.SweeperRuns.WithLabelValues(report.Result).Inc()

	if report.Seen > 0 {
		s.logger.Info().
			Int("seen", report.Seen).
			Int("resolved", report.Resolved).
			Int("failed", report.Failed).
			Str("result", report.Result).
			Msg("Quarantine sweep complete")
	}
	return report
}

func (s *SweeperService) String() string {
	return s.name
}
