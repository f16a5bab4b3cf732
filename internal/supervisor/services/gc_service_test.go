// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/paysync/internal/store"
)

var _ suture.Service = (*GCService)(nil)

type countingGC struct {
	runs atomic.Int32
	err  error
}

func (c *countingGC) RunGC() error {
	c.runs.Add(1)
	return c.err
}

func TestGCService_RunsOnInterval(t *testing.T) {
	t.Parallel()
	gc := &countingGC{err: errors.New("busy")}
	svc := NewGCService(gc, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if gc.runs.Load() < 2 {
		t.Errorf("expected GC to keep running after failures, ran %d times", gc.runs.Load())
	}
}

func TestGCService_DefaultInterval(t *testing.T) {
	t.Parallel()
	if svc := NewGCService(&countingGC{}, 0); svc.interval != time.Hour {
		t.Errorf("expected 1h, got %v", svc.interval)
	}
}

func TestGCService_InMemoryStore(t *testing.T) {
	t.Parallel()
	s, err := store.Open(store.Config{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	if err := s.RunGC(); err != nil {
		t.Errorf("GC on an in-memory store should be a no-op, got %v", err)
	}

	svc := NewGCService(s, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_ = svc.Serve(ctx)
}
