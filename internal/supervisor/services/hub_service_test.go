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

	"github.com/tomtom215/paysync/internal/websocket"
)

var _ suture.Service = (*HubService)(nil)

type fakeHub struct {
	err  error
	runs atomic.Int32
}

func (f *fakeHub) RunWithContext(ctx context.Context) error {
	f.runs.Add(1)
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestHubService_Serve(t *testing.T) {
	t.Parallel()

	t.Run("stops with the context", func(t *testing.T) {
		t.Parallel()
		hub := &fakeHub{}
		svc := NewHubService(hub)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context.DeadlineExceeded, got %v", err)
		}
		if hub.runs.Load() != 1 {
			t.Errorf("expected 1 run, got %d", hub.runs.Load())
		}
	})

	t.Run("propagates hub errors", func(t *testing.T) {
		t.Parallel()
		want := errors.New("hub failed")
		svc := NewHubService(&fakeHub{err: want})
		if err := svc.Serve(context.Background()); !errors.Is(err, want) {
			t.Errorf("expected %v, got %v", want, err)
		}
	})

	t.Run("runs the real hub", func(t *testing.T) {
		t.Parallel()
		svc := NewHubService(websocket.NewHub())
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()

		time.Sleep(20 * time.Millisecond)
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("hub did not stop")
		}
	})
}

func TestHubService_String(t *testing.T) {
	t.Parallel()
	if got := NewHubService(&fakeHub{}).String(); got != "websocket-hub" {
		t.Errorf("expected websocket-hub, got %q", got)
	}
}

func TestHubService_RestartedBySupervisor(t *testing.T) {
	t.Parallel()
	hub := &fakeHub{err: errors.New("crash")}

	sup := suture.New("test", suture.Spec{
		FailureThreshold: 10,
		FailureBackoff:   5 * time.Millisecond,
		Timeout:          100 * time.Millisecond,
	})
	sup.Add(NewHubService(hub))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	errCh := sup.ServeBackground(ctx)

	deadline := time.Now().Add(time.Second)
	for hub.runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.runs.Load() < 2 {
		t.Errorf("expected the hub to be restarted, ran %d times", hub.runs.Load())
	}
	cancel()
	<-errCh
}
