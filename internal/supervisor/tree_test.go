// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestNewSupervisorTree_Defaults(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("failed to create tree: %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("root supervisor should not be nil")
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("expected defaults %+v, got %+v", DefaultTreeConfig(), tree.config)
	}
}

func TestSupervisorTree_StartsEveryLayer(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	gc := newMockService("ledger-gc", 0)
	sweeper := newMockService("quarantine-sweeper", 0)
	apiSvc := newMockService("http-server", 0)
	tree.AddStorageService(gc)
	tree.AddWorkerService(sweeper)
	tree.AddAPIService(apiSvc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	if !waitFor(t, func() bool { return gc.starts.Load() > 0 && sweeper.starts.Load() > 0 && apiSvc.starts.Load() > 0 }) {
		t.Errorf("not all services started: gc=%d sweeper=%d http=%d", gc.starts.Load(), sweeper.starts.Load(), apiSvc.starts.Load())
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not shut down in time")
	}
}

func TestSupervisorTree_WorkerFailureIsolated(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	flaky := newMockService("flaky-worker", 2)
	apiSvc := newMockService("http-server", 0)
	tree.AddWorkerService(flaky)
	tree.AddAPIService(apiSvc)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	if !waitFor(t, func() bool { return flaky.starts.Load() >= 3 }) {
		t.Errorf("expected the worker to be restarted, started %d times", flaky.starts.Load())
	}
	if apiSvc.starts.Load() != 1 {
		t.Errorf("api layer must not restart with the worker, started %d times", apiSvc.starts.Load())
	}
	cancel()
	<-errCh
}

func TestSupervisorTree_RemoveWorker(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	svc := newMockService("forwarder", 0)
	token := tree.AddWorkerService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	waitFor(t, func() bool { return svc.starts.Load() > 0 })

	if err := tree.RemoveWorkerService(token); err != nil {
		t.Errorf("remove worker: %v", err)
	}
	cancel()
	<-errCh
}
