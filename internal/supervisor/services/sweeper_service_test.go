// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/paysync/internal/config"
	"github.com/tomtom215/paysync/internal/gateway"
	"github.com/tomtom215/paysync/internal/metrics"
	"github.com/tomtom215/paysync/internal/models"
	"github.com/tomtom215/paysync/internal/reconcile"
)

var _ suture.Service = (*SweeperService)(nil)

type fakeLister struct {
	records []models.QuarantineRecord
	err     error
	filters []models.QuarantineFilter
}

func (f *fakeLister) ListQuarantine(_ context.Context, filter models.QuarantineFilter) ([]models.QuarantineRecord, error) {
	f.filters = append(f.filters, filter)
	return f.records, f.err
}

type fakeRepoller struct {
	mu      sync.Mutex
	results map[string]*reconcile.Result
	errs    map[string]error
	polled  []string
	sources []models.Source
}

func (f *fakeRepoller) FetchAndReconcile(_ context.Context, orderID string, source models.Source) (*reconcile.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polled = append(f.polled, orderID)
	f.sources = append(f.sources, source)
	if err := f.errs[orderID]; err != nil {
		return nil, err
	}
	if res := f.results[orderID]; res != nil {
		return res, nil
	}
	return &reconcile.Result{Outcome: models.OutcomeAmbiguousQuarantine, Quarantined: true}, nil
}

func records(ids ...string) []models.QuarantineRecord {
	out := make([]models.QuarantineRecord, len(ids))
	for i, id := range ids {
		out[i] = models.QuarantineRecord{OrderID: id}
	}
	return out
}

func TestSweeper_Defaults(t *testing.T) {
	svc := NewSweeperService(&fakeLister{}, &fakeRepoller{}, config.SweeperConfig{})
	if svc.config.Interval != 5*time.Minute || svc.config.MinAge != 10*time.Minute || svc.config.BatchSize != 25 {
		t.Errorf("unexpected defaults %+v", svc.config)
	}
	if svc.String() != "quarantine-sweeper" {
		t.Errorf("unexpected name %q", svc.String())
	}
}

func TestSweeper_Filter(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	lister := &fakeLister{}
	svc := NewSweeperService(lister, &fakeRepoller{}, config.SweeperConfig{MinAge: 15 * time.Minute, BatchSize: 7})
	svc.now = func() time.Time { return now }

	svc.Sweep(context.Background())

	if len(lister.filters) != 1 {
		t.Fatalf("expected one list call, got %d", len(lister.filters))
	}
	f := lister.filters[0]
	if f.Resolved == nil || *f.Resolved {
		t.Error("sweeper must only list unresolved records")
	}
	if !f.CreatedBefore.Equal(now.Add(-15 * time.Minute)) {
		t.Errorf("expected cutoff %v, got %v", now.Add(-15*time.Minute), f.CreatedBefore)
	}
	if f.Limit != 7 {
		t.Errorf("expected limit 7, got %d", f.Limit)
	}
	if !f.OldestFirst || f.After != nil {
		t.Errorf("first pass should walk oldest first from the start, got %+v", f)
	}
}

func TestSweeper_Pass(t *testing.T) {
	lister := &fakeLister{records: records("ORD-1", "ORD-2", "ORD-3")}
	repoller := &fakeRepoller{
		results: map[string]*reconcile.Result{
			"ORD-1": {Outcome: models.OutcomeConfirmedSuccess, QuarantineResolved: true},
		},
		errs: map[string]error{"ORD-2": errors.New("directory offline")},
	}
	svc := NewSweeperService(lister, repoller, config.SweeperConfig{})
	before := testutil.ToFloat64(metrics.SweeperRuns.WithLabelValues(SweepPartial))

	report := svc.Sweep(context.Background())

	if report.Seen != 3 || report.Resolved != 1 || report.Failed != 1 || report.Result != SweepPartial {
		t.Errorf("unexpected report %+v", report)
	}
	if len(repoller.polled) != 3 {
		t.Errorf("expected every record re-polled, got %v", repoller.polled)
	}
	for _, src := range repoller.sources {
		if src != models.SourcePoll {
			t.Errorf("expected poll source, got %s", src)
		}
	}
	if got := testutil.ToFloat64(metrics.QuarantineOpen); got != 2 {
		t.Errorf("expected 2 open records, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.SweeperRuns.WithLabelValues(SweepPartial)); got != before+1 {
		t.Errorf("expected partial run counted, got %v (was %v)", got, before)
	}
}

func TestSweeper_StopsWhenGatewayDown(t *testing.T) {
	lister := &fakeLister{records: records("ORD-1", "ORD-2", "ORD-3")}
	repoller := &fakeRepoller{errs: map[string]error{
		"ORD-1": &gateway.UnavailableError{Op: "fetch_status", StatusCode: 503},
	}}
	svc := NewSweeperService(lister, repoller, config.SweeperConfig{})

	report := svc.Sweep(context.Background())

	if report.Result != SweepGatewayUnavailable {
		t.Errorf("expected %s, got %s", SweepGatewayUnavailable, report.Result)
	}
	if len(repoller.polled) != 1 {
		t.Errorf("expected the pass to stop after the first failure, polled %v", repoller.polled)
	}
}

func TestSweeper_ListFailure(t *testing.T) {
	repoller := &fakeRepoller{}
	svc := NewSweeperService(&fakeLister{err: errors.New("closed")}, repoller, config.SweeperConfig{})

	if report := svc.Sweep(context.Background()); report.Result != SweepListFailed {
		t.Errorf("expected %s, got %s", SweepListFailed, report.Result)
	}
	if len(repoller.polled) != 0 {
		t.Error("nothing should be polled when listing fails")
	}
}

func TestSweeper_ServeTicks(t *testing.T) {
	lister := &fakeLister{}
	svc := NewSweeperService(lister, &fakeRepoller{}, config.SweeperConfig{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if len(lister.filters) < 2 {
		t.Errorf("expected several passes, got %d", len(lister.filters))
	}
}

// pagingLister serves records in creation order and honors the cursor.
type pagingLister struct {
	records []models.QuarantineRecord
	filters []models.QuarantineFilter
}

func (p *pagingLister) ListQuarantine(_ context.Context, filter models.QuarantineFilter) ([]models.QuarantineRecord, error) {
	p.filters = append(p.filters, filter)
	start := 0
	if filter.After != nil {
		for i, r := range p.records {
			if r.OrderID == filter.After.OrderID {
				start = i + 1
			}
		}
	}
	end := start + filter.Limit
	if end > len(p.records) {
		end = len(p.records)
	}
	return p.records[start:end], nil
}

func stale(n int) []models.QuarantineRecord {
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.QuarantineRecord, n)
	for i := range out {
		out[i] = models.QuarantineRecord{OrderID: fmt.Sprintf("ORD-%02d", i), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
	}
	return out
}

func TestSweeper_ReachesEveryRecordBeyondOneBatch(t *testing.T) {
	lister := &pagingLister{records: stale(7)}
	repoller := &fakeRepoller{}
	svc := NewSweeperService(lister, repoller, config.SweeperConfig{BatchSize: 3})

	for i := 0; i < 3; i++ {
		svc.Sweep(context.Background())
	}

	want := []string{"ORD-00", "ORD-01", "ORD-02", "ORD-03", "ORD-04", "ORD-05", "ORD-06"}
	if fmt.Sprint(repoller.polled) != fmt.Sprint(want) {
		t.Errorf("expected every open record once, polled %v", repoller.polled)
	}
	if svc.cursor != nil {
		t.Errorf("a short page should wrap the cursor, got %+v", svc.cursor)
	}

	// The next pass starts over from the oldest record.
	svc.Sweep(context.Background())
	if got := repoller.polled[len(repoller.polled)-3:]; fmt.Sprint(got) != fmt.Sprint(want[:3]) {
		t.Errorf("expected the walk to wrap, got %v", got)
	}
}

func TestSweeper_GatewayOutageKeepsPosition(t *testing.T) {
	lister := &pagingLister{records: stale(5)}
	repoller := &fakeRepoller{errs: map[string]error{
		"ORD-03": &gateway.UnavailableError{Op: "fetch_status", StatusCode: 503},
	}}
	svc := NewSweeperService(lister, repoller, config.SweeperConfig{BatchSize: 2})

	svc.Sweep(context.Background())
	svc.Sweep(context.Background())
	if svc.cursor == nil || svc.cursor.OrderID != "ORD-02" {
		t.Fatalf("expected the cursor to stop before the outage, got %+v", svc.cursor)
	}

	delete(repoller.errs, "ORD-03")
	svc.Sweep(context.Background())
	if last := lister.filters[len(lister.filters)-1]; last.After == nil || last.After.OrderID != "ORD-02" {
		t.Errorf("expected the retry to resume after ORD-02, got %+v", last.After)
	}
	if got := repoller.polled[len(repoller.polled)-2:]; fmt.Sprint(got) != "[ORD-03 ORD-04]" {
		t.Errorf("expected ORD-03 retried, got %v", got)
	}
}
