package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ksred/studio-payroll/internal/types"
)

var march = time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

type fetchResult struct {
	rows []types.SettlementRow
	err  error
}

// staticFetcher answers immediately
type staticFetcher struct {
	mu     sync.Mutex
	result map[Period]fetchResult
	calls  []Period
}

func (f *staticFetcher) FetchSettlements(_ context.Context, p Period) ([]types.SettlementRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	r := f.result[p]
	return r.rows, r.err
}

// gatedFetcher blocks each call until the test releases its period. It
// ignores cancellation so a superseded response can still arrive late.
type gatedFetcher struct {
	started chan Period
	gates   map[Period]chan fetchResult
}

func newGatedFetcher(periods ...Period) *gatedFetcher {
	f := &gatedFetcher{
		started: make(chan Period, len(periods)),
		gates:   make(map[Period]chan fetchResult),
	}
	for _, p := range periods {
		f.gates[p] = make(chan fetchResult, 1)
	}
	return f
}

func (f *gatedFetcher) FetchSettlements(_ context.Context, p Period) ([]types.SettlementRow, error) {
	f.started <- p
	r := <-f.gates[p]
	return r.rows, r.err
}

func waitStarted(t *testing.T, f *gatedFetcher, want Period) {
	t.Helper()
	select {
	case got := <-f.started:
		if got != want {
			t.Fatalf("fetch started for %s, want %s", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("fetch for %s never started", want)
	}
}

func waitDone(t *testing.T, done <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap := <-done:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("SelectPeriod did not return")
		return Snapshot{}
	}
}

func TestPresenterInitialState(t *testing.T) {
	p := NewPresenter(&staticFetcher{}, march)
	snap := p.Snapshot()

	if snap.State != StateIdle {
		t.Errorf("State = %s, want IDLE", snap.State)
	}
	if snap.Period != (Period{Year: 2026, Month: 3}) {
		t.Errorf("Period = %+v, want 2026-03", snap.Period)
	}
	assertSummary(t, snap.Summary, 0, 0, 0)
}

func TestPresenterLoadReady(t *testing.T) {
	a := row(1, "A", 2000000, 35000, 24)
	f := &staticFetcher{result: map[Period]fetchResult{
		{2026, 3}: {rows: []types.SettlementRow{a}},
	}}
	p := NewPresenter(f, march)

	var states []State
	p.Subscribe(func(s Snapshot) { states = append(states, s.State) })

	snap := p.Load(context.Background())
	if snap.State != StateReady {
		t.Fatalf("State = %s, want READY", snap.State)
	}
	assertSummary(t, snap.Summary, 2840000, 24, 1)
	if len(states) != 2 || states[0] != StateLoading || states[1] != StateReady {
		t.Errorf("transitions = %v, want [LOADING READY]", states)
	}
}

func TestPresenterSubscribeDuringNotify(t *testing.T) {
	f := &staticFetcher{result: map[Period]fetchResult{
		{2026, 3}: {rows: []types.SettlementRow{row(1, "A", 2000000, 35000, 24)}},
	}}
	p := NewPresenter(f, march)

	var late []State
	added := false
	p.Subscribe(func(s Snapshot) {
		if !added {
			added = true
			p.Subscribe(func(s Snapshot) { late = append(late, s.State) })
		}
	})

	p.Load(context.Background())
	if len(late) != 1 || late[0] != StateReady {
		t.Errorf("late listener saw %v, want only [READY]", late)
	}
}

func TestPresenterEmptyPeriod(t *testing.T) {
	f := &staticFetcher{result: map[Period]fetchResult{
		{2026, 3}: {rows: []types.SettlementRow{}},
	}}
	p := NewPresenter(f, march)

	snap := p.Load(context.Background())
	if snap.State != StateReady || !snap.Empty() {
		t.Fatalf("expected empty ready report, got %s with %d rows", snap.State, len(snap.Rows))
	}
	assertSummary(t, snap.Summary, 0, 0, 0)
}

func TestPresenterFetchFailure(t *testing.T) {
	a := row(1, "A", 2000000, 35000, 24)
	f := &staticFetcher{result: map[Period]fetchResult{
		{2026, 3}: {rows: []types.SettlementRow{a}},
		{2026, 4}: {err: ErrDataUnavailable},
	}}
	p := NewPresenter(f, march)
	p.Load(context.Background())

	snap, err := p.SelectPeriod(context.Background(), Period{Year: 2026, Month: 4})
	if err != nil {
		t.Fatalf("fetch failure must not escape: %v", err)
	}
	if snap.State != StateFailed {
		t.Fatalf("State = %s, want FAILED", snap.State)
	}
	if !errors.Is(snap.Err, ErrDataUnavailable) {
		t.Errorf("Err = %v", snap.Err)
	}
	if !snap.Empty() {
		t.Error("failed period must not keep the previous period's rows")
	}
	assertSummary(t, snap.Summary, 0, 0, 0)

	// The selector stays usable after a failure.
	snap, _ = p.SelectPeriod(context.Background(), Period{Year: 2026, Month: 3})
	if snap.State != StateReady {
		t.Fatalf("State = %s after recovery, want READY", snap.State)
	}
}

func TestPresenterRejectsInvalidPeriod(t *testing.T) {
	f := &staticFetcher{}
	p := NewPresenter(f, march)

	snap, err := p.SelectPeriod(context.Background(), Period{Year: 2026, Month: 0})
	if !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("err = %v, want ErrInvalidPeriod", err)
	}
	if snap.State != StateIdle || snap.Period.Month != 3 {
		t.Fatalf("invalid selection must not change state: %+v", snap)
	}
	if len(f.calls) != 0 {
		t.Fatal("invalid selection must not fetch")
	}
}

func TestPresenterDiscardsStaleResponse(t *testing.T) {
	a := row(1, "A", 2000000, 35000, 24)
	b := row(2, "B", 1500000, 35000, 24)
	mar, apr := Period{2026, 3}, Period{2026, 4}

	f := newGatedFetcher(mar, apr)
	p := NewPresenter(f, march)
	ctx := context.Background()

	marDone := make(chan Snapshot, 1)
	go func() {
		s, _ := p.SelectPeriod(ctx, mar)
		marDone <- s
	}()
	waitStarted(t, f, mar)

	aprDone := make(chan Snapshot, 1)
	go func() {
		s, _ := p.SelectPeriod(ctx, apr)
		aprDone <- s
	}()
	waitStarted(t, f, apr)

	// April resolves first, then the slow March response arrives.
	f.gates[apr] <- fetchResult{rows: []types.SettlementRow{b}}
	snap := waitDone(t, aprDone)
	if snap.State != StateReady || snap.Period != apr {
		t.Fatalf("April snapshot = %s %s", snap.State, snap.Period)
	}

	f.gates[mar] <- fetchResult{rows: []types.SettlementRow{a}}
	stale := waitDone(t, marDone)
	if stale.Period != apr {
		t.Errorf("stale call should report the current period, got %s", stale.Period)
	}

	final := p.Snapshot()
	if final.Period != apr || final.State != StateReady {
		t.Fatalf("final = %s %s, want READY 2026-04", final.State, final.Period)
	}
	if len(final.Rows) != 1 || final.Rows[0].InstructorID != 2 {
		t.Fatalf("March response overwrote April rows: %+v", final.Rows)
	}
	assertSummary(t, final.Summary, 2340000, 24, 1)
}

func TestPresenterStaleResponseBeforeCurrent(t *testing.T) {
	a := row(1, "A", 2000000, 35000, 24)
	b := row(2, "B", 1500000, 35000, 24)
	mar, apr := Period{2026, 3}, Period{2026, 4}

	f := newGatedFetcher(mar, apr)
	p := NewPresenter(f, march)
	ctx := context.Background()

	marDone := make(chan Snapshot, 1)
	go func() {
		s, _ := p.SelectPeriod(ctx, mar)
		marDone <- s
	}()
	waitStarted(t, f, mar)

	aprDone := make(chan Snapshot, 1)
	go func() {
		s, _ := p.SelectPeriod(ctx, apr)
		aprDone <- s
	}()
	waitStarted(t, f, apr)

	f.gates[mar] <- fetchResult{rows: []types.SettlementRow{a}}
	waitDone(t, marDone)
	if snap := p.Snapshot(); snap.State != StateLoading || !snap.Empty() {
		t.Fatalf("stale March rows must not land while April loads: %s, %d rows", snap.State, len(snap.Rows))
	}

	f.gates[apr] <- fetchResult{rows: []types.SettlementRow{b}}
	snap := waitDone(t, aprDone)
	if snap.State != StateReady || snap.Rows[0].InstructorID != 2 {
		t.Fatalf("unexpected final snapshot %+v", snap)
	}
}

func TestPresenterDetail(t *testing.T) {
	a := row(1, "A", 2000000, 35000, 24)
	b := row(2, "B", 1500000, 35000, 24)
	f := &staticFetcher{result: map[Period]fetchResult{
		{2026, 3}: {rows: []types.SettlementRow{a, b}},
		{2026, 4}: {rows: []types.SettlementRow{b}},
	}}
	p := NewPresenter(f, march)

	if _, err := p.Expand(1); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Expand while idle: err = %v, want ErrNotReady", err)
	}

	p.Load(context.Background())

	if _, err := p.Expand(99); !errors.Is(err, ErrUnknownInstructor) {
		t.Fatalf("Expand unknown: err = %v, want ErrUnknownInstructor", err)
	}

	d, err := p.Expand(1)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if d.Row.Name != "A" || d.Commission.IntPart() != 840000 {
		t.Fatalf("unexpected detail %+v", d)
	}
	if snap := p.Snapshot(); snap.Detail == nil || snap.Detail.Row.InstructorID != 1 {
		t.Fatal("snapshot should carry the expanded detail")
	}

	p.Collapse()
	snap := p.Snapshot()
	if snap.Detail != nil {
		t.Fatal("Collapse should clear the detail")
	}
	if snap.Period != (Period{2026, 3}) || snap.State != StateReady {
		t.Fatal("Collapse must not touch the period")
	}

	p.Expand(2)
	snap, _ = p.SelectPeriod(context.Background(), Period{2026, 4})
	if snap.Detail != nil {
		t.Fatal("period change discards the rows the detail referred to")
	}
}
