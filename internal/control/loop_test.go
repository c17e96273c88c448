package control

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/TobiSchelling/hltvscan/internal/crawl"
	"github.com/TobiSchelling/hltvscan/internal/database"
	"github.com/TobiSchelling/hltvscan/internal/ingest"
)

// fakeClock advances only when the loop sleeps.
type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
	onTick func(now time.Time)
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(_ context.Context, d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
	if c.onTick != nil {
		c.onTick(c.t)
	}
}

// mockCycler records cycle start times.
type mockCycler struct {
	clock  *fakeClock
	starts []time.Time
	errs   []error
	bytes  int64
}

func (m *mockCycler) RunCycle(_ context.Context) (*ingest.CycleResult, error) {
	m.starts = append(m.starts, m.clock.now())
	var err error
	if len(m.errs) > 0 {
		err, m.errs = m.errs[0], m.errs[1:]
	}
	return &ingest.CycleResult{Bytes: m.bytes}, err
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var t0 = time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestLoop(db *database.DB, c *mockCycler, clock *fakeClock) *Loop {
	l := New(db, c)
	l.now = clock.now
	l.sleep = clock.sleep
	return l
}

func TestRunSchedulesFromCycleStart(t *testing.T) {
	db := openTestDB(t)
	db.SetSignal(database.SignalRefresh, 15)

	clock := &fakeClock{t: t0}
	cycler := &mockCycler{clock: clock, bytes: 1000}
	clock.onTick = func(now time.Time) {
		if len(cycler.starts) == 2 {
			db.RequestEnd(true)
		}
	}

	l := newTestLoop(db, cycler, clock)
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cycler.starts) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(cycler.starts))
	}
	if gap := cycler.starts[1].Sub(cycler.starts[0]); gap < 15*time.Minute {
		t.Errorf("second cycle started %v after the first, want >= 15m", gap)
	}
	for _, d := range clock.sleeps {
		if d > DefaultPollInterval {
			t.Errorf("sleep %v exceeds poll interval", d)
		}
	}
	if l.TotalBytes != 2000 {
		t.Errorf("expected 2000 total bytes, got %d", l.TotalBytes)
	}
}

func TestRunObservesEndWithinOnePoll(t *testing.T) {
	db := openTestDB(t)
	db.SetSignal(database.SignalRefresh, 15)

	clock := &fakeClock{t: t0}
	cycler := &mockCycler{clock: clock}
	var setAt time.Time
	clock.onTick = func(now time.Time) {
		if setAt.IsZero() && now.Sub(t0) >= 3*time.Minute {
			setAt = now
			db.RequestEnd(true)
		}
	}

	l := newTestLoop(db, cycler, clock)
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cycler.starts) != 1 {
		t.Errorf("expected 1 cycle, got %d", len(cycler.starts))
	}
	if lag := clock.t.Sub(setAt); lag > l.PollInterval {
		t.Errorf("shutdown observed %v after request, want <= %v", lag, l.PollInterval)
	}
}

func TestRunClearsStaleEnd(t *testing.T) {
	db := openTestDB(t)
	db.RequestEnd(true)
	db.SetSignal(database.SignalRefresh, 1)

	clock := &fakeClock{t: t0}
	cycler := &mockCycler{clock: clock}
	clock.onTick = func(time.Time) { db.RequestEnd(true) }

	l := newTestLoop(db, cycler, clock)
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cycler.starts) != 1 {
		t.Errorf("expected a cycle despite stale End, got %d", len(cycler.starts))
	}
}

func TestRunDefaultRefresh(t *testing.T) {
	db := openTestDB(t)

	clock := &fakeClock{t: t0}
	cycler := &mockCycler{clock: clock}
	clock.onTick = func(time.Time) {
		if len(cycler.starts) == 2 {
			db.RequestEnd(true)
		}
	}

	l := newTestLoop(db, cycler, clock)
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gap := cycler.starts[1].Sub(cycler.starts[0]); gap != 30*time.Minute {
		t.Errorf("expected default 30m gap, got %v", gap)
	}
}

func TestRunFetchErrorContinues(t *testing.T) {
	db := openTestDB(t)
	db.SetSignal(database.SignalRefresh, 1)

	clock := &fakeClock{t: t0}
	cycler := &mockCycler{clock: clock, errs: []error{&crawl.FetchError{URL: "x", Err: errors.New("503")}}}
	clock.onTick = func(time.Time) {
		if len(cycler.starts) == 2 {
			db.RequestEnd(true)
		}
	}

	l := newTestLoop(db, cycler, clock)
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("fetch error should not stop the loop: %v", err)
	}
	if len(cycler.starts) != 2 {
		t.Errorf("expected 2 cycles, got %d", len(cycler.starts))
	}
}

func TestRunPersistenceErrorStops(t *testing.T) {
	db := openTestDB(t)
	clock := &fakeClock{t: t0}
	cycler := &mockCycler{clock: clock, errs: []error{&database.PersistenceError{Op: "upsert", Err: errors.New("disk full")}}}

	l := newTestLoop(db, cycler, clock)
	err := l.Run(context.Background())
	var pe *database.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}

func TestRunContextCancelled(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())

	clock := &fakeClock{t: t0}
	cycler := &mockCycler{clock: clock}
	clock.onTick = func(time.Time) { cancel() }

	l := newTestLoop(db, cycler, clock)
	if err := l.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cycler.starts) != 1 {
		t.Errorf("expected 1 cycle, got %d", len(cycler.starts))
	}
}
