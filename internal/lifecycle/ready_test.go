package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fleetd/internal/adb"
	"fleetd/internal/config"
)

func TestBackoffSchedule(t *testing.T) {
	policy := DefaultBackoff()
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{4, 2 * time.Second},
		{5, 3 * time.Second},
		{9, 3 * time.Second},
		{10, 5 * time.Second},
		{100, 5 * time.Second},
	}
	for _, tc := range cases {
		if got := policy.IntervalFor(tc.attempt); got != tc.want {
			t.Errorf("IntervalFor(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestBackoffForConfiguredInterval(t *testing.T) {
	p := backoffFor(45 * time.Second)
	if got := p.IntervalFor(0); got != 2*time.Second {
		t.Fatalf("IntervalFor(0) = %v, want 2s", got)
	}
	if got := p.IntervalFor(10); got != 45*time.Second {
		t.Fatalf("IntervalFor(10) = %v, want the configured 45s", got)
	}
	// Zero keeps the default steady-state interval.
	if got := backoffFor(0).IntervalFor(10); got != 5*time.Second {
		t.Fatalf("IntervalFor(10) with zero config = %v, want 5s", got)
	}
}

func TestWaitReadyResolvesEndpoint(t *testing.T) {
	fc := newFakeConsole(3)
	fp := newFakeProber()
	endpoint := adb.EndpointForIndex(3) // 127.0.0.1:5560
	fp.readyAfter[endpoint] = 3
	m, clock := newTestManager(fc, fp)

	got, err := m.waitReady(context.Background(), 3, 150*time.Second)
	if err != nil {
		t.Fatalf("waitReady: %v", err)
	}
	if got != endpoint {
		t.Fatalf("endpoint = %q, want %q", got, endpoint)
	}
	// Two misses before the hit: two 2s polls.
	sleeps := clock.sleeps()
	if len(sleeps) != 2 || sleeps[0] != 2*time.Second || sleeps[1] != 2*time.Second {
		t.Fatalf("poll sleeps = %v, want [2s 2s]", sleeps)
	}
}

func TestWaitReadyInstanceDied(t *testing.T) {
	fc := newFakeConsole() // nothing running
	fc.known[3] = true
	m, _ := newTestManager(fc, newFakeProber())

	_, err := m.waitReady(context.Background(), 3, 150*time.Second)
	if !IsInstanceDied(err) {
		t.Fatalf("err = %v, want instance-died", err)
	}
}

func TestWaitReadyDeadline(t *testing.T) {
	fc := newFakeConsole(3)
	m, clock := newTestManager(fc, newFakeProber())

	_, err := m.waitReady(context.Background(), 3, 12*time.Second)
	if !IsReadyTimeout(err) {
		t.Fatalf("err = %v, want ready-timeout", err)
	}
	// The poller must stop at the deadline, not sleep past it.
	var total time.Duration
	for _, d := range clock.sleeps() {
		total += d
	}
	if total > 12*time.Second {
		t.Fatalf("slept %v past a 12s deadline", total)
	}
}

func TestWaitBatchReadyPartition(t *testing.T) {
	fc := newFakeConsole(1, 2, 3)
	fp := newFakeProber()
	fp.reachable[adb.EndpointForIndex(1)] = true
	// Instance 2 dies after the first listing.
	// Instance 3 stays alive but never answers adb.
	m, _ := newTestManager(fc, fp)

	fc.mu.Lock()
	fc.running[2] = false
	fc.mu.Unlock()

	res := m.WaitBatchReady(context.Background(), []int{1, 2, 3}, 12*time.Second)

	if len(res.Ready) != 1 || res.Ready[1] != adb.EndpointForIndex(1) {
		t.Fatalf("ready = %v, want instance 1 at its standard endpoint", res.Ready)
	}
	if len(res.Failed) != 1 || res.Failed[0] != 2 {
		t.Fatalf("failed = %v, want [2]", res.Failed)
	}
	if len(res.TimedOut) != 1 || res.TimedOut[0] != 3 {
		t.Fatalf("timed out = %v, want [3]", res.TimedOut)
	}
	total := len(res.Ready) + len(res.Failed) + len(res.TimedOut)
	if total != 3 {
		t.Fatalf("partition covers %d of 3 instances", total)
	}
}

func TestWaitBatchReadyConfiguredPollInterval(t *testing.T) {
	fc := newFakeConsole(3)
	batch := config.DefaultBatch()
	batch.ReadyIntervalSec = 600
	m := New(Config{
		Surface: fc,
		Prober:  newFakeProber(),
		Batch:   batch,
		Log:     zerolog.Nop(),
	})
	clock := newFakeClock()
	m.now = clock.now
	m.sleep = clock.sleep

	// Instance 3 is alive but never answers adb: the poller walks the two
	// tightening stages and must then settle on the configured interval.
	res := m.WaitBatchReady(context.Background(), []int{3}, 700*time.Second)
	if len(res.TimedOut) != 1 || res.TimedOut[0] != 3 {
		t.Fatalf("timed out = %v, want [3]", res.TimedOut)
	}
	sleeps := clock.sleeps()
	if len(sleeps) != 11 {
		t.Fatalf("poll count = %d (%v), want 11", len(sleeps), sleeps)
	}
	if sleeps[0] != 2*time.Second || sleeps[9] != 3*time.Second {
		t.Fatalf("tightening stages changed: %v", sleeps)
	}
	if sleeps[10] != 600*time.Second {
		t.Fatalf("steady-state poll = %v, want 600s from config", sleeps[10])
	}
}

func TestWaitBatchReadyAllReady(t *testing.T) {
	fc := newFakeConsole(1, 2)
	fp := newFakeProber()
	fp.reachable[adb.EndpointForIndex(1)] = true
	fp.reachable[adb.EndpointForIndex(2)] = true
	m, clock := newTestManager(fc, fp)

	res := m.WaitBatchReady(context.Background(), []int{1, 2}, 150*time.Second)
	if len(res.Ready) != 2 || len(res.Failed) != 0 || len(res.TimedOut) != 0 {
		t.Fatalf("readiness = %+v, want both ready", res)
	}
	if len(clock.sleeps()) != 0 {
		t.Fatalf("slept %v with everything already ready", clock.sleeps())
	}
}
