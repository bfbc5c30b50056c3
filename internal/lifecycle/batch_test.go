package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"fleetd/internal/console"
)

func TestStartBatchEveryIndexGetsAResult(t *testing.T) {
	fc := newFakeConsole()
	fc.failStart[3] = true
	m, _ := newTestManager(fc, newFakeProber())

	results := m.StartBatch(context.Background(), []int{1, 2, 3})
	if len(results) != 3 {
		t.Fatalf("results cover %d of 3 instances", len(results))
	}
	if !results[1].Started || !results[2].Started {
		t.Fatalf("healthy instances failed: %+v %+v", results[1], results[2])
	}
	if results[3].Started || !IsStartFailed(results[3].Err) {
		t.Fatalf("dead instance = %+v, want start failure", results[3])
	}
}

func TestStartBatchStaggersSubmissions(t *testing.T) {
	fc := newFakeConsole()
	m, clock := newTestManager(fc, newFakeProber())

	m.StartBatch(context.Background(), []int{1, 2, 3})

	// Two stagger delays for three instances, plus one grace per start.
	staggers := 0
	for _, d := range clock.sleeps() {
		if d == 5*time.Second {
			staggers++
		}
	}
	if staggers != 2 {
		t.Fatalf("stagger sleeps = %d, want 2 for a batch of 3", staggers)
	}
}

// deadlineSurface records whether each console command ran under a context
// deadline before delegating to the wrapped surface.
type deadlineSurface struct {
	inner     console.Surface
	mu        sync.Mutex
	deadlines []bool
}

func (d *deadlineSurface) Exec(ctx context.Context, timeout time.Duration, args ...string) console.Result {
	_, ok := ctx.Deadline()
	d.mu.Lock()
	d.deadlines = append(d.deadlines, ok)
	d.mu.Unlock()
	return d.inner.Exec(ctx, timeout, args...)
}

func TestStartBatchBoundedByCollectionTimeout(t *testing.T) {
	ds := &deadlineSurface{inner: newFakeConsole()}
	m, _ := newTestManager(ds, newFakeProber())

	m.StartBatch(context.Background(), []int{1, 2})

	ds.mu.Lock()
	defer ds.mu.Unlock()
	if len(ds.deadlines) == 0 {
		t.Fatal("no console commands observed")
	}
	for i, ok := range ds.deadlines {
		if !ok {
			t.Fatalf("command %d ran without a collection deadline", i)
		}
	}
}

func TestStopBatchGraceful(t *testing.T) {
	fc := newFakeConsole(1, 2, 3)
	m, _ := newTestManager(fc, newFakeProber())

	results := m.StopBatch(context.Background(), []int{1, 2, 3}, false)
	if len(results) != 3 {
		t.Fatalf("results cover %d of 3 instances", len(results))
	}
	for idx, res := range results {
		if !res.Stopped || res.Forced {
			t.Fatalf("instance %d = %+v, want graceful stop", idx, res)
		}
	}
	if fc.quitAllCalls != 0 {
		t.Fatal("graceful batch reached for quit-all")
	}
}

func TestStopBatchForceUsesQuitAll(t *testing.T) {
	fc := newFakeConsole(1, 2)
	m, _ := newTestManager(fc, newFakeProber())

	results := m.StopBatch(context.Background(), []int{1, 2}, true)
	if fc.quitAllCalls != 1 || fc.quitCalls != 0 {
		t.Fatalf("force mode ran quit-all %d times and quit %d times", fc.quitAllCalls, fc.quitCalls)
	}
	for idx, res := range results {
		if !res.Stopped || !res.Forced {
			t.Fatalf("instance %d = %+v, want forced stop", idx, res)
		}
	}
}
