package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fleetd/internal/config"
	"fleetd/internal/console"
)

// fakeConsole simulates the instance console: a mutable set of instances
// with run flags, driven by the same commands the real surface accepts.
type fakeConsole struct {
	mu      sync.Mutex
	running map[int]bool
	known   map[int]bool
	// failStart instances ack the launch but never come up.
	failStart map[int]bool
	// stubborn instances ack the quit but keep running.
	stubborn map[int]bool
	// appearAfter delays launched instances for N listings.
	appearAfter map[int]int
	failModify  bool

	listCalls    int
	launchCalls  int
	quitCalls    int
	quitAllCalls int
	modifyCalls  []string
}

func newFakeConsole(runningIdx ...int) *fakeConsole {
	fc := &fakeConsole{
		running:     make(map[int]bool),
		known:       make(map[int]bool),
		failStart:   make(map[int]bool),
		stubborn:    make(map[int]bool),
		appearAfter: make(map[int]int),
	}
	for _, i := range runningIdx {
		fc.known[i] = true
		fc.running[i] = true
	}
	return fc
}

func (fc *fakeConsole) Exec(ctx context.Context, timeout time.Duration, args ...string) console.Result {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	switch args[0] {
	case "list2":
		fc.listCalls++
		for idx, left := range fc.appearAfter {
			left--
			if left <= 0 {
				fc.running[idx] = true
				delete(fc.appearAfter, idx)
			} else {
				fc.appearAfter[idx] = left
			}
		}
		var b strings.Builder
		for idx := range fc.known {
			run := "0"
			if fc.running[idx] {
				run = "1"
			}
			fmt.Fprintf(&b, "%d,Inst-%d,0,0,%s,0,0\n", idx, idx, run)
		}
		return console.Result{Success: true, Stdout: b.String()}
	case "launch", "launchex":
		fc.launchCalls++
		idx := atoiT(args[len(args)-1])
		fc.known[idx] = true
		if fc.failStart[idx] {
			return console.Result{Success: true}
		}
		if delay, ok := fc.appearAfter[idx]; ok && delay > 0 {
			return console.Result{Success: true}
		}
		fc.running[idx] = true
		return console.Result{Success: true}
	case "quit":
		fc.quitCalls++
		idx := atoiT(args[len(args)-1])
		if !fc.stubborn[idx] {
			fc.running[idx] = false
		}
		return console.Result{Success: true}
	case "quit-all":
		fc.quitAllCalls++
		for idx := range fc.running {
			if !fc.stubborn[idx] {
				fc.running[idx] = false
			}
		}
		return console.Result{Success: true}
	case "modify":
		fc.modifyCalls = append(fc.modifyCalls, strings.Join(args, " "))
		if fc.failModify {
			return console.Result{Success: false, Stderr: "modify rejected"}
		}
		return console.Result{Success: true}
	default:
		return console.Result{Success: false, Stderr: "unknown command"}
	}
}

func atoiT(s string) int {
	var n int
	fmt.Sscanf(s, "%d", &n)
	return n
}

// fakeProber answers reachability from a scripted table.
type fakeProber struct {
	mu        sync.Mutex
	reachable map[string]bool
	devices   []string
	devErr    error
	// readyAfter delays an endpoint for N reachability checks.
	readyAfter map[string]int
}

func newFakeProber() *fakeProber {
	return &fakeProber{reachable: make(map[string]bool), readyAfter: make(map[string]int)}
}

func (fp *fakeProber) Reachable(ctx context.Context, endpoint string) bool {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	if left, ok := fp.readyAfter[endpoint]; ok {
		if left > 1 {
			fp.readyAfter[endpoint] = left - 1
			return false
		}
		delete(fp.readyAfter, endpoint)
		fp.reachable[endpoint] = true
	}
	return fp.reachable[endpoint]
}

func (fp *fakeProber) Devices(ctx context.Context) ([]string, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.devices, fp.devErr
}

// fakeClock backs both now() and sleep(): sleeping advances time, so TTLs
// and deadlines play out instantly.
type fakeClock struct {
	mu    sync.Mutex
	t     time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.slept = append(c.slept, d)
	c.mu.Unlock()
	return nil
}

func (c *fakeClock) sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

func newTestManager(fc console.Surface, fp *fakeProber) (*Manager, *fakeClock) {
	m := New(Config{
		Surface: fc,
		Prober:  fp,
		Batch:   config.DefaultBatch(),
		Log:     zerolog.Nop(),
	})
	clock := newFakeClock()
	m.now = clock.now
	m.sleep = clock.sleep
	return m, clock
}

func TestIsRunningCachesWithinTTL(t *testing.T) {
	fc := newFakeConsole(3)
	m, clock := newTestManager(fc, newFakeProber())
	ctx := context.Background()

	running, err := m.IsRunning(ctx, 3, false)
	if err != nil || !running {
		t.Fatalf("IsRunning(3) = %v, %v; want true", running, err)
	}
	if fc.listCalls != 1 {
		t.Fatalf("list calls = %d, want 1", fc.listCalls)
	}

	clock.advance(59 * time.Second)
	if _, err := m.IsRunning(ctx, 3, false); err != nil {
		t.Fatal(err)
	}
	if fc.listCalls != 1 {
		t.Fatalf("within TTL list calls = %d, want 1", fc.listCalls)
	}

	clock.advance(2 * time.Second)
	if _, err := m.IsRunning(ctx, 3, false); err != nil {
		t.Fatal(err)
	}
	if fc.listCalls != 2 {
		t.Fatalf("past TTL list calls = %d, want 2", fc.listCalls)
	}

	if _, err := m.IsRunning(ctx, 3, true); err != nil {
		t.Fatal(err)
	}
	if fc.listCalls != 3 {
		t.Fatalf("forced list calls = %d, want 3", fc.listCalls)
	}
}

func TestMissingFromListingIsStopped(t *testing.T) {
	fc := newFakeConsole(1, 2)
	m, _ := newTestManager(fc, newFakeProber())
	ctx := context.Background()

	if running, _ := m.IsRunning(ctx, 1, false); !running {
		t.Fatal("instance 1 should be running")
	}

	// Instance 1 vanishes from the listing entirely.
	fc.mu.Lock()
	delete(fc.known, 1)
	delete(fc.running, 1)
	fc.mu.Unlock()

	running, err := m.IsRunning(ctx, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	if running {
		t.Fatal("vanished instance must read as stopped")
	}

	// A never-seen index is stopped too, not an error.
	running, err = m.IsRunning(ctx, 99, true)
	if err != nil || running {
		t.Fatalf("IsRunning(99) = %v, %v; want false, nil", running, err)
	}
}

func TestRunningInstancesSorted(t *testing.T) {
	fc := newFakeConsole(7, 2, 5)
	fc.known[4] = true // present but stopped
	m, _ := newTestManager(fc, newFakeProber())

	got, err := m.RunningInstances(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []int{2, 5, 7}
	if len(got) != len(want) {
		t.Fatalf("running = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("running = %v, want %v", got, want)
		}
	}
}

func TestHealthCheck(t *testing.T) {
	fc := newFakeConsole(1, 2)
	fp := newFakeProber()
	m, _ := newTestManager(fc, fp)

	report := m.HealthCheck(context.Background())
	if !report.Healthy() {
		t.Fatalf("healthy plane reported unhealthy: %+v", report)
	}
	if report.RunningCount != 2 {
		t.Fatalf("RunningCount = %d, want 2", report.RunningCount)
	}

	fp.devErr = fmt.Errorf("adb missing")
	report = m.HealthCheck(context.Background())
	if report.ProbeOK || report.Healthy() {
		t.Fatalf("probe failure not surfaced: %+v", report)
	}
	if report.Detail == "" {
		t.Fatal("unhealthy report carries no detail")
	}
}
