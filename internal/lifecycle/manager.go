// Package lifecycle drives individual emulator instances through their
// start, readiness, profile, and stop transitions, on top of the console
// control surface and the adb reachability probe.
package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fleetd/internal/adb"
	"fleetd/internal/config"
	"fleetd/internal/console"
)

const (
	defaultStateTTL       = 60 * time.Second
	defaultCommandTimeout = 30 * time.Second
)

// Status is the cached run state of an instance.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	// StatusUnknown covers cache entries never confirmed by a listing.
	StatusUnknown Status = "unknown"
)

type instanceState struct {
	status    Status
	checkedAt time.Time
}

// Config bundles the manager collaborators and tunables.
type Config struct {
	Surface console.Surface
	Prober  adb.Prober
	Batch   config.Batch
	// StateTTL bounds run-state cache reuse; zero means 60s.
	StateTTL time.Duration
	// CommandTimeout applies to console commands other than launch;
	// zero means 30s.
	CommandTimeout time.Duration
	Log            zerolog.Logger
}

// Manager tracks instance run state behind a TTL cache and performs all
// state transitions. Safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	cfg     Config
	ttl     time.Duration
	cmdTO   time.Duration
	backoff BackoffPolicy
	states  map[int]*instanceState

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New constructs a Manager. cfg.Surface and cfg.Prober are required.
func New(cfg Config) *Manager {
	m := &Manager{
		cfg:     cfg,
		ttl:     cfg.StateTTL,
		cmdTO:   cfg.CommandTimeout,
		backoff: backoffFor(cfg.Batch.ReadyInterval()),
		states:  make(map[int]*instanceState),
		now:     time.Now,
		sleep:   sleepCtx,
	}
	if m.ttl <= 0 {
		m.ttl = defaultStateTTL
	}
	if m.cmdTO <= 0 {
		m.cmdTO = defaultCommandTimeout
	}
	return m
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsRunning reports whether the instance is running. A cached verdict
// younger than the state TTL is reused unless force is set; otherwise the
// console listing is re-read and the whole cache refreshed.
func (m *Manager) IsRunning(ctx context.Context, index int, force bool) (bool, error) {
	m.mu.Lock()
	if !force {
		if st, ok := m.states[index]; ok && st.status != StatusUnknown && m.now().Sub(st.checkedAt) < m.ttl {
			running := st.status == StatusRunning
			m.mu.Unlock()
			return running, nil
		}
	}
	m.mu.Unlock()

	if err := m.refreshStates(ctx); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[index]
	if !ok {
		// Never seen in any listing: treat as stopped.
		return false, nil
	}
	return st.status == StatusRunning, nil
}

// refreshStates re-reads the console listing and rebuilds the state cache.
// An instance absent from the listing is stopped, not unknown.
func (m *Manager) refreshStates(ctx context.Context) error {
	entries, res := console.List(ctx, m.cfg.Surface, m.cmdTO)
	if !res.Success {
		m.cfg.Log.Error().
			Str("event", "list_failed").
			Str("stderr", res.Stderr).
			Msg("console listing failed")
		return fmt.Errorf("console listing failed: %s", res.Stderr)
	}

	ts := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	listed := make(map[int]bool, len(entries))
	for _, e := range entries {
		listed[e.Index] = true
		status := StatusStopped
		if e.Running {
			status = StatusRunning
		}
		m.states[e.Index] = &instanceState{status: status, checkedAt: ts}
	}
	// Anything the cache knows but the listing no longer shows has exited.
	for index, st := range m.states {
		if !listed[index] {
			st.status = StatusStopped
			st.checkedAt = ts
		}
	}
	return nil
}

// markState records a locally observed transition without a fresh listing.
func (m *Manager) markState(index int, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[index] = &instanceState{status: status, checkedAt: m.now()}
}

// RunningInstances lists the indices currently running, sorted ascending.
func (m *Manager) RunningInstances(ctx context.Context) ([]int, error) {
	if err := m.refreshStates(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int
	for index, st := range m.states {
		if st.status == StatusRunning {
			out = append(out, index)
		}
	}
	sort.Ints(out)
	return out, nil
}
