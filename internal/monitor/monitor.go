// Package monitor turns raw host metrics into admission-control decisions:
// load classification, batch sizing, trend analysis, and the emergency
// circuit breaker consumed by the orchestrator.
package monitor

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fleetd/internal/config"
)

const (
	defaultCacheTTL    = 30 * time.Second
	defaultHistorySize = 100
)

// Config bundles the monitor tunables.
type Config struct {
	Thresholds config.Thresholds
	Catalog    *config.Catalog
	Sampler    Sampler
	// Store receives every fresh snapshot when set.
	Store *UsageStore
	// CacheTTL bounds snapshot reuse; zero means the 30s default.
	CacheTTL time.Duration
	// HistorySize caps the rolling history; zero means 100.
	HistorySize int
	Log         zerolog.Logger
}

// Monitor samples host load, keeps a bounded rolling history, and computes
// safe concurrency limits. Safe for concurrent use.
type Monitor struct {
	mu         sync.Mutex
	cfg        Config
	cacheTTL   time.Duration
	historyCap int

	cached   *LoadSnapshot
	cachedAt time.Time
	history  []LoadSnapshot

	now func() time.Time
}

// New constructs a Monitor. cfg.Sampler and cfg.Catalog are required.
func New(cfg Config) *Monitor {
	m := &Monitor{
		cfg:        cfg,
		cacheTTL:   cfg.CacheTTL,
		historyCap: cfg.HistorySize,
		now:        time.Now,
	}
	if m.cacheTTL <= 0 {
		m.cacheTTL = defaultCacheTTL
	}
	if m.historyCap <= 0 {
		m.historyCap = defaultHistorySize
	}
	return m
}

// Snapshot returns the current load. A snapshot fresher than the cache TTL
// is reused unless force is set. Collection failure yields a maximally
// conservative snapshot (LevelUnknown, zeros) instead of an error.
func (m *Monitor) Snapshot(force bool) LoadSnapshot {
	m.mu.Lock()
	if !force && m.cached != nil && m.now().Sub(m.cachedAt) < m.cacheTTL {
		snap := *m.cached
		m.mu.Unlock()
		return snap
	}
	m.mu.Unlock()

	raw, err := m.cfg.Sampler.Sample()
	ts := m.now()
	if err != nil {
		m.cfg.Log.Error().Str("event", "sample_failed").Err(err).Msg("metric collection failed, degrading to unknown")
		return LoadSnapshot{Timestamp: ts, Level: LevelUnknown}
	}

	snap := LoadSnapshot{
		Timestamp:         ts,
		CPUPct:            raw.CPUPct,
		MemoryPct:         raw.MemoryPct,
		MemoryAvailableGB: raw.MemoryAvailableGB,
		DiskPct:           raw.DiskPct,
		DiskFreeGB:        raw.DiskFreeGB,
		InstanceProcesses: raw.InstanceProcesses,
		InstanceMemoryMB:  raw.InstanceMemoryMB,
		ActiveInstances:   raw.ActiveInstances,
	}
	snap.Level = m.Classify(raw.CPUPct, raw.MemoryPct, raw.DiskPct)

	m.mu.Lock()
	m.cached = &snap
	m.cachedAt = ts
	m.history = append(m.history, snap)
	if len(m.history) > m.historyCap {
		m.history = m.history[len(m.history)-m.historyCap:]
	}
	m.mu.Unlock()

	observeSnapshot(snap)
	m.cfg.Log.Debug().
		Str("event", "sample").
		Float64("cpu", snap.CPUPct).
		Float64("mem", snap.MemoryPct).
		Float64("disk", snap.DiskPct).
		Int("instance_procs", snap.InstanceProcesses).
		Str("level", string(snap.Level)).
		Msg("host load sampled")
	return snap
}

// Classify maps utilization percentages to a load level: critical when any
// metric passes its critical threshold, high when any passes its warning
// threshold, medium when the unweighted average exceeds 50, else low.
func (m *Monitor) Classify(cpuPct, memPct, diskPct float64) LoadLevel {
	t := m.cfg.Thresholds
	if cpuPct >= t.CPUCritical || memPct >= t.MemoryCritical || diskPct >= t.DiskCritical {
		return LevelCritical
	}
	if cpuPct >= t.CPUWarning || memPct >= t.MemoryWarning || diskPct >= t.DiskWarning {
		return LevelHigh
	}
	if (cpuPct+memPct+diskPct)/3 > 50 {
		return LevelMedium
	}
	return LevelLow
}

// History returns a copy of the rolling snapshot history, oldest first.
func (m *Monitor) History() []LoadSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LoadSnapshot, len(m.history))
	copy(out, m.history)
	return out
}

// LogState samples (respecting the cache) and appends the snapshot to the
// usage store. No-op without a configured store.
func (m *Monitor) LogState() error {
	snap := m.Snapshot(false)
	if m.cfg.Store == nil {
		return nil
	}
	return m.cfg.Store.Log(snap)
}

// CleanupUsage prunes usage rows older than the retention window. No-op
// without a configured store.
func (m *Monitor) CleanupUsage(retention time.Duration) (int64, error) {
	if m.cfg.Store == nil {
		return 0, nil
	}
	removed, err := m.cfg.Store.Cleanup(retention)
	if err == nil && removed > 0 {
		m.cfg.Log.Debug().
			Str("event", "usage_cleanup").
			Int64("removed", removed).
			Msg("old usage rows pruned")
	}
	return removed, err
}
