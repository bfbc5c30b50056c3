package monitor

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *UsageStore {
	t.Helper()
	store, err := OpenUsageStore(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("OpenUsageStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUsageStoreLogAndStats(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	rows := []LoadSnapshot{
		{Timestamp: now.Add(-10 * time.Minute), CPUPct: 40, MemoryPct: 50, Level: LevelLow},
		{Timestamp: now.Add(-5 * time.Minute), CPUPct: 60, MemoryPct: 70, Level: LevelMedium},
		{Timestamp: now.Add(-1 * time.Minute), CPUPct: 80, MemoryPct: 60, Level: LevelHigh},
		// Outside the one-hour window below.
		{Timestamp: now.Add(-2 * time.Hour), CPUPct: 99, MemoryPct: 99, Level: LevelCritical},
	}
	for _, snap := range rows {
		if err := store.Log(snap); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	stats, err := store.Stats(time.Hour)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Measurements != 3 {
		t.Fatalf("Measurements = %d, want 3", stats.Measurements)
	}
	if stats.CPUAvg != 60 || stats.CPUMax != 80 || stats.CPUMin != 40 {
		t.Fatalf("cpu stats avg/max/min = %.0f/%.0f/%.0f, want 60/80/40",
			stats.CPUAvg, stats.CPUMax, stats.CPUMin)
	}
	if stats.LevelCounts["low"] != 1 || stats.LevelCounts["medium"] != 1 || stats.LevelCounts["high"] != 1 {
		t.Fatalf("level counts = %v", stats.LevelCounts)
	}
	if stats.LevelCounts["critical"] != 0 {
		t.Fatalf("old critical row leaked into the window: %v", stats.LevelCounts)
	}
}

func TestUsageStoreStatsEmpty(t *testing.T) {
	store := openTestStore(t)
	stats, err := store.Stats(time.Hour)
	if err != nil {
		t.Fatalf("Stats on empty store: %v", err)
	}
	if stats.Measurements != 0 || stats.CPUAvg != 0 {
		t.Fatalf("empty store stats = %+v", stats)
	}
}

func TestUsageStoreCleanup(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	for _, snap := range []LoadSnapshot{
		{Timestamp: now.Add(-48 * time.Hour), CPUPct: 10, Level: LevelLow},
		{Timestamp: now.Add(-36 * time.Hour), CPUPct: 20, Level: LevelLow},
		{Timestamp: now.Add(-1 * time.Hour), CPUPct: 30, Level: LevelLow},
	} {
		if err := store.Log(snap); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	removed, err := store.Cleanup(24 * time.Hour)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if removed != 2 {
		t.Fatalf("Cleanup removed %d rows, want 2", removed)
	}

	stats, err := store.Stats(365 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Measurements != 1 {
		t.Fatalf("rows after cleanup = %d, want 1", stats.Measurements)
	}
}
