package monitor

import "testing"

// seedHistory loads a snapshot per cpu value with flat memory and disk.
func seedHistory(m *Monitor, cpuValues []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = m.history[:0]
	for _, cpu := range cpuValues {
		m.history = append(m.history, LoadSnapshot{CPUPct: cpu, MemoryPct: 50, DiskPct: 50})
	}
}

func TestTrendsJumpIsIncreasing(t *testing.T) {
	m := newTestMonitor(&fakeSampler{})
	seedHistory(m, []float64{30, 31, 29, 30, 31, 55, 56, 54, 55, 56})

	trends := m.Trends()
	if trends.CPU != TrendIncreasing {
		t.Fatalf("CPU trend = %q, want increasing", trends.CPU)
	}
	if trends.Memory != TrendStable || trends.Disk != TrendStable {
		t.Fatalf("flat metrics drifted: memory=%q disk=%q", trends.Memory, trends.Disk)
	}
}

func TestTrendsNoiseIsStable(t *testing.T) {
	m := newTestMonitor(&fakeSampler{})
	seedHistory(m, []float64{50, 50, 50, 50, 50, 51, 49, 50, 50, 50})

	if trends := m.Trends(); trends.CPU != TrendStable {
		t.Fatalf("CPU trend = %q, want stable for ±2%% noise", trends.CPU)
	}
}

func TestTrendsDecreasing(t *testing.T) {
	m := newTestMonitor(&fakeSampler{})
	seedHistory(m, []float64{80, 79, 81, 80, 78, 45, 44, 46, 45, 44})

	if trends := m.Trends(); trends.CPU != TrendDecreasing {
		t.Fatalf("CPU trend = %q, want decreasing", trends.CPU)
	}
}

func TestTrendsShortHistoryIsStable(t *testing.T) {
	m := newTestMonitor(&fakeSampler{})
	seedHistory(m, []float64{10, 90, 10, 90})

	trends := m.Trends()
	if trends.CPU != TrendStable || trends.Memory != TrendStable || trends.Disk != TrendStable {
		t.Fatalf("under 5 samples must read stable, got %+v", trends)
	}
}

func TestTrendsUsesOnlyRecentWindow(t *testing.T) {
	m := newTestMonitor(&fakeSampler{})
	// Old spike followed by ten flat samples: only the window counts.
	values := []float64{95, 95, 95}
	for i := 0; i < trendWindow; i++ {
		values = append(values, 40)
	}
	seedHistory(m, values)

	if trends := m.Trends(); trends.CPU != TrendStable {
		t.Fatalf("CPU trend = %q, want stable once the spike ages out", trends.CPU)
	}
}

func TestClassifyTrendZeroBaseline(t *testing.T) {
	if got := classifyTrend([]float64{0, 0, 0, 50, 50, 50}); got != TrendStable {
		t.Fatalf("zero baseline trend = %q, want stable", got)
	}
}
