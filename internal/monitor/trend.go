package monitor

// trendWindow is how many recent samples feed the trend analysis.
const trendWindow = 10

// Trends analyzes the recent history window per metric. Fewer than 5
// samples reports stable across the board.
func (m *Monitor) Trends() TrendReport {
	m.mu.Lock()
	history := m.history
	if len(history) > trendWindow {
		history = history[len(history)-trendWindow:]
	}
	recent := make([]LoadSnapshot, len(history))
	copy(recent, history)
	m.mu.Unlock()

	if len(recent) < 5 {
		return TrendReport{CPU: TrendStable, Memory: TrendStable, Disk: TrendStable}
	}

	cpu := make([]float64, len(recent))
	mem := make([]float64, len(recent))
	dsk := make([]float64, len(recent))
	for i, s := range recent {
		cpu[i] = s.CPUPct
		mem[i] = s.MemoryPct
		dsk[i] = s.DiskPct
	}
	return TrendReport{
		CPU:    classifyTrend(cpu),
		Memory: classifyTrend(mem),
		Disk:   classifyTrend(dsk),
	}
}

// classifyTrend compares the mean of the first third of values against the
// last third; a relative change beyond ±10% flips the classification.
func classifyTrend(values []float64) Trend {
	if len(values) < 3 {
		return TrendStable
	}
	third := len(values) / 3
	firstMean := mean(values[:third])
	lastMean := mean(values[len(values)-third:])
	if firstMean == 0 {
		return TrendStable
	}
	diffPct := (lastMean - firstMean) / firstMean * 100
	switch {
	case diffPct > 10:
		return TrendIncreasing
	case diffPct < -10:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
