package monitor

import "fmt"

// Hard circuit-breaker limits. These sit above the configurable critical
// thresholds on purpose: crossing them means the host itself is at risk.
const (
	emergencyCPUPct       = 95
	emergencyMemoryPct    = 95
	emergencyDiskPct      = 98
	emergencyMinFreeGB    = 0.5
	emergencyMaxProcesses = 50
)

// EmergencyCheck reports whether the host has crossed any hard limit and
// must stop admitting work immediately.
func (m *Monitor) EmergencyCheck() (bool, []string) {
	snap := m.Snapshot(false)

	var reasons []string
	if snap.CPUPct > emergencyCPUPct {
		reasons = append(reasons, fmt.Sprintf("cpu exhausted: %.1f%%", snap.CPUPct))
	}
	if snap.MemoryPct > emergencyMemoryPct {
		reasons = append(reasons, fmt.Sprintf("memory exhausted: %.1f%%", snap.MemoryPct))
	}
	if snap.DiskPct > emergencyDiskPct {
		reasons = append(reasons, fmt.Sprintf("disk full: %.1f%%", snap.DiskPct))
	}
	if snap.MemoryAvailableGB < emergencyMinFreeGB {
		reasons = append(reasons, fmt.Sprintf("critically low free memory: %.1f GB", snap.MemoryAvailableGB))
	}
	if snap.InstanceProcesses > emergencyMaxProcesses {
		reasons = append(reasons, fmt.Sprintf("too many instance processes: %d", snap.InstanceProcesses))
	}

	if len(reasons) > 0 {
		m.cfg.Log.Error().
			Str("event", "emergency").
			Strs("reasons", reasons).
			Msg("emergency shutdown condition")
		return true, reasons
	}
	return false, nil
}

// Recommendations renders advisory optimization hints from the current
// snapshot and trends.
func (m *Monitor) Recommendations() []string {
	snap := m.Snapshot(false)
	t := m.cfg.Thresholds

	var recs []string
	switch {
	case snap.CPUPct > t.CPUCritical:
		recs = append(recs, fmt.Sprintf("critical cpu load (%.1f%%): stop non-urgent processes now", snap.CPUPct))
	case snap.CPUPct > t.CPUWarning:
		recs = append(recs, fmt.Sprintf("high cpu load (%.1f%%): downgrade instance profiles", snap.CPUPct))
	}
	switch {
	case snap.MemoryPct > t.MemoryCritical:
		recs = append(recs, fmt.Sprintf("critical memory pressure (%.1f%%): stop instances", snap.MemoryPct))
	case snap.MemoryPct > t.MemoryWarning:
		recs = append(recs, fmt.Sprintf("low memory (%.1f%%): limit instance count", snap.MemoryPct))
	}
	if snap.DiskPct > t.DiskWarning {
		recs = append(recs, fmt.Sprintf("low disk space (%.1f%%): clean logs and caches", snap.DiskPct))
	}
	if snap.ActiveInstances > 0 && snap.InstanceProcesses > snap.ActiveInstances*3 {
		recs = append(recs, fmt.Sprintf("%d instance processes for %d instances: check for hung processes",
			snap.InstanceProcesses, snap.ActiveInstances))
	}
	trends := m.Trends()
	if trends.CPU == TrendIncreasing && snap.CPUPct > 50 {
		recs = append(recs, "cpu load trending up: prepare to reduce load")
	}
	if len(recs) == 0 {
		recs = append(recs, "system operating normally")
	}
	return recs
}
