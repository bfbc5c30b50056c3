package monitor

import "github.com/prometheus/client_golang/prometheus"

var (
	loadCPUPct = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fleetd",
		Subsystem: "host",
		Name:      "cpu_pct",
		Help:      "Host CPU utilization percent from the last sample",
	})
	loadMemoryPct = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fleetd",
		Subsystem: "host",
		Name:      "memory_pct",
		Help:      "Host memory utilization percent from the last sample",
	})
	loadDiskPct = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fleetd",
		Subsystem: "host",
		Name:      "disk_pct",
		Help:      "Host disk utilization percent from the last sample",
	})
	loadLevelGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fleetd",
		Subsystem: "host",
		Name:      "load_level",
		Help:      "1 for the currently classified load level, 0 otherwise",
	}, []string{"level"})
	activeInstancesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fleetd",
		Subsystem: "host",
		Name:      "active_instances",
		Help:      "Instance main processes observed on the host",
	})
)

func init() {
	prometheus.MustRegister(loadCPUPct, loadMemoryPct, loadDiskPct, loadLevelGauge, activeInstancesGauge)
}

func observeSnapshot(snap LoadSnapshot) {
	loadCPUPct.Set(snap.CPUPct)
	loadMemoryPct.Set(snap.MemoryPct)
	loadDiskPct.Set(snap.DiskPct)
	activeInstancesGauge.Set(float64(snap.ActiveInstances))
	for _, level := range []LoadLevel{LevelLow, LevelMedium, LevelHigh, LevelCritical, LevelUnknown} {
		v := 0.0
		if level == snap.Level {
			v = 1.0
		}
		loadLevelGauge.WithLabelValues(string(level)).Set(v)
	}
}
