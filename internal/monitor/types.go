package monitor

import "time"

// LoadLevel classifies host resource pressure.
type LoadLevel string

const (
	LevelLow      LoadLevel = "low"
	LevelMedium   LoadLevel = "medium"
	LevelHigh     LoadLevel = "high"
	LevelCritical LoadLevel = "critical"
	// LevelUnknown marks a snapshot produced after a collection failure.
	// Admission treats it exactly like critical.
	LevelUnknown LoadLevel = "unknown"
)

// severity orders levels for comparisons; higher is worse.
func (l LoadLevel) severity() int {
	switch l {
	case LevelLow:
		return 0
	case LevelMedium:
		return 1
	case LevelHigh:
		return 2
	case LevelCritical:
		return 3
	default:
		return 4
	}
}

// WorseThan reports whether l indicates more pressure than other.
func (l LoadLevel) WorseThan(other LoadLevel) bool {
	return l.severity() > other.severity()
}

// LoadSnapshot is an immutable sample of host load.
type LoadSnapshot struct {
	Timestamp         time.Time
	CPUPct            float64
	MemoryPct         float64
	MemoryAvailableGB float64
	DiskPct           float64
	DiskFreeGB        float64
	// Instance-related host processes and their resident memory.
	InstanceProcesses int
	InstanceMemoryMB  float64
	ActiveInstances   int
	Level             LoadLevel
}

// HostSample is the raw reading a Sampler produces before classification.
type HostSample struct {
	CPUPct            float64
	MemoryPct         float64
	MemoryAvailableGB float64
	DiskPct           float64
	DiskFreeGB        float64
	InstanceProcesses int
	InstanceMemoryMB  float64
	ActiveInstances   int
}

// Sampler reads raw host metrics. The production implementation uses
// gopsutil; tests substitute a fake.
type Sampler interface {
	Sample() (HostSample, error)
}

// Trend is the direction of a metric over the recent history window.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// TrendReport carries the per-metric trends. Advisory only: trends add
// warnings but never change hard admission limits.
type TrendReport struct {
	CPU    Trend
	Memory Trend
	Disk   Trend
}

// Recommendation is the admission verdict for a requested batch.
type Recommendation struct {
	SafeToStart        bool
	OptimalBatchSize   int
	MaxBatchSize       int
	RecommendedProfile string
	Warnings           []string
	RequiredActions    []string
}
