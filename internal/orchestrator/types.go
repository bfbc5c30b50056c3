package orchestrator

import (
	"time"

	"fleetd/internal/job"
	"fleetd/internal/lifecycle"
	"fleetd/internal/monitor"
)

// BatchOptions parameterizes planning. Zero values mean "decide from load":
// an empty Profile is chosen by load level, a zero Size uses the optimal
// size for the effective profile.
type BatchOptions struct {
	Profile string
	Size    int
	// ProfileFilter narrows candidates to registry records assigned that
	// profile. Independent of the performance profile applied at start.
	ProfileFilter string
}

// ResourceAllocation is the aggregate resource demand of a planned batch.
type ResourceAllocation struct {
	CPUCores    int `json:"cpu_cores"`
	MemoryMB    int `json:"memory_mb"`
	MaxParallel int `json:"max_parallel"`
}

// BatchPlan is the admitted shape of one batch before execution.
type BatchPlan struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	// Profile is the effective performance profile, after any high-load
	// downgrade.
	Profile        string                 `json:"profile"`
	InstanceIDs    []int                  `json:"instance_ids"`
	Recommendation monitor.Recommendation `json:"-"`
	Allocation     ResourceAllocation     `json:"allocation"`
	EstimatedTime  time.Duration          `json:"estimated_time"`
}

// BatchResults collects the outcome of every phase for one executed batch.
type BatchResults struct {
	PlanID   string
	Profile  string
	Planned  []int
	Started  map[int]lifecycle.StartResult
	Ready    lifecycle.BatchReadiness
	Jobs     map[int]job.Result
	Stopped  map[int]lifecycle.StopResult
	Errors   []string
	Duration time.Duration
	// SuccessRate is successful jobs over planned instances, 0..1.
	SuccessRate float64
}

// Processed counts the jobs that finished successfully.
func (r BatchResults) Processed() int {
	n := 0
	for _, jr := range r.Jobs {
		if jr.Success {
			n++
		}
	}
	return n
}

// SessionStats are the cumulative counters of one orchestrator lifetime.
type SessionStats struct {
	BatchesExecuted    int
	InstancesProcessed int
	TotalErrors        int
	StartedAt          time.Time
	LastBatchAt        time.Time
}
