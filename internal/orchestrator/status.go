package orchestrator

import (
	"context"
	"time"

	"fleetd/pkg/types"
)

// SystemStatus assembles the aggregated status document: host load, instance
// tallies, component health, session counters, and advisory recommendations.
func (o *Orchestrator) SystemStatus(ctx context.Context) types.SystemStatus {
	snap := o.monitor.Snapshot(false)
	health := o.lifecycle.HealthCheck(ctx)
	stats := o.Stats()

	all := o.instances.All()
	enabled := o.instances.Enabled("")

	status := types.SystemStatus{
		Timestamp: o.now().Format(time.RFC3339),
		System: types.SystemLoad{
			CPUPct:            snap.CPUPct,
			MemoryPct:         snap.MemoryPct,
			MemoryAvailableGB: snap.MemoryAvailableGB,
			DiskPct:           snap.DiskPct,
			LoadLevel:         string(snap.Level),
			InstanceProcesses: snap.InstanceProcesses,
		},
		Instances: types.InstanceTally{
			Total:   len(all),
			Running: health.RunningCount,
			Enabled: len(enabled),
		},
		Components: types.ComponentHealth{
			ConsoleHealthy: health.ConsoleOK,
			ProbeHealthy:   health.ProbeOK,
		},
		Session: types.SessionSummary{
			BatchesExecuted:    stats.BatchesExecuted,
			InstancesProcessed: stats.InstancesProcessed,
			TotalErrors:        stats.TotalErrors,
			StartedAt:          stats.StartedAt.Format(time.RFC3339),
		},
		Recommendations: o.monitor.Recommendations(),
	}
	if health.Detail != "" {
		status.Components.Issues = append(status.Components.Issues, health.Detail)
	}
	if !stats.LastBatchAt.IsZero() {
		status.Session.LastBatchAt = stats.LastBatchAt.Format(time.RFC3339)
	}
	return status
}
