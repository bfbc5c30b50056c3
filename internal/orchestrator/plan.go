package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fleetd/internal/monitor"
)

// Overheads folded into the batch duration estimate.
const (
	estimateStartupOverhead  = 60 * time.Second
	estimateShutdownOverhead = 30 * time.Second
)

// planRejectedError carries why admission refused a batch.
type planRejectedError struct {
	reason   string
	warnings []string
}

func (e planRejectedError) Error() string {
	return "batch rejected: " + e.reason
}

// Warnings returns the admission warnings behind the rejection.
func (e planRejectedError) Warnings() []string { return e.warnings }

// IsPlanRejected reports whether err is an admission rejection. Rejections
// are authoritative outcomes, not retryable faults.
func IsPlanRejected(err error) bool {
	_, ok := err.(planRejectedError)
	return ok
}

// autoProfile picks the performance profile for the current load level.
func autoProfile(level monitor.LoadLevel) string {
	switch level {
	case monitor.LevelLow:
		return "rushing"
	case monitor.LevelMedium:
		return "developing"
	case monitor.LevelHigh:
		return "farming"
	default:
		return "dormant"
	}
}

// PlanBatch builds an admitted batch plan: pick the profile (by load when
// unset), size the batch, run admission, and select candidates by priority.
func (o *Orchestrator) PlanBatch(ctx context.Context, opts BatchOptions) (BatchPlan, error) {
	if err := ctx.Err(); err != nil {
		return BatchPlan{}, err
	}
	snap := o.monitor.Snapshot(true)

	if stop, reasons := o.monitor.EmergencyCheck(); stop {
		return BatchPlan{}, planRejectedError{reason: "emergency condition", warnings: reasons}
	}

	profileName := opts.Profile
	if profileName == "" {
		profileName = autoProfile(snap.Level)
	}

	candidates := o.instances.Enabled(opts.ProfileFilter)
	if len(candidates) == 0 {
		return BatchPlan{}, planRejectedError{reason: "no enabled instances match"}
	}

	size := opts.Size
	sizeChosen := size <= 0
	if sizeChosen {
		optimal, err := o.monitor.OptimalBatchSize(profileName)
		if err != nil {
			return BatchPlan{}, err
		}
		size = optimal
	}
	if size > len(candidates) {
		size = len(candidates)
	}

	rec, err := o.monitor.SafeToStartBatch(size, profileName)
	if err != nil {
		return BatchPlan{}, err
	}
	if !rec.SafeToStart {
		// An auto-chosen size may be clamped to the admitted maximum and
		// retried once; an explicit size is the caller's to fix.
		if !sizeChosen || rec.MaxBatchSize < 1 {
			return BatchPlan{}, planRejectedError{
				reason:   fmt.Sprintf("admission refused batch of %d on %q", size, profileName),
				warnings: rec.Warnings,
			}
		}
		size = rec.MaxBatchSize
		rec, err = o.monitor.SafeToStartBatch(size, profileName)
		if err != nil {
			return BatchPlan{}, err
		}
		if !rec.SafeToStart {
			return BatchPlan{}, planRejectedError{
				reason:   fmt.Sprintf("admission refused clamped batch of %d on %q", size, profileName),
				warnings: rec.Warnings,
			}
		}
	}

	effective := rec.RecommendedProfile
	if effective == "" {
		effective = profileName
	}
	profile, err := o.catalog.Get(effective)
	if err != nil {
		return BatchPlan{}, err
	}

	ids := make([]int, 0, size)
	for _, inst := range candidates[:size] {
		ids = append(ids, inst.ID)
	}

	parallel := o.batch.MaxParallelJobs
	if parallel <= 0 {
		parallel = 3
	}
	if parallel > size {
		parallel = size
	}
	waves := (size + parallel - 1) / parallel
	estimated := estimateStartupOverhead + estimateShutdownOverhead +
		time.Duration(waves)*time.Duration(profile.BaseRuntimeSec)*time.Second

	plan := BatchPlan{
		ID:             uuid.NewString(),
		CreatedAt:      o.now(),
		Profile:        effective,
		InstanceIDs:    ids,
		Recommendation: rec,
		Allocation: ResourceAllocation{
			CPUCores:    size * profile.CPUCores,
			MemoryMB:    size * profile.MemoryMB,
			MaxParallel: parallel,
		},
		EstimatedTime: estimated,
	}
	o.log.Info().
		Str("event", "batch_planned").
		Str("batch", plan.ID).
		Str("profile", effective).
		Ints("instances", ids).
		Dur("estimated", estimated).
		Strs("warnings", rec.Warnings).
		Msg("batch admitted")
	return plan, nil
}
