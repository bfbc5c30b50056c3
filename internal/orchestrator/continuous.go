package orchestrator

import (
	"context"
	"time"
)

const (
	// sleepSlice bounds each wait so cancellation is noticed promptly.
	sleepSlice = 30 * time.Second
	// usageRetention is how long sqlite usage rows are kept.
	usageRetention = 7 * 24 * time.Hour
)

// RunContinuous executes batches on an interval until ctx is cancelled,
// maxBatches runs have completed (0 means unlimited), or an emergency
// condition halts the loop. A weak batch (success rate under 0.5) stretches
// the next wait by half. On exit every instance still running is stopped.
func (o *Orchestrator) RunContinuous(ctx context.Context, opts BatchOptions, maxBatches int) error {
	interval := o.batch.Interval()
	o.log.Info().
		Str("event", "continuous_start").
		Dur("interval", interval).
		Int("max_batches", maxBatches).
		Msg("continuous mode engaged")

	for iteration := 1; ; iteration++ {
		if ctx.Err() != nil {
			break
		}
		if maxBatches > 0 && o.Stats().BatchesExecuted >= maxBatches {
			o.log.Info().
				Str("event", "continuous_limit").
				Int("batches", maxBatches).
				Msg("batch limit reached")
			break
		}

		if stop, reasons := o.monitor.EmergencyCheck(); stop {
			o.log.Error().
				Str("event", "continuous_emergency").
				Int("iteration", iteration).
				Strs("reasons", reasons).
				Msg("halting, host in emergency")
			break
		}

		wait := interval
		if plan, err := o.PlanBatch(ctx, opts); err != nil {
			if IsPlanRejected(err) {
				o.log.Warn().
					Str("event", "continuous_rejected").
					Int("iteration", iteration).
					Err(err).
					Msg("batch not admitted this iteration")
			} else if ctx.Err() != nil {
				break
			} else {
				o.log.Error().
					Str("event", "continuous_plan_failed").
					Int("iteration", iteration).
					Err(err).
					Msg("planning failed")
			}
		} else {
			results := o.RunBatch(ctx, plan)
			if results.SuccessRate < 0.5 {
				wait = interval + interval/2
				o.log.Warn().
					Str("event", "continuous_backoff").
					Float64("success_rate", results.SuccessRate).
					Dur("next_wait", wait).
					Msg("weak batch, stretching interval")
			}
		}

		if err := o.monitor.LogState(); err != nil {
			o.log.Warn().Str("event", "usage_log_failed").Err(err).Msg("usage log append failed")
		}
		if _, err := o.monitor.CleanupUsage(usageRetention); err != nil {
			o.log.Warn().Str("event", "usage_cleanup_failed").Err(err).Msg("usage cleanup failed")
		}

		if !o.interruptibleSleep(ctx, wait) {
			break
		}
	}

	o.finalCleanup()
	stats := o.Stats()
	o.log.Info().
		Str("event", "continuous_done").
		Int("batches", stats.BatchesExecuted).
		Int("processed", stats.InstancesProcessed).
		Int("errors", stats.TotalErrors).
		Msg("continuous mode finished")
	return ctx.Err()
}

// interruptibleSleep waits for d in bounded slices, returning false when
// ctx fires first.
func (o *Orchestrator) interruptibleSleep(ctx context.Context, d time.Duration) bool {
	for d > 0 {
		slice := d
		if slice > sleepSlice {
			slice = sleepSlice
		}
		t := time.NewTimer(slice)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		d -= slice
	}
	return true
}

// finalCleanup stops everything still running. It runs with a fresh context
// so a cancelled run still leaves the host quiet.
func (o *Orchestrator) finalCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	running, err := o.lifecycle.RunningInstances(ctx)
	if err != nil {
		o.log.Error().Str("event", "cleanup_failed").Err(err).Msg("could not enumerate running instances")
		return
	}
	if len(running) == 0 {
		return
	}
	o.log.Info().
		Str("event", "final_cleanup").
		Ints("instances", running).
		Msg("stopping leftover instances")
	o.lifecycle.ShutdownBatch(ctx, running)
}
