// Package orchestrator drives the batch workflow over the whole fleet:
// plan under admission control, start, await readiness, run jobs, and
// always stop what was started.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fleetd/internal/adb"
	"fleetd/internal/config"
	"fleetd/internal/job"
	"fleetd/internal/lifecycle"
	"fleetd/internal/monitor"
	"fleetd/pkg/types"
)

// Monitor is the admission-control surface the orchestrator consumes.
type Monitor interface {
	Snapshot(force bool) monitor.LoadSnapshot
	SafeToStartBatch(size int, profile string) (monitor.Recommendation, error)
	OptimalBatchSize(profile string) (int, error)
	EmergencyCheck() (bool, []string)
	Recommendations() []string
	LogState() error
	CleanupUsage(retention time.Duration) (int64, error)
}

// Lifecycle is the instance control surface the orchestrator consumes.
type Lifecycle interface {
	StartBatch(ctx context.Context, indices []int) map[int]lifecycle.StartResult
	WaitBatchReady(ctx context.Context, indices []int, timeout time.Duration) lifecycle.BatchReadiness
	StopBatch(ctx context.Context, indices []int, force bool) map[int]lifecycle.StopResult
	ShutdownBatch(ctx context.Context, indices []int) map[int]lifecycle.StopResult
	ApplyProfileToBatch(ctx context.Context, indices []int, profile types.PerformanceProfile, restart bool) map[int]lifecycle.ProfileResult
	RunningInstances(ctx context.Context) ([]int, error)
	HealthCheck(ctx context.Context) lifecycle.HealthReport
}

// Instances is the registry view the orchestrator consumes.
type Instances interface {
	All() []types.InstanceRecord
	Enabled(profileFilter string) []types.InstanceRecord
	SetEndpoint(id int, endpoint string) error
	Save() error
}

// Orchestrator coordinates the five-phase batch workflow.
type Orchestrator struct {
	monitor   Monitor
	lifecycle Lifecycle
	instances Instances
	jobs      job.Runner
	catalog   *config.Catalog
	batch     config.Batch
	log       zerolog.Logger

	mu    sync.Mutex
	stats SessionStats

	now func() time.Time
}

// Config bundles the orchestrator collaborators.
type Config struct {
	Monitor   Monitor
	Lifecycle Lifecycle
	Instances Instances
	Jobs      job.Runner
	Catalog   *config.Catalog
	Batch     config.Batch
	Log       zerolog.Logger
}

// New constructs an Orchestrator. All collaborators are required.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		monitor:   cfg.Monitor,
		lifecycle: cfg.Lifecycle,
		instances: cfg.Instances,
		jobs:      cfg.Jobs,
		catalog:   cfg.Catalog,
		batch:     cfg.Batch,
		log:       cfg.Log,
		now:       time.Now,
	}
	o.stats.StartedAt = o.now()
	return o
}

// RunBatch executes a planned batch through all phases. The shutdown phase
// runs over every planned instance regardless of how earlier phases went.
func (o *Orchestrator) RunBatch(ctx context.Context, plan BatchPlan) BatchResults {
	began := o.now()
	results := BatchResults{
		PlanID:  plan.ID,
		Profile: plan.Profile,
		Planned: append([]int(nil), plan.InstanceIDs...),
		Jobs:    make(map[int]job.Result),
	}
	o.log.Info().
		Str("event", "batch_run").
		Str("batch", plan.ID).
		Ints("instances", plan.InstanceIDs).
		Str("profile", plan.Profile).
		Msg("executing batch")

	// Stop phase is unconditional: everything planned gets a stop.
	defer func() {
		results.Stopped = o.lifecycle.ShutdownBatch(ctx, results.Planned)
		for _, sr := range results.Stopped {
			if sr.Err != nil {
				results.Errors = append(results.Errors, sr.Err.Error())
			}
		}
		results.Duration = o.now().Sub(began)
		if len(results.Planned) > 0 {
			results.SuccessRate = float64(results.Processed()) / float64(len(results.Planned))
		}
		o.recordBatch(results)
		o.log.Info().
			Str("event", "batch_done").
			Str("batch", plan.ID).
			Int("processed", results.Processed()).
			Int("planned", len(results.Planned)).
			Float64("success_rate", results.SuccessRate).
			Dur("took", results.Duration).
			Msg("batch finished")
	}()

	// Reconfigure instances to the planned profile while they are down.
	if profile, err := o.catalog.Get(plan.Profile); err == nil {
		for id, pr := range o.lifecycle.ApplyProfileToBatch(ctx, plan.InstanceIDs, profile, false) {
			if pr.Err != nil {
				o.log.Warn().
					Str("event", "profile_skip").
					Int("instance", id).
					Err(pr.Err).
					Msg("profile change failed, starting with current resources")
			}
		}
	}

	results.Started = o.lifecycle.StartBatch(ctx, plan.InstanceIDs)
	var fresh, alreadyUp []int
	for id, sr := range results.Started {
		switch {
		case sr.Started && sr.AlreadyRunning:
			alreadyUp = append(alreadyUp, id)
		case sr.Started:
			fresh = append(fresh, id)
		case sr.Err != nil:
			results.Errors = append(results.Errors, sr.Err.Error())
		}
	}
	if len(fresh)+len(alreadyUp) == 0 {
		results.Errors = append(results.Errors, "no instance started")
		return results
	}

	results.Ready = o.lifecycle.WaitBatchReady(ctx, fresh, o.batch.ReadyTimeout())
	// Instances that were up before the batch are ready by definition.
	for _, id := range alreadyUp {
		results.Ready.Ready[id] = adb.EndpointForIndex(id)
	}
	for id, endpoint := range results.Ready.Ready {
		if err := o.instances.SetEndpoint(id, endpoint); err != nil {
			o.log.Warn().
				Str("event", "endpoint_record_failed").
				Int("instance", id).
				Err(err).
				Msg("instance ready but absent from registry")
		}
	}
	if len(results.Ready.Ready) > 0 {
		if err := o.instances.Save(); err != nil {
			o.log.Warn().
				Str("event", "registry_save_failed").
				Err(err).
				Msg("endpoint write-back failed")
		}
	}
	for _, id := range results.Ready.Failed {
		results.Errors = append(results.Errors, lifecycleFailure("died before ready", id))
	}
	for _, id := range results.Ready.TimedOut {
		results.Errors = append(results.Errors, lifecycleFailure("readiness timeout", id))
	}
	if len(results.Ready.Ready) == 0 {
		results.Errors = append(results.Errors, "no instance became ready")
		return results
	}

	o.processReady(ctx, &results)
	return results
}

// processReady runs the worker over every ready instance through a bounded
// pool. A timed-out or failed job is recorded, never retried here.
func (o *Orchestrator) processReady(ctx context.Context, results *BatchResults) {
	parallel := o.batch.MaxParallelJobs
	if parallel <= 0 {
		parallel = 3
	}
	timeout := o.batch.JobTimeout()

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, parallel)

	for id, endpoint := range results.Ready.Ready {
		wg.Add(1)
		go func(id int, endpoint string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			res := o.jobs.Run(ctx, id, endpoint, timeout)
			mu.Lock()
			results.Jobs[id] = res
			if !res.Success && res.Err != nil {
				results.Errors = append(results.Errors, res.Err.Error())
			}
			mu.Unlock()
		}(id, endpoint)
	}
	wg.Wait()
	observeJobs(results.Jobs)
}

// recordBatch folds one batch outcome into the session counters.
func (o *Orchestrator) recordBatch(results BatchResults) {
	o.mu.Lock()
	o.stats.BatchesExecuted++
	o.stats.InstancesProcessed += results.Processed()
	o.stats.TotalErrors += len(results.Errors)
	o.stats.LastBatchAt = o.now()
	o.mu.Unlock()
	observeBatch(results)
}

// Stats returns a copy of the session counters.
func (o *Orchestrator) Stats() SessionStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// InstanceRecords exposes the registry view for the HTTP API.
func (o *Orchestrator) InstanceRecords() []types.InstanceRecord {
	return o.instances.All()
}

// Healthy reports whether the control plane collaborators all answer.
func (o *Orchestrator) Healthy(ctx context.Context) bool {
	return o.lifecycle.HealthCheck(ctx).Healthy()
}

func lifecycleFailure(what string, id int) string {
	return fmt.Sprintf("%s: instance %d", what, id)
}
