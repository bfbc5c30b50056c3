package lifecycle

import (
	"context"
	"sync"
)

const (
	defaultParallelStart = 3
	defaultParallelStop  = 5
)

// StartBatch starts a set of instances through a bounded worker pool,
// with the whole collection bounded by the configured batch start timeout.
// Submissions past the first are staggered by the configured start delay so
// the host never absorbs a launch storm. Every index gets a result.
func (m *Manager) StartBatch(ctx context.Context, indices []int) map[int]StartResult {
	if to := m.cfg.Batch.StartBatchTimeout(); to > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, to)
		defer cancel()
	}

	parallel := m.cfg.Batch.MaxParallelStart
	if parallel <= 0 {
		parallel = defaultParallelStart
	}
	delay := m.cfg.Batch.StartDelay()

	m.cfg.Log.Info().
		Str("event", "batch_start").
		Ints("instances", indices).
		Int("parallel", parallel).
		Msg("starting batch")

	out := make(map[int]StartResult, len(indices))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, parallel)

	for i, index := range indices {
		if i > 0 && delay > 0 {
			if err := m.sleep(ctx, delay); err != nil {
				mu.Lock()
				out[index] = StartResult{Index: index, Err: err}
				mu.Unlock()
				continue
			}
		}
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			res := m.Start(ctx, index)
			mu.Lock()
			out[index] = res
			mu.Unlock()
		}(index)
	}
	wg.Wait()

	started := 0
	for _, res := range out {
		if res.Started {
			started++
		}
	}
	m.cfg.Log.Info().
		Str("event", "batch_start_done").
		Int("started", started).
		Int("total", len(indices)).
		Msg("batch start settled")
	return out
}

// StopBatch stops a set of instances. Graceful mode runs individual stops
// through a bounded pool; force mode short-circuits to a single global
// quit-all with per-instance verification.
func (m *Manager) StopBatch(ctx context.Context, indices []int, force bool) map[int]StopResult {
	if force {
		return m.ForceStopAll(ctx, indices)
	}

	parallel := m.cfg.Batch.MaxParallelStop
	if parallel <= 0 {
		parallel = defaultParallelStop
	}
	m.cfg.Log.Info().
		Str("event", "batch_stop").
		Ints("instances", indices).
		Int("parallel", parallel).
		Msg("stopping batch")

	out := make(map[int]StopResult, len(indices))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, parallel)

	for _, index := range indices {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			res := m.Stop(ctx, index)
			mu.Lock()
			out[index] = res
			mu.Unlock()
		}(index)
	}
	wg.Wait()
	return out
}

// stopStragglers force-stops any of the given instances still running.
// Used as the escalation pass after a graceful batch stop reports failures.
func (m *Manager) stopStragglers(ctx context.Context, results map[int]StopResult) map[int]StopResult {
	var stragglers []int
	for index, res := range results {
		if !res.Stopped {
			stragglers = append(stragglers, index)
		}
	}
	if len(stragglers) == 0 {
		return results
	}
	m.cfg.Log.Warn().
		Str("event", "stop_escalation").
		Ints("instances", stragglers).
		Msg("escalating to forced stop")
	forced := m.ForceStopAll(ctx, stragglers)
	for index, res := range forced {
		results[index] = res
	}
	return results
}

// ShutdownBatch runs the graceful pool and escalates leftovers to a forced
// pass. This is the stop used at the end of every workflow.
func (m *Manager) ShutdownBatch(ctx context.Context, indices []int) map[int]StopResult {
	results := m.StopBatch(ctx, indices, false)
	return m.stopStragglers(ctx, results)
}

// settleAfterStop gives freshly stopped instances a beat before restart.
func (m *Manager) settleAfterStop(ctx context.Context) error {
	return m.sleep(ctx, stopSettle)
}
