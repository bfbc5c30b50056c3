package lifecycle

import (
	"context"
	"sort"
	"time"

	"fleetd/internal/console"
)

// stopSettle is the wait between the quit command and the post-condition
// re-probe; the console acks before the VM has actually exited.
const stopSettle = 2 * time.Second

// StopResult is the outcome of one instance stop.
type StopResult struct {
	Index          int
	Stopped        bool
	AlreadyStopped bool
	Forced         bool
	Duration       time.Duration
	Err            error
}

// Stop shuts one instance down gracefully. Stopping a stopped instance is a
// success. The verdict comes from a forced re-probe after the settle wait,
// never from the quit command's exit status alone.
func (m *Manager) Stop(ctx context.Context, index int) StopResult {
	began := m.now()
	out := StopResult{Index: index}

	running, err := m.IsRunning(ctx, index, false)
	if err != nil {
		out.Err = err
		return out
	}
	if !running {
		out.Stopped = true
		out.AlreadyStopped = true
		return out
	}

	m.cfg.Log.Info().
		Str("event", "stop_quit").
		Int("instance", index).
		Msg("stopping instance")
	console.Quit(ctx, m.cfg.Surface, index, m.cfg.Batch.StopTimeout())

	if err := m.sleep(ctx, stopSettle); err != nil {
		out.Err = err
		out.Duration = m.now().Sub(began)
		return out
	}

	running, err = m.IsRunning(ctx, index, true)
	if err != nil {
		out.Err = err
		out.Duration = m.now().Sub(began)
		return out
	}
	out.Duration = m.now().Sub(began)
	if running {
		out.Err = stopFailedError{index: index}
		m.cfg.Log.Error().
			Str("event", "stop_failed").
			Int("instance", index).
			Msg("instance survived quit")
		return out
	}
	m.markState(index, StatusStopped)
	out.Stopped = true
	return out
}

// ForceStopAll issues a single global quit-all, then verifies each given
// instance individually.
func (m *Manager) ForceStopAll(ctx context.Context, indices []int) map[int]StopResult {
	began := m.now()
	m.cfg.Log.Warn().
		Str("event", "force_stop_all").
		Ints("instances", indices).
		Msg("force-stopping all instances")
	console.QuitAll(ctx, m.cfg.Surface, m.cfg.Batch.StopTimeout())

	if err := m.sleep(ctx, stopSettle); err != nil {
		out := make(map[int]StopResult, len(indices))
		for _, index := range indices {
			out[index] = StopResult{Index: index, Forced: true, Err: err}
		}
		return out
	}

	// One listing refresh covers every verification below.
	refreshErr := m.refreshStates(ctx)

	out := make(map[int]StopResult, len(indices))
	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)
	for _, index := range sorted {
		res := StopResult{Index: index, Forced: true, Duration: m.now().Sub(began)}
		if refreshErr != nil {
			res.Err = refreshErr
			out[index] = res
			continue
		}
		running, err := m.IsRunning(ctx, index, false)
		switch {
		case err != nil:
			res.Err = err
		case running:
			res.Err = stopFailedError{index: index}
		default:
			res.Stopped = true
		}
		out[index] = res
	}
	return out
}
