package lifecycle

import (
	"context"
	"time"

	"fleetd/internal/console"
)

const (
	// startGrace is the wait after a launch ack before the first
	// liveness check; startGraceExtra is the single additional chance.
	startGrace      = 10 * time.Second
	startGraceExtra = 15 * time.Second
)

// StartResult is the outcome of one instance start.
type StartResult struct {
	Index          int
	Started        bool
	AlreadyRunning bool
	Duration       time.Duration
	Err            error
}

// Start brings one instance up. Starting an already-running instance is a
// success, not an error. After the launch command is acknowledged the
// instance gets a grace period, then one extended grace period, to show up
// in the listing before the start is declared failed.
func (m *Manager) Start(ctx context.Context, index int) StartResult {
	began := m.now()
	out := StartResult{Index: index}

	running, err := m.IsRunning(ctx, index, false)
	if err != nil {
		out.Err = err
		return out
	}
	if running {
		m.cfg.Log.Debug().
			Str("event", "start_skipped").
			Int("instance", index).
			Msg("instance already running")
		out.Started = true
		out.AlreadyRunning = true
		return out
	}

	m.cfg.Log.Info().
		Str("event", "start_launch").
		Int("instance", index).
		Msg("launching instance")
	res := console.Launch(ctx, m.cfg.Surface, index, m.cfg.Batch.StartTimeout())
	if !res.Success {
		out.Err = startFailedError{index: index, reason: launchFailureReason(res)}
		out.Duration = m.now().Sub(began)
		return out
	}

	for _, grace := range []time.Duration{startGrace, startGraceExtra} {
		if err := m.sleep(ctx, grace); err != nil {
			out.Err = err
			out.Duration = m.now().Sub(began)
			return out
		}
		running, err := m.IsRunning(ctx, index, true)
		if err != nil {
			out.Err = err
			out.Duration = m.now().Sub(began)
			return out
		}
		if running {
			m.markState(index, StatusRunning)
			out.Started = true
			out.Duration = m.now().Sub(began)
			m.cfg.Log.Info().
				Str("event", "start_confirmed").
				Int("instance", index).
				Dur("took", out.Duration).
				Msg("instance is up")
			return out
		}
	}

	out.Err = startFailedError{index: index, reason: "not running after launch grace period"}
	out.Duration = m.now().Sub(began)
	m.cfg.Log.Error().
		Str("event", "start_failed").
		Int("instance", index).
		Msg("instance never came up")
	return out
}

func launchFailureReason(res console.Result) string {
	switch {
	case res.TimedOut:
		return "launch command timed out"
	case res.Stderr != "":
		return res.Stderr
	default:
		return "launch command failed"
	}
}
