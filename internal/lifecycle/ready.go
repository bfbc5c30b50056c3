package lifecycle

import (
	"context"
	"sort"
	"time"

	"fleetd/internal/adb"
)

// BackoffStage is one rung of a polling schedule: Checks attempts at the
// given Interval. Checks == 0 means unbounded.
type BackoffStage struct {
	Checks   int
	Interval time.Duration
}

// BackoffPolicy is a staged polling schedule. Readiness polling starts
// tight and relaxes: boot either completes quickly or takes a while.
type BackoffPolicy struct {
	Stages []BackoffStage
}

// DefaultBackoff is the readiness schedule: five checks every 2s, five
// every 3s, then every 5s until the deadline.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{Stages: []BackoffStage{
		{Checks: 5, Interval: 2 * time.Second},
		{Checks: 5, Interval: 3 * time.Second},
		{Checks: 0, Interval: 5 * time.Second},
	}}
}

// backoffFor builds the readiness schedule with the configured poll
// interval as the steady-state stage. Zero keeps the default.
func backoffFor(pollInterval time.Duration) BackoffPolicy {
	p := DefaultBackoff()
	if pollInterval > 0 {
		p.Stages[len(p.Stages)-1].Interval = pollInterval
	}
	return p
}

// IntervalFor returns the polling interval for the zero-based attempt
// number.
func (p BackoffPolicy) IntervalFor(attempt int) time.Duration {
	for _, stage := range p.Stages {
		if stage.Checks == 0 || attempt < stage.Checks {
			return stage.Interval
		}
		attempt -= stage.Checks
	}
	if len(p.Stages) == 0 {
		return time.Second
	}
	return p.Stages[len(p.Stages)-1].Interval
}

// waitReady polls one instance until its adb endpoint answers, it dies, or
// the timeout passes. On success the resolved endpoint is returned.
func (m *Manager) waitReady(ctx context.Context, index int, timeout time.Duration) (string, error) {
	deadline := m.now().Add(timeout)
	policy := m.backoff

	for attempt := 0; ; attempt++ {
		if endpoint := adb.ResolveEndpoint(ctx, m.cfg.Prober, index); endpoint != "" {
			m.cfg.Log.Info().
				Str("event", "instance_ready").
				Int("instance", index).
				Str("endpoint", endpoint).
				Msg("instance answers adb")
			return endpoint, nil
		}

		running, err := m.IsRunning(ctx, index, true)
		if err != nil {
			return "", err
		}
		if !running {
			return "", instanceDiedError{index: index}
		}

		interval := policy.IntervalFor(attempt)
		if m.now().Add(interval).After(deadline) {
			return "", readyTimeoutError{index: index}
		}
		if err := m.sleep(ctx, interval); err != nil {
			return "", err
		}
	}
}

// BatchReadiness is the exact three-way partition of a started batch:
// every awaited instance lands in exactly one bucket.
type BatchReadiness struct {
	// Ready maps instance index to its resolved adb endpoint.
	Ready    map[int]string
	Failed   []int
	TimedOut []int
}

// WaitBatchReady polls a set of instances until each is ready or dead, or
// the shared deadline expires. Instances still pending at the deadline are
// reported timed-out.
func (m *Manager) WaitBatchReady(ctx context.Context, indices []int, timeout time.Duration) BatchReadiness {
	out := BatchReadiness{Ready: make(map[int]string)}
	deadline := m.now().Add(timeout)
	policy := m.backoff

	pending := make(map[int]bool, len(indices))
	for _, index := range indices {
		pending[index] = true
	}

	for attempt := 0; len(pending) > 0; attempt++ {
		for index := range pending {
			if endpoint := adb.ResolveEndpoint(ctx, m.cfg.Prober, index); endpoint != "" {
				out.Ready[index] = endpoint
				delete(pending, index)
				continue
			}
			running, err := m.IsRunning(ctx, index, true)
			if err == nil && !running {
				m.cfg.Log.Warn().
					Str("event", "instance_died").
					Int("instance", index).
					Msg("instance exited before becoming ready")
				out.Failed = append(out.Failed, index)
				delete(pending, index)
			}
		}
		if len(pending) == 0 {
			break
		}

		interval := policy.IntervalFor(attempt)
		if m.now().Add(interval).After(deadline) {
			break
		}
		if err := m.sleep(ctx, interval); err != nil {
			break
		}
	}

	for index := range pending {
		out.TimedOut = append(out.TimedOut, index)
	}
	sort.Ints(out.Failed)
	sort.Ints(out.TimedOut)
	m.cfg.Log.Info().
		Str("event", "batch_ready").
		Int("ready", len(out.Ready)).
		Int("failed", len(out.Failed)).
		Int("timed_out", len(out.TimedOut)).
		Msg("batch readiness settled")
	return out
}
