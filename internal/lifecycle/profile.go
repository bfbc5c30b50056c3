package lifecycle

import (
	"context"

	"fleetd/internal/console"
	"fleetd/pkg/types"
)

// ProfileResult is the outcome of applying a performance profile to one
// instance.
type ProfileResult struct {
	Index   int
	Applied bool
	// RestartRequired is set when the instance was running during the
	// change; resource modifications only take full effect after a
	// restart.
	RestartRequired bool
	Err             error
}

// ApplyProfile reconfigures one instance's cpu, memory, and resolution.
// A running instance is modified anyway and flagged restart-required.
func (m *Manager) ApplyProfile(ctx context.Context, index int, profile types.PerformanceProfile) ProfileResult {
	out := ProfileResult{Index: index}

	running, err := m.IsRunning(ctx, index, false)
	if err != nil {
		out.Err = err
		return out
	}
	out.RestartRequired = running

	cpu := profile.CPUCores
	mem := profile.MemoryMB
	results := console.Modify(ctx, m.cfg.Surface, index, &cpu, &mem, profile.Resolution, m.cmdTO)
	for _, res := range results {
		if !res.Success {
			out.Err = profileApplyError{index: index, reason: res.Stderr}
			m.cfg.Log.Error().
				Str("event", "profile_failed").
				Int("instance", index).
				Str("profile", profile.Name).
				Str("stderr", res.Stderr).
				Msg("profile change rejected")
			return out
		}
	}

	out.Applied = true
	m.cfg.Log.Info().
		Str("event", "profile_applied").
		Int("instance", index).
		Str("profile", profile.Name).
		Bool("restart_required", out.RestartRequired).
		Msg("performance profile applied")
	return out
}

// ApplyProfileToBatch applies a profile to every instance. With restart set,
// instances flagged restart-required are stopped, allowed to settle, and
// started again so the new resources take effect.
func (m *Manager) ApplyProfileToBatch(ctx context.Context, indices []int, profile types.PerformanceProfile, restart bool) map[int]ProfileResult {
	out := make(map[int]ProfileResult, len(indices))
	var needRestart []int
	for _, index := range indices {
		res := m.ApplyProfile(ctx, index, profile)
		out[index] = res
		if res.Applied && res.RestartRequired {
			needRestart = append(needRestart, index)
		}
	}
	if !restart || len(needRestart) == 0 {
		return out
	}

	m.cfg.Log.Info().
		Str("event", "profile_restart").
		Ints("instances", needRestart).
		Str("profile", profile.Name).
		Msg("restarting instances for profile change")
	m.StopBatch(ctx, needRestart, false)
	if err := m.settleAfterStop(ctx); err != nil {
		return out
	}
	startResults := m.StartBatch(ctx, needRestart)
	for index, sr := range startResults {
		res := out[index]
		if sr.Err != nil {
			res.Err = sr.Err
		} else {
			res.RestartRequired = false
		}
		out[index] = res
	}
	return out
}
