package monitor

import (
	"fmt"
)

// loadMultiplier scales a profile's base batch size by load level.
func loadMultiplier(level LoadLevel) float64 {
	switch level {
	case LevelLow:
		return 1.5
	case LevelMedium:
		return 1.0
	case LevelHigh:
		return 0.6
	default: // critical and unknown
		return 0.3
	}
}

// downgradeProfile shifts a profile one tier lighter under high load.
// Only rushing and developing move; farming and dormant stay put.
func downgradeProfile(name string) string {
	switch name {
	case "rushing":
		return "developing"
	case "developing":
		return "farming"
	default:
		return name
	}
}

// OptimalBatchSize computes the preferred batch size for a profile given
// current load: base size scaled by the load multiplier, clamped by a
// memory-derived ceiling and the profile's concurrent-instance ceiling,
// floored at 1.
func (m *Monitor) OptimalBatchSize(profileName string) (int, error) {
	profile, err := m.cfg.Catalog.Get(profileName)
	if err != nil {
		return 0, err
	}
	snap := m.Snapshot(false)

	size := int(float64(profile.BaseBatchSize) * loadMultiplier(snap.Level))

	// At most 70% of available memory may go to new instances.
	maxByMemory := int(snap.MemoryAvailableGB * 1024 * 0.7 / float64(profile.MemoryMB))

	maxByLimit := profile.MaxInstances - snap.ActiveInstances
	if maxByLimit < 0 {
		maxByLimit = 0
	}

	final := size
	if maxByMemory < final {
		final = maxByMemory
	}
	if maxByLimit < final {
		final = maxByLimit
	}
	if final < 1 {
		final = 1
	}

	m.cfg.Log.Debug().
		Str("event", "optimal_batch_size").
		Str("profile", profileName).
		Int("scaled", size).
		Int("by_memory", maxByMemory).
		Int("by_limit", maxByLimit).
		Int("final", final).
		Msg("batch size computed")
	return final, nil
}

// MaxSafeBatchSize is the hard admission ceiling per load level. It strictly
// decreases as load worsens: low admits up to the profile ceiling, medium 3,
// high 1, critical (and unknown) 0.
func (m *Monitor) MaxSafeBatchSize(level LoadLevel, profileName string) (int, error) {
	profile, err := m.cfg.Catalog.Get(profileName)
	if err != nil {
		return 0, err
	}
	switch level {
	case LevelLow:
		return profile.MaxInstances, nil
	case LevelMedium:
		return 3, nil
	case LevelHigh:
		return 1, nil
	default:
		return 0, nil
	}
}

// SafeToStartBatch decides whether a batch of requestedSize instances on the
// given profile may start now. Rejections are authoritative planning
// outcomes, not retryable errors; warnings are additive and never dropped.
func (m *Monitor) SafeToStartBatch(requestedSize int, profileName string) (Recommendation, error) {
	profile, err := m.cfg.Catalog.Get(profileName)
	if err != nil {
		return Recommendation{}, err
	}
	snap := m.Snapshot(false)

	rec := Recommendation{
		SafeToStart:        true,
		RecommendedProfile: profileName,
	}

	switch snap.Level {
	case LevelCritical, LevelUnknown:
		rec.SafeToStart = false
		rec.Warnings = append(rec.Warnings, fmt.Sprintf(
			"critical system load: cpu %.1f%%, memory %.1f%% (level=%s)",
			snap.CPUPct, snap.MemoryPct, snap.Level))
		rec.RequiredActions = append(rec.RequiredActions,
			"stop non-urgent processes",
			"downgrade profiles of running instances")
	case LevelHigh:
		rec.Warnings = append(rec.Warnings, fmt.Sprintf(
			"high system load: cpu %.1f%%, memory %.1f%%", snap.CPUPct, snap.MemoryPct))
		if lighter := downgradeProfile(profileName); lighter != profileName {
			rec.RecommendedProfile = lighter
			rec.RequiredActions = append(rec.RequiredActions,
				fmt.Sprintf("profile downgraded from %q to %q", profileName, lighter))
		}
	}

	totalNeededMB := float64(profile.MemoryMB * requestedSize)
	availableMB := snap.MemoryAvailableGB * 1024
	if availableMB < totalNeededMB {
		rec.SafeToStart = false
		rec.Warnings = append(rec.Warnings, fmt.Sprintf(
			"insufficient memory: need %.0f MB, available %.0f MB", totalNeededMB, availableMB))
		rec.RequiredActions = append(rec.RequiredActions, "reduce batch size or free memory")
	}

	trends := m.Trends()
	if trends.CPU == TrendIncreasing && snap.CPUPct > 60 {
		rec.Warnings = append(rec.Warnings, "cpu load is trending up")
	}
	if trends.Memory == TrendIncreasing && snap.MemoryPct > 70 {
		rec.Warnings = append(rec.Warnings, "memory consumption is trending up")
	}

	optimal, err := m.OptimalBatchSize(profileName)
	if err != nil {
		return Recommendation{}, err
	}
	rec.OptimalBatchSize = optimal

	maxSafe, err := m.MaxSafeBatchSize(snap.Level, profileName)
	if err != nil {
		return Recommendation{}, err
	}
	rec.MaxBatchSize = maxSafe

	if requestedSize > maxSafe {
		rec.SafeToStart = false
		rec.Warnings = append(rec.Warnings, fmt.Sprintf(
			"requested batch size %d exceeds safe maximum %d", requestedSize, maxSafe))
		rec.RequiredActions = append(rec.RequiredActions,
			fmt.Sprintf("reduce batch size to %d", maxSafe))
	}

	m.cfg.Log.Info().
		Str("event", "admission").
		Bool("safe", rec.SafeToStart).
		Int("requested", requestedSize).
		Int("optimal", rec.OptimalBatchSize).
		Int("max", rec.MaxBatchSize).
		Str("profile", rec.RecommendedProfile).
		Msg("batch admission evaluated")
	for _, w := range rec.Warnings {
		m.cfg.Log.Warn().Str("event", "admission_warning").Msg(w)
	}
	return rec, nil
}
