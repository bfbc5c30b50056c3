package lifecycle

import "context"

// HealthReport is the component health of the instance control plane.
type HealthReport struct {
	ConsoleOK    bool   `json:"console_ok"`
	ProbeOK      bool   `json:"probe_ok"`
	RunningCount int    `json:"running_count"`
	Detail       string `json:"detail,omitempty"`
}

// Healthy reports whether both control surfaces answered.
func (h HealthReport) Healthy() bool { return h.ConsoleOK && h.ProbeOK }

// HealthCheck verifies that the console answers a listing and the adb probe
// can enumerate devices, and counts running instances.
func (m *Manager) HealthCheck(ctx context.Context) HealthReport {
	var report HealthReport

	if err := m.refreshStates(ctx); err != nil {
		report.Detail = err.Error()
	} else {
		report.ConsoleOK = true
		m.mu.Lock()
		for _, st := range m.states {
			if st.status == StatusRunning {
				report.RunningCount++
			}
		}
		m.mu.Unlock()
	}

	if _, err := m.cfg.Prober.Devices(ctx); err != nil {
		if report.Detail == "" {
			report.Detail = "adb probe unavailable: " + err.Error()
		}
	} else {
		report.ProbeOK = true
	}

	m.cfg.Log.Debug().
		Str("event", "health_check").
		Bool("console_ok", report.ConsoleOK).
		Bool("probe_ok", report.ProbeOK).
		Int("running", report.RunningCount).
		Msg("control plane health probed")
	return report
}
