package types

// SystemStatus is the aggregated status document served by the HTTP API and
// printed by the status command.
type SystemStatus struct {
	Timestamp       string          `json:"timestamp"`
	System          SystemLoad      `json:"system"`
	Instances       InstanceTally   `json:"instances"`
	Components      ComponentHealth `json:"components"`
	Session         SessionSummary  `json:"session"`
	Recommendations []string        `json:"recommendations,omitempty"`
}

// SystemLoad is the host-load portion of SystemStatus.
type SystemLoad struct {
	CPUPct            float64 `json:"cpu_pct"`
	MemoryPct         float64 `json:"memory_pct"`
	MemoryAvailableGB float64 `json:"memory_available_gb"`
	DiskPct           float64 `json:"disk_pct"`
	LoadLevel         string  `json:"load_level"`
	InstanceProcesses int     `json:"instance_processes"`
}

// InstanceTally summarizes registry and live instance counts.
type InstanceTally struct {
	Total   int `json:"total"`
	Running int `json:"running"`
	Enabled int `json:"enabled"`
}

// ComponentHealth reports per-collaborator health flags.
type ComponentHealth struct {
	ConsoleHealthy bool     `json:"console_healthy"`
	ProbeHealthy   bool     `json:"probe_healthy"`
	Issues         []string `json:"issues,omitempty"`
}

// SessionSummary mirrors the orchestrator session counters.
type SessionSummary struct {
	BatchesExecuted    int    `json:"batches_executed"`
	InstancesProcessed int    `json:"instances_processed"`
	TotalErrors        int    `json:"total_errors"`
	StartedAt          string `json:"started_at"`
	LastBatchAt        string `json:"last_batch_at,omitempty"`
}

// ErrorResponse is the uniform JSON error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
