package types

// InstanceRecord describes one managed Android instance as stored in the
// registry file. The orchestration core reads a filtered/sorted view of
// these records and writes back the endpoint it discovered; everything else
// is owned by the registry.
type InstanceRecord struct {
	// Numeric index of the instance in the backing console tool.
	ID int `json:"id" yaml:"id"`
	// Human-friendly display name.
	Name string `json:"name" yaml:"name"`
	// Whether the instance participates in batch planning.
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Name of the performance profile assigned to this instance.
	Profile string `json:"profile" yaml:"profile"`
	// Lower value means the instance is picked earlier during planning.
	Priority int `json:"priority" yaml:"priority"`
	// Last reachable endpoint (host:port), written back after readiness.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// PerformanceProfile is a named bundle of resource and display settings
// applied to an instance. Profiles are read-only reference data loaded once
// at startup; an unknown profile name is an error, never a default.
type PerformanceProfile struct {
	Name        string `json:"name" yaml:"name"`
	CPUCores    int    `json:"cpu_cores" yaml:"cpu_cores"`
	MemoryMB    int    `json:"memory_mb" yaml:"memory_mb"`
	Resolution  string `json:"resolution" yaml:"resolution"`
	TargetFPS   int    `json:"target_fps" yaml:"target_fps"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Planning inputs: preferred batch size and the hard ceiling on
	// concurrently running instances for this profile.
	BaseBatchSize int `json:"base_batch_size" yaml:"base_batch_size"`
	MaxInstances  int `json:"max_instances" yaml:"max_instances"`
	// Estimated per-instance job runtime in seconds, used for batch
	// duration estimates only.
	BaseRuntimeSec int `json:"base_runtime_sec" yaml:"base_runtime_sec"`
}
