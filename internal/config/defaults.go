package config

import "time"

// DefaultThresholds are the documented classification boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPUWarning:     70,
		CPUCritical:    85,
		MemoryWarning:  75,
		MemoryCritical: 90,
		DiskWarning:    85,
		DiskCritical:   95,
	}
}

// DefaultBatch returns the orchestration defaults.
func DefaultBatch() Batch {
	return Batch{
		MaxParallelStart:     3,
		MaxParallelStop:      5,
		MaxParallelJobs:      3,
		StartDelaySec:        5,
		StartTimeoutSec:      90,
		StartBatchTimeoutSec: 600,
		StopTimeoutSec:       30,
		ReadyTimeoutSec:      150,
		ReadyIntervalSec:     5,
		JobTimeoutSec:        int(15 * time.Minute / time.Second),
		IntervalSec:          int(time.Hour / time.Second),
	}
}

// ApplyDefaults fills every unset field of cfg in place and returns it.
func ApplyDefaults(cfg Config) Config {
	if cfg.Addr == "" {
		cfg.Addr = ":8090"
	}
	if cfg.RegistryPath == "" {
		cfg.RegistryPath = "instances.yaml"
	}
	if cfg.ConsolePath == "" {
		cfg.ConsolePath = "ldconsole"
	}
	if cfg.ADBPath == "" {
		cfg.ADBPath = "adb"
	}
	if len(cfg.ProcessPatterns) == 0 {
		cfg.ProcessPatterns = []string{"ldplayer", "ld9boxheadless"}
	}

	def := DefaultThresholds()
	if cfg.Thresholds.CPUWarning <= 0 {
		cfg.Thresholds.CPUWarning = def.CPUWarning
	}
	if cfg.Thresholds.CPUCritical <= 0 {
		cfg.Thresholds.CPUCritical = def.CPUCritical
	}
	if cfg.Thresholds.MemoryWarning <= 0 {
		cfg.Thresholds.MemoryWarning = def.MemoryWarning
	}
	if cfg.Thresholds.MemoryCritical <= 0 {
		cfg.Thresholds.MemoryCritical = def.MemoryCritical
	}
	if cfg.Thresholds.DiskWarning <= 0 {
		cfg.Thresholds.DiskWarning = def.DiskWarning
	}
	if cfg.Thresholds.DiskCritical <= 0 {
		cfg.Thresholds.DiskCritical = def.DiskCritical
	}

	db := DefaultBatch()
	if cfg.Batch.MaxParallelStart <= 0 {
		cfg.Batch.MaxParallelStart = db.MaxParallelStart
	}
	if cfg.Batch.MaxParallelStop <= 0 {
		cfg.Batch.MaxParallelStop = db.MaxParallelStop
	}
	if cfg.Batch.MaxParallelJobs <= 0 {
		cfg.Batch.MaxParallelJobs = db.MaxParallelJobs
	}
	if cfg.Batch.StartDelaySec <= 0 {
		cfg.Batch.StartDelaySec = db.StartDelaySec
	}
	if cfg.Batch.StartTimeoutSec <= 0 {
		cfg.Batch.StartTimeoutSec = db.StartTimeoutSec
	}
	if cfg.Batch.StartBatchTimeoutSec <= 0 {
		cfg.Batch.StartBatchTimeoutSec = db.StartBatchTimeoutSec
	}
	if cfg.Batch.StopTimeoutSec <= 0 {
		cfg.Batch.StopTimeoutSec = db.StopTimeoutSec
	}
	if cfg.Batch.ReadyTimeoutSec <= 0 {
		cfg.Batch.ReadyTimeoutSec = db.ReadyTimeoutSec
	}
	if cfg.Batch.ReadyIntervalSec <= 0 {
		cfg.Batch.ReadyIntervalSec = db.ReadyIntervalSec
	}
	if cfg.Batch.JobTimeoutSec <= 0 {
		cfg.Batch.JobTimeoutSec = db.JobTimeoutSec
	}
	if cfg.Batch.IntervalSec <= 0 {
		cfg.Batch.IntervalSec = db.IntervalSec
	}
	return cfg
}
