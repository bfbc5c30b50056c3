package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"fleetd/internal/common/fsutil"
	"fleetd/pkg/types"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by defaults in Default().
type Config struct {
	// HTTP listen address for the status API.
	Addr string `json:"addr" yaml:"addr" toml:"addr"`

	// Path to the instance console binary (the control surface).
	ConsolePath string `json:"console_path" yaml:"console_path" toml:"console_path"`
	// Path to the adb binary used for reachability probing.
	ADBPath string `json:"adb_path" yaml:"adb_path" toml:"adb_path"`
	// Command template for the per-instance worker job. The instance name
	// and endpoint are appended as --instance/--endpoint flags.
	WorkerCmd []string `json:"worker_cmd" yaml:"worker_cmd" toml:"worker_cmd"`

	// Registry file listing managed instances.
	RegistryPath string `json:"registry_path" yaml:"registry_path" toml:"registry_path"`
	// SQLite database for the resource usage log. Empty disables the log.
	UsageDBPath string `json:"usage_db_path" yaml:"usage_db_path" toml:"usage_db_path"`

	Thresholds Thresholds `json:"thresholds" yaml:"thresholds" toml:"thresholds"`
	Batch      Batch      `json:"batch" yaml:"batch" toml:"batch"`

	// Profile overrides merged over the built-in catalog.
	Profiles map[string]types.PerformanceProfile `json:"profiles" yaml:"profiles" toml:"profiles"`

	// Process name substrings counted as instance processes by the monitor.
	ProcessPatterns []string `json:"process_patterns" yaml:"process_patterns" toml:"process_patterns"`
}

// Thresholds are the load classification boundaries in percent.
type Thresholds struct {
	CPUWarning     float64 `json:"cpu_warning" yaml:"cpu_warning" toml:"cpu_warning"`
	CPUCritical    float64 `json:"cpu_critical" yaml:"cpu_critical" toml:"cpu_critical"`
	MemoryWarning  float64 `json:"memory_warning" yaml:"memory_warning" toml:"memory_warning"`
	MemoryCritical float64 `json:"memory_critical" yaml:"memory_critical" toml:"memory_critical"`
	DiskWarning    float64 `json:"disk_warning" yaml:"disk_warning" toml:"disk_warning"`
	DiskCritical   float64 `json:"disk_critical" yaml:"disk_critical" toml:"disk_critical"`
}

// Batch bundles the orchestration tunables. Durations are plain seconds so
// every supported config format decodes them the same way.
type Batch struct {
	MaxParallelStart int `json:"max_parallel_start" yaml:"max_parallel_start" toml:"max_parallel_start"`
	MaxParallelStop  int `json:"max_parallel_stop" yaml:"max_parallel_stop" toml:"max_parallel_stop"`
	MaxParallelJobs  int `json:"max_parallel_jobs" yaml:"max_parallel_jobs" toml:"max_parallel_jobs"`
	StartDelaySec    int `json:"start_delay_sec" yaml:"start_delay_sec" toml:"start_delay_sec"`
	StartTimeoutSec  int `json:"start_timeout_sec" yaml:"start_timeout_sec" toml:"start_timeout_sec"`
	// StartBatchTimeoutSec bounds the whole batch start collection, on top
	// of the per-instance launch timeout and grace periods.
	StartBatchTimeoutSec int `json:"start_batch_timeout_sec" yaml:"start_batch_timeout_sec" toml:"start_batch_timeout_sec"`
	StopTimeoutSec       int `json:"stop_timeout_sec" yaml:"stop_timeout_sec" toml:"stop_timeout_sec"`
	ReadyTimeoutSec      int `json:"ready_timeout_sec" yaml:"ready_timeout_sec" toml:"ready_timeout_sec"`
	ReadyIntervalSec     int `json:"ready_interval_sec" yaml:"ready_interval_sec" toml:"ready_interval_sec"`
	JobTimeoutSec        int `json:"job_timeout_sec" yaml:"job_timeout_sec" toml:"job_timeout_sec"`
	IntervalSec          int `json:"interval_sec" yaml:"interval_sec" toml:"interval_sec"`
}

// StartDelay returns the stagger delay as a duration.
func (b Batch) StartDelay() time.Duration { return time.Duration(b.StartDelaySec) * time.Second }

// StartTimeout returns the per-instance start timeout as a duration.
func (b Batch) StartTimeout() time.Duration { return time.Duration(b.StartTimeoutSec) * time.Second }

// StartBatchTimeout returns the whole-batch start deadline as a duration.
func (b Batch) StartBatchTimeout() time.Duration {
	return time.Duration(b.StartBatchTimeoutSec) * time.Second
}

// StopTimeout returns the per-instance stop timeout as a duration.
func (b Batch) StopTimeout() time.Duration { return time.Duration(b.StopTimeoutSec) * time.Second }

// ReadyTimeout returns the batch readiness deadline as a duration.
func (b Batch) ReadyTimeout() time.Duration { return time.Duration(b.ReadyTimeoutSec) * time.Second }

// ReadyInterval returns the readiness poll interval as a duration.
func (b Batch) ReadyInterval() time.Duration { return time.Duration(b.ReadyIntervalSec) * time.Second }

// JobTimeout returns the per-job hard timeout as a duration.
func (b Batch) JobTimeout() time.Duration { return time.Duration(b.JobTimeoutSec) * time.Second }

// Interval returns the continuous-mode batch interval as a duration.
func (b Batch) Interval() time.Duration { return time.Duration(b.IntervalSec) * time.Second }

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	expanded, err := fsutil.ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(expanded)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
