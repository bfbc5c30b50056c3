package monitor

import (
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

const bytesPerGB = 1024 * 1024 * 1024

// HostSampler reads live metrics through gopsutil and counts instance
// processes by name substring.
type HostSampler struct {
	// DiskPath is the mount point sampled for disk pressure.
	DiskPath string
	// Patterns are lowercase substrings matched against process names.
	Patterns []string
	// HeadlessMarker distinguishes helper processes from the instance
	// main processes when counting active instances.
	HeadlessMarker string
}

// NewHostSampler builds a sampler for the given process name patterns.
func NewHostSampler(patterns []string) *HostSampler {
	return &HostSampler{DiskPath: "/", Patterns: patterns, HeadlessMarker: "headless"}
}

// Sample reads CPU, memory, disk, and the instance process population.
func (s *HostSampler) Sample() (HostSample, error) {
	var out HostSample

	cpuPcts, err := cpu.Percent(time.Second, false)
	if err != nil {
		return out, err
	}
	if len(cpuPcts) > 0 {
		out.CPUPct = cpuPcts[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return out, err
	}
	out.MemoryPct = vm.UsedPercent
	out.MemoryAvailableGB = float64(vm.Available) / bytesPerGB

	du, err := disk.Usage(s.DiskPath)
	if err != nil {
		return out, err
	}
	out.DiskPct = du.UsedPercent
	out.DiskFreeGB = float64(du.Free) / bytesPerGB

	procs, err := process.Processes()
	if err != nil {
		// Process enumeration failing is not fatal for load sampling;
		// the counts stay zero.
		return out, nil
	}
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		lower := strings.ToLower(name)
		if !s.matches(lower) {
			continue
		}
		out.InstanceProcesses++
		if mi, err := p.MemoryInfo(); err == nil && mi != nil {
			out.InstanceMemoryMB += float64(mi.RSS) / (1024 * 1024)
		}
		if !strings.Contains(lower, s.HeadlessMarker) {
			out.ActiveInstances++
		}
	}
	return out, nil
}

func (s *HostSampler) matches(name string) bool {
	for _, p := range s.Patterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}
