package config

import "fleetd/pkg/types"

// profileNotFoundError signals a lookup of a profile name absent from the
// catalog. Unknown names are hard errors, never a silent default.
type profileNotFoundError struct{ name string }

func (e profileNotFoundError) Error() string { return "profile not found: " + e.name }

// IsProfileNotFound reports whether err indicates an unknown profile name.
func IsProfileNotFound(err error) bool {
	_, ok := err.(profileNotFoundError)
	return ok
}

// Catalog is the read-only set of named performance profiles, built once at
// startup from the built-in defaults plus config overrides.
type Catalog struct {
	profiles map[string]types.PerformanceProfile
}

// builtinProfiles mirror the resource tiers the fleet was tuned for.
func builtinProfiles() map[string]types.PerformanceProfile {
	return map[string]types.PerformanceProfile{
		"rushing": {
			Name: "rushing", CPUCores: 4, MemoryMB: 4096,
			Resolution: "1080x1920", TargetFPS: 60,
			Description:   "aggressive progression, heaviest footprint",
			BaseBatchSize: 2, MaxInstances: 4, BaseRuntimeSec: 600,
		},
		"developing": {
			Name: "developing", CPUCores: 3, MemoryMB: 3072,
			Resolution: "900x1600", TargetFPS: 45,
			Description:   "balanced development pace",
			BaseBatchSize: 3, MaxInstances: 6, BaseRuntimeSec: 360,
		},
		"farming": {
			Name: "farming", CPUCores: 2, MemoryMB: 2048,
			Resolution: "720x1280", TargetFPS: 30,
			Description:   "quick resource collection runs",
			BaseBatchSize: 5, MaxInstances: 10, BaseRuntimeSec: 180,
		},
		"dormant": {
			Name: "dormant", CPUCores: 1, MemoryMB: 1024,
			Resolution: "540x960", TargetFPS: 15,
			Description:   "minimal upkeep actions only",
			BaseBatchSize: 8, MaxInstances: 20, BaseRuntimeSec: 120,
		},
		"emergency": {
			Name: "emergency", CPUCores: 4, MemoryMB: 4096,
			Resolution: "1080x1920", TargetFPS: 60,
			Description:   "urgent tasks run one at a time",
			BaseBatchSize: 1, MaxInstances: 2, BaseRuntimeSec: 300,
		},
	}
}

// NewCatalog builds the profile catalog, merging overrides over built-ins.
// Override fields left at zero keep the built-in value.
func NewCatalog(overrides map[string]types.PerformanceProfile) *Catalog {
	profiles := builtinProfiles()
	for name, ov := range overrides {
		base, ok := profiles[name]
		if !ok {
			ov.Name = name
			profiles[name] = ov
			continue
		}
		if ov.CPUCores > 0 {
			base.CPUCores = ov.CPUCores
		}
		if ov.MemoryMB > 0 {
			base.MemoryMB = ov.MemoryMB
		}
		if ov.Resolution != "" {
			base.Resolution = ov.Resolution
		}
		if ov.TargetFPS > 0 {
			base.TargetFPS = ov.TargetFPS
		}
		if ov.Description != "" {
			base.Description = ov.Description
		}
		if ov.BaseBatchSize > 0 {
			base.BaseBatchSize = ov.BaseBatchSize
		}
		if ov.MaxInstances > 0 {
			base.MaxInstances = ov.MaxInstances
		}
		if ov.BaseRuntimeSec > 0 {
			base.BaseRuntimeSec = ov.BaseRuntimeSec
		}
		profiles[name] = base
	}
	return &Catalog{profiles: profiles}
}

// Get looks up a profile by name.
func (c *Catalog) Get(name string) (types.PerformanceProfile, error) {
	p, ok := c.profiles[name]
	if !ok {
		return types.PerformanceProfile{}, profileNotFoundError{name: name}
	}
	return p, nil
}

// Names returns all catalog profile names.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.profiles))
	for name := range c.profiles {
		out = append(out, name)
	}
	return out
}
