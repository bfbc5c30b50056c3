// Package registry owns the yaml instance registry file: which instances
// exist, whether they participate in planning, and the endpoint last seen
// for each.
package registry

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"fleetd/internal/common/fsutil"
	"fleetd/pkg/types"
)

// instanceNotFoundError signals a lookup of an id absent from the registry.
type instanceNotFoundError struct{ id int }

func (e instanceNotFoundError) Error() string {
	return fmt.Sprintf("instance not found in registry: %d", e.id)
}

// IsInstanceNotFound reports whether err indicates an unknown instance id.
func IsInstanceNotFound(err error) bool {
	_, ok := err.(instanceNotFoundError)
	return ok
}

// file is the on-disk shape of the registry.
type file struct {
	Instances []types.InstanceRecord `yaml:"instances"`
}

// Registry is the loaded instance set. Safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	path      string
	instances []types.InstanceRecord
	log       zerolog.Logger
}

// Load reads the registry file. A missing file yields an empty registry so
// a fresh host can come up before any instance is enrolled.
func Load(path string, log zerolog.Logger) (*Registry, error) {
	expanded, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	r := &Registry{path: expanded, log: log}

	data, err := os.ReadFile(expanded)
	if os.IsNotExist(err) {
		log.Warn().
			Str("event", "registry_missing").
			Str("path", expanded).
			Msg("registry file missing, starting empty")
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	seen := make(map[int]bool, len(f.Instances))
	for _, inst := range f.Instances {
		if seen[inst.ID] {
			return nil, fmt.Errorf("duplicate instance id %d in registry", inst.ID)
		}
		seen[inst.ID] = true
	}
	r.instances = f.Instances
	log.Info().
		Str("event", "registry_loaded").
		Str("path", expanded).
		Int("instances", len(f.Instances)).
		Msg("instance registry loaded")
	return r, nil
}

// All returns a copy of every record, in file order.
func (r *Registry) All() []types.InstanceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.InstanceRecord, len(r.instances))
	copy(out, r.instances)
	return out
}

// Enabled returns the enabled records, optionally narrowed to one profile,
// sorted by ascending priority then id. The result is a copy.
func (r *Registry) Enabled(profileFilter string) []types.InstanceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.InstanceRecord
	for _, inst := range r.instances {
		if !inst.Enabled {
			continue
		}
		if profileFilter != "" && inst.Profile != profileFilter {
			continue
		}
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get looks up one record by id.
func (r *Registry) Get(id int) (types.InstanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inst := range r.instances {
		if inst.ID == id {
			return inst, nil
		}
	}
	return types.InstanceRecord{}, instanceNotFoundError{id: id}
}

// SetEndpoint records the discovered endpoint for an instance.
func (r *Registry) SetEndpoint(id int, endpoint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.instances {
		if r.instances[i].ID == id {
			r.instances[i].Endpoint = endpoint
			return nil
		}
	}
	return instanceNotFoundError{id: id}
}

// Save writes the registry back to its file atomically.
func (r *Registry) Save() error {
	r.mu.Lock()
	f := file{Instances: append([]types.InstanceRecord(nil), r.instances...)}
	path := r.path
	r.mu.Unlock()

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	r.log.Debug().
		Str("event", "registry_saved").
		Str("path", path).
		Msg("registry written back")
	return nil
}
