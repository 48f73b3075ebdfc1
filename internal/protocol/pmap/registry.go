package pmap

import (
	"sync"
)

// Registry is the volatile set of port mappings. It is rebuilt from
// scratch on every start; dynamically bound ports have no business
// surviving a restart. All methods are safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	mappings []Mapping
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Set registers a mapping. It returns false without modifying anything
// when the (program, version, protocol) triple is already bound;
// re-registration requires an Unset first, matching the classic
// portmapper's refusal to overwrite.
func (r *Registry) Set(m Mapping) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.mappings {
		if existing.Program == m.Program &&
			existing.Version == m.Version &&
			existing.Protocol == m.Protocol {
			return false
		}
	}

	r.mappings = append(r.mappings, m)
	return true
}

// Unset removes every mapping for the program and version, across all
// protocols. It is idempotent and always reports success; the protocol
// field of the request is ignored as the classic portmapper does.
func (r *Registry) Unset(program, version uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.mappings[:0]
	for _, m := range r.mappings {
		if m.Program == program && m.Version == version {
			continue
		}
		kept = append(kept, m)
	}
	r.mappings = kept
	return true
}

// GetPort looks up the port bound to the triple. Absence is not an
// error; it reports port 0.
func (r *Registry) GetPort(program, version, protocol uint32) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.mappings {
		if m.Program == program && m.Version == version && m.Protocol == protocol {
			return m.Port
		}
	}
	return 0
}

// Dump returns a copy of all mappings in insertion order.
func (r *Registry) Dump() []Mapping {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Mapping, len(r.mappings))
	copy(out, r.mappings)
	return out
}
