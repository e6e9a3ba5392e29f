package agent

import (
	"fmt"
	"sync"
)

// Registry is a catalog of routable agents. It always contains exactly one
// universal agent, which the router uses as the terminal fallback.
// Registration order is preserved: when two agents score identically, the
// earlier registration wins.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*Descriptor
	order  []string
	fallID string
}

// NewRegistry creates a registry from an initial set of descriptors.
// Exactly one descriptor must carry TypeUniversal; constructing a registry
// without a terminal fallback is a configuration error.
func NewRegistry(descriptors []Descriptor) (*Registry, error) {
	r := &Registry{byID: make(map[string]*Descriptor)}

	for i := range descriptors {
		d := descriptors[i]
		if d.ID == "" {
			return nil, fmt.Errorf("agent descriptor missing id")
		}
		if d.Type == TypeUniversal {
			if r.fallID != "" && r.fallID != d.ID {
				return nil, fmt.Errorf("multiple universal agents: %s and %s", r.fallID, d.ID)
			}
			r.fallID = d.ID
		}
		r.register(d)
	}

	if r.fallID == "" {
		return nil, fmt.Errorf("registry requires a universal fallback agent")
	}
	return r, nil
}

// Register inserts or overwrites a descriptor by id. Overwriting keeps the
// original registration position.
func (r *Registry) Register(d Descriptor) error {
	if d.ID == "" {
		return fmt.Errorf("agent descriptor missing id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.Type == TypeUniversal && r.fallID != "" && r.fallID != d.ID {
		return fmt.Errorf("universal agent already registered as %s", r.fallID)
	}
	if existing, ok := r.byID[d.ID]; ok && existing.Type == TypeUniversal && d.Type != TypeUniversal {
		return fmt.Errorf("cannot replace universal agent %s with type %s", d.ID, d.Type)
	}
	r.register(d)
	return nil
}

func (r *Registry) register(d Descriptor) {
	if _, ok := r.byID[d.ID]; !ok {
		r.order = append(r.order, d.ID)
	}
	r.byID[d.ID] = &d
}

// Get returns the descriptor for id.
func (r *Registry) Get(id string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	copied := *d
	return &copied, true
}

// ListByType returns all descriptors of the given type.
func (r *Registry) ListByType(t Type) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Descriptor
	for _, id := range r.order {
		if d := r.byID[id]; d.Type == t {
			out = append(out, *d)
		}
	}
	return out
}

// All returns every descriptor in registration order.
func (r *Registry) All() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

// Universal returns the terminal fallback agent.
func (r *Registry) Universal() Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *r.byID[r.fallID]
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
