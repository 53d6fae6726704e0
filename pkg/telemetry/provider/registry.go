package provider

import "sync"

// entry pairs a provider with its registry-level enable gate.
// A provider is logically enabled only when both this gate and the
// provider's own gate are open.
type entry struct {
	provider Provider
	enabled  bool
}

// Registry is a thread-safe, insertion-ordered provider registry.
// Insertion order is preserved so fan-out order is stable.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Register adds a provider with the registry gate open. Re-registering
// an ID replaces the provider but keeps its position and gate.
func (r *Registry) Register(p Provider) {
	if p == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[p.ID()]; ok {
		existing.provider = p
		return
	}
	r.entries[p.ID()] = &entry{provider: p, enabled: true}
	r.order = append(r.order, p.ID())
}

// Deregister removes a provider and returns it, if present.
func (r *Registry) Deregister(id string) (Provider, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	delete(r.entries, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return e.provider, true
}

// Get returns a provider by ID regardless of gates.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.provider, true
}

// Has reports whether a provider is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// SetEnabled toggles the registry-level gate, independent of the
// provider's own gate.
func (r *Registry) SetEnabled(id string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.enabled = enabled
	return true
}

// IsActive reports whether both gates are open for a provider.
func (r *Registry) IsActive(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	return ok && e.enabled && e.provider.Enabled()
}

// Active returns providers with both gates open, in insertion order.
func (r *Registry) Active() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		e := r.entries[id]
		if e.enabled && e.provider.Enabled() {
			active = append(active, e.provider)
		}
	}
	return active
}

// All returns every registered provider in insertion order, gated or
// not. Lifecycle fan-out (init, flush, shutdown) uses this.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		all = append(all, r.entries[id].provider)
	}
	return all
}

// IDs returns registered provider IDs in insertion order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
