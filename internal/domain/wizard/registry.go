package wizard

import (
	"sort"
	"sync"
)

// Registry holds the step definitions of one wizard flow. It is populated
// during setup, frozen, and read-only afterwards.
type Registry struct {
	mu     sync.RWMutex
	steps  []StepDefinition
	index  map[string]int
	sorted []StepDefinition
	frozen bool
}

// NewRegistry creates an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// NewFrozenRegistry registers every definition and freezes the result.
func NewFrozenRegistry(defs ...StepDefinition) (*Registry, error) {
	reg := NewRegistry()
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return nil, err
		}
	}
	reg.Freeze()
	return reg, nil
}

// Register adds a step definition.
func (r *Registry) Register(def StepDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return NewError(ErrCodeRegistryFrozen, "registry is frozen", nil, map[string]interface{}{"step_id": def.ID})
	}
	if _, exists := r.index[def.ID]; exists {
		return newDuplicateStepError(def.ID)
	}

	def.Applicable.Deps = cloneDeps(def.Applicable.Deps)
	r.index[def.ID] = len(r.steps)
	r.steps = append(r.steps, def)
	r.sorted = nil
	return nil
}

// Freeze rejects further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
	r.sortLocked()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// All returns every step ordered by Order, ties broken by registration order.
func (r *Registry) All() []StepDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sortLocked()
	out := make([]StepDefinition, len(r.sorted))
	for i, def := range r.sorted {
		def.Applicable.Deps = cloneDeps(def.Applicable.Deps)
		out[i] = def
	}
	return out
}

// Lookup returns the definition registered under id.
func (r *Registry) Lookup(id string) (StepDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.index[id]
	if !ok {
		return StepDefinition{}, false
	}
	def := r.steps[idx]
	def.Applicable.Deps = cloneDeps(def.Applicable.Deps)
	return def, true
}

// Position returns the index of id within All(), or -1.
func (r *Registry) Position(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sortLocked()
	for i, def := range r.sorted {
		if def.ID == id {
			return i
		}
	}
	return -1
}

// Len returns the number of registered steps.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.steps)
}

func (r *Registry) sortLocked() {
	if r.sorted != nil {
		return
	}
	sorted := append([]StepDefinition(nil), r.steps...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})
	r.sorted = sorted
}

func cloneDeps(deps []string) []string {
	if deps == nil {
		return nil
	}
	return append([]string{}, deps...)
}
