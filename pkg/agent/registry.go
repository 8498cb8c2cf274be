package agent

import (
	"fmt"
	"sort"
	"sync"
)

// Entry pairs an agent with its dispatch description.
type Entry struct {
	Agent       *Agent
	Description string
}

// Registry maps agent names to handles. It is populated at startup from
// the fixed fleet list and frozen before any dispatch; lookups after
// Freeze are lock-free. Adding an agent is a single Register call.
type Registry struct {
	mu      sync.Mutex
	entries map[string]Entry
	frozen  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds an agent under its name. Fails after Freeze or on a
// duplicate name.
func (r *Registry) Register(name string, a *Agent, description string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("%w: cannot register %q", ErrRegistryFrozen, name)
	}
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("agent %q already registered", name)
	}
	r.entries[name] = Entry{Agent: a, Description: description}
	return nil
}

// Freeze seals the registry. Registration afterwards fails; reads no
// longer take the lock.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Get returns the agent registered under name.
func (r *Registry) Get(name string) (*Agent, error) {
	if !r.frozen {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	entry, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAgentNotFound, name)
	}
	return entry.Agent, nil
}

// Names returns the registered agent names, sorted.
func (r *Registry) Names() []string {
	if !r.frozen {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns name → description for dispatch prompts.
func (r *Registry) Describe() map[string]string {
	if !r.frozen {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	out := make(map[string]string, len(r.entries))
	for name, entry := range r.entries {
		out[name] = entry.Description
	}
	return out
}
