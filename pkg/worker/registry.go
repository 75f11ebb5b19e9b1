package worker

import "sort"

// Registry maps dispatch targets to entry points. It acts as the in-process
// side of dispatch resolution; targets missing here fall back to script
// module loading. Registration happens during init, before dispatch, so
// lookups need no locking.
type Registry struct {
	entries map[string]EntryPoint
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]EntryPoint),
	}
}

// Target builds the registry key for a type and method name.
func Target(typeName, method string) string {
	return typeName + "." + method
}

// Register registers an entry point for a type and method name. Later
// registrations replace earlier ones.
func (r *Registry) Register(typeName, method string, ep EntryPoint) {
	r.entries[Target(typeName, method)] = ep
}

// Resolve looks up the entry point for a type and method name.
func (r *Registry) Resolve(typeName, method string) (EntryPoint, bool) {
	ep, ok := r.entries[Target(typeName, method)]
	return ep, ok
}

// Has checks if an entry point exists for a type and method name.
func (r *Registry) Has(typeName, method string) bool {
	_, ok := r.entries[Target(typeName, method)]
	return ok
}

// RegisteredTargets returns all registered targets, sorted.
func (r *Registry) RegisteredTargets() []string {
	targets := make([]string, 0, len(r.entries))
	for target := range r.entries {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	return targets
}
