package dataflow

import (
	"fmt"
	"maps"
	"slices"
)

// Registry is the lookup table of node kinds keyed by their tag. Kinds are
// registered once during program initialization; after that the registry is
// read-only and safe for concurrent lookups.
type Registry struct {
	kinds map[string]Kind
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// Register adds a kind under its spec name. It panics on an empty name or a
// duplicate registration, both of which are programmer errors in the kind
// catalog assembled at startup.
func (r *Registry) Register(k Kind) {
	name := k.Spec().Name
	if name == "" {
		panic("dataflow: Register called with empty kind name")
	}
	if _, dup := r.kinds[name]; dup {
		panic(fmt.Sprintf("dataflow: Register called twice for kind %q", name))
	}
	r.kinds[name] = k
}

// Lookup returns the kind registered under name and whether it exists.
func (r *Registry) Lookup(name string) (Kind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}

// Names returns all registered kind tags in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.kinds))
}
