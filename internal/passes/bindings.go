package passes

import "sort"

// Bindings maps identifiers to their current SSA version. A child
// table shadows its parent without modifying it; reconciling a child
// back into the parent happens explicitly at branch joins.
type Bindings struct {
	vars   map[string]string
	parent *Bindings
}

// NewBindings creates an empty root table.
func NewBindings() *Bindings {
	return &Bindings{vars: make(map[string]string)}
}

// NewChildBindings creates a table scoped under parent.
func NewChildBindings(parent *Bindings) *Bindings {
	return &Bindings{
		vars:   make(map[string]string),
		parent: parent,
	}
}

// Get returns the current version of name.
func (b *Bindings) Get(name string) (string, bool) {
	if v, ok := b.vars[name]; ok {
		return v, true
	}
	if b.parent != nil {
		return b.parent.Get(name)
	}
	return "", false
}

// Local returns the version of name bound in this scope only.
func (b *Bindings) Local(name string) (string, bool) {
	v, ok := b.vars[name]
	return v, ok
}

// Set binds name to version in the current scope.
func (b *Bindings) Set(name, version string) {
	b.vars[name] = version
}

// Keys returns the names bound in this scope, sorted.
func (b *Bindings) Keys() []string {
	out := make([]string, 0, len(b.vars))
	for k := range b.vars {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
