package names

import "sort"

// Env is the mapping of identifiers visible outside the function under
// conversion. Passes only query it for membership and lookup; they may
// add entries but never remove them.
type Env interface {
	Has(name string) bool
	Lookup(name string) (any, bool)
}

// Table is a grow-only Env backed by a map.
type Table struct {
	vars map[string]any
}

// NewTable creates a table holding the given names, each bound to nil.
func NewTable(names ...string) *Table {
	t := &Table{vars: make(map[string]any, len(names))}
	for _, n := range names {
		t.vars[n] = nil
	}
	return t
}

// Has reports whether name is bound.
func (t *Table) Has(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.vars[name]
	return ok
}

// Lookup returns the value bound to name.
func (t *Table) Lookup(name string) (any, bool) {
	if t == nil {
		return nil, false
	}
	v, ok := t.vars[name]
	return v, ok
}

// Set binds name to value. Existing bindings are overwritten, never
// dropped.
func (t *Table) Set(name string, value any) {
	t.vars[name] = value
}

// Names returns the bound names in sorted order.
func (t *Table) Names() []string {
	out := make([]string, 0, len(t.vars))
	for k := range t.vars {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{vars: make(map[string]any, len(t.vars))}
	for k, v := range t.vars {
		c.vars[k] = v
	}
	return c
}

// Empty is an Env with no bindings.
var Empty Env = (*Table)(nil)
