package lattice

// Binding models the definedness lattice for local names.
type Binding int

const (
	Bottom Binding = iota // unreachable
	Unbound
	Bound
	MaybeBound
)

func (v Binding) String() string {
	switch v {
	case Bottom:
		return "Bottom"
	case Unbound:
		return "Unbound"
	case Bound:
		return "Bound"
	case MaybeBound:
		return "MaybeBound"
	default:
		return "Unknown"
	}
}

// Join returns the least upper bound in the lattice.
func Join(a, b Binding) Binding {
	if a == Bottom {
		return b
	}
	if b == Bottom {
		return a
	}
	if a == b {
		return a
	}
	// Bound + Unbound, or anything with MaybeBound.
	return MaybeBound
}

// Meet returns the greatest lower bound in the lattice.
func Meet(a, b Binding) Binding {
	if a == Bottom || b == Bottom {
		return Bottom
	}
	if a == b {
		return a
	}
	if a == MaybeBound {
		return b
	}
	if b == MaybeBound {
		return a
	}
	return Bottom
}

// State maps names to their definedness.
// Missing entries are interpreted as Unbound.
type State map[string]Binding

// Get returns the stored value or Unbound when absent.
// A nil state represents Bottom (unreachable).
func Get(state State, name string) Binding {
	if state == nil {
		return Bottom
	}
	if val, ok := state[name]; ok {
		return val
	}
	return Unbound
}

// Set sets the entry or removes it when value is Unbound.
func Set(state State, name string, value Binding) {
	if state == nil {
		return
	}
	if value == Unbound {
		delete(state, name)
		return
	}
	state[name] = value
}

// Clone returns a shallow copy of the state.
func Clone(state State) State {
	if state == nil {
		return nil
	}
	out := make(State, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}

// JoinStates merges two states using Join on each name.
func JoinStates(a, b State) State {
	if a == nil {
		return Clone(b)
	}
	if b == nil {
		return Clone(a)
	}
	out := make(State)
	for name := range a {
		Set(out, name, Join(Get(a, name), Get(b, name)))
	}
	for name := range b {
		if _, ok := a[name]; ok {
			continue
		}
		Set(out, name, Join(Get(a, name), Get(b, name)))
	}
	return out
}

// StateEqual reports whether two states are identical.
func StateEqual(a, b State) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
