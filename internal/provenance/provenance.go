// Package provenance records which input nodes each rewritten node was
// derived from.
package provenance

import "github.com/gnolang/flatssa/internal/tree"

// Edge links an origin node to a node derived from it.
type Edge struct {
	From tree.Node
	To   tree.Node
}

// Map is a bidirectional multimap from origin nodes to derived nodes.
//
// Edges always run from a root (a node that is no edge's target) to a
// leaf (a node that is no edge's source). Tracking a derivation whose
// origin was itself derived resolves the origin to its roots first, so
// the map can never contain a chain or a cycle.
type Map struct {
	forward  map[tree.Node][]tree.Node
	backward map[tree.Node][]tree.Node
	seen     map[Edge]struct{}
	edges    []Edge
}

// New creates an empty map.
func New() *Map {
	return &Map{
		forward:  make(map[tree.Node][]tree.Node),
		backward: make(map[tree.Node][]tree.Node),
		seen:     make(map[Edge]struct{}),
	}
}

// Track records that image was derived from origin.
func (m *Map) Track(origin, image tree.Node) {
	if origin == nil || image == nil {
		return
	}
	for _, from := range m.Origins(origin) {
		for _, to := range m.Images(image) {
			m.link(from, to)
		}
	}
}

func (m *Map) link(from, to tree.Node) {
	if from == to {
		return
	}
	e := Edge{From: from, To: to}
	if _, ok := m.seen[e]; ok {
		return
	}
	m.seen[e] = struct{}{}
	m.edges = append(m.edges, e)
	m.forward[from] = append(m.forward[from], to)
	m.backward[to] = append(m.backward[to], from)
}

// Origins returns the root nodes n was derived from. A node with no
// recorded origin is its own origin.
func (m *Map) Origins(n tree.Node) []tree.Node {
	if from, ok := m.backward[n]; ok {
		return append([]tree.Node(nil), from...)
	}
	return []tree.Node{n}
}

// Images returns the leaf nodes derived from n. A node that was never
// rewritten is its own image.
func (m *Map) Images(n tree.Node) []tree.Node {
	if to, ok := m.forward[n]; ok {
		return append([]tree.Node(nil), to...)
	}
	return []tree.Node{n}
}

// Derived reports whether n is the target of some edge.
func (m *Map) Derived(n tree.Node) bool {
	_, ok := m.backward[n]
	return ok
}

// Edges returns every edge in insertion order.
func (m *Map) Edges() []Edge {
	return append([]Edge(nil), m.edges...)
}

// Len returns the number of edges.
func (m *Map) Len() int {
	return len(m.edges)
}

// Compose chains two stage maps: next's sources are resolved through
// prev's origins. Edges of prev whose targets next never rewrote are
// carried over, since those nodes flow through next unchanged.
func Compose(prev, next *Map) *Map {
	out := New()
	for _, e := range prev.edges {
		if _, rewritten := next.forward[e.To]; !rewritten {
			out.link(e.From, e.To)
		}
	}
	for _, e := range next.edges {
		for _, from := range prev.Origins(e.From) {
			out.link(from, e.To)
		}
	}
	return out
}
