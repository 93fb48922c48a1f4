package passes

import (
	"sort"

	"github.com/gnolang/flatssa/internal/provenance"
	"github.com/gnolang/flatssa/internal/tree"
)

// SymbolTable maps a source line to the version of each original local
// name that is live at that line.
type SymbolTable map[int]map[string]string

// Lines returns the covered lines in order.
func (t SymbolTable) Lines() []int {
	out := make([]int, 0, len(t))
	for line := range t {
		out = append(out, line)
	}
	sort.Ints(out)
	return out
}

// Lookup returns the version of name live at line.
func (t SymbolTable) Lookup(line int, name string) (string, bool) {
	v, ok := t[line][name]
	return v, ok
}

// SymbolTableBuilder replays the renamer's binding events against the
// positions of the input tree. It does not change the tree.
type SymbolTableBuilder struct{}

func (SymbolTableBuilder) Name() string { return "symtab" }

func (p SymbolTableBuilder) Rewrite(u Unit) (Unit, error) {
	table, err := BuildSymbolTable(u.Meta)
	if err != nil {
		return u, err
	}
	u.Meta.Append(p.Name(), KeySymbolTable, table)
	return u, nil
}

// liveBinding is a binding event placed in the input source.
type liveBinding struct {
	name    string
	version string
	at      int // line the binding happens on
	from    int // first line it is live on
	order   int
}

// BuildSymbolTable computes the symbol table from the metadata of a
// pipeline run. A parameter is live from the first line of the
// function. An assignment is live from the line after it; a binding
// made by joining a branch is live from the line after the branch
// closes. A binding made inside an arm is only visible inside that arm.
func BuildSymbolTable(meta *Metadata) (SymbolTable, error) {
	orig, ok := Original(meta)
	if !ok {
		return nil, internalf("symbol table needs the input tree")
	}
	positions, ok := lookupFrom[map[tree.Node]tree.Span](meta, "input", KeyPositions)
	if !ok {
		return nil, internalf("symbol table needs input positions")
	}

	// event sources are nodes of the renamer's input, so only the
	// provenance of the stages before it applies
	entries := meta.Entries()
	var events []BindingEvent
	last := -1
	for i, e := range entries {
		if evs, ok := e.Value.([]BindingEvent); ok && e.Key == KeyBindings {
			events, last = evs, i
		}
	}
	trace := provenance.New()
	for i := 0; i < last; i++ {
		e := entries[i]
		if e.Key != KeyProvenance || e.Stage == entries[last].Stage {
			continue
		}
		if m, ok := e.Value.(*provenance.Map); ok {
			trace = provenance.Compose(trace, m)
		}
	}

	table := SymbolTable{}
	if !orig.Pos.Valid() {
		return table, nil
	}

	locals := make(map[string]bool)
	for _, p := range orig.Params {
		locals[p] = true
	}
	for _, n := range tree.AssignedNames(orig.Body) {
		locals[n] = true
	}

	var live []liveBinding
	for i, ev := range events {
		if !locals[ev.Name] {
			continue
		}
		lb := liveBinding{name: ev.Name, version: ev.Version, order: i}
		if ev.Kind == BoundParam {
			lb.at, lb.from = orig.Pos.Start, orig.Pos.Start
			live = append(live, lb)
			continue
		}
		span, ok := sourceSpan(trace, positions, ev.Source)
		if !ok {
			continue
		}
		lb.at, lb.from = span.Start, span.End+1
		live = append(live, lb)
	}

	arms := armRegions(orig.Body)
	for line := orig.Pos.Start; line <= orig.Pos.End; line++ {
		row := make(map[string]string)
		best := make(map[string]liveBinding)
		for _, lb := range live {
			if lb.from > line || !visible(arms, lb.at, line) {
				continue
			}
			cur, ok := best[lb.name]
			if !ok || lb.from > cur.from || (lb.from == cur.from && lb.order > cur.order) {
				best[lb.name] = lb
			}
		}
		for name, lb := range best {
			row[name] = lb.version
		}
		table[line] = row
	}
	return table, nil
}

// sourceSpan resolves a node of some stage's input back to the input
// tree and returns the span of its earliest positioned origin.
func sourceSpan(trace *provenance.Map, positions map[tree.Node]tree.Span, n tree.Node) (tree.Span, bool) {
	var best tree.Span
	found := false
	for _, origin := range trace.Origins(n) {
		span, ok := positions[origin]
		if !ok || !span.Valid() {
			continue
		}
		if !found || span.Start < best.Start {
			best, found = span, true
		}
	}
	return best, found
}

// armRegions returns the line range of every branch arm in stmts.
func armRegions(stmts []tree.Stmt) []tree.Span {
	var out []tree.Span
	add := func(block []tree.Stmt) {
		if span, ok := blockSpan(block); ok {
			out = append(out, span)
		}
	}
	tree.InspectBlock(stmts, func(n tree.Node) bool {
		switch x := n.(type) {
		case *tree.If:
			add(x.Body)
			add(x.Else)
		case *tree.ElifClause:
			add(x.Body)
		}
		return true
	})
	return out
}

func blockSpan(block []tree.Stmt) (tree.Span, bool) {
	var span tree.Span
	for _, s := range block {
		p := s.Position()
		if !p.Valid() {
			continue
		}
		if !span.Valid() || p.Start < span.Start {
			span.Start = p.Start
		}
		if p.End > span.End {
			span.End = p.End
		}
	}
	return span, span.Valid()
}

// visible reports whether a binding made at line at can be seen from
// line: every arm enclosing at must also enclose line.
func visible(arms []tree.Span, at, line int) bool {
	for _, arm := range arms {
		if contains(arm, at) && !contains(arm, line) {
			return false
		}
	}
	return true
}

func contains(s tree.Span, line int) bool {
	return line >= s.Start && line <= s.End
}

func lookupFrom[T any](m *Metadata, stage, key string) (T, bool) {
	var zero T
	v, ok := m.GetFrom(stage, key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
