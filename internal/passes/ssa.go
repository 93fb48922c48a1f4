package passes

import (
	"sort"

	"github.com/gnolang/flatssa/internal/analysis/reach"
	"github.com/gnolang/flatssa/internal/names"
	"github.com/gnolang/flatssa/internal/provenance"
	"github.com/gnolang/flatssa/internal/tree"
)

// Renamer gives every local write a fresh version and removes the
// remaining branches: both arms are emitted in sequence and each name
// they modified is reconciled by a multiplexer right after them.
//
// Parameters and names of the environment resolve to themselves.
// Names minted as single-assignment by earlier stages are left as is.
type Renamer struct {
	Strict bool
}

func (Renamer) Name() string { return "ssa" }

// BindingKind tells how a version came to be bound.
type BindingKind int

const (
	BoundParam BindingKind = iota
	BoundAssign
	BoundMux
	BoundAdopt
)

func (k BindingKind) String() string {
	switch k {
	case BoundParam:
		return "param"
	case BoundAssign:
		return "assign"
	case BoundMux:
		return "mux"
	case BoundAdopt:
		return "adopt"
	default:
		return "unknown"
	}
}

// BindingEvent records that Name was bound to Version while renaming
// Source, a node of the renamer's input tree.
type BindingEvent struct {
	Name    string
	Version string
	Kind    BindingKind
	Source  tree.Node
}

func (p Renamer) Rewrite(u Unit) (Unit, error) {
	r := &renamer{
		strict: p.Strict,
		gen:    names.NewGenerator(u.Func, u.Env),
		env:    u.Env,
		prov:   provenance.New(),
		final:  make(map[string]bool),
	}
	r.facts, _ = lookup[map[*tree.If]ArmFacts](u.Meta, KeyArmFacts)
	for _, n := range finalNames(u.Meta) {
		r.final[n] = true
	}

	b := NewBindings()
	for _, param := range u.Func.Params {
		b.Set(param, param)
		r.events = append(r.events, BindingEvent{Name: param, Version: param, Kind: BoundParam, Source: u.Func})
	}

	body, err := r.block(u.Func.Body, b)
	if err != nil {
		return u, err
	}
	fn := u.Func.WithBody(body)
	r.prov.Track(u.Func, fn)

	u.Meta.Append(p.Name(), KeyProvenance, r.prov)
	u.Meta.Append(p.Name(), KeyBindings, r.events)
	return u.With(fn), nil
}

type renamer struct {
	strict bool
	gen    *names.Generator
	env    names.Env
	prov   *provenance.Map
	final  map[string]bool
	facts  map[*tree.If]ArmFacts
	events []BindingEvent
	pos    tree.Span
	depth  int
}

// poisoned marks a name that is bound on some paths only. Reading it in
// strict mode is an error.
const poisoned = ""

func (r *renamer) version(name string) (string, error) {
	v, err := r.gen.FreeName(name + "_")
	if err != nil {
		return "", internalf("%v", err)
	}
	return v, nil
}

func (r *renamer) expr(e tree.Expr, b *Bindings) (tree.Expr, error) {
	return rewriteExpr(e, func(e tree.Expr) (tree.Expr, bool, error) {
		name, ok := e.(*tree.Name)
		if !ok {
			return nil, false, nil
		}
		if r.final[name.ID] {
			return name, true, nil
		}
		v, bound := b.Get(name.ID)
		switch {
		case bound && v == name.ID:
			return name, true, nil
		case bound && v != poisoned:
			return tree.N(v), true, nil
		case !bound && r.env.Has(name.ID):
			return name, true, nil
		case r.strict:
			return nil, false, &UnprovableError{Reason: "cannot prove name is defined", Name: name.ID, Pos: r.pos}
		}
		return name, true, nil
	}, r.prov)
}

func (r *renamer) block(stmts []tree.Stmt, b *Bindings) ([]tree.Stmt, error) {
	out := make([]tree.Stmt, 0, len(stmts))
	for _, s := range stmts {
		if s.Position().Valid() {
			r.pos = s.Position()
		}
		switch x := s.(type) {
		case *tree.Assign:
			n, err := r.assign(x, b)
			if err != nil {
				return nil, err
			}
			out = append(out, n)

		case *tree.ExprStmt:
			if r.depth > 0 {
				return nil, unsupported("expression statement inside a branch", x.Pos)
			}
			value, err := r.expr(x.X, b)
			if err != nil {
				return nil, err
			}
			if value == x.X {
				out = append(out, x)
				continue
			}
			n := &tree.ExprStmt{X: value, Pos: x.Pos}
			r.prov.Track(x, n)
			out = append(out, n)

		case *tree.Return:
			value, err := r.expr(x.Value, b)
			if err != nil {
				return nil, err
			}
			if value == x.Value {
				out = append(out, x)
				continue
			}
			n := &tree.Return{Value: value, Pos: x.Pos}
			r.prov.Track(x, n)
			out = append(out, n)

		case *tree.If:
			if len(x.Elifs) > 0 {
				return nil, internalf("elif chain reached the renamer")
			}
			test, err := r.expr(x.Test, b)
			if err != nil {
				return nil, err
			}
			thenB := NewChildBindings(b)
			elseB := NewChildBindings(b)
			r.depth++
			thenStmts, err := r.block(x.Body, thenB)
			if err != nil {
				return nil, err
			}
			elseStmts, err := r.block(x.Else, elseB)
			r.depth--
			if err != nil {
				return nil, err
			}
			out = append(out, thenStmts...)
			out = append(out, elseStmts...)

			muxes, err := r.join(x, test, b, thenB, elseB)
			if err != nil {
				return nil, err
			}
			out = append(out, muxes...)

		case *tree.Unsupported:
			return nil, unsupported(x.Construct, x.Pos)

		default:
			return nil, internalf("unexpected statement %T", s)
		}
	}
	return out, nil
}

func (r *renamer) assign(x *tree.Assign, b *Bindings) (tree.Stmt, error) {
	// the value is read under the bindings before this write
	value, err := r.expr(x.Value, b)
	if err != nil {
		return nil, err
	}

	var target tree.Expr
	switch t := x.Target.(type) {
	case *tree.Name:
		if r.final[t.ID] {
			target = t
			break
		}
		version, err := r.version(t.ID)
		if err != nil {
			return nil, err
		}
		b.Set(t.ID, version)
		target = tree.N(version)
		r.prov.Track(t, target)
		r.events = append(r.events, BindingEvent{Name: t.ID, Version: version, Kind: BoundAssign, Source: x})
	case *tree.Attribute:
		target, err = r.expr(t, b)
		if err != nil {
			return nil, err
		}
	default:
		return nil, internalf("unexpected assignment target %T", x.Target)
	}

	if value == x.Value && target == x.Target {
		return x, nil
	}
	n := &tree.Assign{Target: target, Value: value, Pos: x.Pos}
	r.prov.Track(x, n)
	return n, nil
}

func (r *renamer) armFacts(x *tree.If) ArmFacts {
	if f, ok := r.facts[x]; ok {
		return f
	}
	thenReturns, elseReturns := reach.Arms(x)
	return ArmFacts{ThenReturns: thenReturns, ElseReturns: elseReturns}
}

// join reconciles the arms of x into b and returns the multiplexer
// assignments to place after the flattened arms.
func (r *renamer) join(x *tree.If, test tree.Expr, b, thenB, elseB *Bindings) ([]tree.Stmt, error) {
	facts := r.armFacts(x)
	switch {
	case facts.ThenReturns && facts.ElseReturns:
		// control never reaches the join
		return nil, nil
	case facts.ThenReturns:
		r.adopt(x, b, elseB)
		return nil, nil
	case facts.ElseReturns:
		r.adopt(x, b, thenB)
		return nil, nil
	}

	var out []tree.Stmt
	for _, name := range union(thenB.Keys(), elseB.Keys()) {
		old, ok := b.Get(name)
		if !ok {
			old = poisoned
		}
		tv, set := thenB.Local(name)
		if !set {
			tv = old
		}
		fv, set := elseB.Local(name)
		if !set {
			fv = old
		}

		switch {
		case tv != poisoned && fv != poisoned:
			version, err := r.version(name)
			if err != nil {
				return nil, err
			}
			assign := &tree.Assign{Target: tree.N(version), Value: tree.Mux(test, tree.N(tv), tree.N(fv))}
			r.prov.Track(x, assign)
			b.Set(name, version)
			r.events = append(r.events, BindingEvent{Name: name, Version: version, Kind: BoundMux, Source: x})
			out = append(out, assign)
		case r.strict:
			b.Set(name, poisoned)
		case tv != poisoned:
			r.bind(x, b, name, tv)
		case fv != poisoned:
			r.bind(x, b, name, fv)
		}
	}
	return out, nil
}

// adopt copies every binding of the arm that can fall through.
func (r *renamer) adopt(x *tree.If, b, arm *Bindings) {
	for _, name := range arm.Keys() {
		v, _ := arm.Local(name)
		if v == poisoned {
			b.Set(name, poisoned)
			continue
		}
		r.bind(x, b, name, v)
	}
}

func (r *renamer) bind(x *tree.If, b *Bindings, name, version string) {
	b.Set(name, version)
	r.events = append(r.events, BindingEvent{Name: name, Version: version, Kind: BoundAdopt, Source: x})
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
