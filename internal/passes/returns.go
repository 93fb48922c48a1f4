package passes

import (
	"errors"

	"github.com/gnolang/flatssa/internal/analysis/reach"
	"github.com/gnolang/flatssa/internal/names"
	"github.com/gnolang/flatssa/internal/provenance"
	"github.com/gnolang/flatssa/internal/tree"
)

// ReturnFlattener replaces every return with an assignment to a fresh
// name, remembering the guard chain under which it runs, and ends the
// body with a single return of all candidates folded into ternaries.
// Attribute write-backs are collected and folded the same way.
//
// A branch pushes its test for the then arm. The else arm gets the
// negated test only when the then arm can fall through: when it always
// returns, the entries it produced already precede everything in the
// else arm.
type ReturnFlattener struct {
	Strict bool
}

func (ReturnFlattener) Name() string { return "returns" }

func (p ReturnFlattener) Rewrite(u Unit) (Unit, error) {
	f := &flattener{
		strict: p.Strict,
		gen:    names.NewGenerator(u.Func, u.Env),
		prov:   provenance.New(),
		finals: make(map[attrKey]Sequence),
		prefix: make(map[attrKey]string),
		facts:  make(map[*tree.If]ArmFacts),
		origin: make(map[string]Origin),
		bare:   onlyBareReturns(u.Func.Body),
	}
	if hoisted, ok := lookup[[]Hoisted](u.Meta, KeyHoisted); ok {
		for _, h := range hoisted {
			f.order = append(f.order, attrKey{owner: h.Owner, field: h.Field})
		}
	}

	body, err := f.block(u.Func.Body)
	if err != nil {
		return u, err
	}
	tail, err := f.tail()
	if err != nil {
		return u, err
	}
	body = append(body, tail...)

	fn := u.Func.WithBody(body)
	f.prov.Track(u.Func, fn)
	u.Meta.Append(p.Name(), KeyProvenance, f.prov)
	u.Meta.Append(p.Name(), KeyArmFacts, f.facts)
	u.Meta.Append(p.Name(), KeyFinalNames, f.minted)
	u.Meta.Append(p.Name(), KeyOrigins, f.origin)
	return u.With(fn), nil
}

type flattener struct {
	strict bool
	gen    *names.Generator
	prov   *provenance.Map

	guards []tree.Expr

	retPrefix string
	returns   Sequence
	returned  []*tree.Return
	bare      bool

	order  []attrKey
	finals map[attrKey]Sequence
	prefix map[attrKey]string

	facts  map[*tree.If]ArmFacts
	minted []string
	origin map[string]Origin
}

// onlyBareReturns reports whether body has returns and none carries a
// value. Such a body may fall off its end like a bare return.
func onlyBareReturns(body []tree.Stmt) bool {
	seen, bare := false, true
	tree.InspectBlock(body, func(n tree.Node) bool {
		if r, ok := n.(*tree.Return); ok {
			seen = true
			bare = bare && r.Value == nil
		}
		return true
	})
	return seen && bare
}

func (f *flattener) chain() []tree.Expr {
	return append([]tree.Expr(nil), f.guards...)
}

func (f *flattener) mint(prefix *string, base string) (string, error) {
	if *prefix == "" {
		p, err := f.gen.FreePrefix(base)
		if err != nil {
			return "", internalf("%v", err)
		}
		*prefix = p
	}
	name, err := f.gen.FreeName(*prefix)
	if err != nil {
		return "", internalf("%v", err)
	}
	f.minted = append(f.minted, name)
	return name, nil
}

func (f *flattener) block(stmts []tree.Stmt) ([]tree.Stmt, error) {
	out := make([]tree.Stmt, 0, len(stmts))
	for _, s := range stmts {
		switch x := s.(type) {
		case *tree.Return:
			f.returned = append(f.returned, x)
			if f.bare {
				return out, nil
			}
			name, err := f.mint(&f.retPrefix, "_return_")
			if err != nil {
				return nil, err
			}
			f.origin[name] = Origin{Kind: OriginReturn}
			value := x.Value
			if value == nil {
				value = tree.Nil()
			}
			assign := &tree.Assign{Target: tree.N(name), Value: value, Pos: x.Pos}
			f.prov.Track(x, assign)
			f.returns = append(f.returns, Guarded{Guards: f.chain(), Value: tree.N(name)})
			// anything after a return is dead
			return append(out, assign), nil

		case *tree.Assign:
			attr, ok := x.Target.(*tree.Attribute)
			if !ok {
				out = append(out, x)
				continue
			}
			owner, ok := attr.Value.(*tree.Name)
			if !ok {
				return nil, unsupported("attribute write on a non-name owner: "+tree.Format(attr), x.Pos)
			}
			k := attrKey{owner: owner.ID, field: attr.Field}
			if !f.known(k) {
				f.order = append(f.order, k)
			}
			prefix := f.prefix[k]
			name, err := f.mint(&prefix, "_final_"+k.owner+"_"+k.field+"_")
			if err != nil {
				return nil, err
			}
			f.prefix[k] = prefix
			f.origin[name] = Origin{Kind: OriginAttr, Owner: k.owner, Field: k.field}
			assign := &tree.Assign{Target: tree.N(name), Value: x.Value, Pos: x.Pos}
			f.prov.Track(x, assign)
			f.finals[k] = append(f.finals[k], Guarded{Guards: f.chain(), Value: tree.N(name)})
			out = append(out, assign)

		case *tree.If:
			thenReturns, elseReturns := reach.Arms(x)

			f.guards = append(f.guards, x.Test)
			body, err := f.block(x.Body)
			f.guards = f.guards[:len(f.guards)-1]
			if err != nil {
				return nil, err
			}

			if !thenReturns {
				f.guards = append(f.guards, tree.NotExpr(x.Test))
			}
			orElse, err := f.block(x.Else)
			if !thenReturns {
				f.guards = f.guards[:len(f.guards)-1]
			}
			if err != nil {
				return nil, err
			}

			n := &tree.If{Test: x.Test, Body: body, Else: orElse, Pos: x.Pos}
			f.prov.Track(x, n)
			f.facts[n] = ArmFacts{ThenReturns: thenReturns, ElseReturns: elseReturns}
			out = append(out, n)
			if thenReturns && elseReturns {
				return out, nil
			}

		case *tree.ExprStmt:
			// flattening runs every statement; a call made for its
			// effect must already run on every path
			if len(f.guards) > 0 || len(f.returned) > 0 {
				return nil, unsupported("expression statement on a conditional path", x.Pos)
			}
			out = append(out, x)

		default:
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *flattener) known(k attrKey) bool {
	for _, o := range f.order {
		if o == k {
			return true
		}
	}
	return false
}

// tail builds the final attribute writes and the single return.
func (f *flattener) tail() ([]tree.Stmt, error) {
	var out []tree.Stmt
	for _, k := range f.order {
		seq, err := simplifyChecked(f.finals[k])
		if err != nil {
			return nil, err
		}
		if len(seq) == 0 {
			continue
		}
		value, err := f.fold(seq)
		if err != nil {
			return nil, err
		}
		out = append(out, &tree.Assign{Target: tree.Attr(k.owner, k.field), Value: value})
	}

	if len(f.returned) == 0 {
		return out, nil
	}
	ret := &tree.Return{}
	if !f.bare {
		seq, err := simplifyChecked(f.returns)
		if err != nil {
			return nil, err
		}
		value, err := f.fold(seq)
		if err != nil {
			return nil, err
		}
		ret.Value = value
	}
	for _, r := range f.returned {
		f.prov.Track(r, ret)
	}
	return append(out, ret), nil
}

func (f *flattener) fold(seq Sequence) (tree.Expr, error) {
	value, err := Fold(seq, f.strict)
	if errors.Is(err, ErrIncompleteGuard) {
		return nil, &UnprovableError{Reason: "cannot prove function always returns"}
	}
	return value, err
}
