package passes

import (
	"github.com/gnolang/flatssa/internal/analysis/reach"
	"github.com/gnolang/flatssa/internal/names"
	"github.com/gnolang/flatssa/internal/provenance"
	"github.com/gnolang/flatssa/internal/tree"
)

// AttributeHoister replaces every written `owner.field` with a local
// alias. The alias is read from the attribute at entry and written back
// before every return and at the fall-through end of the body, so later
// stages only see local names plus those write-backs.
type AttributeHoister struct{}

func (AttributeHoister) Name() string { return "attrs" }

type attrKey struct {
	owner string
	field string
}

func (p AttributeHoister) Rewrite(u Unit) (Unit, error) {
	prov := provenance.New()
	keys, err := collectAttrWrites(u.Func.Body)
	if err != nil {
		return u, err
	}
	if len(keys) == 0 {
		u.Meta.Append(p.Name(), KeyProvenance, prov)
		u.Meta.Append(p.Name(), KeyHoisted, []Hoisted(nil))
		return u, nil
	}

	gen := names.NewGenerator(u.Func, u.Env)
	prefix, err := gen.FreePrefix("_attr_")
	if err != nil {
		return u, internalf("%v", err)
	}

	h := &hoister{aliases: make(map[attrKey]string), prov: prov}
	for _, k := range keys {
		alias, err := gen.Fresh(prefix + k.owner + "_" + k.field)
		if err != nil {
			return u, internalf("%v", err)
		}
		h.aliases[k] = alias
		h.order = append(h.order, k)
		h.hoisted = append(h.hoisted, Hoisted{Owner: k.owner, Field: k.field, Alias: alias})
	}

	body := make([]tree.Stmt, 0, len(u.Func.Body)+2*len(keys))
	for _, k := range h.order {
		body = append(body, tree.Set(h.aliases[k], tree.Attr(k.owner, k.field)))
	}
	rewritten, err := h.block(u.Func.Body)
	if err != nil {
		return u, err
	}
	body = append(body, rewritten...)
	if !reach.AlwaysReturns(u.Func.Body) {
		body = append(body, h.writeBacks()...)
	}

	fn := u.Func.WithBody(body)
	prov.Track(u.Func, fn)
	u.Meta.Append(p.Name(), KeyProvenance, prov)
	u.Meta.Append(p.Name(), KeyHoisted, h.hoisted)
	origins := make(map[string]Origin, len(h.hoisted))
	for _, x := range h.hoisted {
		origins[x.Alias] = Origin{Kind: OriginAttr, Owner: x.Owner, Field: x.Field}
	}
	u.Meta.Append(p.Name(), KeyOrigins, origins)
	return u.With(fn), nil
}

// collectAttrWrites returns the written attributes in order of first
// appearance, rejecting targets whose owner is not a plain name and
// owners that are themselves reassigned.
func collectAttrWrites(body []tree.Stmt) ([]attrKey, error) {
	assigned := make(map[string]bool)
	for _, n := range tree.AssignedNames(body) {
		assigned[n] = true
	}

	var keys []attrKey
	seen := make(map[attrKey]bool)
	var err error
	tree.InspectBlock(body, func(n tree.Node) bool {
		if err != nil {
			return false
		}
		a, ok := n.(*tree.Assign)
		if !ok {
			return true
		}
		target, ok := a.Target.(*tree.Attribute)
		if !ok {
			return true
		}
		owner, ok := target.Value.(*tree.Name)
		if !ok {
			err = unsupported("attribute write on a non-name owner: "+tree.Format(target), a.Pos)
			return false
		}
		if assigned[owner.ID] {
			err = unsupported("rebinding of attribute owner "+owner.ID, a.Pos)
			return false
		}
		k := attrKey{owner: owner.ID, field: target.Field}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
		return true
	})
	return keys, err
}

type hoister struct {
	aliases map[attrKey]string
	order   []attrKey
	hoisted []Hoisted
	prov    *provenance.Map
}

func (h *hoister) writeBacks() []tree.Stmt {
	out := make([]tree.Stmt, len(h.order))
	for i, k := range h.order {
		out[i] = &tree.Assign{Target: tree.Attr(k.owner, k.field), Value: tree.N(h.aliases[k])}
	}
	return out
}

func (h *hoister) alias(e tree.Expr) (string, bool) {
	attr, ok := e.(*tree.Attribute)
	if !ok {
		return "", false
	}
	owner, ok := attr.Value.(*tree.Name)
	if !ok {
		return "", false
	}
	alias, ok := h.aliases[attrKey{owner: owner.ID, field: attr.Field}]
	return alias, ok
}

func (h *hoister) replace(e tree.Expr) (tree.Expr, bool, error) {
	if alias, ok := h.alias(e); ok {
		return tree.N(alias), true, nil
	}
	return nil, false, nil
}

func (h *hoister) expr(e tree.Expr) (tree.Expr, error) {
	return rewriteExpr(e, h.replace, h.prov)
}

func (h *hoister) block(stmts []tree.Stmt) ([]tree.Stmt, error) {
	out := make([]tree.Stmt, 0, len(stmts))
	for _, s := range stmts {
		switch x := s.(type) {
		case *tree.Assign:
			value, err := h.expr(x.Value)
			if err != nil {
				return nil, err
			}
			target := x.Target
			if alias, ok := h.alias(x.Target); ok {
				target = tree.N(alias)
				h.prov.Track(x.Target, target)
			}
			if value == x.Value && target == x.Target {
				out = append(out, x)
				continue
			}
			n := &tree.Assign{Target: target, Value: value, Pos: x.Pos}
			h.prov.Track(x, n)
			out = append(out, n)
		case *tree.Return:
			value, err := h.expr(x.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, h.writeBacks()...)
			if value == x.Value {
				out = append(out, x)
				continue
			}
			n := &tree.Return{Value: value, Pos: x.Pos}
			h.prov.Track(x, n)
			out = append(out, n)
		case *tree.ExprStmt:
			value, err := h.expr(x.X)
			if err != nil {
				return nil, err
			}
			if value == x.X {
				out = append(out, x)
				continue
			}
			n := &tree.ExprStmt{X: value, Pos: x.Pos}
			h.prov.Track(x, n)
			out = append(out, n)
		case *tree.If:
			test, err := h.expr(x.Test)
			if err != nil {
				return nil, err
			}
			body, err := h.block(x.Body)
			if err != nil {
				return nil, err
			}
			orElse, err := h.block(x.Else)
			if err != nil {
				return nil, err
			}
			n := &tree.If{Test: test, Body: body, Else: orElse, Pos: x.Pos}
			h.prov.Track(x, n)
			out = append(out, n)
		default:
			out = append(out, s)
		}
	}
	return out, nil
}
