package passes

import (
	"github.com/gnolang/flatssa/internal/provenance"
	"github.com/gnolang/flatssa/internal/tree"
)

// exprFunc is offered every node before its children. Returning done
// replaces the node with out and skips its children.
type exprFunc func(e tree.Expr) (out tree.Expr, done bool, err error)

// rewriteExpr rebuilds e, sharing every subtree fn leaves untouched.
// Each rebuilt node is recorded as derived from the node it replaces.
func rewriteExpr(e tree.Expr, fn exprFunc, prov *provenance.Map) (tree.Expr, error) {
	if e == nil {
		return nil, nil
	}
	out, done, err := fn(e)
	if err != nil {
		return nil, err
	}
	if done {
		if out != e {
			prov.Track(e, out)
		}
		return out, nil
	}
	out = nil

	sub := func(x tree.Expr) (tree.Expr, bool) {
		if err != nil {
			return x, false
		}
		var y tree.Expr
		y, err = rewriteExpr(x, fn, prov)
		return y, y != x
	}

	switch x := e.(type) {
	case *tree.Attribute:
		v, c := sub(x.Value)
		if c {
			out = &tree.Attribute{Value: v, Field: x.Field}
		}
	case *tree.Ternary:
		t, c1 := sub(x.Test)
		b, c2 := sub(x.Body)
		o, c3 := sub(x.OrElse)
		if c1 || c2 || c3 {
			out = &tree.Ternary{Test: t, Body: b, OrElse: o}
		}
	case *tree.BoolOp:
		l, c1 := sub(x.Left)
		r, c2 := sub(x.Right)
		if c1 || c2 {
			out = &tree.BoolOp{Op: x.Op, Left: l, Right: r}
		}
	case *tree.BinaryOp:
		l, c1 := sub(x.Left)
		r, c2 := sub(x.Right)
		if c1 || c2 {
			out = &tree.BinaryOp{Op: x.Op, Left: l, Right: r}
		}
	case *tree.UnaryOp:
		o, c := sub(x.Operand)
		if c {
			out = &tree.UnaryOp{Op: x.Op, Operand: o}
		}
	case *tree.Call:
		f, changed := sub(x.Func)
		args := make([]tree.Expr, len(x.Args))
		for i, a := range x.Args {
			var c bool
			args[i], c = sub(a)
			changed = changed || c
		}
		if changed {
			out = &tree.Call{Func: f, Args: args}
		}
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		return e, nil
	}
	prov.Track(e, out)
	return out, nil
}

// conjoin folds a guard chain into a left-nested && expression.
func conjoin(guards []tree.Expr) tree.Expr {
	if len(guards) == 0 {
		return tree.Bool(true)
	}
	out := guards[0]
	for _, g := range guards[1:] {
		out = tree.AndExpr(out, g)
	}
	return out
}
