// Package reach classifies statement blocks by whether control can fall
// off their end, and finds reads of names that are not bound on every
// path reaching them.
package reach

import (
	"sort"

	"github.com/gnolang/flatssa/internal/analysis/lattice"
	"github.com/gnolang/flatssa/internal/names"
	"github.com/gnolang/flatssa/internal/tree"
)

// AlwaysReturns reports whether every path through block ends in a
// return. A block returns once any of its statements does: a return
// itself, or a branch whose arms all return. An if without an else
// never returns by itself.
func AlwaysReturns(block []tree.Stmt) bool {
	for _, s := range block {
		if stmtReturns(s) {
			return true
		}
	}
	return false
}

func stmtReturns(s tree.Stmt) bool {
	switch x := s.(type) {
	case *tree.Return:
		return true
	case *tree.If:
		if len(x.Else) == 0 || !AlwaysReturns(x.Body) {
			return false
		}
		for _, e := range x.Elifs {
			if !AlwaysReturns(e.Body) {
				return false
			}
		}
		return AlwaysReturns(x.Else)
	}
	return false
}

// Arms classifies both arms of a branch. Elif clauses belong to the
// else arm.
func Arms(s *tree.If) (thenReturns, elseReturns bool) {
	thenReturns = AlwaysReturns(s.Body)
	if len(s.Elifs) == 0 {
		return thenReturns, AlwaysReturns(s.Else)
	}
	rest := &tree.If{Test: s.Elifs[0].Test, Body: s.Elifs[0].Body, Elifs: s.Elifs[1:], Else: s.Else}
	return thenReturns, stmtReturns(rest)
}

// Finding is a read of a name that may be unbound when reached.
type Finding struct {
	Name    string
	Binding lattice.Binding
	Stmt    tree.Stmt
}

// Undefined walks fn and reports every read of a local name whose
// binding is not Bound on all paths reaching it. Names in env and
// parameters are always bound.
func Undefined(fn *tree.FuncDef, env names.Env) []Finding {
	if env == nil {
		env = names.Empty
	}
	state := lattice.State{}
	for _, p := range fn.Params {
		lattice.Set(state, p, lattice.Bound)
	}
	locals := make(map[string]bool)
	for _, n := range tree.AssignedNames(fn.Body) {
		locals[n] = true
	}
	u := &undefined{env: env, locals: locals}
	u.block(fn.Body, state)
	return u.findings
}

type undefined struct {
	env      names.Env
	locals   map[string]bool
	findings []Finding
}

// block returns the state at the end of stmts, or nil when control
// cannot fall through.
func (u *undefined) block(stmts []tree.Stmt, state lattice.State) lattice.State {
	for _, s := range stmts {
		if state == nil {
			return nil
		}
		state = u.stmt(s, state)
	}
	return state
}

func (u *undefined) stmt(s tree.Stmt, state lattice.State) lattice.State {
	switch x := s.(type) {
	case *tree.Assign:
		u.reads(x.Value, x, state)
		switch target := x.Target.(type) {
		case *tree.Name:
			lattice.Set(state, target.ID, lattice.Bound)
		case *tree.Attribute:
			u.reads(target.Value, x, state)
		}
		return state
	case *tree.ExprStmt:
		u.reads(x.X, x, state)
		return state
	case *tree.Return:
		if x.Value != nil {
			u.reads(x.Value, x, state)
		}
		return nil
	case *tree.If:
		u.reads(x.Test, x, state)
		thenState := u.block(x.Body, lattice.Clone(state))
		var elseState lattice.State
		if len(x.Elifs) > 0 {
			rest := &tree.If{Test: x.Elifs[0].Test, Body: x.Elifs[0].Body, Elifs: x.Elifs[1:], Else: x.Else, Pos: x.Elifs[0].Pos}
			elseState = u.stmt(rest, lattice.Clone(state))
		} else {
			elseState = u.block(x.Else, lattice.Clone(state))
		}
		return lattice.JoinStates(thenState, elseState)
	}
	return state
}

func (u *undefined) reads(e tree.Expr, at tree.Stmt, state lattice.State) {
	seen := make(map[string]bool)
	var found []string
	var visit func(n tree.Node) bool
	visit = func(n tree.Node) bool {
		switch x := n.(type) {
		case *tree.Call:
			// a non-local callee is a global function, not a read
			if callee, ok := x.Func.(*tree.Name); ok && !u.locals[callee.ID] {
				for _, a := range x.Args {
					tree.Inspect(a, visit)
				}
				return false
			}
		case *tree.Name:
			if !seen[x.ID] {
				seen[x.ID] = true
				found = append(found, x.ID)
			}
		}
		return true
	}
	tree.Inspect(e, visit)
	sort.Strings(found)
	for _, name := range found {
		if !u.locals[name] && u.env.Has(name) {
			continue
		}
		b := lattice.Get(state, name)
		if b == lattice.Bound {
			continue
		}
		if !u.locals[name] && b == lattice.Unbound {
			// unknown global
			continue
		}
		u.findings = append(u.findings, Finding{Name: name, Binding: b, Stmt: at})
	}
}
