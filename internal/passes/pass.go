package passes

import (
	"github.com/gnolang/flatssa/internal/names"
	"github.com/gnolang/flatssa/internal/tree"
)

// Unit is the triple every stage consumes and produces.
type Unit struct {
	Func *tree.FuncDef
	Env  *names.Table
	Meta *Metadata
}

// With returns a copy of u holding fn.
func (u Unit) With(fn *tree.FuncDef) Unit {
	u.Func = fn
	return u
}

// Pass is one stage of the pipeline.
type Pass interface {
	// Name identifies the stage in metadata and logs.
	Name() string

	// Rewrite transforms the unit. It must not modify the input tree.
	Rewrite(u Unit) (Unit, error)
}

// ArmFacts records whether each arm of a branch always returns. The
// return flattener computes them before removing the returns, keyed by
// the branch it emits, so the renamer can still see them.
type ArmFacts struct {
	ThenReturns bool
	ElseReturns bool
}

// Hoisted describes one attribute replaced by a local alias.
type Hoisted struct {
	Owner string
	Field string
	Alias string
}
