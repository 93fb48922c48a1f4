package reach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/flatssa/internal/analysis/lattice"
	"github.com/gnolang/flatssa/internal/names"
	"github.com/gnolang/flatssa/internal/tree"
)

func TestAlwaysReturns(t *testing.T) {
	t.Parallel()

	ret := func() tree.Stmt { return tree.Ret(tree.Int(1)) }
	set := func() tree.Stmt { return tree.Set("x", tree.Int(1)) }

	tests := []struct {
		name  string
		block []tree.Stmt
		want  bool
	}{
		{"empty", nil, false},
		{"plain return", tree.Block(set(), ret()), true},
		{"no return", tree.Block(set()), false},
		{"if without else", tree.Block(tree.IfElse(tree.N("c"), tree.Block(ret()), nil)), false},
		{"both arms return", tree.Block(tree.IfElse(tree.N("c"), tree.Block(ret()), tree.Block(ret()))), true},
		{"one arm returns", tree.Block(tree.IfElse(tree.N("c"), tree.Block(ret()), tree.Block(set()))), false},
		{"nested", tree.Block(tree.IfElse(tree.N("c"),
			tree.Block(tree.IfElse(tree.N("d"), tree.Block(ret()), tree.Block(ret()))),
			tree.Block(set(), ret()))), true},
		{"return then dead code", tree.Block(ret(), set()), true},
		{"elif chain with else", tree.Block(&tree.If{
			Test:  tree.N("a"),
			Body:  tree.Block(ret()),
			Elifs: []*tree.ElifClause{{Test: tree.N("b"), Body: tree.Block(ret())}},
			Else:  tree.Block(ret()),
		}), true},
		{"elif arm falls through", tree.Block(&tree.If{
			Test:  tree.N("a"),
			Body:  tree.Block(ret()),
			Elifs: []*tree.ElifClause{{Test: tree.N("b"), Body: tree.Block(set())}},
			Else:  tree.Block(ret()),
		}), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, AlwaysReturns(tt.block))
		})
	}
}

func TestArms(t *testing.T) {
	t.Parallel()

	s := &tree.If{
		Test:  tree.N("a"),
		Body:  tree.Block(tree.Set("x", tree.Int(1))),
		Elifs: []*tree.ElifClause{{Test: tree.N("b"), Body: tree.Block(tree.Ret(nil))}},
		Else:  tree.Block(tree.Ret(nil)),
	}
	thenReturns, elseReturns := Arms(s)
	assert.False(t, thenReturns)
	assert.True(t, elseReturns)
}

func TestUndefined(t *testing.T) {
	t.Parallel()

	// if c { y = 1 }; return y + len(p)
	fn := tree.Func("f", []string{"c", "p"},
		tree.IfElse(tree.N("c"), tree.Block(tree.Set("y", tree.Int(1))), nil),
		tree.Ret(tree.Bin(tree.Add, tree.N("y"), tree.CallOf("len", tree.N("p")))),
	)

	findings := Undefined(fn, names.NewTable("len"))
	require.Len(t, findings, 1)
	assert.Equal(t, "y", findings[0].Name)
	assert.Equal(t, lattice.MaybeBound, findings[0].Binding)
}

func TestUndefinedAfterReturningArm(t *testing.T) {
	t.Parallel()

	// the then arm returns, so only the else arm's bindings survive
	fn := tree.Func("f", []string{"c"},
		tree.IfElse(tree.N("c"),
			tree.Block(tree.Set("y", tree.Int(1)), tree.Ret(tree.N("y"))),
			tree.Block(tree.Set("y", tree.Int(2)))),
		tree.Ret(tree.N("y")),
	)
	assert.Empty(t, Undefined(fn, nil))

	fn = tree.Func("g", []string{"c"},
		tree.IfElse(tree.N("c"), tree.Block(tree.Set("y", tree.Int(1)), tree.Ret(tree.N("y"))), nil),
		tree.Ret(tree.N("y")),
	)
	findings := Undefined(fn, nil)
	require.Len(t, findings, 1)
	assert.Equal(t, lattice.Unbound, findings[0].Binding)
}
