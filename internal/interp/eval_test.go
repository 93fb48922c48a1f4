package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/flatssa/internal/tree"
)

func TestEvalExpressions(t *testing.T) {
	t.Parallel()

	env := NewChildEnv(Builtins())
	env.Set("x", tree.IntValue{Val: 10})
	env.Set("s", tree.StringValue{Val: "ab"})
	env.Set("o", NewObject("T", map[string]Value{"f": tree.IntValue{Val: 3}}))

	tests := []struct {
		name string
		expr tree.Expr
		want Value
	}{
		{"literal", tree.Int(5), tree.IntValue{Val: 5}},
		{"arith", tree.Bin(tree.Sub, tree.Bin(tree.Mul, tree.N("x"), tree.Int(2)), tree.Int(1)), tree.IntValue{Val: 19}},
		{"compare", tree.Bin(tree.Lt, tree.N("x"), tree.Int(11)), tree.BoolValue{Val: true}},
		{"concat", tree.Bin(tree.Add, tree.N("s"), tree.Str("c")), tree.StringValue{Val: "abc"}},
		{"field", tree.Attr("o", "f"), tree.IntValue{Val: 3}},
		{"not", tree.NotExpr(tree.Int(0)), tree.BoolValue{Val: true}},
		{"neg", &tree.UnaryOp{Op: tree.Neg, Operand: tree.N("x")}, tree.IntValue{Val: -10}},
		{"ternary", tree.Mux(tree.Bool(false), tree.Int(1), tree.Int(2)), tree.IntValue{Val: 2}},
		{"and yields operand", tree.AndExpr(tree.Int(1), tree.Str("y")), tree.StringValue{Val: "y"}},
		{"or yields operand", tree.OrExpr(tree.Int(0), tree.Int(7)), tree.IntValue{Val: 7}},
		{"builtin", tree.CallOf("len", tree.N("s")), tree.IntValue{Val: 2}},
		{"equal objects", tree.Bin(tree.Eq, tree.N("o"), tree.N("o")), tree.BoolValue{Val: true}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NewEvaluator(nil).Eval(tt.expr, env)
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestEvalShortCircuits(t *testing.T) {
	t.Parallel()

	env := NewEnv()
	ev := NewEvaluator(nil)

	_, err := ev.Eval(tree.Mux(tree.Bool(true), tree.Int(1), tree.N("missing")), env)
	assert.NoError(t, err)
	_, err = ev.Eval(tree.AndExpr(tree.Bool(false), tree.N("missing")), env)
	assert.NoError(t, err)
	_, err = ev.Eval(tree.OrExpr(tree.Bool(true), tree.N("missing")), env)
	assert.NoError(t, err)
}

func TestEvalErrors(t *testing.T) {
	t.Parallel()

	env := NewChildEnv(Builtins())
	env.Set("o", NewObject("T", nil))

	tests := []struct {
		name string
		expr tree.Expr
		err  error
	}{
		{"undefined", tree.N("nope"), ErrUndefined},
		{"division", tree.Bin(tree.Div, tree.Int(1), tree.Int(0)), ErrDivision},
		{"missing field", tree.Attr("o", "f"), ErrNoField},
		{"field of scalar", &tree.Attribute{Value: tree.Int(1), Field: "f"}, ErrType},
		{"not callable", &tree.Call{Func: tree.Int(1)}, ErrNotCallable},
		{"bad operands", tree.Bin(tree.Sub, tree.Str("a"), tree.Int(1)), ErrType},
		{"builtin arity", tree.CallOf("len"), ErrType},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewEvaluator(nil).Eval(tt.expr, env)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestCall(t *testing.T) {
	t.Parallel()

	fn := tree.Func("f", []string{"o", "c"},
		&tree.If{
			Test:  tree.Bin(tree.Eq, tree.N("c"), tree.Int(0)),
			Body:  tree.Block(tree.Ret(tree.Str("zero"))),
			Elifs: []*tree.ElifClause{{Test: tree.Bin(tree.Gt, tree.N("c"), tree.Int(0)), Body: tree.Block(&tree.Assign{Target: tree.Attr("o", "n"), Value: tree.N("c")})}},
			Else:  tree.Block(tree.Ret(nil)),
		},
		&tree.ExprStmt{X: tree.CallOf("abs", tree.N("c"))},
	)

	globals := Builtins()

	res, err := Call(fn, globals, NewObject("T", nil), tree.IntValue{Val: 0})
	require.NoError(t, err)
	assert.Equal(t, tree.StringValue{Val: "zero"}, res.Value)

	o := NewObject("T", nil)
	res, err = Call(fn, globals, o, tree.IntValue{Val: 4})
	require.NoError(t, err)
	assert.Equal(t, tree.NilValue{}, res.Value)
	assert.Equal(t, "T{n: 4}", o.String())
	require.Len(t, res.Calls, 1)
	assert.Equal(t, "abs(4)", res.Calls[0].String())
	assert.Equal(t, res.Calls, res.Effects)

	res, err = Call(fn, globals, NewObject("T", nil), tree.IntValue{Val: -1})
	require.NoError(t, err)
	assert.Equal(t, tree.NilValue{}, res.Value)
	assert.Empty(t, res.Calls)

	_, err = Call(fn, globals, tree.IntValue{Val: 1})
	assert.ErrorIs(t, err, ErrArity)
}

func TestCallRejectsUnsupported(t *testing.T) {
	t.Parallel()

	fn := tree.Func("f", nil, &tree.Unsupported{Construct: "for loop"})
	_, err := Call(fn, nil)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestEnv(t *testing.T) {
	t.Parallel()

	root := Builtins()
	env := NewChildEnv(root)
	env.Set("x", tree.IntValue{Val: 1})

	assert.True(t, env.Has("len"))
	assert.True(t, env.Has("x"))
	assert.False(t, root.Has("x"))
	assert.Equal(t, []string{"x"}, env.Keys())

	table := env.Names()
	assert.True(t, table.Has("len"))
	assert.True(t, table.Has("x"))
}

func TestScalar(t *testing.T) {
	t.Parallel()

	for in, want := range map[any]Value{
		true:     tree.BoolValue{Val: true},
		3:        tree.IntValue{Val: 3},
		"s":      tree.StringValue{Val: "s"},
		2.0:      tree.IntValue{Val: 2},
		int64(7): tree.IntValue{Val: 7},
	} {
		got, err := Scalar(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := Scalar(nil)
	require.NoError(t, err)
	assert.Equal(t, tree.NilValue{}, got)

	_, err = Scalar(1.5)
	assert.ErrorIs(t, err, ErrType)
	_, err = Scalar([]int{1})
	assert.ErrorIs(t, err, ErrType)
}
