package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/flatssa/internal/names"
	"github.com/gnolang/flatssa/internal/tree"
)

func span(start, end int) tree.Span { return tree.Span{Start: start, End: end} }

func symbols(t *testing.T, fn *tree.FuncDef, env ...string) SymbolTable {
	t.Helper()
	u, err := SSA(true).Run(fn, names.NewTable(env...))
	require.NoError(t, err)
	v, ok := u.Meta.GetFrom("symtab", KeySymbolTable)
	require.True(t, ok)
	table, ok := v.(SymbolTable)
	require.True(t, ok)
	return table
}

func TestSymbolTableConditionalUpdate(t *testing.T) {
	t.Parallel()

	// 1 func foo(a, b) {
	// 2 	if b {
	// 3 		a = len(a)
	// 4 	}
	// 5 	return a
	// 6 }
	fn := &tree.FuncDef{
		Name:   "foo",
		Params: []string{"a", "b"},
		Body: []tree.Stmt{
			&tree.If{
				Test: tree.N("b"),
				Body: []tree.Stmt{
					&tree.Assign{Target: tree.N("a"), Value: tree.CallOf("len", tree.N("a")), Pos: span(3, 3)},
				},
				Pos: span(2, 4),
			},
			&tree.Return{Value: tree.N("a"), Pos: span(5, 5)},
		},
		Pos: span(1, 6),
	}

	table := symbols(t, fn, "len")
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, table.Lines())
	for line := 1; line <= 4; line++ {
		assert.Equal(t, map[string]string{"a": "a", "b": "b"}, table[line], "line %d", line)
	}
	for line := 5; line <= 6; line++ {
		assert.Equal(t, map[string]string{"a": "a_1", "b": "b"}, table[line], "line %d", line)
	}
}

func TestSymbolTableBothArms(t *testing.T) {
	t.Parallel()

	//  1 func foo(a, b, c) {
	//  2 	if b {
	//  3 		a = bar(a)
	//  4 	} else {
	//  5 		a = bar(a)
	//  6 	}
	//  7 	if c {
	//  8 		b = bar(b)
	//  9 	} else {
	// 10 		b = bar(b)
	// 11 	}
	// 12 	return a + b
	// 13 }
	set := func(name string, line int) tree.Stmt {
		return &tree.Assign{Target: tree.N(name), Value: tree.CallOf("bar", tree.N(name)), Pos: span(line, line)}
	}
	fn := &tree.FuncDef{
		Name:   "foo",
		Params: []string{"a", "b", "c"},
		Body: []tree.Stmt{
			&tree.If{Test: tree.N("b"), Body: []tree.Stmt{set("a", 3)}, Else: []tree.Stmt{set("a", 5)}, Pos: span(2, 6)},
			&tree.If{Test: tree.N("c"), Body: []tree.Stmt{set("b", 8)}, Else: []tree.Stmt{set("b", 10)}, Pos: span(7, 11)},
			&tree.Return{Value: tree.Bin(tree.Add, tree.N("a"), tree.N("b")), Pos: span(12, 12)},
		},
		Pos: span(1, 13),
	}

	table := symbols(t, fn, "bar")
	want := map[int]map[string]string{
		1:  {"a": "a", "b": "b", "c": "c"},
		6:  {"a": "a", "b": "b", "c": "c"},
		7:  {"a": "a_2", "b": "b", "c": "c"},
		11: {"a": "a_2", "b": "b", "c": "c"},
		12: {"a": "a_2", "b": "b_2", "c": "c"},
		13: {"a": "a_2", "b": "b_2", "c": "c"},
	}
	for line, row := range want {
		assert.Equal(t, row, table[line], "line %d", line)
	}
}

func TestSymbolTableArmVisibility(t *testing.T) {
	t.Parallel()

	// 1 func f(c) {
	// 2 	x = 0
	// 3 	if c {
	// 4 		x = 1
	// 5 		y = x
	// 6 	} else {
	// 7 		y = 2
	// 8 	}
	// 9 	return x + y
	// 10 }
	fn := &tree.FuncDef{
		Name:   "f",
		Params: []string{"c"},
		Body: []tree.Stmt{
			&tree.Assign{Target: tree.N("x"), Value: tree.Int(0), Pos: span(2, 2)},
			&tree.If{
				Test: tree.N("c"),
				Body: []tree.Stmt{
					&tree.Assign{Target: tree.N("x"), Value: tree.Int(1), Pos: span(4, 4)},
					&tree.Assign{Target: tree.N("y"), Value: tree.N("x"), Pos: span(5, 5)},
				},
				Else: []tree.Stmt{
					&tree.Assign{Target: tree.N("y"), Value: tree.Int(2), Pos: span(7, 7)},
				},
				Pos: span(3, 8),
			},
			&tree.Return{Value: tree.Bin(tree.Add, tree.N("x"), tree.N("y")), Pos: span(9, 9)},
		},
		Pos: span(1, 10),
	}

	table := symbols(t, fn)

	v, ok := table.Lookup(2, "x")
	assert.False(t, ok, "x is not bound on its own line: %s", v)

	v, _ = table.Lookup(3, "x")
	assert.Equal(t, "x_0", v)

	// inside the then arm the arm's own write is visible
	v, _ = table.Lookup(5, "x")
	assert.Equal(t, "x_1", v)

	// but not inside the else arm
	v, _ = table.Lookup(7, "x")
	assert.Equal(t, "x_0", v)
	_, ok = table.Lookup(7, "y")
	assert.False(t, ok)

	v, _ = table.Lookup(9, "x")
	assert.Equal(t, "x_2", v)
	v, _ = table.Lookup(9, "y")
	assert.Equal(t, "y_2", v)
}

func TestSymbolTableWithoutPositions(t *testing.T) {
	t.Parallel()

	fn := tree.Func("f", []string{"a"}, tree.Ret(tree.N("a")))
	assert.Empty(t, symbols(t, fn))
}

func TestSymbolTableNeedsInput(t *testing.T) {
	t.Parallel()

	_, err := BuildSymbolTable(NewMetadata())
	assert.ErrorIs(t, err, ErrInternal)
}
