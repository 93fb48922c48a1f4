package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/flatssa/internal/tree"
)

func TestTableGrowOnly(t *testing.T) {
	t.Parallel()

	table := NewTable("len", "print")
	assert.True(t, table.Has("len"))
	assert.False(t, table.Has("x"))

	table.Set("x", 3)
	v, ok := table.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, []string{"len", "print", "x"}, table.Names())

	clone := table.Clone()
	clone.Set("y", nil)
	assert.False(t, table.Has("y"))
}

func TestEmptyEnv(t *testing.T) {
	t.Parallel()

	assert.False(t, Empty.Has("anything"))
	_, ok := Empty.Lookup("anything")
	assert.False(t, ok)
}

func TestFreeNameSkipsUsedAndEnv(t *testing.T) {
	t.Parallel()

	fn := tree.Func("f", []string{"x_0"},
		tree.Set("x_1", tree.Int(1)),
		tree.Ret(tree.N("x_1")),
	)
	g := NewGenerator(fn, NewTable("x_2"))

	name, err := g.FreeName("x_")
	require.NoError(t, err)
	assert.Equal(t, "x_3", name)

	name, err = g.FreeName("x_")
	require.NoError(t, err)
	assert.Equal(t, "x_4", name)
	assert.False(t, g.IsFree("x_4"))
}

func TestFreePrefixAvoidsUsedNamesAndOverlap(t *testing.T) {
	t.Parallel()

	fn := tree.Func("f", []string{"_cond_a"}, tree.Ret(tree.N("_cond_a")))
	g := NewGenerator(fn, nil)

	p, err := g.FreePrefix("_cond_")
	require.NoError(t, err)
	assert.Equal(t, "_1_cond_", p)

	// an overlapping family is pushed to a different prefix
	q, err := g.FreePrefix("_1_cond_x")
	require.NoError(t, err)
	assert.Equal(t, "_1_1_cond_x", q)

	r, err := g.FreePrefix("_return_")
	require.NoError(t, err)
	assert.Equal(t, "_return_", r)
}

func TestFresh(t *testing.T) {
	t.Parallel()

	fn := tree.Func("f", []string{"a"}, tree.Ret(tree.N("a")))
	g := NewGenerator(fn, nil)

	name, err := g.Fresh("b")
	require.NoError(t, err)
	assert.Equal(t, "b", name)

	name, err = g.Fresh("a")
	require.NoError(t, err)
	assert.Equal(t, "a_0", name)
}
