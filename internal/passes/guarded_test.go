package passes

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/flatssa/internal/tree"
)

func g(guards ...tree.Expr) []tree.Expr { return guards }

func TestSimplifyMergesNegatedTail(t *testing.T) {
	t.Parallel()

	a, p := tree.N("a"), tree.N("p")
	seq := Sequence{
		{Guards: g(p, a), Value: tree.Int(1)},
		{Guards: g(p, tree.NotExpr(a)), Value: tree.Int(2)},
		{Guards: g(tree.NotExpr(p)), Value: tree.Int(3)},
	}

	got := Simplify(seq)
	want := Sequence{
		{Guards: g(p, a), Value: tree.Int(1)},
		{Guards: g(p), Value: tree.Int(2)},
		{Guards: nil, Value: tree.Int(3)},
	}
	assert.True(t, want.Equal(got), "got %v", got)
	assert.True(t, got.Terminated())
}

func TestSimplifyTruncatesAfterUnguarded(t *testing.T) {
	t.Parallel()

	seq := Sequence{
		{Guards: g(tree.N("a")), Value: tree.Int(1)},
		{Guards: nil, Value: tree.Int(2)},
		{Guards: g(tree.N("b")), Value: tree.Int(3)},
		{Guards: nil, Value: tree.Int(4)},
	}
	got := Simplify(seq)
	require.Len(t, got, 2)
	assert.True(t, got.Valid())

	assert.Len(t, Simplify(Sequence{{Value: tree.Int(0)}, {Value: tree.Int(1)}}), 1)
	assert.Nil(t, Simplify(nil))
}

func TestSimplifyLeavesUnrelatedNegation(t *testing.T) {
	t.Parallel()

	seq := Sequence{
		{Guards: g(tree.N("a")), Value: tree.Int(1)},
		{Guards: g(tree.NotExpr(tree.N("b"))), Value: tree.Int(2)},
	}
	assert.True(t, seq.Equal(Simplify(seq)))
}

func TestSimplifyIsIdempotent(t *testing.T) {
	t.Parallel()

	pool := []tree.Expr{
		tree.N("a"), tree.N("b"), tree.N("c"),
		tree.NotExpr(tree.N("a")), tree.NotExpr(tree.N("b")), tree.NotExpr(tree.N("c")),
	}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		n := 1 + rng.Intn(6)
		seq := make(Sequence, n)
		for j := range seq {
			chain := make([]tree.Expr, rng.Intn(4))
			for k := range chain {
				chain[k] = pool[rng.Intn(len(pool))]
			}
			seq[j] = Guarded{Guards: chain, Value: tree.Int(int64(j))}
		}

		once := Simplify(seq)
		require.True(t, once.Valid(), "invalid result for %v", seq)
		require.True(t, once.Equal(Simplify(once)), "not a fixed point for %v", seq)

		_, err := simplifyChecked(seq)
		require.NoError(t, err)
	}
}

func TestFold(t *testing.T) {
	t.Parallel()

	p, a := tree.N("p"), tree.N("a")
	seq := Sequence{
		{Guards: g(p, a), Value: tree.N("v1")},
		{Guards: g(p), Value: tree.N("v2")},
		{Guards: nil, Value: tree.N("v3")},
	}

	got, err := Fold(seq, true)
	require.NoError(t, err)
	assert.Equal(t, "p && a ? v1 : p ? v2 : v3", tree.Format(got))
}

func TestFoldStrictNeedsUnguardedEntry(t *testing.T) {
	t.Parallel()

	seq := Sequence{
		{Guards: g(tree.N("a")), Value: tree.N("v1")},
		{Guards: g(tree.N("b")), Value: tree.N("v2")},
	}

	_, err := Fold(seq, true)
	assert.ErrorIs(t, err, ErrIncompleteGuard)

	got, err := Fold(seq, false)
	require.NoError(t, err)
	assert.Equal(t, "a ? v1 : v2", tree.Format(got))

	_, err = Fold(nil, false)
	assert.ErrorIs(t, err, ErrIncompleteGuard)
}

func TestFoldUnguardedIsBare(t *testing.T) {
	t.Parallel()

	v := tree.N("v")
	got, err := Fold(Sequence{{Value: v}}, true)
	require.NoError(t, err)
	assert.Same(t, v, got)
}

func TestSimplifyComparesGuardsStructurally(t *testing.T) {
	t.Parallel()

	lt := func() tree.Expr { return tree.Bin(tree.Lt, tree.N("n"), tree.Int(0)) }
	seq := Sequence{
		{Guards: g(tree.N("p"), lt()), Value: tree.Int(1)},
		{Guards: g(tree.N("p"), tree.NotExpr(lt())), Value: tree.Int(2)},
		{Value: tree.Int(3)},
	}
	got := Simplify(seq)
	require.Len(t, got, 3)
	assert.Len(t, got[1].Guards, 1)

	// same shape, other operand
	seq[1] = Guarded{Guards: g(tree.N("p"), tree.NotExpr(tree.Bin(tree.Lt, tree.N("n"), tree.Int(1)))), Value: tree.Int(2)}
	assert.Len(t, Simplify(seq)[1].Guards, 2)
}
