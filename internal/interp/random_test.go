package interp

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/flatssa/internal/passes"
	"github.com/gnolang/flatssa/internal/tree"
)

// bodyGen builds random functions of nested branches, returns and
// attribute writes over the parameters a, b, c and t.
type bodyGen struct {
	rng *rand.Rand
}

func (g *bodyGen) pick(options ...string) string {
	return options[g.rng.Intn(len(options))]
}

func (g *bodyGen) cond() tree.Expr {
	n := tree.N(g.pick("a", "b", "c"))
	if g.rng.Intn(3) == 0 {
		return tree.NotExpr(n)
	}
	return n
}

func (g *bodyGen) value() tree.Expr {
	switch g.rng.Intn(4) {
	case 0:
		return tree.Int(int64(g.rng.Intn(5)))
	case 1:
		return tree.N("y")
	case 2:
		return tree.Attr("t", g.pick("f", "g"))
	default:
		return tree.N(g.pick("a", "b"))
	}
}

func (g *bodyGen) block(depth int) []tree.Stmt {
	var out []tree.Stmt
	for i := 1 + g.rng.Intn(3); i > 0; i-- {
		switch k := g.rng.Intn(10); {
		case k < 3 && depth < 3:
			out = append(out, g.branch(depth+1))
		case k < 5:
			out = append(out, tree.Set("y", g.value()))
		case k < 7:
			out = append(out, &tree.Assign{Target: tree.Attr("t", g.pick("f", "g")), Value: g.value()})
		case k < 8:
			return append(out, tree.Ret(g.value()))
		default:
			out = append(out, tree.Set("y", tree.Int(int64(g.rng.Intn(5)))))
		}
	}
	return out
}

func (g *bodyGen) branch(depth int) *tree.If {
	n := &tree.If{Test: g.cond(), Body: g.block(depth)}
	for i := g.rng.Intn(3); i > 0; i-- {
		n.Elifs = append(n.Elifs, &tree.ElifClause{Test: g.cond(), Body: g.block(depth)})
	}
	if g.rng.Intn(2) == 0 {
		n.Else = g.block(depth)
	}
	return n
}

func (g *bodyGen) fn() *tree.FuncDef {
	body := g.block(0)
	if g.rng.Intn(3) > 0 {
		body = append(body, tree.Ret(g.value()))
	}
	return tree.Func("gen", []string{"a", "b", "c", "t"}, body...)
}

func assertStraightLine(t *testing.T, fn *tree.FuncDef, src *tree.FuncDef) {
	t.Helper()

	params := make(map[string]bool)
	for _, p := range fn.Params {
		params[p] = true
	}
	assigned := make(map[string]int)
	for i, s := range fn.Body {
		switch x := s.(type) {
		case *tree.If:
			t.Errorf("branch left in\n%s", tree.Format(src))
		case *tree.Return:
			assert.Equal(t, len(fn.Body)-1, i, "return is not last in\n%s", tree.Format(src))
		case *tree.Assign:
			if n, ok := x.Target.(*tree.Name); ok {
				assigned[n.ID]++
				assert.False(t, params[n.ID], "parameter %s reassigned", n.ID)
			}
		}
	}
	for name, count := range assigned {
		assert.Equal(t, 1, count, "%s assigned %d times in\n%s", name, count, tree.Format(src))
	}
}

func TestRandomBodiesConvert(t *testing.T) {
	t.Parallel()

	bools := []Value{tree.BoolValue{Val: true}, tree.BoolValue{Val: false}}
	for seed := int64(0); seed < 300; seed++ {
		g := &bodyGen{rng: rand.New(rand.NewSource(seed))}
		fn := g.fn()

		strict, strictErr := passes.SSA(true).Run(fn, nil)
		if strictErr != nil {
			require.ErrorIs(t, strictErr, passes.ErrUnprovable, "seed %d\n%s", seed, tree.Format(fn))
		}
		lax, err := passes.SSA(false).Run(fn, nil)
		require.NoError(t, err, "seed %d\n%s", seed, tree.Format(fn))
		assertStraightLine(t, lax.Func, fn)

		if strictErr != nil {
			continue
		}
		assertStraightLine(t, strict.Func, fn)
		for _, out := range []*tree.FuncDef{strict.Func, lax.Func} {
			report := NewVerifier(nil, bools...).Verify(fn, out)
			require.Equal(t, Equivalent, report.Result, "seed %d: %s\n%s\n%s",
				seed, report, tree.Format(fn), tree.Format(out))
		}
	}
}
