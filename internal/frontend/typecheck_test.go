package frontend

import (
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/flatssa/internal/tree"
)

const typedSource = `package typed

import (
	"net/http"
	str "strings"
)

type Meter struct{ level uint8 }

func F(m *Meter, c bool) *str.Builder {
	b := &str.Builder{}
	n := m.level
	h := http.NoBody
	var s []Meter
	if c {
		x := 1
		_ = x
	} else {
		x := "one"
		_ = x
	}
	_, _, _ = n, h, s
	return b
}
`

func TestFuncTypes(t *testing.T) {
	t.Parallel()

	f, err := ParseSource("typed.go", []byte(typedSource))
	require.NoError(t, err)
	fn, ok := f.Lookup("F")
	require.True(t, ok)
	require.NotNil(t, fn.Types)

	spell := func(typ types.Type) string {
		t.Helper()
		e, err := fn.Types.Expr(typ)
		require.NoError(t, err)
		return types.ExprString(e)
	}

	b, ok := fn.Types.Var("b")
	require.True(t, ok)
	assert.Equal(t, "*str.Builder", spell(b))

	s, ok := fn.Types.Var("s")
	require.True(t, ok)
	assert.Equal(t, "[]Meter", spell(s))

	m, ok := fn.Types.Var("m")
	require.True(t, ok)
	assert.Equal(t, "*Meter", spell(m))

	level, ok := fn.Types.Field("m", "level")
	require.True(t, ok)
	assert.Equal(t, "uint8", spell(level))

	res, ok := fn.Types.Result()
	require.True(t, ok)
	assert.Equal(t, "*str.Builder", spell(res))

	// declared twice with different types
	_, ok = fn.Types.Var("x")
	assert.False(t, ok)

	_, ok = fn.Types.Var("missing")
	assert.False(t, ok)

	// an unexported type of another package cannot be written down
	h, ok := fn.Types.Var("h")
	require.True(t, ok)
	_, err = fn.Types.Expr(h)
	assert.Error(t, err)

	_, err = fn.Types.Expr(types.Typ[types.UntypedInt])
	assert.Error(t, err)
}

func TestZeroFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ  types.Type
		want string
	}{
		{types.Typ[types.Bool], "false"},
		{types.Typ[types.String], `""`},
		{types.Typ[types.Float64], "0"},
		{types.NewPointer(types.Typ[types.Int]), "nil"},
		{types.NewSlice(types.Typ[types.Int]), "nil"},
		{types.Universe.Lookup("error").Type(), "nil"},
	}
	for _, tt := range tests {
		v, ok := zeroFor(tt.typ)
		require.True(t, ok, tt.typ.String())
		assert.Equal(t, tt.want, tree.Format(v), tt.typ.String())
	}

	_, ok := zeroFor(types.NewStruct(nil, nil))
	assert.False(t, ok)
	_, ok = zeroFor(types.NewArray(types.Typ[types.Int], 2))
	assert.False(t, ok)
}
