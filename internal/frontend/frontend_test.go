package frontend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `package x

import (
	"fmt"
	str "strings"
	"github.com/example/y/v2"
	"github.com/example/go-thing"
)

var limit = 3

type T struct{ n int }

//flatssa:skip
func skipped() {}

// documented does things.
//
//flatssa:nonstrict
func documented(a bool) int {
	if a && limit > 0 {
		return 1
	}
	return 0
}

func (t *T) plain() {
	t.n = 1
}

//flatssa:bogus
func external()
`

func TestParseSource(t *testing.T) {
	t.Parallel()

	f, err := ParseSource("x.go", []byte(sample))
	require.NoError(t, err)
	require.Len(t, f.Funcs, 3)

	skipped, documented, plain := f.Funcs[0], f.Funcs[1], f.Funcs[2]

	assert.Equal(t, "skipped", skipped.QualifiedName())
	assert.True(t, skipped.Skip)
	assert.False(t, skipped.NonStrict)

	assert.False(t, documented.Skip)
	assert.True(t, documented.NonStrict)
	assert.Equal(t, 3, documented.Complexity)
	assert.Equal(t, 20, documented.Start.Line)
	assert.Equal(t, 25, documented.End.Line)
	assert.Equal(t, []string{"a"}, documented.Def.Params)

	assert.Equal(t, "T", plain.Receiver)
	assert.Equal(t, "T.plain", plain.QualifiedName())
	assert.Equal(t, []string{"t"}, plain.Def.Params)
	assert.Equal(t, 1, plain.Complexity)
	assert.False(t, plain.Skip || plain.NonStrict)
}

func TestFileLookup(t *testing.T) {
	t.Parallel()

	f, err := ParseSource("x.go", []byte(sample))
	require.NoError(t, err)

	fn, ok := f.Lookup("T.plain")
	require.True(t, ok)
	assert.Equal(t, "plain", fn.Def.Name)

	fn, ok = f.Lookup("plain")
	require.True(t, ok)
	assert.Equal(t, "T", fn.Receiver)

	_, ok = f.Lookup("external")
	assert.False(t, ok)
}

func TestFuncAt(t *testing.T) {
	t.Parallel()

	f, err := ParseSource("x.go", []byte(sample))
	require.NoError(t, err)

	tests := []struct {
		line int
		want string
	}{
		{22, "documented"},
		{20, "documented"},
		{28, "T.plain"},
		{15, "skipped"},
		{2, ""},
		{10, ""},
		{0, ""},
		{1000, ""},
	}
	for _, tt := range tests {
		fn, ok := f.FuncAt(tt.line)
		if tt.want == "" {
			assert.False(t, ok, "line %d", tt.line)
			continue
		}
		require.True(t, ok, "line %d", tt.line)
		assert.Equal(t, tt.want, fn.QualifiedName(), "line %d", tt.line)
	}
}

func TestGlobals(t *testing.T) {
	t.Parallel()

	f, err := ParseSource("x.go", []byte(sample))
	require.NoError(t, err)

	for _, name := range []string{"fmt", "str", "y", "thing", "limit", "T", "skipped", "documented", "external", "len", "nil"} {
		assert.True(t, f.Globals.Has(name), name)
	}
	for _, name := range []string{"strings", "v2", "plain", "a", "t"} {
		assert.False(t, f.Globals.Has(name), name)
	}
}

func TestFileDirective(t *testing.T) {
	t.Parallel()

	src := "//flatssa:nonstrict\n\npackage x\n\nfunc a() {}\n\n//flatssa:skip,nonstrict\nfunc b() {}\n"
	f, err := ParseSource("x.go", []byte(src))
	require.NoError(t, err)
	require.Len(t, f.Funcs, 2)

	assert.True(t, f.Funcs[0].NonStrict)
	assert.False(t, f.Funcs[0].Skip)
	assert.True(t, f.Funcs[1].NonStrict)
	assert.True(t, f.Funcs[1].Skip)
}

func TestParseDirective(t *testing.T) {
	t.Parallel()

	names, err := parseDirective("//flatssa: skip , nonstrict")
	require.NoError(t, err)
	assert.Len(t, names, 2)

	for _, text := range []string{"// flatssa:skip", "//flatssa:", "//flatssa:skip,loud", "//nolint"} {
		_, err := parseDirective(text)
		assert.Error(t, err, text)
	}

	var d *Directives
	assert.False(t, d.Has(1, DirectiveSkip))
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "x.go")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	f, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Path)
	assert.Len(t, f.Funcs, 3)

	_, err = ParseFile(filepath.Join(dir, "missing.go"))
	assert.ErrorContains(t, err, "error reading file")

	_, err = ParseSource("bad.go", []byte("package"))
	assert.ErrorContains(t, err, "error parsing file")
}
