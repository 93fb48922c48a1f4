package internal

import (
	"context"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gnolang/flatssa/internal/config"
	tt "github.com/gnolang/flatssa/internal/types"
)

// createTempDir creates a temporary directory and returns its path.
// It also registers a cleanup function to remove the directory after the test.
func createTempDir(t testing.TB, prefix string) string {
	tempDir, err := os.MkdirTemp("", prefix)
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })
	return tempDir
}

func writeFile(t testing.TB, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const source = `package sample

// Clamp limits n to [lo, hi].
func Clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	} else if n > hi {
		return hi
	}
	return n
}

func Sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

func Partial(c bool) int {
	if c {
		return 1
	}
}

//flatssa:skip
func Skipped(a bool) int {
	if a {
		return 1
	}
	return 0
}

type Counter struct{ n int }

func (c *Counter) Add(d int) {
	if d > 0 {
		c.n += d
	}
}
`

func newTestEngine(t testing.TB) *Engine {
	engine, err := NewEngine(config.Default(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return engine
}

func byFunc(convs []tt.Conversion) map[string]tt.Conversion {
	out := make(map[string]tt.Conversion, len(convs))
	for _, c := range convs {
		out[c.Func] = c
	}
	return out
}

func TestNewEngine(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(config.Default(), nil)
	require.NoError(t, err)
	assert.NotNil(t, engine.logger)
	assert.True(t, engine.Config().Strict)

	cfg := config.Default()
	cfg.Stages = []string{"nope"}
	_, err = NewEngine(cfg, nil)
	assert.Error(t, err)
}

func TestEngine_RunSource(t *testing.T) {
	t.Parallel()

	convs, err := newTestEngine(t).RunSource([]byte(source))
	require.NoError(t, err)
	require.Len(t, convs, 5)
	got := byFunc(convs)

	t.Run("converted", func(t *testing.T) {
		c := got["Clamp"]
		require.Nil(t, c.Issue)
		assert.True(t, c.Strict)
		assert.Equal(t, 4, c.Start.Line)
		assert.Equal(t, 3, c.Complexity)
		assert.Equal(t, []string{"elif", "attrs", "guards", "returns", "ssa", "symtab"}, c.Passes)
		assert.True(t, strings.HasPrefix(c.Output, "func Clamp(n, lo, hi int) int {"))
		assert.Contains(t, c.Output, "mux[int](")
		assert.NotContains(t, c.Output, "if ")
		assert.NotEmpty(t, c.Symbols)
	})

	t.Run("method", func(t *testing.T) {
		c := got["Counter.Add"]
		require.Nil(t, c.Issue)
		assert.True(t, strings.HasPrefix(c.Output, "func (c *Counter) Add(d int) {"))
	})

	t.Run("unsupported", func(t *testing.T) {
		c := got["Sum"]
		require.NotNil(t, c.Issue)
		assert.Equal(t, tt.RuleUnsupported, c.Issue.Rule)
		assert.Equal(t, tt.SeverityWarning, c.Issue.Severity)
		assert.Equal(t, 15, c.Issue.Start.Line)
		assert.Empty(t, c.Output)
	})

	t.Run("unprovable", func(t *testing.T) {
		c := got["Partial"]
		require.NotNil(t, c.Issue)
		assert.Equal(t, tt.RuleUnprovable, c.Issue.Rule)
		assert.Equal(t, tt.SeverityError, c.Issue.Severity)
	})

	t.Run("skipped", func(t *testing.T) {
		c := got["Skipped"]
		assert.True(t, c.Skipped)
		assert.Nil(t, c.Issue)
		assert.Empty(t, c.Output)
	})
}

func TestEngine_NonStrict(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Strict = false
	engine, err := NewEngine(cfg, nil)
	require.NoError(t, err)

	convs, err := engine.RunSource([]byte(source))
	require.NoError(t, err)
	c := byFunc(convs)["Partial"]
	assert.False(t, c.Strict)
	assert.Nil(t, c.Issue)
}

func TestEngine_PartialStages(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Stages = []string{"elif"}
	cfg.Funcs = []string{"Clamp"}
	engine, err := NewEngine(cfg, nil)
	require.NoError(t, err)

	convs, err := engine.RunSource([]byte(source))
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, []string{"elif"}, convs[0].Passes)
	assert.Contains(t, convs[0].Output, "if ")
}

func TestEngine_RunParseError(t *testing.T) {
	t.Parallel()

	_, err := newTestEngine(t).RunSource([]byte("package x\nfunc {"))
	assert.Error(t, err)

	_, err = newTestEngine(t).Run(filepath.Join(t.TempDir(), "missing.go"))
	assert.Error(t, err)
}

func TestEngine_IgnorePath(t *testing.T) {
	t.Parallel()

	dir := createTempDir(t, "ignore_test")
	path := writeFile(t, dir, "gen.go", source)

	engine := newTestEngine(t)
	engine.IgnorePath(dir)
	convs, err := engine.Run(path)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestEngine_Rewrite(t *testing.T) {
	t.Parallel()

	dir := createTempDir(t, "rewrite_test")
	path := writeFile(t, dir, "sample.go", source)

	out, convs, err := newTestEngine(t).Rewrite(path)
	require.NoError(t, err)
	assert.Len(t, convs, 5)

	_, err = parser.ParseFile(token.NewFileSet(), "out.go", out, parser.ParseComments)
	require.NoError(t, err, string(out))

	text := string(out)
	assert.Contains(t, text, "func mux[T any](")
	assert.Contains(t, text, "for _, x := range xs")
	assert.Contains(t, text, "//flatssa:skip")
	assert.NotContains(t, text, "else if")
}

const typedSource = `package typed

import (
	"errors"
	"net/http"
)

type Meter struct{ level uint8 }

func Typed(c bool) int64 {
	var x int64
	if c {
		x = 2
	}
	return x
}

func Byte(m *Meter, up bool) {
	if up {
		m.level = 1
	} else {
		m.level = 0
	}
}

func Check(ok bool) error {
	if !ok {
		return errors.New("bad")
	}
	return nil
}

func Ratio(a, b float64) float64 {
	r := a
	if b > a {
		r = 2
	}
	return r
}

func Body(c bool) bool {
	body := http.NoBody
	if c {
		return true
	}
	return body == http.NoBody
}
`

func TestEngine_RewriteKeepsTypes(t *testing.T) {
	t.Parallel()

	dir := createTempDir(t, "typed_test")
	path := writeFile(t, dir, "typed.go", typedSource)

	out, convs, err := newTestEngine(t).Rewrite(path)
	require.NoError(t, err)

	got := byFunc(convs)
	for _, name := range []string{"Typed", "Byte", "Check", "Ratio"} {
		assert.Nil(t, got[name].Issue, name)
		assert.NotEmpty(t, got[name].Output, name)
	}
	text := string(out)
	assert.Contains(t, text, "var x_1 int64 = 2")
	assert.Contains(t, text, "mux[uint8](")
	assert.Contains(t, text, "var r_1 float64 = 2")

	// the body of Body needs a type no declaration can spell
	issue := got["Body"].Issue
	require.NotNil(t, issue)
	assert.Equal(t, tt.RuleRender, issue.Rule)
	assert.Contains(t, issue.Message, "cannot determine the type of body")
	assert.Contains(t, text, "body := http.NoBody")

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "typed.go", out, 0)
	require.NoError(t, err, text)
	conf := types.Config{Importer: importer.Default()}
	_, err = conf.Check("typed", fset, []*ast.File{f}, nil)
	assert.NoError(t, err, text)
}

func TestEngine_LeavesHelperAlone(t *testing.T) {
	t.Parallel()

	dir := createTempDir(t, "helper_test")
	path := writeFile(t, dir, "sample.go", source)

	out, _, err := newTestEngine(t).Rewrite(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, out, 0o644))

	convs, err := newTestEngine(t).Run(path)
	require.NoError(t, err)
	for _, c := range convs {
		assert.NotEqual(t, "mux", c.Func)
	}
	assert.Len(t, convs, 5)
}

func TestEngine_Verify(t *testing.T) {
	t.Parallel()

	dir := createTempDir(t, "verify_test")
	path := writeFile(t, dir, "sample.go", source)

	convs, err := newTestEngine(t).Verify(path)
	require.NoError(t, err)

	got := byFunc(convs)
	assert.True(t, strings.HasPrefix(got["Clamp"].Verified, "Equivalent"), got["Clamp"].Verified)
	assert.True(t, strings.HasPrefix(got["Counter.Add"].Verified, "Equivalent"), got["Counter.Add"].Verified)
	assert.Empty(t, got["Sum"].Verified)
	assert.Nil(t, got["Clamp"].Issue)
}

func TestEngine_Cache(t *testing.T) {
	t.Parallel()

	dir := createTempDir(t, "engine_cache_test")
	path := writeFile(t, dir, "sample.go", source)

	cache, err := NewCache(filepath.Join(dir, ".cache"))
	require.NoError(t, err)

	engine := newTestEngine(t)
	engine.UseCache(cache)

	first, err := engine.Run(path)
	require.NoError(t, err)

	cached, found := cache.Get(path)
	require.True(t, found)
	assert.Equal(t, first, cached)

	second, err := engine.Run(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEngine_CacheFollowsSettings(t *testing.T) {
	t.Parallel()

	dir := createTempDir(t, "engine_settings_test")
	path := writeFile(t, dir, "sample.go", source)
	cacheDir := filepath.Join(dir, ".cache")

	strictCache, err := NewCache(cacheDir)
	require.NoError(t, err)
	strict := newTestEngine(t)
	strict.UseCache(strictCache)
	convs, err := strict.Run(path)
	require.NoError(t, err)
	require.NotNil(t, byFunc(convs)["Partial"].Issue)

	cfg := config.Default()
	cfg.Strict = false
	lax, err := NewEngine(cfg, nil)
	require.NoError(t, err)
	laxCache, err := NewCache(cacheDir)
	require.NoError(t, err)
	lax.UseCache(laxCache)

	convs, err = lax.Run(path)
	require.NoError(t, err)
	partial := byFunc(convs)["Partial"]
	assert.False(t, partial.Strict)
	assert.Nil(t, partial.Issue)
}

func TestEngine_Watch(t *testing.T) {
	t.Parallel()

	dir := createTempDir(t, "watch_test")
	engine := newTestEngine(t)

	type result struct {
		file  string
		convs []tt.Conversion
	}
	results := make(chan result, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, engine.StartWatching(ctx, func(filename string, convs []tt.Conversion, err error) {
		assert.NoError(t, err)
		results <- result{filename, convs}
	}, dir))
	assert.True(t, engine.Watching())
	assert.Error(t, engine.StartWatching(ctx, nil, dir))

	writeFile(t, dir, "notes.txt", "ignored")
	path := writeFile(t, dir, "sample.go", source)

	select {
	case r := <-results:
		assert.Equal(t, path, r.file)
		assert.NotEmpty(t, r.convs)
	case <-time.After(5 * time.Second):
		t.Fatal("no conversion reported")
	}

	require.NoError(t, engine.StopWatching())
	assert.False(t, engine.Watching())
}

func TestReadSourceCode(t *testing.T) {
	t.Parallel()
	tempDir := createTempDir(t, "source_code_test")

	testFile := filepath.Join(tempDir, "test.go")
	content := "package main\n\nfunc main() {\n\tprintln(\"Hello, World!\")\n}"
	err := os.WriteFile(testFile, []byte(content), 0644)
	require.NoError(t, err)

	sourceCode, err := ReadSourceCode(testFile)
	assert.NoError(t, err)
	assert.NotNil(t, sourceCode)
	assert.Len(t, sourceCode.Lines, 5)
	assert.Equal(t, "package main", sourceCode.Lines[0])
}

func BenchmarkRunSource(b *testing.B) {
	engine, err := NewEngine(config.Default(), nil)
	require.NoError(b, err)
	src := []byte(source)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.RunSource(src); err != nil {
			b.Fatal(err)
		}
	}
}
