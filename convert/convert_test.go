package convert

import (
	"bytes"
	"context"
	"errors"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnolang/flatssa/internal/config"
	tt "github.com/gnolang/flatssa/internal/types"
)

type mockConverter struct {
	mock.Mock
}

func (m *mockConverter) Run(filePath string) ([]tt.Conversion, error) {
	args := m.Called(filePath)
	return args.Get(0).([]tt.Conversion), args.Error(1)
}

func (m *mockConverter) RunSource(source []byte) ([]tt.Conversion, error) {
	args := m.Called(source)
	return args.Get(0).([]tt.Conversion), args.Error(1)
}

func (m *mockConverter) IgnorePath(path string) {
	m.Called(path)
}

func conversion(file, fn string) tt.Conversion {
	return tt.Conversion{
		Filename: file,
		Func:     fn,
		Start:    token.Position{Filename: file, Line: 3, Column: 1},
		End:      token.Position{Filename: file, Line: 5, Column: 2},
		Output:   "func " + fn + "() {}",
	}
}

func createTempFiles(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	var paths []string
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))
		paths = append(paths, path)
	}
	return paths
}

func TestProcessFile(t *testing.T) {
	t.Parallel()

	expected := []tt.Conversion{conversion("test.go", "f")}
	engine := new(mockConverter)
	engine.On("Run", "test.go").Return(expected, nil)

	convs, err := ProcessFile(engine, "test.go")
	assert.NoError(t, err)
	assert.Equal(t, expected, convs)
	engine.AssertExpectations(t)
}

func TestProcessSources(t *testing.T) {
	t.Parallel()

	a, b := []byte("package a"), []byte("package b")
	engine := new(mockConverter)
	engine.On("RunSource", a).Return([]tt.Conversion{conversion("", "a")}, nil)
	engine.On("RunSource", b).Return([]tt.Conversion{conversion("", "b")}, nil)

	convs, err := ProcessSources(context.Background(), zap.NewNop(), engine, [][]byte{a, b}, ProcessSource)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "a", convs[0].Func)
	assert.Equal(t, "b", convs[1].Func)

	failing := new(mockConverter)
	failing.On("RunSource", a).Return([]tt.Conversion(nil), errors.New("bad source"))
	_, err = ProcessSources(context.Background(), nil, failing, [][]byte{a}, ProcessSource)
	assert.EqualError(t, err, "bad source")
}

func TestProcessPath(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	paths := createTempFiles(t, tempDir, "b.go", "a.go", "sub/c.go", "a_test.go", "notes.txt", ".hidden/d.go", "vendor/e.go")

	engine := new(mockConverter)
	engine.On("Run", paths[0]).Return([]tt.Conversion{conversion(paths[0], "b")}, nil)
	engine.On("Run", paths[1]).Return([]tt.Conversion{conversion(paths[1], "a")}, nil)
	engine.On("Run", paths[2]).Return([]tt.Conversion{conversion(paths[2], "c")}, nil)

	var progress bytes.Buffer
	convs, err := ProcessPath(context.Background(), zap.NewNop(), engine, tempDir, ProcessFile, Options{Progress: &progress, Workers: 2})
	require.NoError(t, err)
	require.Len(t, convs, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{convs[0].Func, convs[1].Func, convs[2].Func})
	assert.Contains(t, progress.String(), "a.go")
	engine.AssertExpectations(t)
	engine.AssertNumberOfCalls(t, "Run", 3)
}

func TestProcessPathSkipsFailedFiles(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	paths := createTempFiles(t, tempDir, "bad.go", "good.go")

	engine := new(mockConverter)
	engine.On("Run", paths[0]).Return([]tt.Conversion(nil), errors.New("parse error"))
	engine.On("Run", paths[1]).Return([]tt.Conversion{conversion(paths[1], "g")}, nil)

	convs, err := ProcessPath(context.Background(), nil, engine, tempDir, ProcessFile, Options{})
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "g", convs[0].Func)
}

func TestProcessPathSingleFile(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	paths := createTempFiles(t, tempDir, "one.go", "readme.md")

	engine := new(mockConverter)
	engine.On("Run", paths[0]).Return([]tt.Conversion{conversion(paths[0], "one")}, nil)

	convs, err := ProcessPath(context.Background(), nil, engine, paths[0], ProcessFile, Options{})
	require.NoError(t, err)
	assert.Len(t, convs, 1)

	convs, err = ProcessPath(context.Background(), nil, engine, paths[1], ProcessFile, Options{})
	require.NoError(t, err)
	assert.Empty(t, convs)

	_, err = ProcessPath(context.Background(), nil, engine, filepath.Join(tempDir, "missing"), ProcessFile, Options{})
	assert.Error(t, err)
}

func TestProcessPathContextCancellation(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	createTempFiles(t, tempDir, "a.go", "b.go")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := new(mockConverter)
	convs, err := ProcessPath(ctx, nil, engine, tempDir, ProcessFile, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, convs)
	engine.AssertNotCalled(t, "Run", mock.Anything)
}

func TestProcessFiles(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	paths := createTempFiles(t, tempDir, "x.go", "y.go")

	engine := new(mockConverter)
	engine.On("Run", paths[0]).Return([]tt.Conversion{conversion(paths[0], "x")}, nil)
	engine.On("Run", paths[1]).Return([]tt.Conversion{conversion(paths[1], "y")}, nil)

	convs, err := ProcessFiles(context.Background(), nil, engine, paths, ProcessFile, Options{})
	require.NoError(t, err)
	assert.Len(t, convs, 2)

	_, err = ProcessFiles(context.Background(), nil, engine, []string{filepath.Join(tempDir, "nope")}, ProcessFile, Options{})
	assert.Error(t, err)
}

func TestProcessComplexity(t *testing.T) {
	t.Parallel()

	simple := conversion("a.go", "simple")
	simple.Complexity = 2
	branchy := conversion("a.go", "branchy")
	branchy.Complexity = 12

	issues := ProcessComplexity([]tt.Conversion{simple, branchy}, 10)
	require.Len(t, issues, 1)
	assert.Equal(t, tt.RuleComplexity, issues[0].Rule)
	assert.Equal(t, 3, issues[0].Start.Line)
	assert.Contains(t, issues[0].Message, "branchy")
}

func TestNew(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, config.DefaultPath)
	cfg := config.Default()
	cfg.Strict = false
	require.NoError(t, config.Write(path, cfg))

	engine, err := New(path, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, engine.Config().Strict)

	engine, err = New(path, nil, func(c *config.Config) { c.Strict = true }, func(c *config.Config) { c.Funcs = []string{"f"} })
	require.NoError(t, err)
	assert.True(t, engine.Config().Strict)
	assert.Equal(t, []string{"f"}, engine.Config().Funcs)

	_, err = New(path, nil, func(c *config.Config) { c.Stages = []string{"bogus"} })
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("unknown_key: 1\n"), 0o644))
	_, err = New(path, nil)
	assert.Error(t, err)
}

func TestEngineEndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := "package x\n\nfunc Abs(n int) int {\n\tif n < 0 {\n\t\treturn -n\n\t}\n\treturn n\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abs.go"), []byte(src), 0o644))

	_, err := New(filepath.Join(dir, "missing.yaml"), nil)
	assert.Error(t, err)

	engine, err := New("", nil)
	require.NoError(t, err)

	convs, err := ProcessPath(context.Background(), nil, engine, dir, ProcessFile, Options{})
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Nil(t, convs[0].Issue)
	assert.Contains(t, convs[0].Output, "mux(")
}
