package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/gnolang/flatssa/internal/config"
	"github.com/gnolang/flatssa/internal/frontend"
	"github.com/gnolang/flatssa/internal/interp"
	"github.com/gnolang/flatssa/internal/passes"
	"github.com/gnolang/flatssa/internal/render"
	"github.com/gnolang/flatssa/internal/tree"
	tt "github.com/gnolang/flatssa/internal/types"
)

// Engine converts the functions of Go files.
type Engine struct {
	cfg          config.Config
	logger       *zap.Logger
	cache        *Cache
	ignoredPaths []string

	mu         sync.Mutex
	watcher    *fsnotify.Watcher
	isWatching bool
	done       chan struct{}
}

// NewEngine creates an engine for cfg. A nil logger discards output.
func NewEngine(cfg config.Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

// Config returns the configuration the engine runs with.
func (e *Engine) Config() config.Config { return e.cfg }

// UseCache makes Run reuse results for unchanged files converted with
// the same settings.
func (e *Engine) UseCache(c *Cache) {
	c.SetFingerprint(e.cfg.Fingerprint())
	e.cache = c
}

// IgnorePath excludes files whose path contains path.
func (e *Engine) IgnorePath(path string) {
	e.ignoredPaths = append(e.ignoredPaths, filepath.Clean(path))
}

func (e *Engine) ignored(filename string) bool {
	clean := filepath.Clean(filename)
	for _, p := range e.ignoredPaths {
		if strings.Contains(clean, p) {
			return true
		}
	}
	return false
}

// unit is one function taken through the pipeline.
type unit struct {
	fn    *frontend.Func
	conv  tt.Conversion
	out   passes.Unit
	types render.Types
}

// Run converts every eligible function of filename.
func (e *Engine) Run(filename string) ([]tt.Conversion, error) {
	if e.ignored(filename) {
		return nil, nil
	}
	if e.cache != nil {
		if convs, ok := e.cache.Get(filename); ok {
			e.logger.Debug("cache hit", zap.String("file", filename))
			return convs, nil
		}
	}

	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	convs, err := e.convertSource(filename, src)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(filename, convs); err != nil {
			e.logger.Warn("cache update failed", zap.String("file", filename), zap.Error(err))
		}
	}
	return convs, nil
}

// RunSource converts every eligible function of source.
func (e *Engine) RunSource(source []byte) ([]tt.Conversion, error) {
	return e.convertSource("", source)
}

func (e *Engine) convertSource(filename string, src []byte) ([]tt.Conversion, error) {
	file, units, err := e.convert(filename, src)
	if err != nil {
		return nil, err
	}
	e.renderUnits(file, src, units)

	convs := make([]tt.Conversion, len(units))
	for i, u := range units {
		convs[i] = u.conv
	}
	return convs, nil
}

// convert parses src and runs the pipeline over each function.
func (e *Engine) convert(filename string, src []byte) (*frontend.File, []*unit, error) {
	file, err := frontend.ParseSource(filename, src)
	if err != nil {
		return nil, nil, err
	}
	units, err := e.convertFile(file)
	if err != nil {
		return nil, nil, err
	}
	return file, units, nil
}

// ConvertFile runs the pipeline over the functions of an already parsed
// file. Outputs are not rendered, so only issues, symbol tables and
// function details are filled in.
func (e *Engine) ConvertFile(file *frontend.File) ([]tt.Conversion, error) {
	units, err := e.convertFile(file)
	if err != nil {
		return nil, err
	}
	convs := make([]tt.Conversion, len(units))
	for i, u := range units {
		convs[i] = u.conv
	}
	return convs, nil
}

func (e *Engine) convertFile(file *frontend.File) ([]*unit, error) {
	filename := file.Path
	helper, hasHelper := render.ExistingHelper(file.AST)
	var units []*unit
	for _, fn := range file.Funcs {
		if hasHelper && fn.Receiver == "" && fn.Def.Name == helper {
			continue
		}
		if !e.cfg.Allows(fn.Def.Name, fn.QualifiedName()) {
			continue
		}
		u := &unit{fn: fn, conv: tt.Conversion{
			Filename:   filename,
			Func:       fn.QualifiedName(),
			Start:      fn.Start,
			End:        fn.End,
			Strict:     e.cfg.Strict && !fn.NonStrict,
			Skipped:    fn.Skip,
			Complexity: fn.Complexity,
		}}
		units = append(units, u)
		if fn.Skip {
			continue
		}

		p, err := e.cfg.Pipeline(u.conv.Strict)
		if err != nil {
			return nil, err
		}
		u.conv.Passes = p.Passes()
		env := file.Globals.Clone()
		out, err := p.WithLogger(e.logger).Run(fn.Def, env)
		if err != nil {
			e.logger.Debug("conversion failed",
				zap.String("file", filename),
				zap.String("func", u.conv.Func),
				zap.Error(err))
			u.conv.Issue = issueFromError(filename, fn, env, err)
			continue
		}
		u.out = out
		u.types = newLocalTypes(fn, out.Meta)
		if table, ok := symbolTable(out.Meta); ok {
			u.conv.Symbols = table
		}
	}
	return units, nil
}

func symbolTable(meta *passes.Metadata) (map[int]map[string]string, bool) {
	v, ok := meta.GetFrom("symtab", passes.KeySymbolTable)
	if !ok {
		return nil, false
	}
	table, ok := v.(passes.SymbolTable)
	return map[int]map[string]string(table), ok
}

func converted(units []*unit) []*unit {
	var out []*unit
	for _, u := range units {
		if u.out.Func != nil && u.conv.Issue == nil {
			out = append(out, u)
		}
	}
	return out
}

// renderUnits fills in the Output of each converted function. A body
// that is not straight-line, as a partial stage list leaves it, is shown
// in tree form instead.
func (e *Engine) renderUnits(file *frontend.File, src []byte, units []*unit) *render.Renderer {
	ok := converted(units)
	fns := make([]*tree.FuncDef, len(ok))
	for i, u := range ok {
		fns[i] = u.out.Func
	}
	r := render.ForFile(file.AST, file.Globals, fns...)
	for _, u := range ok {
		text, err := r.Func(file.Fset, src, u.fn.Decl, u.out.Func, u.types)
		if errors.Is(err, render.ErrNotFlat) {
			u.conv.Output = tree.Format(u.out.Func)
			continue
		}
		if err != nil {
			u.conv.Issue = &tt.Issue{
				Rule:     tt.RuleRender,
				Filename: file.Path,
				Message:  err.Error(),
				Start:    u.fn.Start,
				End:      u.fn.End,
				Severity: tt.SeverityError,
			}
			continue
		}
		u.conv.Output = text
	}
	return r
}

// Rewrite returns the contents of filename with every converted function
// replaced by its straight-line form, along with the conversions.
func (e *Engine) Rewrite(filename string) ([]byte, []tt.Conversion, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading file: %w", err)
	}
	file, units, err := e.convert(filename, src)
	if err != nil {
		return nil, nil, err
	}
	r := e.renderUnits(file, src, units)

	var repl []render.Replacement
	for _, u := range converted(units) {
		if u.conv.Issue == nil && u.conv.Output != "" {
			repl = append(repl, render.Replacement{Decl: u.fn.Decl, Func: u.out.Func, Types: u.types})
		}
	}
	convs := make([]tt.Conversion, len(units))
	for i, u := range units {
		convs[i] = u.conv
	}
	if len(repl) == 0 {
		return src, convs, nil
	}
	out, err := r.Source(file.Fset, src, repl)
	if err != nil {
		return nil, convs, err
	}
	return out, convs, nil
}

// Verify converts filename and checks each converted function against
// its original with the interpreter. A function whose behavior differs
// gets an issue.
func (e *Engine) Verify(filename string) ([]tt.Conversion, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	file, units, err := e.convert(filename, src)
	if err != nil {
		return nil, err
	}
	e.renderUnits(file, src, units)

	samples, err := e.cfg.Samples()
	if err != nil {
		return nil, err
	}
	globals := interp.Builtins()

	convs := make([]tt.Conversion, len(units))
	for i, u := range units {
		if u.conv.Issue == nil && u.out.Func != nil {
			v := interp.NewVerifier(globals, samples...)
			if e.cfg.Verify.MaxCases > 0 {
				v.MaxCases = e.cfg.Verify.MaxCases
			}
			report := v.Verify(u.fn.Def, u.out.Func)
			u.conv.Verified = report.String()
			if report.Result == interp.NotEquivalent {
				u.conv.Issue = &tt.Issue{
					Rule:     tt.RuleEquivalence,
					Filename: filename,
					Message:  report.String(),
					Note:     "input: " + interp.FormatInput(u.fn.Def.Params, report.Input),
					Start:    u.fn.Start,
					End:      u.fn.End,
					Severity: tt.SeverityError,
				}
			}
		}
		convs[i] = u.conv
	}
	return convs, nil
}

// SourceCode stores the content of a source code file.
type SourceCode struct {
	Lines []string
}

// ReadSourceCode reads the content of a file and returns it as a `SourceCode` struct.
func ReadSourceCode(filename string) (*SourceCode, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(content), "\n")
	return &SourceCode{Lines: lines}, nil
}
