// Package analyzer exposes the converter as a go/analysis pass, so
// functions that cannot be linearized show up next to vet diagnostics.
package analyzer

import (
	"fmt"
	"go/ast"
	"go/token"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/packages"

	"github.com/gnolang/flatssa/internal"
	"github.com/gnolang/flatssa/internal/config"
	"github.com/gnolang/flatssa/internal/frontend"
	tt "github.com/gnolang/flatssa/internal/types"
)

var (
	configPath string
	nonStrict  bool
)

// Analyzer reports every function the pipeline rejects.
var Analyzer = &analysis.Analyzer{
	Name: "flatssa",
	Doc:  "reports functions that cannot be converted to straight-line SSA form",
	Run:  run,
}

func init() {
	Analyzer.Flags.StringVar(&configPath, "config", "", "configuration file (defaults apply when empty)")
	Analyzer.Flags.BoolVar(&nonStrict, "nonstrict", false, "convert in non-strict mode")
}

func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return cfg, err
		}
	}
	if nonStrict {
		cfg.Strict = false
	}
	return cfg, nil
}

func run(pass *analysis.Pass) (interface{}, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	engine, err := internal.NewEngine(cfg, nil)
	if err != nil {
		return nil, err
	}

	for _, f := range pass.Files {
		filename := pass.Fset.Position(f.Pos()).Filename
		file := frontend.FromAST(filename, pass.Fset, f, pass.TypesInfo)
		convs, err := engine.ConvertFile(file)
		if err != nil {
			return nil, err
		}
		for _, c := range convs {
			if c.Issue == nil {
				continue
			}
			fn, ok := file.Lookup(c.Func)
			if !ok {
				return nil, fmt.Errorf("%s: lost function %s", filename, c.Func)
			}
			pos, end := diagnosticRange(pass.Fset, fn.Decl, c.Issue)
			pass.Report(analysis.Diagnostic{
				Pos:      pos,
				End:      end,
				Category: c.Issue.Rule,
				Message:  fmt.Sprintf("%s: %s", c.Func, c.Issue.Message),
			})
		}
	}
	return nil, nil
}

// diagnosticRange maps the lines of issue back to positions of the file
// holding decl. An issue covering the whole function points at decl.
func diagnosticRange(fset *token.FileSet, decl *ast.FuncDecl, issue *tt.Issue) (token.Pos, token.Pos) {
	tf := fset.File(decl.Pos())
	start, end := fset.Position(decl.Pos()), fset.Position(decl.End())
	if tf == nil || (issue.Start.Line == start.Line && issue.End.Line == end.Line) {
		return decl.Pos(), decl.End()
	}
	if issue.Start.Line < 1 || issue.End.Line > tf.LineCount() || issue.Start.Line > issue.End.Line {
		return decl.Pos(), decl.End()
	}
	pos := tf.LineStart(issue.Start.Line)
	if issue.End.Line == tf.LineCount() {
		return pos, token.Pos(tf.Base() + tf.Size())
	}
	return pos, tf.LineStart(issue.End.Line+1) - 1
}

// CheckPackages loads the packages matching patterns and runs Analyzer
// over each of them.
func CheckPackages(dir string, patterns ...string) ([]tt.Issue, error) {
	cfg := &packages.Config{
		Mode:  packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
			packages.NeedTypes | packages.NeedTypesInfo | packages.NeedTypesSizes,
		Dir:   dir,
		Tests: false,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, err
	}

	var issues []tt.Issue
	for _, pkg := range pkgs {
		for _, perr := range pkg.Errors {
			return nil, fmt.Errorf("%s: %s", pkg.PkgPath, perr.Msg)
		}
		pass := &analysis.Pass{
			Analyzer:   Analyzer,
			Fset:       pkg.Fset,
			Files:      pkg.Syntax,
			Pkg:        pkg.Types,
			TypesInfo:  pkg.TypesInfo,
			TypesSizes: pkg.TypesSizes,
			ResultOf:   make(map[*analysis.Analyzer]interface{}),
			Report: func(d analysis.Diagnostic) {
				start := pkg.Fset.Position(d.Pos)
				issues = append(issues, tt.Issue{
					Rule:     d.Category,
					Category: Analyzer.Name,
					Filename: start.Filename,
					Message:  d.Message,
					Start:    start,
					End:      pkg.Fset.Position(d.End),
					Severity: severityOf(d.Category),
				})
			},
		}
		if _, err := Analyzer.Run(pass); err != nil {
			return nil, err
		}
	}
	return issues, nil
}

func severityOf(rule string) tt.Severity {
	if rule == tt.RuleUnsupported {
		return tt.SeverityWarning
	}
	return tt.SeverityError
}
