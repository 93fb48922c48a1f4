package types

import (
	"go/ast"
	"go/parser"
	"go/token"

	"golang.org/x/tools/go/analysis"
)

// RunAnalyzer runs the analyzer over code parsed as a single file and
// returns its diagnostics as issues.
func RunAnalyzer(code string, analyzer *analysis.Analyzer) ([]Issue, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "test.go", code, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	pass := &analysis.Pass{
		Analyzer: analyzer,
		Fset:     fset,
		Files:    []*ast.File{file},
		ResultOf: make(map[*analysis.Analyzer]interface{}),
		Report: func(d analysis.Diagnostic) {
			issues = append(issues, Issue{
				Rule:     analyzer.Name,
				Filename: "test.go",
				Message:  d.Message,
				Category: d.Category,
				Start:    fset.Position(d.Pos),
				End:      fset.Position(d.End),
			})
		},
	}

	_, err = analyzer.Run(pass)
	if err != nil {
		return nil, err
	}

	return issues, nil
}
