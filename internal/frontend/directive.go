package frontend

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"
)

const directivePrefix = "//flatssa:"

// Directive names understood in `//flatssa:` comments.
const (
	// DirectiveSkip leaves a function unconverted.
	DirectiveSkip = "skip"
	// DirectiveNonStrict converts a function in non-strict mode.
	DirectiveNonStrict = "nonstrict"
)

var knownDirectives = map[string]bool{
	DirectiveSkip:      true,
	DirectiveNonStrict: true,
}

// Directives records the `//flatssa:` comments of a file and the line
// ranges they apply to.
type Directives struct {
	scopes []directiveScope
}

type directiveScope struct {
	names map[string]struct{}
	start int
	end   int
}

// ParseDirectives collects the directives of f. A directive above the
// package clause applies to the whole file; one in a function's doc
// comment or on the line right above it applies to that function.
// Malformed directives are ignored.
func ParseDirectives(f *ast.File, fset *token.FileSet) *Directives {
	d := &Directives{}
	packageLine := fset.Position(f.Package).Line
	funcs := funcsByStartLine(f, fset)

	for _, cg := range f.Comments {
		for _, c := range cg.List {
			names, err := parseDirective(c.Text)
			if err != nil {
				continue
			}
			line := fset.Position(c.Slash).Line
			scope := directiveScope{names: names, start: line, end: line}

			switch {
			case line < packageLine:
				scope.start = fset.Position(f.Pos()).Line
				scope.end = fset.Position(f.End()).Line
			default:
				if decl := funcAfterComment(cg, line, funcs, fset); decl != nil {
					scope.end = fset.Position(decl.End()).Line
				}
			}
			d.scopes = append(d.scopes, scope)
		}
	}
	return d
}

func parseDirective(text string) (map[string]struct{}, error) {
	if !strings.HasPrefix(text, directivePrefix) {
		return nil, fmt.Errorf("not a directive")
	}
	rest := strings.TrimSpace(text[len(directivePrefix):])
	if rest == "" {
		return nil, fmt.Errorf("empty directive")
	}
	names := make(map[string]struct{})
	for _, name := range strings.Split(rest, ",") {
		name = strings.TrimSpace(name)
		if !knownDirectives[name] {
			return nil, fmt.Errorf("unknown directive %q", name)
		}
		names[name] = struct{}{}
	}
	return names, nil
}

func funcsByStartLine(f *ast.File, fset *token.FileSet) map[int]*ast.FuncDecl {
	out := make(map[int]*ast.FuncDecl)
	for _, decl := range f.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok {
			out[fset.Position(fd.Pos()).Line] = fd
		}
	}
	return out
}

// funcAfterComment returns the function a comment group documents, or
// the one starting on the line right after the comment.
func funcAfterComment(cg *ast.CommentGroup, line int, funcs map[int]*ast.FuncDecl, fset *token.FileSet) *ast.FuncDecl {
	if fd, ok := funcs[fset.Position(cg.End()).Line+1]; ok && fd.Doc == cg {
		return fd
	}
	if fd, ok := funcs[line+1]; ok {
		return fd
	}
	return nil
}

// Has reports whether directive name applies at line.
func (d *Directives) Has(line int, name string) bool {
	if d == nil {
		return false
	}
	for _, s := range d.scopes {
		if line < s.start || line > s.end {
			continue
		}
		if _, ok := s.names[name]; ok {
			return true
		}
	}
	return false
}
