package frontend

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/fzipp/gocyclo"
	"golang.org/x/tools/go/ast/astutil"

	"github.com/gnolang/flatssa/internal/names"
	"github.com/gnolang/flatssa/internal/tree"
)

// Func is one function of a parsed file.
type Func struct {
	Def  *tree.FuncDef
	Decl *ast.FuncDecl
	// Receiver is the receiver type for methods, empty otherwise.
	Receiver   string
	Complexity int
	Skip       bool
	NonStrict  bool
	Start      token.Position
	End        token.Position
	// Types holds the type checker's view of the function's variables;
	// nil when nothing is known.
	Types *Types
}

// QualifiedName returns Type.Method for methods and the bare name for
// functions.
func (f *Func) QualifiedName() string {
	if f.Receiver == "" {
		return f.Def.Name
	}
	return f.Receiver + "." + f.Def.Name
}

// File is a parsed Go file with its functions lowered.
type File struct {
	Path       string
	Fset       *token.FileSet
	AST        *ast.File
	Funcs      []*Func
	Globals    *names.Table
	Directives *Directives
}

// ParseFile reads and parses the Go file at filename.
func ParseFile(filename string) (*File, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return ParseSource(filename, src)
}

// ParseSource parses src as the contents of filename.
func ParseSource(filename string, src []byte) (*File, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("error parsing file: %w", err)
	}
	return FromAST(filename, fset, f, nil), nil
}

// FromAST lowers the functions of an already parsed file. f must have
// been parsed with comments for directives to apply. When info is nil
// the file is type-checked here.
func FromAST(filename string, fset *token.FileSet, f *ast.File, info *types.Info) *File {
	if info == nil {
		info = TypeCheck(fset, filename, f)
	}
	file := &File{
		Path:       filename,
		Fset:       fset,
		AST:        f,
		Globals:    Globals(f),
		Directives: ParseDirectives(f, fset),
	}

	complexity := make(map[int]int)
	for _, stat := range gocyclo.AnalyzeASTFile(f, fset, nil) {
		complexity[stat.Pos.Offset] = stat.Complexity
	}

	for _, decl := range f.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		start := fset.Position(fd.Pos())
		def, temps := lower(fset, fd, file.Globals, info)
		fn := &Func{
			Def:        def,
			Decl:       fd,
			Receiver:   receiverType(fd),
			Complexity: complexity[start.Offset],
			Skip:       file.Directives.Has(start.Line, DirectiveSkip),
			NonStrict:  file.Directives.Has(start.Line, DirectiveNonStrict),
			Start:      start,
			End:        fset.Position(fd.End()),
			Types:      funcTypes(info, f, fd, temps),
		}
		file.Funcs = append(file.Funcs, fn)
	}
	return file
}

func receiverType(fd *ast.FuncDecl) string {
	if fd.Recv == nil || len(fd.Recv.List) == 0 {
		return ""
	}
	typ := fd.Recv.List[0].Type
	for {
		switch x := typ.(type) {
		case *ast.StarExpr:
			typ = x.X
		case *ast.IndexExpr:
			typ = x.X
		case *ast.IndexListExpr:
			typ = x.X
		case *ast.Ident:
			return x.Name
		default:
			return ""
		}
	}
}

// Lookup returns the function with the given plain or qualified name.
func (f *File) Lookup(name string) (*Func, bool) {
	for _, fn := range f.Funcs {
		if fn.Def.Name == name || fn.QualifiedName() == name {
			return fn, true
		}
	}
	return nil, false
}

// FuncAt returns the function whose declaration encloses line.
func (f *File) FuncAt(line int) (*Func, bool) {
	tf := f.Fset.File(f.AST.Pos())
	if tf == nil || line < 1 || line > tf.LineCount() {
		return nil, false
	}
	pos := tf.LineStart(line)
	enclosing, _ := astutil.PathEnclosingInterval(f.AST, pos, pos)
	for _, n := range enclosing {
		fd, ok := n.(*ast.FuncDecl)
		if !ok {
			continue
		}
		for _, fn := range f.Funcs {
			if fn.Decl == fd {
				return fn, true
			}
		}
	}
	return nil, false
}

// importName guesses the package name of an import path, skipping a
// major version suffix.
func importName(p string) string {
	name := path.Base(p)
	if len(name) > 1 && name[0] == 'v' {
		if _, err := strconv.Atoi(name[1:]); err == nil {
			name = path.Base(path.Dir(p))
		}
	}
	return strings.TrimPrefix(name, "go-")
}

// universe holds the predeclared identifiers of Go.
var universe = []string{
	"append", "cap", "clear", "close", "complex", "copy", "delete", "imag",
	"len", "make", "max", "min", "new", "panic", "print", "println", "real",
	"recover",
	"any", "bool", "byte", "comparable", "complex64", "complex128", "error",
	"float32", "float64", "int", "int8", "int16", "int32", "int64", "rune",
	"string", "uint", "uint8", "uint16", "uint32", "uint64", "uintptr",
	"true", "false", "iota", "nil",
}

// Globals returns the names visible to every function of f: predeclared
// identifiers, imports and package-level declarations.
func Globals(f *ast.File) *names.Table {
	t := names.NewTable(universe...)
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		name := importName(p)
		if imp.Name != nil {
			name = imp.Name.Name
		}
		if name != "_" && name != "." {
			t.Set(name, imp)
		}
	}
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil {
				t.Set(d.Name.Name, d)
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.ValueSpec:
					for _, n := range s.Names {
						t.Set(n.Name, s)
					}
				case *ast.TypeSpec:
					t.Set(s.Name.Name, s)
				}
			}
		}
	}
	return t
}
