package frontend

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gnolang/flatssa/internal/tree"
)

// sharedImporter resolves imports for every type check of the process.
// Standard packages come from export data; anything else is checked
// from source.
var sharedImporter = &cachingImporter{
	gc:    importer.Default(),
	src:   importer.ForCompiler(token.NewFileSet(), "source", nil),
	cache: make(map[string]*types.Package),
}

type cachingImporter struct {
	mu    sync.Mutex
	gc    types.Importer
	src   types.Importer
	cache map[string]*types.Package
}

func (c *cachingImporter) Import(path string) (*types.Package, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pkg, ok := c.cache[path]; ok {
		return pkg, nil
	}
	pkg, err := c.gc.Import(path)
	if err != nil {
		pkg, err = c.src.Import(path)
	}
	if err != nil {
		return nil, err
	}
	c.cache[path] = pkg
	return pkg, nil
}

// TypeCheck type-checks f together with the other files of its package
// found next to filename. Errors do not stop checking: whatever depends
// on a broken declaration simply has no type.
func TypeCheck(fset *token.FileSet, filename string, f *ast.File) *types.Info {
	info := &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Implicits:  make(map[ast.Node]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
		Scopes:     make(map[ast.Node]*types.Scope),
	}
	files := append([]*ast.File{f}, siblings(fset, filename, f)...)
	conf := types.Config{
		Importer: sharedImporter,
		Error:    func(error) {},
	}
	_, _ = conf.Check(f.Name.Name, fset, files, info)
	return info
}

// siblings parses the files of the same package in the directory of
// filename. Test files are only included when filename is one.
func siblings(fset *token.FileSet, filename string, f *ast.File) []*ast.File {
	if filename == "" {
		return nil
	}
	dir := filepath.Dir(filename)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	self, _ := filepath.Abs(filename)
	withTests := strings.HasSuffix(filename, "_test.go")

	var out []*ast.File
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") {
			continue
		}
		if strings.HasSuffix(name, "_test.go") && !withTests {
			continue
		}
		path := filepath.Join(dir, name)
		if abs, _ := filepath.Abs(path); abs == self {
			continue
		}
		sib, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil || sib.Name.Name != f.Name.Name {
			continue
		}
		out = append(out, sib)
	}
	return out
}

// Types is what the type checker knows about the variables of one
// function.
type Types struct {
	vars    map[string]types.Type
	fields  map[string]types.Type
	result  types.Type
	pkg     *types.Package
	imports map[string]string
}

// Var returns the type of a parameter or local of the function. A name
// declared more than once with different types has none.
func (t *Types) Var(name string) (types.Type, bool) {
	if t == nil {
		return nil, false
	}
	typ, ok := t.vars[name]
	return typ, ok && typ != nil
}

// Field returns the type of owner.field as selected in the function.
func (t *Types) Field(owner, field string) (types.Type, bool) {
	if t == nil {
		return nil, false
	}
	typ, ok := t.fields[owner+"."+field]
	return typ, ok && typ != nil
}

// Result returns the type of the single result of the function.
func (t *Types) Result() (types.Type, bool) {
	if t == nil || t.result == nil {
		return nil, false
	}
	return t.result, true
}

// Expr returns typ as a type expression valid in the function's file.
func (t *Types) Expr(typ types.Type) (ast.Expr, error) {
	if t == nil || typ == nil {
		return nil, fmt.Errorf("no type information")
	}
	if !valid(typ) || !spellable(typ, t.pkg) {
		return nil, fmt.Errorf("type %s cannot be spelled here", typ)
	}
	var missing string
	qualifier := func(p *types.Package) string {
		if p == t.pkg {
			return ""
		}
		name, ok := t.imports[p.Path()]
		if !ok {
			missing = p.Path()
			return p.Name()
		}
		return name
	}
	text := types.TypeString(typ, qualifier)
	if missing != "" {
		return nil, fmt.Errorf("type %s needs package %q, which the file does not import", text, missing)
	}
	expr, err := parser.ParseExpr(text)
	if err != nil {
		return nil, fmt.Errorf("type %s: %w", text, err)
	}
	clearPos(expr)
	return expr, nil
}

// clearPos drops the positions of a parsed type expression, which refer
// to a file of their own, so it prints cleanly inside other code.
func clearPos(e ast.Expr) {
	ast.Inspect(e, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.Ident:
			x.NamePos = token.NoPos
		case *ast.BasicLit:
			x.ValuePos = token.NoPos
		case *ast.StarExpr:
			x.Star = token.NoPos
		case *ast.ParenExpr:
			x.Lparen, x.Rparen = token.NoPos, token.NoPos
		case *ast.ArrayType:
			x.Lbrack = token.NoPos
		case *ast.MapType:
			x.Map = token.NoPos
		case *ast.ChanType:
			x.Begin, x.Arrow = token.NoPos, token.NoPos
		case *ast.FuncType:
			x.Func = token.NoPos
		case *ast.StructType:
			x.Struct = token.NoPos
		case *ast.InterfaceType:
			x.Interface = token.NoPos
		case *ast.FieldList:
			x.Opening, x.Closing = token.NoPos, token.NoPos
		case *ast.Ellipsis:
			x.Ellipsis = token.NoPos
		case *ast.IndexExpr:
			x.Lbrack, x.Rbrack = token.NoPos, token.NoPos
		case *ast.IndexListExpr:
			x.Lbrack, x.Rbrack = token.NoPos, token.NoPos
		case *ast.UnaryExpr:
			x.OpPos = token.NoPos
		case *ast.BinaryExpr:
			x.OpPos = token.NoPos
		}
		return true
	})
}

// valid reports whether typ is a complete type a value can have.
func valid(typ types.Type) bool {
	if _, tuple := typ.(*types.Tuple); tuple {
		return false
	}
	return spellable(typ, nil)
}

// spellable reports whether typ can be written in a declaration of pkg:
// it is complete and names no unexported type of another package. A nil
// pkg only checks completeness.
func spellable(typ types.Type, pkg *types.Package) bool {
	switch x := typ.(type) {
	case *types.Basic:
		return x.Kind() != types.Invalid && x.Info()&types.IsUntyped == 0
	case *types.Named:
		obj := x.Obj()
		if pkg != nil && obj.Pkg() != nil && obj.Pkg() != pkg && !obj.Exported() {
			return false
		}
		for i := 0; i < x.TypeArgs().Len(); i++ {
			if !spellable(x.TypeArgs().At(i), pkg) {
				return false
			}
		}
		return true
	case *types.Alias:
		return spellable(types.Unalias(x), pkg)
	case *types.Pointer:
		return spellable(x.Elem(), pkg)
	case *types.Slice:
		return spellable(x.Elem(), pkg)
	case *types.Array:
		return spellable(x.Elem(), pkg)
	case *types.Map:
		return spellable(x.Key(), pkg) && spellable(x.Elem(), pkg)
	case *types.Chan:
		return spellable(x.Elem(), pkg)
	case *types.Signature:
		return spellable(x.Params(), pkg) && spellable(x.Results(), pkg)
	case *types.Tuple:
		// only as the parameters or results of a signature
		for i := 0; i < x.Len(); i++ {
			if !spellable(x.At(i).Type(), pkg) {
				return false
			}
		}
		return true
	case *types.Struct:
		for i := 0; i < x.NumFields(); i++ {
			f := x.Field(i)
			if pkg != nil && f.Pkg() != pkg && !f.Exported() {
				return false
			}
			if !spellable(f.Type(), pkg) {
				return false
			}
		}
		return true
	}
	return true
}

// funcTypes collects the types of the variables decl declares and of
// the fields it selects. temps are locals minted during lowering.
func funcTypes(info *types.Info, f *ast.File, decl *ast.FuncDecl, temps map[string]types.Type) *Types {
	if info == nil {
		return nil
	}
	t := &Types{
		vars:    make(map[string]types.Type),
		fields:  make(map[string]types.Type),
		imports: fileImports(info, f),
	}
	if obj, ok := info.Defs[decl.Name].(*types.Func); ok {
		t.pkg = obj.Pkg()
		if sig, ok := obj.Type().(*types.Signature); ok && sig.Results().Len() == 1 {
			t.result = sig.Results().At(0).Type()
		}
	}

	objs := make(map[string]types.Object)
	ast.Inspect(decl, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.Ident:
			v, ok := info.Defs[x].(*types.Var)
			if !ok || v.IsField() {
				return true
			}
			prev, seen := objs[x.Name]
			switch {
			case !seen:
				objs[x.Name] = v
				t.vars[x.Name] = v.Type()
			case prev != types.Object(v) && !types.Identical(prev.Type(), v.Type()):
				t.vars[x.Name] = nil
			}
		case *ast.SelectorExpr:
			owner, ok := x.X.(*ast.Ident)
			if !ok {
				return true
			}
			if sel, ok := info.Selections[x]; ok && sel.Kind() == types.FieldVal {
				key := owner.Name + "." + x.Sel.Name
				if prev, seen := t.fields[key]; seen && (prev == nil || !types.Identical(prev, sel.Type())) {
					t.fields[key] = nil
				} else if !seen {
					t.fields[key] = sel.Type()
				}
			}
		}
		return true
	})
	for name, typ := range temps {
		t.vars[name] = typ
	}
	return t
}

// fileImports maps the path of every package f imports to the name it
// is referred by.
func fileImports(info *types.Info, f *ast.File) map[string]string {
	out := make(map[string]string, len(f.Imports))
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		switch {
		case imp.Name != nil && imp.Name.Name == "_":
			continue
		case imp.Name != nil && imp.Name.Name == ".":
			out[p] = ""
		case imp.Name != nil:
			out[p] = imp.Name.Name
		default:
			if pn, ok := info.Implicits[imp].(*types.PkgName); ok {
				out[p] = pn.Name()
			} else {
				out[p] = importName(p)
			}
		}
	}
	return out
}

// zeroFor returns the zero value of typ as a literal, if it has one.
func zeroFor(typ types.Type) (tree.Expr, bool) {
	if _, isParam := typ.(*types.TypeParam); isParam {
		return nil, false
	}
	switch u := typ.Underlying().(type) {
	case *types.Basic:
		switch {
		case u.Info()&types.IsBoolean != 0:
			return tree.Bool(false), true
		case u.Info()&types.IsString != 0:
			return tree.Str(""), true
		case u.Info()&types.IsNumeric != 0:
			return tree.Int(0), true
		case u.Kind() == types.UnsafePointer:
			return tree.Nil(), true
		}
	case *types.Pointer, *types.Slice, *types.Map, *types.Chan, *types.Signature, *types.Interface:
		return tree.Nil(), true
	}
	return nil, false
}
