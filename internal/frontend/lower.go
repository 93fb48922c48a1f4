package frontend

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"strconv"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/gnolang/flatssa/internal/names"
	"github.com/gnolang/flatssa/internal/tree"
)

// unsupportedExpr aborts lowering of the enclosing statement.
type unsupportedExpr struct {
	construct string
}

func (e *unsupportedExpr) Error() string { return "unsupported expression: " + e.construct }

type lowerer struct {
	fset    *token.FileSet
	globals names.Env
	locals  map[string]bool

	// set when the file was type-checked
	info  *types.Info
	objs  map[string]types.Object
	temps map[string]types.Type
	gen   *names.Generator
}

func (l *lowerer) span(n ast.Node) tree.Span {
	return tree.Span{
		Start: l.fset.Position(n.Pos()).Line,
		End:   l.fset.Position(n.End()).Line,
	}
}

func (l *lowerer) unsupported(construct string, n ast.Node) tree.Stmt {
	return &tree.Unsupported{Construct: construct, Pos: l.span(n)}
}

// Lower converts a function declaration to the tree grammar. A named
// receiver becomes the first parameter. Statements the grammar cannot
// express are kept as Unsupported nodes so conversion reports them, as
// are writes to package-level names found in globals.
func Lower(fset *token.FileSet, decl *ast.FuncDecl, globals names.Env) *tree.FuncDef {
	fn, _ := lower(fset, decl, globals, nil)
	return fn
}

// lower is Lower with optional type information. With it, `var x T`
// gets the zero value of T and shadowed declarations are rejected. It
// also returns the types of the locals lowering introduced.
func lower(fset *token.FileSet, decl *ast.FuncDecl, globals names.Env, info *types.Info) (*tree.FuncDef, map[string]types.Type) {
	if globals == nil {
		globals = names.Empty
	}
	l := &lowerer{
		fset:    fset,
		globals: globals,
		locals:  make(map[string]bool),
		info:    info,
		objs:    make(map[string]types.Object),
		temps:   make(map[string]types.Type),
		gen:     names.NewGenerator(&tree.FuncDef{}, globals),
	}
	fn := &tree.FuncDef{Name: decl.Name.Name, Pos: l.span(decl)}

	ast.Inspect(decl, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok {
			l.gen.Reserve(id.Name)
		}
		return true
	})
	if decl.Recv != nil {
		fn.Params = append(fn.Params, fieldNames(decl.Recv, "_recv")...)
		l.declareFields(decl.Recv)
	}
	fn.Params = append(fn.Params, fieldNames(decl.Type.Params, "_p")...)
	l.declareFields(decl.Type.Params)
	for _, p := range fn.Params {
		l.locals[p] = true
	}
	if decl.Body != nil {
		l.collectLocals(decl.Body)
		fn.Body = l.block(decl.Body.List)
	}
	return fn, l.temps
}

func (l *lowerer) declareFields(fields *ast.FieldList) {
	if l.info == nil || fields == nil {
		return
	}
	for _, f := range fields.List {
		for _, id := range f.Names {
			if obj := l.info.Defs[id]; obj != nil {
				l.objs[id.Name] = obj
			}
		}
	}
}

// declare records the variable id declares. Lowering ignores scopes, so
// a declaration shadowing another one of the same name, or reusing the
// name with another type, cannot be expressed.
func (l *lowerer) declare(id *ast.Ident) error {
	if l.info == nil {
		return nil
	}
	obj := l.info.Defs[id]
	if obj == nil {
		return nil
	}
	prev, ok := l.objs[id.Name]
	if !ok || prev == obj {
		l.objs[id.Name] = obj
		return nil
	}
	if encloses(prev.Parent(), obj.Parent()) || encloses(obj.Parent(), prev.Parent()) {
		return &unsupportedExpr{"shadowed declaration of " + id.Name}
	}
	if !types.Identical(prev.Type(), obj.Type()) {
		return &unsupportedExpr{"redeclaration of " + id.Name + " with another type"}
	}
	return nil
}

func encloses(outer, inner *types.Scope) bool {
	if outer == nil {
		return false
	}
	for s := inner; s != nil; s = s.Parent() {
		if s == outer {
			return true
		}
	}
	return false
}

// collectLocals records every name the body declares, wherever it is
// declared. Scoping is ignored: a name declared anywhere in the body is
// never treated as package-level.
func (l *lowerer) collectLocals(body *ast.BlockStmt) {
	ast.Inspect(body, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.AssignStmt:
			if x.Tok == token.DEFINE {
				for _, lhs := range x.Lhs {
					if id, ok := lhs.(*ast.Ident); ok {
						l.locals[id.Name] = true
					}
				}
			}
		case *ast.ValueSpec:
			for _, id := range x.Names {
				l.locals[id.Name] = true
			}
		}
		return true
	})
}

func fieldNames(fields *ast.FieldList, anon string) []string {
	var out []string
	if fields == nil {
		return out
	}
	for _, f := range fields.List {
		if len(f.Names) == 0 {
			out = append(out, anon+strconv.Itoa(len(out)))
			continue
		}
		for _, n := range f.Names {
			out = append(out, n.Name)
		}
	}
	return out
}

func (l *lowerer) block(stmts []ast.Stmt) []tree.Stmt {
	var out []tree.Stmt
	for _, s := range stmts {
		out = append(out, l.stmt(s)...)
	}
	return out
}

func (l *lowerer) stmt(s ast.Stmt) []tree.Stmt {
	out, err := l.lowerStmt(s)
	if err != nil {
		construct := err.Error()
		var u *unsupportedExpr
		if errors.As(err, &u) {
			construct = u.construct
		}
		return []tree.Stmt{l.unsupported(construct, s)}
	}
	return out
}

func (l *lowerer) lowerStmt(s ast.Stmt) ([]tree.Stmt, error) {
	switch x := s.(type) {
	case *ast.AssignStmt:
		return l.assign(x)

	case *ast.IncDecStmt:
		target, err := l.target(x.X)
		if err != nil {
			return nil, err
		}
		// the read gets its own node: a node is never shared
		read, _ := l.target(x.X)
		op := tree.Add
		if x.Tok == token.DEC {
			op = tree.Sub
		}
		return []tree.Stmt{&tree.Assign{Target: target, Value: tree.Bin(op, read, tree.Int(1)), Pos: l.span(x)}}, nil

	case *ast.DeclStmt:
		return l.decl(x)

	case *ast.ExprStmt:
		e, err := l.expr(x.X)
		if err != nil {
			return nil, err
		}
		return []tree.Stmt{&tree.ExprStmt{X: e, Pos: l.span(x)}}, nil

	case *ast.ReturnStmt:
		switch len(x.Results) {
		case 0:
			return []tree.Stmt{&tree.Return{Pos: l.span(x)}}, nil
		case 1:
			e, err := l.expr(x.Results[0])
			if err != nil {
				return nil, err
			}
			return []tree.Stmt{&tree.Return{Value: e, Pos: l.span(x)}}, nil
		}
		return nil, &unsupportedExpr{"multiple return values"}

	case *ast.IfStmt:
		n, err := l.ifStmt(x)
		if err != nil {
			return nil, err
		}
		return []tree.Stmt{n}, nil

	case *ast.SwitchStmt:
		return l.switchStmt(x)

	case *ast.BlockStmt:
		return l.block(x.List), nil

	case *ast.EmptyStmt:
		return nil, nil

	case *ast.ForStmt, *ast.RangeStmt:
		return nil, &unsupportedExpr{"loop"}
	case *ast.GoStmt:
		return nil, &unsupportedExpr{"go statement"}
	case *ast.DeferStmt:
		return nil, &unsupportedExpr{"defer statement"}
	case *ast.SelectStmt:
		return nil, &unsupportedExpr{"select statement"}
	case *ast.TypeSwitchStmt:
		return nil, &unsupportedExpr{"type switch"}
	case *ast.BranchStmt:
		return nil, &unsupportedExpr{x.Tok.String() + " statement"}
	case *ast.LabeledStmt:
		return nil, &unsupportedExpr{"labeled statement"}
	case *ast.SendStmt:
		return nil, &unsupportedExpr{"channel send"}
	}
	return nil, &unsupportedExpr{fmt.Sprintf("%T", s)}
}

var assignOps = map[token.Token]tree.BinaryOpKind{
	token.ADD_ASSIGN: tree.Add,
	token.SUB_ASSIGN: tree.Sub,
	token.MUL_ASSIGN: tree.Mul,
	token.QUO_ASSIGN: tree.Div,
	token.REM_ASSIGN: tree.Mod,
}

func (l *lowerer) assign(x *ast.AssignStmt) ([]tree.Stmt, error) {
	if len(x.Lhs) != 1 || len(x.Rhs) != 1 {
		return nil, &unsupportedExpr{"multiple assignment"}
	}
	value, err := l.expr(x.Rhs[0])
	if err != nil {
		return nil, err
	}
	if id, ok := x.Lhs[0].(*ast.Ident); ok && id.Name == "_" {
		return []tree.Stmt{&tree.ExprStmt{X: value, Pos: l.span(x)}}, nil
	}
	if id, ok := x.Lhs[0].(*ast.Ident); ok && x.Tok == token.DEFINE {
		if err := l.declare(id); err != nil {
			return nil, err
		}
	}
	target, err := l.target(x.Lhs[0])
	if err != nil {
		return nil, err
	}

	switch x.Tok {
	case token.ASSIGN, token.DEFINE:
	default:
		op, ok := assignOps[x.Tok]
		if !ok {
			return nil, &unsupportedExpr{"assignment operator " + x.Tok.String()}
		}
		read, _ := l.target(x.Lhs[0])
		value = tree.Bin(op, read, value)
	}
	return []tree.Stmt{&tree.Assign{Target: target, Value: value, Pos: l.span(x)}}, nil
}

func (l *lowerer) target(e ast.Expr) (tree.Expr, error) {
	switch x := astutil.Unparen(e).(type) {
	case *ast.Ident:
		if !l.locals[x.Name] && l.globals.Has(x.Name) {
			return nil, &unsupportedExpr{"assignment to package-level " + x.Name}
		}
		return tree.N(x.Name), nil
	case *ast.SelectorExpr:
		owner, err := l.expr(x.X)
		if err != nil {
			return nil, err
		}
		return &tree.Attribute{Value: owner, Field: x.Sel.Name}, nil
	case *ast.IndexExpr:
		return nil, &unsupportedExpr{"index assignment"}
	case *ast.StarExpr:
		return nil, &unsupportedExpr{"pointer assignment"}
	}
	return nil, &unsupportedExpr{fmt.Sprintf("assignment to %T", e)}
}

// decl lowers `var x = e` and `var x T`. A declaration without a value
// assigns the zero value of a basic type.
func (l *lowerer) decl(x *ast.DeclStmt) ([]tree.Stmt, error) {
	gen, ok := x.Decl.(*ast.GenDecl)
	if !ok || gen.Tok != token.VAR {
		if ok && (gen.Tok == token.CONST || gen.Tok == token.TYPE) {
			return nil, &unsupportedExpr{"local " + gen.Tok.String() + " declaration"}
		}
		return nil, &unsupportedExpr{"declaration"}
	}

	var out []tree.Stmt
	for _, spec := range gen.Specs {
		vs := spec.(*ast.ValueSpec)
		if len(vs.Values) != 0 && len(vs.Values) != len(vs.Names) {
			return nil, &unsupportedExpr{"multiple assignment"}
		}
		for i, name := range vs.Names {
			var value tree.Expr
			if len(vs.Values) > 0 {
				v, err := l.expr(vs.Values[i])
				if err != nil {
					return nil, err
				}
				value = v
			} else {
				v, err := l.zero(name, vs.Type)
				if err != nil {
					return nil, err
				}
				value = v
			}
			if name.Name == "_" {
				out = append(out, &tree.ExprStmt{X: value, Pos: l.span(vs)})
				continue
			}
			if err := l.declare(name); err != nil {
				return nil, err
			}
			out = append(out, &tree.Assign{Target: tree.N(name.Name), Value: value, Pos: l.span(vs)})
		}
	}
	return out, nil
}

// zero returns the value of `var name T`.
func (l *lowerer) zero(name *ast.Ident, typ ast.Expr) (tree.Expr, error) {
	if l.info == nil {
		return zeroValue(typ), nil
	}
	obj := l.info.Defs[name]
	if obj == nil || !valid(obj.Type()) {
		return zeroValue(typ), nil
	}
	v, ok := zeroFor(obj.Type())
	if !ok {
		return nil, &unsupportedExpr{"zero value of " + obj.Type().String()}
	}
	return v, nil
}

func zeroValue(typ ast.Expr) tree.Expr {
	id, ok := typ.(*ast.Ident)
	if !ok {
		return tree.Nil()
	}
	switch id.Name {
	case "bool":
		return tree.Bool(false)
	case "string":
		return tree.Str("")
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64", "uintptr",
		"byte", "rune", "float32", "float64", "complex64", "complex128":
		return tree.Int(0)
	}
	return tree.Nil()
}

func (l *lowerer) ifStmt(x *ast.IfStmt) (*tree.If, error) {
	if x.Init != nil {
		return nil, &unsupportedExpr{"if with init statement"}
	}
	test, err := l.expr(x.Cond)
	if err != nil {
		return nil, err
	}
	n := &tree.If{Test: test, Body: l.block(x.Body.List), Pos: l.span(x)}

	// else-if chains become elif clauses
	next := x.Else
	for next != nil {
		switch e := next.(type) {
		case *ast.BlockStmt:
			n.Else = l.block(e.List)
			next = nil
		case *ast.IfStmt:
			if e.Init != nil {
				return nil, &unsupportedExpr{"if with init statement"}
			}
			test, err := l.expr(e.Cond)
			if err != nil {
				return nil, err
			}
			n.Elifs = append(n.Elifs, &tree.ElifClause{Test: test, Body: l.block(e.Body.List), Pos: l.span(e)})
			next = e.Else
		default:
			return nil, &unsupportedExpr{fmt.Sprintf("else %T", next)}
		}
	}
	return n, nil
}

// switchStmt lowers an expression switch to an if/elif chain. Each case
// tests its expressions in order; the default clause becomes the else
// arm wherever it appears. A tag other than a name or literal is bound
// to a fresh local first, so it is evaluated once.
func (l *lowerer) switchStmt(x *ast.SwitchStmt) ([]tree.Stmt, error) {
	if x.Init != nil {
		return nil, &unsupportedExpr{"switch with init statement"}
	}
	var (
		pre []tree.Stmt
		tag func() tree.Expr
	)
	if x.Tag != nil {
		value, err := l.expr(x.Tag)
		if err != nil {
			return nil, err
		}
		switch astutil.Unparen(x.Tag).(type) {
		case *ast.Ident, *ast.BasicLit:
			// each comparison reads the tag through its own node
			tag = func() tree.Expr { v, _ := l.expr(x.Tag); return v }
		default:
			name, err := l.gen.FreeName("_tag_")
			if err != nil {
				return nil, err
			}
			l.locals[name] = true
			if l.info != nil {
				if t := l.info.TypeOf(x.Tag); t != nil {
					l.temps[name] = types.Default(t)
				}
			}
			pre = append(pre, &tree.Assign{Target: tree.N(name), Value: value, Pos: l.span(x)})
			tag = func() tree.Expr { return tree.N(name) }
		}
	}

	var (
		n        *tree.If
		dflt     []tree.Stmt
		hasDflt  bool
		brokeOut bool
	)
	for _, s := range x.Body.List {
		cc := s.(*ast.CaseClause)
		ast.Inspect(cc, func(node ast.Node) bool {
			switch b := node.(type) {
			case *ast.BranchStmt:
				if b.Tok == token.FALLTHROUGH || b.Tok == token.BREAK {
					brokeOut = true
				}
			case *ast.FuncLit, *ast.ForStmt, *ast.RangeStmt, *ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
				// a break in here belongs to the inner statement
				return false
			}
			return true
		})
		if brokeOut {
			return nil, &unsupportedExpr{"switch with break or fallthrough"}
		}

		body := l.block(cc.Body)
		if cc.List == nil {
			dflt, hasDflt = body, true
			continue
		}
		var test tree.Expr
		for _, e := range cc.List {
			v, err := l.expr(e)
			if err != nil {
				return nil, err
			}
			if tag != nil {
				v = tree.Bin(tree.Eq, tag(), v)
			}
			if test == nil {
				test = v
			} else {
				test = tree.OrExpr(test, v)
			}
		}
		if n == nil {
			n = &tree.If{Test: test, Body: body, Pos: l.span(x)}
			continue
		}
		n.Elifs = append(n.Elifs, &tree.ElifClause{Test: test, Body: body, Pos: l.span(cc)})
	}

	if n == nil {
		if !hasDflt {
			return nil, &unsupportedExpr{"empty switch"}
		}
		// only a default clause: it always runs
		n = &tree.If{Test: tree.Bool(true), Body: dflt, Pos: l.span(x)}
		return append(pre, n), nil
	}
	n.Else = dflt
	return append(pre, n), nil
}

var binaryOps = map[token.Token]tree.BinaryOpKind{
	token.ADD: tree.Add,
	token.SUB: tree.Sub,
	token.MUL: tree.Mul,
	token.QUO: tree.Div,
	token.REM: tree.Mod,
	token.EQL: tree.Eq,
	token.NEQ: tree.Neq,
	token.LSS: tree.Lt,
	token.LEQ: tree.Lte,
	token.GTR: tree.Gt,
	token.GEQ: tree.Gte,
}

func (l *lowerer) expr(e ast.Expr) (tree.Expr, error) {
	switch x := astutil.Unparen(e).(type) {
	case *ast.Ident:
		switch x.Name {
		case "true":
			return tree.Bool(true), nil
		case "false":
			return tree.Bool(false), nil
		case "nil":
			return tree.Nil(), nil
		}
		return tree.N(x.Name), nil

	case *ast.BasicLit:
		switch x.Kind {
		case token.INT:
			v, err := strconv.ParseInt(x.Value, 0, 64)
			if err != nil {
				return nil, &unsupportedExpr{"integer literal " + x.Value}
			}
			return tree.Int(v), nil
		case token.STRING:
			v, err := strconv.Unquote(x.Value)
			if err != nil {
				return nil, &unsupportedExpr{"string literal " + x.Value}
			}
			return tree.Str(v), nil
		}
		return nil, &unsupportedExpr{x.Kind.String() + " literal"}

	case *ast.SelectorExpr:
		owner, err := l.expr(x.X)
		if err != nil {
			return nil, err
		}
		return &tree.Attribute{Value: owner, Field: x.Sel.Name}, nil

	case *ast.CallExpr:
		if x.Ellipsis.IsValid() {
			return nil, &unsupportedExpr{"variadic call"}
		}
		fn, err := l.expr(x.Fun)
		if err != nil {
			return nil, err
		}
		call := &tree.Call{Func: fn}
		for _, a := range x.Args {
			v, err := l.expr(a)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, v)
		}
		return call, nil

	case *ast.UnaryExpr:
		operand, err := l.expr(x.X)
		if err != nil {
			return nil, err
		}
		switch x.Op {
		case token.NOT:
			return tree.NotExpr(operand), nil
		case token.SUB:
			return &tree.UnaryOp{Op: tree.Neg, Operand: operand}, nil
		case token.ADD:
			return operand, nil
		}
		return nil, &unsupportedExpr{"unary " + x.Op.String()}

	case *ast.BinaryExpr:
		left, err := l.expr(x.X)
		if err != nil {
			return nil, err
		}
		right, err := l.expr(x.Y)
		if err != nil {
			return nil, err
		}
		switch x.Op {
		case token.LAND:
			return tree.AndExpr(left, right), nil
		case token.LOR:
			return tree.OrExpr(left, right), nil
		}
		op, ok := binaryOps[x.Op]
		if !ok {
			return nil, &unsupportedExpr{"operator " + x.Op.String()}
		}
		return tree.Bin(op, left, right), nil

	case *ast.FuncLit:
		return nil, &unsupportedExpr{"function literal"}
	case *ast.CompositeLit:
		return nil, &unsupportedExpr{"composite literal"}
	case *ast.IndexExpr, *ast.IndexListExpr:
		return nil, &unsupportedExpr{"index expression"}
	case *ast.SliceExpr:
		return nil, &unsupportedExpr{"slice expression"}
	case *ast.StarExpr:
		return nil, &unsupportedExpr{"pointer dereference"}
	case *ast.TypeAssertExpr:
		return nil, &unsupportedExpr{"type assertion"}
	}
	return nil, &unsupportedExpr{fmt.Sprintf("%T", e)}
}
