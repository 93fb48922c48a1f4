// Package render prints converted functions back as Go source.
//
// A converted body is straight-line code, so rendering is a direct
// mapping: the first write of a local becomes a declaration, a
// multiplexer becomes a call to a small generic helper, and locals that
// are never read get a `_ = name` so the result compiles.
package render

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"strconv"

	"github.com/gnolang/flatssa/internal/names"
	"github.com/gnolang/flatssa/internal/tree"
)

// DefaultHelper is the preferred name of the multiplexer helper.
const DefaultHelper = "mux"

// ErrNotFlat is returned for a body that still contains branches or
// unsupported statements.
var ErrNotFlat = errors.New("body is not straight-line code")

// HelperName returns DefaultHelper, or a numbered variant of it when the
// name is visible in env or used by any of fns.
func HelperName(env names.Env, fns ...*tree.FuncDef) string {
	g := names.NewGenerator(&tree.FuncDef{}, env)
	for _, fn := range fns {
		for n := range tree.UsedNames(fn) {
			g.Reserve(n)
		}
	}
	name, err := g.Fresh(DefaultHelper)
	if err != nil {
		return DefaultHelper
	}
	return name
}

// Renderer builds Go syntax for converted functions. It remembers
// whether any rendered body called the helper.
type Renderer struct {
	helper   string
	used     bool
	declared bool
}

// New creates a renderer that calls helper for multiplexers.
func New(helper string) *Renderer {
	if helper == "" {
		helper = DefaultHelper
	}
	return &Renderer{helper: helper}
}

// Helper returns the helper name.
func (r *Renderer) Helper() string { return r.helper }

// UsesHelper reports whether a rendered body referenced the helper.
func (r *Renderer) UsesHelper() bool { return r.used }

// Types resolves the Go types a rendered body has to spell out.
type Types interface {
	// Name returns the type of a local the body declares.
	Name(name string) (ast.Expr, error)
	// Result returns the type of the function's single result.
	Result() (ast.Expr, error)
	// Field returns the type of owner.field.
	Field(owner, field string) (ast.Expr, error)
}

// Body renders the body of a converted function. With typs every local
// is declared as `var name T = value` and multiplexers get an explicit
// type argument; without it locals are declared with `:=`.
func (r *Renderer) Body(fn *tree.FuncDef, typs Types) (*ast.BlockStmt, error) {
	declared := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		declared[p] = true
	}
	read := readNames(fn.Body)

	block := &ast.BlockStmt{}
	for _, s := range fn.Body {
		switch x := s.(type) {
		case *tree.Assign:
			stmt, decl, err := r.assign(x, typs, declared)
			if err != nil {
				return nil, err
			}
			block.List = append(block.List, stmt)
			if decl != "" && !read[decl] {
				block.List = append(block.List, &ast.AssignStmt{
					Lhs: []ast.Expr{ast.NewIdent("_")},
					Tok: token.ASSIGN,
					Rhs: []ast.Expr{ast.NewIdent(decl)},
				})
			}
		case *tree.ExprStmt:
			e, err := r.expr(x.X)
			if err != nil {
				return nil, err
			}
			block.List = append(block.List, &ast.ExprStmt{X: e})
		case *tree.Return:
			ret := &ast.ReturnStmt{}
			if x.Value != nil {
				var typ ast.Expr
				if _, mux := x.Value.(*tree.Ternary); mux && typs != nil {
					t, err := typs.Result()
					if err != nil {
						return nil, fmt.Errorf("cannot determine the result type of %s: %w", fn.Name, err)
					}
					typ = t
				}
				e, err := r.value(x.Value, typ)
				if err != nil {
					return nil, err
				}
				ret.Results = []ast.Expr{e}
			}
			block.List = append(block.List, ret)
		default:
			return nil, fmt.Errorf("%w: %T in %s", ErrNotFlat, s, fn.Name)
		}
	}
	return block, nil
}

// assign renders one assignment. The first write of a local declares
// it; the declared name is returned.
func (r *Renderer) assign(x *tree.Assign, typs Types, declared map[string]bool) (ast.Stmt, string, error) {
	var typ ast.Expr
	switch t := x.Target.(type) {
	case *tree.Name:
		if typs != nil && !declared[t.ID] {
			var err error
			if typ, err = typs.Name(t.ID); err != nil {
				return nil, "", fmt.Errorf("cannot determine the type of %s: %w", t.ID, err)
			}
		}
	case *tree.Attribute:
		owner, isName := t.Value.(*tree.Name)
		if typs != nil && isName {
			// inference picks the type when the field's is unknown
			typ, _ = typs.Field(owner.ID, t.Field)
		}
	}

	value, err := r.value(x.Value, typ)
	if err != nil {
		return nil, "", err
	}
	target, err := r.expr(x.Target)
	if err != nil {
		return nil, "", err
	}
	name, isName := x.Target.(*tree.Name)
	if !isName || declared[name.ID] {
		return &ast.AssignStmt{Lhs: []ast.Expr{target}, Tok: token.ASSIGN, Rhs: []ast.Expr{value}}, "", nil
	}
	declared[name.ID] = true
	if typ == nil {
		return &ast.AssignStmt{Lhs: []ast.Expr{target}, Tok: token.DEFINE, Rhs: []ast.Expr{value}}, name.ID, nil
	}
	return &ast.DeclStmt{Decl: &ast.GenDecl{
		Tok: token.VAR,
		Specs: []ast.Spec{&ast.ValueSpec{
			Names:  []*ast.Ident{ast.NewIdent(name.ID)},
			Type:   typ,
			Values: []ast.Expr{value},
		}},
	}}, name.ID, nil
}

// value renders e as a value of type typ. Multiplexers take typ as an
// explicit type argument, so untyped constants in both arms convert to
// it instead of their default type.
func (r *Renderer) value(e tree.Expr, typ ast.Expr) (ast.Expr, error) {
	x, ok := e.(*tree.Ternary)
	if !ok || typ == nil {
		return r.expr(e)
	}
	test, err := r.expr(x.Test)
	if err != nil {
		return nil, err
	}
	body, err := r.value(x.Body, typ)
	if err != nil {
		return nil, err
	}
	orElse, err := r.value(x.OrElse, typ)
	if err != nil {
		return nil, err
	}
	r.used = true
	return &ast.CallExpr{
		Fun:  &ast.IndexExpr{X: ast.NewIdent(r.helper), Index: typ},
		Args: []ast.Expr{test, body, orElse},
	}, nil
}

func readNames(stmts []tree.Stmt) map[string]bool {
	read := make(map[string]bool)
	mark := func(n tree.Node) {
		tree.Inspect(n, func(c tree.Node) bool {
			if name, ok := c.(*tree.Name); ok {
				read[name.ID] = true
			}
			return true
		})
	}
	for _, s := range stmts {
		if a, ok := s.(*tree.Assign); ok {
			mark(a.Value)
			if attr, ok := a.Target.(*tree.Attribute); ok {
				mark(attr.Value)
			}
			continue
		}
		mark(s)
	}
	return read
}

var binaryTokens = map[tree.BinaryOpKind]token.Token{
	tree.Add: token.ADD,
	tree.Sub: token.SUB,
	tree.Mul: token.MUL,
	tree.Div: token.QUO,
	tree.Mod: token.REM,
	tree.Eq:  token.EQL,
	tree.Neq: token.NEQ,
	tree.Lt:  token.LSS,
	tree.Lte: token.LEQ,
	tree.Gt:  token.GTR,
	tree.Gte: token.GEQ,
}

func (r *Renderer) expr(e tree.Expr) (ast.Expr, error) {
	switch x := e.(type) {
	case *tree.Name:
		return ast.NewIdent(x.ID), nil

	case *tree.Attribute:
		owner, err := r.expr(x.Value)
		if err != nil {
			return nil, err
		}
		return &ast.SelectorExpr{X: owner, Sel: ast.NewIdent(x.Field)}, nil

	case *tree.Literal:
		return literal(x.Value)

	case *tree.Ternary:
		args, err := r.exprs(x.Test, x.Body, x.OrElse)
		if err != nil {
			return nil, err
		}
		r.used = true
		return &ast.CallExpr{Fun: ast.NewIdent(r.helper), Args: args}, nil

	case *tree.BoolOp:
		op := token.LAND
		if x.Op == tree.Or {
			op = token.LOR
		}
		return r.binary(op, x.Left, x.Right)

	case *tree.BinaryOp:
		op, ok := binaryTokens[x.Op]
		if !ok {
			return nil, fmt.Errorf("unknown operator %s", x.Op)
		}
		return r.binary(op, x.Left, x.Right)

	case *tree.UnaryOp:
		operand, err := r.expr(x.Operand)
		if err != nil {
			return nil, err
		}
		op := token.NOT
		if x.Op == tree.Neg {
			op = token.SUB
		}
		return &ast.UnaryExpr{Op: op, X: paren(operand, token.UnaryPrec)}, nil

	case *tree.Call:
		fn, err := r.expr(x.Func)
		if err != nil {
			return nil, err
		}
		args, err := r.exprs(x.Args...)
		if err != nil {
			return nil, err
		}
		return &ast.CallExpr{Fun: paren(fn, token.HighestPrec), Args: args}, nil
	}
	return nil, fmt.Errorf("cannot render %T", e)
}

func (r *Renderer) exprs(es ...tree.Expr) ([]ast.Expr, error) {
	out := make([]ast.Expr, len(es))
	for i, e := range es {
		v, err := r.expr(e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// binary builds `l op r`. Operators are left associative, so the right
// operand needs parentheses at equal precedence too.
func (r *Renderer) binary(op token.Token, l, rt tree.Expr) (ast.Expr, error) {
	left, err := r.expr(l)
	if err != nil {
		return nil, err
	}
	right, err := r.expr(rt)
	if err != nil {
		return nil, err
	}
	prec := op.Precedence()
	return &ast.BinaryExpr{X: paren(left, prec), Op: op, Y: paren(right, prec+1)}, nil
}

func precedence(e ast.Expr) int {
	switch x := e.(type) {
	case *ast.BinaryExpr:
		return x.Op.Precedence()
	case *ast.UnaryExpr:
		return token.UnaryPrec
	}
	return token.HighestPrec
}

func paren(e ast.Expr, min int) ast.Expr {
	if precedence(e) < min {
		return &ast.ParenExpr{X: e}
	}
	return e
}

func literal(v tree.Value) (ast.Expr, error) {
	switch x := v.(type) {
	case tree.IntValue:
		if x.Val < 0 {
			return &ast.UnaryExpr{Op: token.SUB, X: &ast.BasicLit{Kind: token.INT, Value: strconv.FormatUint(uint64(-x.Val), 10)}}, nil
		}
		return &ast.BasicLit{Kind: token.INT, Value: strconv.FormatInt(x.Val, 10)}, nil
	case tree.BoolValue:
		return ast.NewIdent(strconv.FormatBool(x.Val)), nil
	case tree.StringValue:
		return &ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(x.Val)}, nil
	case tree.NilValue:
		return ast.NewIdent("nil"), nil
	}
	return nil, fmt.Errorf("cannot render literal %T", v)
}
