package tree

import (
	"strings"
)

// Format renders a node as readable pseudo-source. Multiplexers print
// as `test ? body : orelse`; operators are parenthesized only where
// precedence requires it.
func Format(n Node) string {
	var p printer
	switch x := n.(type) {
	case Expr:
		return formatExpr(x, 0)
	case *FuncDef:
		p.funcDef(x)
	case *ElifClause:
		p.line("elif " + formatExpr(x.Test, 0) + " {")
		p.block(x.Body)
		p.line("}")
	case Stmt:
		p.stmt(x)
	}
	return strings.TrimSuffix(p.sb.String(), "\n")
}

// FormatBlock renders a statement list.
func FormatBlock(stmts []Stmt) string {
	var p printer
	for _, s := range stmts {
		p.stmt(s)
	}
	return strings.TrimSuffix(p.sb.String(), "\n")
}

type printer struct {
	sb     strings.Builder
	indent int
}

func (p *printer) line(s string) {
	p.sb.WriteString(strings.Repeat("\t", p.indent))
	p.sb.WriteString(s)
	p.sb.WriteByte('\n')
}

func (p *printer) block(stmts []Stmt) {
	p.indent++
	for _, s := range stmts {
		p.stmt(s)
	}
	p.indent--
}

func (p *printer) funcDef(f *FuncDef) {
	p.line("func " + f.Name + "(" + strings.Join(f.Params, ", ") + ") {")
	p.block(f.Body)
	p.line("}")
}

func (p *printer) stmt(s Stmt) {
	switch x := s.(type) {
	case *Assign:
		p.line(formatExpr(x.Target, 0) + " = " + formatExpr(x.Value, 0))
	case *Return:
		if x.Value == nil {
			p.line("return")
			return
		}
		p.line("return " + formatExpr(x.Value, 0))
	case *ExprStmt:
		p.line(formatExpr(x.X, 0))
	case *Unsupported:
		p.line("<unsupported " + x.Construct + ">")
	case *If:
		p.line("if " + formatExpr(x.Test, 0) + " {")
		p.block(x.Body)
		for _, e := range x.Elifs {
			p.line("} elif " + formatExpr(e.Test, 0) + " {")
			p.block(e.Body)
		}
		if len(x.Else) > 0 {
			p.line("} else {")
			p.block(x.Else)
		}
		p.line("}")
	}
}

// binding strength, loosest first
const (
	precTernary = iota + 1
	precOr
	precAnd
	precCompare
	precAdd
	precMul
	precUnary
	precAtom
)

func precedence(e Expr) int {
	switch x := e.(type) {
	case *Ternary:
		return precTernary
	case *BoolOp:
		if x.Op == Or {
			return precOr
		}
		return precAnd
	case *BinaryOp:
		switch x.Op {
		case Add, Sub:
			return precAdd
		case Mul, Div, Mod:
			return precMul
		default:
			return precCompare
		}
	case *UnaryOp:
		return precUnary
	}
	return precAtom
}

// formatExpr renders e, wrapping it in parentheses when it binds
// looser than min.
func formatExpr(e Expr, min int) string {
	if isNil(e) {
		return "<nil>"
	}
	s := exprString(e)
	if precedence(e) < min {
		return "(" + s + ")"
	}
	return s
}

func exprString(e Expr) string {
	switch x := e.(type) {
	case *Name:
		return x.ID
	case *Attribute:
		return formatExpr(x.Value, precAtom) + "." + x.Field
	case *Literal:
		return x.Value.String()
	case *Ternary:
		return formatExpr(x.Test, precOr) + " ? " + formatExpr(x.Body, precOr) + " : " + formatExpr(x.OrElse, precTernary)
	case *BoolOp:
		prec := precedence(x)
		return formatExpr(x.Left, prec) + " " + x.Op.String() + " " + formatExpr(x.Right, prec+1)
	case *BinaryOp:
		prec := precedence(x)
		return formatExpr(x.Left, prec) + " " + x.Op.String() + " " + formatExpr(x.Right, prec+1)
	case *UnaryOp:
		return x.Op.String() + formatExpr(x.Operand, precUnary)
	case *Call:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = formatExpr(a, 0)
		}
		return formatExpr(x.Func, precAtom) + "(" + strings.Join(args, ", ") + ")"
	}
	return "?"
}
