package tree

// Span is the source line range a statement was parsed from.
// The zero Span marks a synthesized node.
type Span struct {
	Start int
	End   int
}

// Valid reports whether the span carries position information.
func (s Span) Valid() bool {
	return s.Start > 0 && s.End >= s.Start
}

// Node is any node of the grammar. Nodes are immutable once built:
// rewriting produces new nodes, so pointer identity can be used to
// track where a node came from.
type Node interface {
	node()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmt()
	Position() Span
}

// Expr is an expression node.
type Expr interface {
	Node
	expr()
}

// FuncDef is the function under conversion.
type FuncDef struct {
	Name   string
	Params []string
	Body   []Stmt
	Pos    Span
}

func (*FuncDef) node() {}

// WithBody returns a copy of the definition with a new body.
func (f *FuncDef) WithBody(body []Stmt) *FuncDef {
	return &FuncDef{Name: f.Name, Params: f.Params, Body: body, Pos: f.Pos}
}

// Assign writes Value to Target. Target is a *Name or an *Attribute.
type Assign struct {
	Target Expr
	Value  Expr
	Pos    Span
}

// If is a conditional with optional elif clauses and else arm.
type If struct {
	Test  Expr
	Body  []Stmt
	Elifs []*ElifClause
	Else  []Stmt
	Pos   Span
}

// ElifClause is one `elif test { body }` arm of an If chain.
// Its span runs to the end of the whole chain.
type ElifClause struct {
	Test Expr
	Body []Stmt
	Pos  Span
}

func (*ElifClause) node() {}

// Return leaves the function. A nil Value is a bare return.
type Return struct {
	Value Expr
	Pos   Span
}

// ExprStmt evaluates an expression for its effect, usually a call.
type ExprStmt struct {
	X   Expr
	Pos Span
}

// Unsupported stands in for a construct the grammar cannot express
// (loops, exception handlers, nested definitions...). Conversion
// rejects any body that contains one.
type Unsupported struct {
	Construct string
	Pos       Span
}

func (*Assign) node()      {}
func (*If) node()          {}
func (*Return) node()      {}
func (*ExprStmt) node()    {}
func (*Unsupported) node() {}

func (*Assign) stmt()      {}
func (*If) stmt()          {}
func (*Return) stmt()      {}
func (*ExprStmt) stmt()    {}
func (*Unsupported) stmt() {}

func (s *Assign) Position() Span      { return s.Pos }
func (s *If) Position() Span          { return s.Pos }
func (s *Return) Position() Span      { return s.Pos }
func (s *ExprStmt) Position() Span    { return s.Pos }
func (s *Unsupported) Position() Span { return s.Pos }

// Name is a reference to an identifier.
type Name struct {
	ID string
}

// Attribute is `Value.Field`.
type Attribute struct {
	Value Expr
	Field string
}

// Literal is a constant.
type Literal struct {
	Value Value
}

// Ternary is the multiplexer `Test ? Body : OrElse`.
type Ternary struct {
	Test   Expr
	Body   Expr
	OrElse Expr
}

// BoolOpKind is a short-circuit boolean operator.
type BoolOpKind int

const (
	_ BoolOpKind = iota
	And
	Or
)

func (op BoolOpKind) String() string {
	switch op {
	case And:
		return "&&"
	case Or:
		return "||"
	default:
		return "?"
	}
}

// BoolOp is a short-circuit `Left op Right`.
type BoolOp struct {
	Op    BoolOpKind
	Left  Expr
	Right Expr
}

// BinaryOpKind is an arithmetic or comparison operator.
type BinaryOpKind int

const (
	_ BinaryOpKind = iota
	Add
	Sub
	Mul
	Div
	Mod
	Eq
	Neq
	Lt
	Lte
	Gt
	Gte
)

func (op BinaryOpKind) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Mod:
		return "%"
	case Eq:
		return "=="
	case Neq:
		return "!="
	case Lt:
		return "<"
	case Lte:
		return "<="
	case Gt:
		return ">"
	case Gte:
		return ">="
	default:
		return "?"
	}
}

// BinaryOp is `Left op Right`.
type BinaryOp struct {
	Op    BinaryOpKind
	Left  Expr
	Right Expr
}

// UnaryOpKind is a prefix operator.
type UnaryOpKind int

const (
	_ UnaryOpKind = iota
	Not
	Neg
)

func (op UnaryOpKind) String() string {
	switch op {
	case Not:
		return "!"
	case Neg:
		return "-"
	default:
		return "?"
	}
}

// UnaryOp is `op Operand`.
type UnaryOp struct {
	Op      UnaryOpKind
	Operand Expr
}

// Call is `Func(Args...)`.
type Call struct {
	Func Expr
	Args []Expr
}

func (*Name) node()      {}
func (*Attribute) node() {}
func (*Literal) node()   {}
func (*Ternary) node()   {}
func (*BoolOp) node()    {}
func (*BinaryOp) node()  {}
func (*UnaryOp) node()   {}
func (*Call) node()      {}

func (*Name) expr()      {}
func (*Attribute) expr() {}
func (*Literal) expr()   {}
func (*Ternary) expr()   {}
func (*BoolOp) expr()    {}
func (*BinaryOp) expr()  {}
func (*UnaryOp) expr()   {}
func (*Call) expr()      {}

// Helper constructors

// N creates a name reference.
func N(id string) *Name {
	return &Name{ID: id}
}

// Attr creates `owner.field` on a bare name.
func Attr(owner, field string) *Attribute {
	return &Attribute{Value: N(owner), Field: field}
}

// Int creates an integer literal.
func Int(v int64) *Literal {
	return &Literal{Value: IntValue{Val: v}}
}

// Bool creates a boolean literal.
func Bool(v bool) *Literal {
	return &Literal{Value: BoolValue{Val: v}}
}

// Str creates a string literal.
func Str(v string) *Literal {
	return &Literal{Value: StringValue{Val: v}}
}

// Nil creates the nil literal.
func Nil() *Literal {
	return &Literal{Value: NilValue{}}
}

// NotExpr negates e.
func NotExpr(e Expr) *UnaryOp {
	return &UnaryOp{Op: Not, Operand: e}
}

// AndExpr conjoins l and r.
func AndExpr(l, r Expr) *BoolOp {
	return &BoolOp{Op: And, Left: l, Right: r}
}

// OrExpr disjoins l and r.
func OrExpr(l, r Expr) *BoolOp {
	return &BoolOp{Op: Or, Left: l, Right: r}
}

// Bin creates a binary expression.
func Bin(op BinaryOpKind, l, r Expr) *BinaryOp {
	return &BinaryOp{Op: op, Left: l, Right: r}
}

// Mux creates a ternary expression.
func Mux(test, body, orElse Expr) *Ternary {
	return &Ternary{Test: test, Body: body, OrElse: orElse}
}

// CallOf creates a call to a named function.
func CallOf(fn string, args ...Expr) *Call {
	return &Call{Func: N(fn), Args: args}
}

// Set creates `name = value`.
func Set(name string, value Expr) *Assign {
	return &Assign{Target: N(name), Value: value}
}

// Ret creates a return statement.
func Ret(value Expr) *Return {
	return &Return{Value: value}
}

// IfElse creates an if statement without elif clauses.
func IfElse(test Expr, body, orElse []Stmt) *If {
	return &If{Test: test, Body: body, Else: orElse}
}

// Block is a convenience for building statement lists.
func Block(stmts ...Stmt) []Stmt {
	return stmts
}

// Func creates a function definition.
func Func(name string, params []string, body ...Stmt) *FuncDef {
	return &FuncDef{Name: name, Params: params, Body: body}
}
