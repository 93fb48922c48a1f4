package tree

// Children returns the direct child nodes of n in source order.
func Children(n Node) []Node {
	var out []Node
	add := func(c Node) {
		if !isNil(c) {
			out = append(out, c)
		}
	}
	switch x := n.(type) {
	case *FuncDef:
		for _, s := range x.Body {
			add(s)
		}
	case *Assign:
		add(x.Target)
		add(x.Value)
	case *If:
		add(x.Test)
		for _, s := range x.Body {
			add(s)
		}
		for _, e := range x.Elifs {
			add(e)
		}
		for _, s := range x.Else {
			add(s)
		}
	case *ElifClause:
		add(x.Test)
		for _, s := range x.Body {
			add(s)
		}
	case *Return:
		if x.Value != nil {
			add(x.Value)
		}
	case *ExprStmt:
		add(x.X)
	case *Attribute:
		add(x.Value)
	case *Ternary:
		add(x.Test)
		add(x.Body)
		add(x.OrElse)
	case *BoolOp:
		add(x.Left)
		add(x.Right)
	case *BinaryOp:
		add(x.Left)
		add(x.Right)
	case *UnaryOp:
		add(x.Operand)
	case *Call:
		add(x.Func)
		for _, a := range x.Args {
			add(a)
		}
	}
	return out
}

// Inspect traverses n in depth-first order. If f returns false the
// children of the current node are skipped.
func Inspect(n Node, f func(Node) bool) {
	if isNil(n) || !f(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, f)
	}
}

// InspectBlock runs Inspect over every statement of a block.
func InspectBlock(stmts []Stmt, f func(Node) bool) {
	for _, s := range stmts {
		Inspect(s, f)
	}
}

// UsedNames returns every identifier that appears in fn: its own name,
// its parameters and every Name node of the body.
func UsedNames(fn *FuncDef) map[string]struct{} {
	used := make(map[string]struct{})
	used[fn.Name] = struct{}{}
	for _, p := range fn.Params {
		used[p] = struct{}{}
	}
	Inspect(fn, func(n Node) bool {
		if name, ok := n.(*Name); ok {
			used[name.ID] = struct{}{}
		}
		return true
	})
	return used
}

// Positions maps every node reachable from fn to the span of the
// closest enclosing positioned node. Expressions inherit the span of
// their statement.
func Positions(fn *FuncDef) map[Node]Span {
	out := make(map[Node]Span)
	var walk func(n Node, enclosing Span)
	walk = func(n Node, enclosing Span) {
		span := enclosing
		switch x := n.(type) {
		case Stmt:
			if x.Position().Valid() {
				span = x.Position()
			}
		case *ElifClause:
			if x.Pos.Valid() {
				span = x.Pos
			}
		case *FuncDef:
			if x.Pos.Valid() {
				span = x.Pos
			}
		}
		out[n] = span
		for _, c := range Children(n) {
			walk(c, span)
		}
	}
	walk(fn, fn.Pos)
	return out
}

// AssignedNames returns the names bound by plain-name assignments in
// stmts, in order of first binding.
func AssignedNames(stmts []Stmt) []string {
	var out []string
	seen := make(map[string]bool)
	InspectBlock(stmts, func(n Node) bool {
		if a, ok := n.(*Assign); ok {
			if name, ok := a.Target.(*Name); ok && !seen[name.ID] {
				seen[name.ID] = true
				out = append(out, name.ID)
			}
		}
		return true
	})
	return out
}

// FindUnsupported returns the first Unsupported statement in stmts.
func FindUnsupported(stmts []Stmt) *Unsupported {
	var found *Unsupported
	InspectBlock(stmts, func(n Node) bool {
		if found != nil {
			return false
		}
		if u, ok := n.(*Unsupported); ok {
			found = u
			return false
		}
		return true
	})
	return found
}
