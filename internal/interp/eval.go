package interp

import (
	"errors"
	"fmt"

	"github.com/gnolang/flatssa/internal/tree"
)

var (
	ErrUndefined   = errors.New("undefined name")
	ErrType        = errors.New("type error")
	ErrDivision    = errors.New("division by zero")
	ErrNoField     = errors.New("no such field")
	ErrNotCallable = errors.New("not callable")
	ErrArity       = errors.New("wrong number of arguments")
	ErrUnsupported = errors.New("unsupported construct")
)

// CallRecord is a builtin call made during evaluation.
type CallRecord struct {
	Func string
	Args []Value
}

func (c CallRecord) String() string {
	out := c.Func + "("
	for i, a := range c.Args {
		if i > 0 {
			out += ", "
		}
		out += a.String()
	}
	return out + ")"
}

// Result is the outcome of calling a function.
type Result struct {
	Value Value
	Calls []CallRecord
	// Effects are the calls made by expression statements, the only
	// calls whose result is dropped.
	Effects []CallRecord
}

// Evaluator runs functions against a global scope.
type Evaluator struct {
	globals *Env
	calls   []CallRecord
	effects []CallRecord
}

// NewEvaluator creates an evaluator. A nil globals means no globals.
func NewEvaluator(globals *Env) *Evaluator {
	if globals == nil {
		globals = NewEnv()
	}
	return &Evaluator{globals: globals}
}

// Call runs fn with args bound to its parameters.
func (ev *Evaluator) Call(fn *tree.FuncDef, args []Value) (Result, error) {
	if len(args) != len(fn.Params) {
		return Result{}, fmt.Errorf("%w: %s takes %d, got %d", ErrArity, fn.Name, len(fn.Params), len(args))
	}
	ev.calls, ev.effects = nil, nil
	locals := NewChildEnv(ev.globals)
	for i, p := range fn.Params {
		locals.Set(p, args[i])
	}

	returned, v, err := ev.block(fn.Body, locals)
	if err != nil {
		return Result{Calls: ev.calls, Effects: ev.effects}, fmt.Errorf("%s: %w", fn.Name, err)
	}
	if !returned {
		v = tree.NilValue{}
	}
	return Result{Value: v, Calls: ev.calls, Effects: ev.effects}, nil
}

// Call is a shorthand for NewEvaluator(globals).Call(fn, args).
func Call(fn *tree.FuncDef, globals *Env, args ...Value) (Result, error) {
	return NewEvaluator(globals).Call(fn, args)
}

func (ev *Evaluator) block(stmts []tree.Stmt, env *Env) (bool, Value, error) {
	for _, s := range stmts {
		returned, v, err := ev.stmt(s, env)
		if err != nil || returned {
			return returned, v, err
		}
	}
	return false, nil, nil
}

func (ev *Evaluator) stmt(s tree.Stmt, env *Env) (bool, Value, error) {
	switch x := s.(type) {
	case *tree.Assign:
		v, err := ev.Eval(x.Value, env)
		if err != nil {
			return false, nil, err
		}
		return false, nil, ev.store(x.Target, v, env)

	case *tree.ExprStmt:
		before := len(ev.calls)
		_, err := ev.Eval(x.X, env)
		ev.effects = append(ev.effects, ev.calls[before:]...)
		return false, nil, err

	case *tree.Return:
		if x.Value == nil {
			return true, tree.NilValue{}, nil
		}
		v, err := ev.Eval(x.Value, env)
		return err == nil, v, err

	case *tree.If:
		cond, err := ev.Eval(x.Test, env)
		if err != nil {
			return false, nil, err
		}
		if Truthy(cond) {
			return ev.block(x.Body, env)
		}
		for _, elif := range x.Elifs {
			cond, err := ev.Eval(elif.Test, env)
			if err != nil {
				return false, nil, err
			}
			if Truthy(cond) {
				return ev.block(elif.Body, env)
			}
		}
		return ev.block(x.Else, env)

	case *tree.Unsupported:
		return false, nil, fmt.Errorf("%w: %s", ErrUnsupported, x.Construct)
	}
	return false, nil, fmt.Errorf("%w: statement %T", ErrUnsupported, s)
}

func (ev *Evaluator) store(target tree.Expr, v Value, env *Env) error {
	switch t := target.(type) {
	case *tree.Name:
		env.Set(t.ID, v)
		return nil
	case *tree.Attribute:
		owner, err := ev.Eval(t.Value, env)
		if err != nil {
			return err
		}
		o, ok := owner.(*Object)
		if !ok {
			return fmt.Errorf("%w: cannot set field %s on %s", ErrType, t.Field, owner)
		}
		o.Set(t.Field, v)
		return nil
	}
	return fmt.Errorf("%w: assignment to %T", ErrUnsupported, target)
}

// Eval evaluates an expression.
func (ev *Evaluator) Eval(e tree.Expr, env *Env) (Value, error) {
	switch x := e.(type) {
	case *tree.Literal:
		return x.Value, nil

	case *tree.Name:
		v, ok := env.Get(x.ID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUndefined, x.ID)
		}
		return v, nil

	case *tree.Attribute:
		owner, err := ev.Eval(x.Value, env)
		if err != nil {
			return nil, err
		}
		o, ok := owner.(*Object)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no fields", ErrType, owner)
		}
		v, ok := o.Get(x.Field)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrNoField, o.Class, x.Field)
		}
		return v, nil

	case *tree.Ternary:
		cond, err := ev.Eval(x.Test, env)
		if err != nil {
			return nil, err
		}
		if Truthy(cond) {
			return ev.Eval(x.Body, env)
		}
		return ev.Eval(x.OrElse, env)

	case *tree.BoolOp:
		left, err := ev.Eval(x.Left, env)
		if err != nil {
			return nil, err
		}
		if Truthy(left) == (x.Op == tree.Or) {
			return left, nil
		}
		return ev.Eval(x.Right, env)

	case *tree.UnaryOp:
		v, err := ev.Eval(x.Operand, env)
		if err != nil {
			return nil, err
		}
		return unary(x.Op, v)

	case *tree.BinaryOp:
		left, err := ev.Eval(x.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := ev.Eval(x.Right, env)
		if err != nil {
			return nil, err
		}
		return binary(x.Op, left, right)

	case *tree.Call:
		return ev.call(x, env)
	}
	return nil, fmt.Errorf("%w: expression %T", ErrUnsupported, e)
}

func (ev *Evaluator) call(x *tree.Call, env *Env) (Value, error) {
	fn, err := ev.Eval(x.Func, env)
	if err != nil {
		return nil, err
	}
	b, ok := fn.(*Builtin)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotCallable, tree.Format(x.Func))
	}
	args := make([]Value, len(x.Args))
	for i, a := range x.Args {
		if args[i], err = ev.Eval(a, env); err != nil {
			return nil, err
		}
	}
	ev.calls = append(ev.calls, CallRecord{Func: b.Name, Args: args})
	return b.Fn(args)
}

func unary(op tree.UnaryOpKind, v Value) (Value, error) {
	switch op {
	case tree.Not:
		return tree.BoolValue{Val: !Truthy(v)}, nil
	case tree.Neg:
		if i, ok := v.(tree.IntValue); ok {
			return tree.IntValue{Val: -i.Val}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s%s", ErrType, op, v)
}

func binary(op tree.BinaryOpKind, left, right Value) (Value, error) {
	switch op {
	case tree.Eq:
		return tree.BoolValue{Val: Equal(left, right)}, nil
	case tree.Neq:
		return tree.BoolValue{Val: !Equal(left, right)}, nil
	}

	if l, ok := left.(tree.StringValue); ok {
		if r, ok := right.(tree.StringValue); ok {
			switch op {
			case tree.Add:
				return tree.StringValue{Val: l.Val + r.Val}, nil
			case tree.Lt:
				return tree.BoolValue{Val: l.Val < r.Val}, nil
			case tree.Lte:
				return tree.BoolValue{Val: l.Val <= r.Val}, nil
			case tree.Gt:
				return tree.BoolValue{Val: l.Val > r.Val}, nil
			case tree.Gte:
				return tree.BoolValue{Val: l.Val >= r.Val}, nil
			}
		}
	}

	l, lok := asInt(left)
	r, rok := asInt(right)
	if !lok || !rok {
		return nil, fmt.Errorf("%w: %s %s %s", ErrType, left, op, right)
	}
	switch op {
	case tree.Add:
		return tree.IntValue{Val: l + r}, nil
	case tree.Sub:
		return tree.IntValue{Val: l - r}, nil
	case tree.Mul:
		return tree.IntValue{Val: l * r}, nil
	case tree.Div, tree.Mod:
		if r == 0 {
			return nil, ErrDivision
		}
		if op == tree.Div {
			return tree.IntValue{Val: l / r}, nil
		}
		return tree.IntValue{Val: l % r}, nil
	case tree.Lt:
		return tree.BoolValue{Val: l < r}, nil
	case tree.Lte:
		return tree.BoolValue{Val: l <= r}, nil
	case tree.Gt:
		return tree.BoolValue{Val: l > r}, nil
	case tree.Gte:
		return tree.BoolValue{Val: l >= r}, nil
	}
	return nil, fmt.Errorf("%w: operator %s", ErrUnsupported, op)
}

// asInt accepts booleans as 0 and 1.
func asInt(v Value) (int64, bool) {
	switch x := v.(type) {
	case tree.IntValue:
		return x.Val, true
	case tree.BoolValue:
		if x.Val {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
