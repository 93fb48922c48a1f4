package interp

import (
	"fmt"
	"sort"

	"github.com/gnolang/flatssa/internal/names"
	"github.com/gnolang/flatssa/internal/tree"
)

// Env is a variable scope with an optional parent. Lookups fall back to
// the parent; writes always go to the current scope.
type Env struct {
	vars   map[string]Value
	parent *Env
}

var _ names.Env = (*Env)(nil)

// NewEnv creates an empty root scope.
func NewEnv() *Env {
	return &Env{vars: make(map[string]Value)}
}

// NewChildEnv creates a scope that falls back to parent.
func NewChildEnv(parent *Env) *Env {
	return &Env{vars: make(map[string]Value), parent: parent}
}

// Get returns the value of name in this scope or an enclosing one.
func (e *Env) Get(name string) (Value, bool) {
	for s := e; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Set binds name in the current scope.
func (e *Env) Set(name string, v Value) {
	e.vars[name] = v
}

// Has reports whether name is bound in any scope.
func (e *Env) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Lookup is Get for callers that only know names.Env.
func (e *Env) Lookup(name string) (any, bool) {
	v, ok := e.Get(name)
	return v, ok
}

// Keys returns the names bound in the current scope, sorted.
func (e *Env) Keys() []string {
	keys := make([]string, 0, len(e.vars))
	for k := range e.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Names returns every name visible from e as a name table, for use as
// the environment of a conversion.
func (e *Env) Names() *names.Table {
	t := names.NewTable()
	for s := e; s != nil; s = s.parent {
		for k, v := range s.vars {
			if !t.Has(k) {
				t.Set(k, v)
			}
		}
	}
	return t
}

func (e *Env) String() string {
	out := "{"
	for i, k := range e.Keys() {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s: %s", k, e.vars[k])
	}
	out += "}"
	if e.parent != nil {
		out += " | parent: " + e.parent.String()
	}
	return out
}

// Builtins returns a root scope with the builtins that converted code
// commonly calls.
func Builtins() *Env {
	env := NewEnv()
	for _, b := range []*Builtin{
		{Name: "len", Fn: builtinLen},
		{Name: "abs", Fn: builtinAbs},
		{Name: "min", Fn: builtinMin},
		{Name: "max", Fn: builtinMax},
		{Name: "str", Fn: builtinStr},
	} {
		env.Set(b.Name, b)
	}
	return env
}

func arity(name string, args []Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrType, name, n, len(args))
	}
	return nil
}

func builtinLen(args []Value) (Value, error) {
	if err := arity("len", args, 1); err != nil {
		return nil, err
	}
	switch x := args[0].(type) {
	case tree.StringValue:
		return tree.IntValue{Val: int64(len(x.Val))}, nil
	case *Object:
		return tree.IntValue{Val: int64(len(x.Fields))}, nil
	}
	return nil, fmt.Errorf("%w: len of %s", ErrType, args[0])
}

func builtinAbs(args []Value) (Value, error) {
	if err := arity("abs", args, 1); err != nil {
		return nil, err
	}
	i, ok := args[0].(tree.IntValue)
	if !ok {
		return nil, fmt.Errorf("%w: abs of %s", ErrType, args[0])
	}
	if i.Val < 0 {
		i.Val = -i.Val
	}
	return i, nil
}

func builtinMin(args []Value) (Value, error) {
	return extreme("min", args, func(a, b int64) bool { return a < b })
}

func builtinMax(args []Value) (Value, error) {
	return extreme("max", args, func(a, b int64) bool { return a > b })
}

func extreme(name string, args []Value, better func(a, b int64) bool) (Value, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: %s of nothing", ErrType, name)
	}
	var best tree.IntValue
	for i, a := range args {
		v, ok := a.(tree.IntValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s of %s", ErrType, name, a)
		}
		if i == 0 || better(v.Val, best.Val) {
			best = v
		}
	}
	return best, nil
}

func builtinStr(args []Value) (Value, error) {
	if err := arity("str", args, 1); err != nil {
		return nil, err
	}
	if s, ok := args[0].(tree.StringValue); ok {
		return s, nil
	}
	return tree.StringValue{Val: args[0].String()}, nil
}
