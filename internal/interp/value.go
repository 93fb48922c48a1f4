package interp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gnolang/flatssa/internal/tree"
)

// Value is a runtime value: a tree.Value scalar, an *Object or a
// *Builtin.
type Value interface {
	String() string
}

// Object is a mutable record. Objects are passed by reference.
type Object struct {
	Class  string
	Fields map[string]Value
}

// NewObject creates an object with a copy of fields.
func NewObject(class string, fields map[string]Value) *Object {
	o := &Object{Class: class, Fields: make(map[string]Value, len(fields))}
	for k, v := range fields {
		o.Fields[k] = v
	}
	return o
}

func (o *Object) Get(field string) (Value, bool) {
	v, ok := o.Fields[field]
	return v, ok
}

func (o *Object) Set(field string, v Value) {
	o.Fields[field] = v
}

func (o *Object) String() string {
	keys := make([]string, 0, len(o.Fields))
	for k := range o.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(o.Class)
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %s", k, o.Fields[k])
	}
	sb.WriteByte('}')
	return sb.String()
}

// Builtin is a Go function callable from the tree.
type Builtin struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

func (b *Builtin) String() string {
	return "builtin " + b.Name
}

// Equal compares two values. Scalars compare by value, objects by their
// fields and builtins by identity.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case tree.Value:
		y, ok := b.(tree.Value)
		return ok && x.Equal(y)
	case *Object:
		y, ok := b.(*Object)
		if !ok || x.Class != y.Class || len(x.Fields) != len(y.Fields) {
			return false
		}
		for k, v := range x.Fields {
			w, ok := y.Fields[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	case *Builtin:
		return a == b
	}
	return a == nil && b == nil
}

// Truthy reports whether v counts as true in a condition.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case tree.BoolValue:
		return x.Val
	case tree.IntValue:
		return x.Val != 0
	case tree.StringValue:
		return x.Val != ""
	case tree.NilValue, nil:
		return false
	default:
		return true
	}
}

// clone copies objects reachable from v so that a run cannot observe
// writes made by another run.
func clone(v Value, seen map[*Object]*Object) Value {
	o, ok := v.(*Object)
	if !ok {
		return v
	}
	if c, ok := seen[o]; ok {
		return c
	}
	c := &Object{Class: o.Class, Fields: make(map[string]Value, len(o.Fields))}
	seen[o] = c
	for k, f := range o.Fields {
		c.Fields[k] = clone(f, seen)
	}
	return c
}

// Scalar converts a plain Go value to a scalar. It accepts the types a
// YAML or JSON decoder produces for scalars.
func Scalar(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return tree.NilValue{}, nil
	case bool:
		return tree.BoolValue{Val: x}, nil
	case int:
		return tree.IntValue{Val: int64(x)}, nil
	case int64:
		return tree.IntValue{Val: x}, nil
	case float64:
		if x != float64(int64(x)) {
			return nil, fmt.Errorf("%w: non-integer number %v", ErrType, x)
		}
		return tree.IntValue{Val: int64(x)}, nil
	case string:
		return tree.StringValue{Val: x}, nil
	}
	return nil, fmt.Errorf("%w: unsupported sample %T", ErrType, v)
}
