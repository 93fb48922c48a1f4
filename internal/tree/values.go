package tree

import "fmt"

// Value is a literal constant carried by a Literal node.
type Value interface {
	isValue()
	String() string
	Equal(other Value) bool
}

// IntValue is an integer constant.
type IntValue struct {
	Val int64
}

func (IntValue) isValue() {}
func (v IntValue) String() string {
	return fmt.Sprintf("%d", v.Val)
}

func (v IntValue) Equal(other Value) bool {
	if o, ok := other.(IntValue); ok {
		return v.Val == o.Val
	}
	return false
}

// BoolValue is a boolean constant.
type BoolValue struct {
	Val bool
}

func (BoolValue) isValue() {}
func (v BoolValue) String() string {
	return fmt.Sprintf("%t", v.Val)
}

func (v BoolValue) Equal(other Value) bool {
	if o, ok := other.(BoolValue); ok {
		return v.Val == o.Val
	}
	return false
}

// StringValue is a string constant.
type StringValue struct {
	Val string
}

func (StringValue) isValue() {}
func (v StringValue) String() string {
	return fmt.Sprintf("%q", v.Val)
}

func (v StringValue) Equal(other Value) bool {
	if o, ok := other.(StringValue); ok {
		return v.Val == o.Val
	}
	return false
}

// NilValue is nil.
type NilValue struct{}

func (NilValue) isValue() {}
func (NilValue) String() string {
	return "nil"
}

func (v NilValue) Equal(other Value) bool {
	_, ok := other.(NilValue)
	return ok
}
