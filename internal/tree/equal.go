package tree

import (
	"encoding/binary"
	"hash/fnv"
)

// Equal reports whether a and b are structurally identical, ignoring
// source positions.
func Equal(a, b Node) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	if a == b {
		return true
	}

	switch x := a.(type) {
	case *Name:
		y, ok := b.(*Name)
		return ok && x.ID == y.ID
	case *Attribute:
		y, ok := b.(*Attribute)
		return ok && x.Field == y.Field && Equal(x.Value, y.Value)
	case *Literal:
		y, ok := b.(*Literal)
		return ok && x.Value.Equal(y.Value)
	case *Ternary:
		y, ok := b.(*Ternary)
		return ok && Equal(x.Test, y.Test) && Equal(x.Body, y.Body) && Equal(x.OrElse, y.OrElse)
	case *BoolOp:
		y, ok := b.(*BoolOp)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *BinaryOp:
		y, ok := b.(*BinaryOp)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *UnaryOp:
		y, ok := b.(*UnaryOp)
		return ok && x.Op == y.Op && Equal(x.Operand, y.Operand)
	case *Call:
		y, ok := b.(*Call)
		return ok && Equal(x.Func, y.Func) && equalExprs(x.Args, y.Args)
	case *Assign:
		y, ok := b.(*Assign)
		return ok && Equal(x.Target, y.Target) && Equal(x.Value, y.Value)
	case *Return:
		y, ok := b.(*Return)
		return ok && equalOptional(x.Value, y.Value)
	case *ExprStmt:
		y, ok := b.(*ExprStmt)
		return ok && Equal(x.X, y.X)
	case *Unsupported:
		y, ok := b.(*Unsupported)
		return ok && x.Construct == y.Construct
	case *If:
		y, ok := b.(*If)
		if !ok || len(x.Elifs) != len(y.Elifs) {
			return false
		}
		for i := range x.Elifs {
			if !Equal(x.Elifs[i], y.Elifs[i]) {
				return false
			}
		}
		return Equal(x.Test, y.Test) && EqualBlocks(x.Body, y.Body) && EqualBlocks(x.Else, y.Else)
	case *ElifClause:
		y, ok := b.(*ElifClause)
		return ok && Equal(x.Test, y.Test) && EqualBlocks(x.Body, y.Body)
	case *FuncDef:
		y, ok := b.(*FuncDef)
		if !ok || x.Name != y.Name || len(x.Params) != len(y.Params) {
			return false
		}
		for i := range x.Params {
			if x.Params[i] != y.Params[i] {
				return false
			}
		}
		return EqualBlocks(x.Body, y.Body)
	}
	return false
}

// EqualBlocks compares two statement lists structurally.
func EqualBlocks(a, b []Stmt) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalExprs(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalOptional(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Equal(a, b)
}

// isNil catches typed nil pointers stored in an interface.
func isNil(n Node) bool {
	if n == nil {
		return true
	}
	switch x := n.(type) {
	case *Name:
		return x == nil
	case *Attribute:
		return x == nil
	case *Literal:
		return x == nil
	case *Ternary:
		return x == nil
	case *BoolOp:
		return x == nil
	case *BinaryOp:
		return x == nil
	case *UnaryOp:
		return x == nil
	case *Call:
		return x == nil
	case *Assign:
		return x == nil
	case *If:
		return x == nil
	case *ElifClause:
		return x == nil
	case *Return:
		return x == nil
	case *ExprStmt:
		return x == nil
	case *Unsupported:
		return x == nil
	case *FuncDef:
		return x == nil
	}
	return false
}

// node kind tags for hashing
const (
	tagNil byte = iota
	tagName
	tagAttribute
	tagLiteral
	tagTernary
	tagBoolOp
	tagBinaryOp
	tagUnaryOp
	tagCall
	tagAssign
	tagIf
	tagElif
	tagReturn
	tagExprStmt
	tagUnsupported
	tagFuncDef
)

// Hasher computes structural hashes consistent with Equal. Since nodes
// are immutable, the hash of each node is computed once and memoized by
// identity.
type Hasher struct {
	memo map[Node]uint64
}

// NewHasher creates an empty hasher.
func NewHasher() *Hasher {
	return &Hasher{memo: make(map[Node]uint64)}
}

// Hash returns a structural hash of n using a throwaway hasher.
func Hash(n Node) uint64 {
	return NewHasher().Hash(n)
}

// Hash returns the structural hash of n.
func (h *Hasher) Hash(n Node) uint64 {
	if isNil(n) {
		return mix(tagNil)
	}
	if v, ok := h.memo[n]; ok {
		return v
	}
	v := h.compute(n)
	h.memo[n] = v
	return v
}

func (h *Hasher) compute(n Node) uint64 {
	switch x := n.(type) {
	case *Name:
		return mix(tagName, []byte(x.ID))
	case *Attribute:
		return mix(tagAttribute, u64(h.Hash(x.Value)), []byte(x.Field))
	case *Literal:
		return mix(tagLiteral, []byte(x.Value.String()), []byte(literalKind(x.Value)))
	case *Ternary:
		return mix(tagTernary, u64(h.Hash(x.Test)), u64(h.Hash(x.Body)), u64(h.Hash(x.OrElse)))
	case *BoolOp:
		return mix(tagBoolOp, []byte{byte(x.Op)}, u64(h.Hash(x.Left)), u64(h.Hash(x.Right)))
	case *BinaryOp:
		return mix(tagBinaryOp, []byte{byte(x.Op)}, u64(h.Hash(x.Left)), u64(h.Hash(x.Right)))
	case *UnaryOp:
		return mix(tagUnaryOp, []byte{byte(x.Op)}, u64(h.Hash(x.Operand)))
	case *Call:
		parts := [][]byte{u64(h.Hash(x.Func))}
		for _, a := range x.Args {
			parts = append(parts, u64(h.Hash(a)))
		}
		return mix(tagCall, parts...)
	case *Assign:
		return mix(tagAssign, u64(h.Hash(x.Target)), u64(h.Hash(x.Value)))
	case *Return:
		if x.Value == nil {
			return mix(tagReturn)
		}
		return mix(tagReturn, u64(h.Hash(x.Value)))
	case *ExprStmt:
		return mix(tagExprStmt, u64(h.Hash(x.X)))
	case *Unsupported:
		return mix(tagUnsupported, []byte(x.Construct))
	case *If:
		parts := [][]byte{u64(h.Hash(x.Test)), h.block(x.Body)}
		for _, e := range x.Elifs {
			parts = append(parts, u64(h.Hash(e)))
		}
		parts = append(parts, h.block(x.Else))
		return mix(tagIf, parts...)
	case *ElifClause:
		return mix(tagElif, u64(h.Hash(x.Test)), h.block(x.Body))
	case *FuncDef:
		parts := [][]byte{[]byte(x.Name)}
		for _, p := range x.Params {
			parts = append(parts, []byte(p))
		}
		parts = append(parts, h.block(x.Body))
		return mix(tagFuncDef, parts...)
	}
	return mix(tagNil)
}

func (h *Hasher) block(stmts []Stmt) []byte {
	parts := make([][]byte, 0, len(stmts))
	for _, s := range stmts {
		parts = append(parts, u64(h.Hash(s)))
	}
	return u64(mix(tagNil, parts...))
}

func literalKind(v Value) string {
	switch v.(type) {
	case IntValue:
		return "int"
	case BoolValue:
		return "bool"
	case StringValue:
		return "string"
	case NilValue:
		return "nil"
	}
	return "?"
}

func mix(tag byte, parts ...[]byte) uint64 {
	f := fnv.New64a()
	f.Write([]byte{tag})
	var lenBuf [4]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(p)))
		f.Write(lenBuf[:])
		f.Write(p)
	}
	return f.Sum64()
}

func u64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}
