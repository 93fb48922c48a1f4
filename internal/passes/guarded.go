package passes

import (
	"github.com/gnolang/flatssa/internal/tree"
)

// Guarded is a value that applies when every guard of its chain holds.
type Guarded struct {
	Guards []tree.Expr
	Value  tree.Expr
}

// Sequence is an ordered list of guarded values. Earlier entries take
// precedence over later ones.
type Sequence []Guarded

// Valid reports whether no entry other than the last is unguarded.
func (s Sequence) Valid() bool {
	for i, g := range s {
		if len(g.Guards) == 0 && i != len(s)-1 {
			return false
		}
	}
	return true
}

// Terminated reports whether the last entry is unguarded.
func (s Sequence) Terminated() bool {
	return len(s) > 0 && len(s[len(s)-1].Guards) == 0
}

// Equal compares two sequences structurally.
func (s Sequence) Equal(o Sequence) bool {
	if len(s) != len(o) {
		return false
	}
	h := tree.NewHasher()
	for i := range s {
		if !sameExpr(h, s[i].Value, o[i].Value) || !equalChains(h, s[i].Guards, o[i].Guards) {
			return false
		}
	}
	return true
}

// sameExpr compares a and b structurally. Guard chains share their
// prefixes, so memoized hashes rule out most mismatches cheaply.
func sameExpr(h *tree.Hasher, a, b tree.Expr) bool {
	return h.Hash(a) == h.Hash(b) && tree.Equal(a, b)
}

func equalChains(h *tree.Hasher, a, b []tree.Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameExpr(h, a[i], b[i]) {
			return false
		}
	}
	return true
}

// Simplify merges and truncates a sequence.
//
// An entry whose chain equals its predecessor's except that it ends in
// the negation of the predecessor's last guard loses that guard: having
// failed the predecessor already implies it. Everything after the first
// unguarded entry is unreachable and dropped.
func Simplify(seq Sequence) Sequence {
	if len(seq) == 0 {
		return nil
	}
	h := tree.NewHasher()
	out := Sequence{seq[0]}
	for _, cur := range seq[1:] {
		prev := out[len(out)-1]
		if len(prev.Guards) == 0 {
			break
		}
		if len(cur.Guards) == 0 {
			out = append(out, cur)
			break
		}
		if negatesLast(h, prev.Guards, cur.Guards) {
			cur = Guarded{Guards: cur.Guards[:len(cur.Guards)-1], Value: cur.Value}
		}
		out = append(out, cur)
	}
	return out
}

// negatesLast reports whether cur is prev with its last guard negated.
func negatesLast(h *tree.Hasher, prev, cur []tree.Expr) bool {
	if len(prev) != len(cur) {
		return false
	}
	last := len(cur) - 1
	not, ok := cur[last].(*tree.UnaryOp)
	if !ok || not.Op != tree.Not {
		return false
	}
	return sameExpr(h, not.Operand, prev[last]) && equalChains(h, prev[:last], cur[:last])
}

// simplifyChecked simplifies seq and verifies the result is a fixed
// point of Simplify.
func simplifyChecked(seq Sequence) (Sequence, error) {
	out := Simplify(seq)
	if !out.Valid() {
		return nil, internalf("simplified sequence has an unreachable tail")
	}
	if again := Simplify(out); !again.Equal(out) {
		return nil, internalf("guard simplification is not idempotent")
	}
	return out, nil
}

// Fold turns a sequence into nested ternaries, first entry outermost.
// An unguarded entry folds to its bare value. In strict mode a sequence
// that runs out before an unguarded entry is an error; otherwise the
// last entry's guard is dropped, trusting that its failing path is
// never taken.
func Fold(seq Sequence, strict bool) (tree.Expr, error) {
	if len(seq) == 0 {
		return nil, ErrIncompleteGuard
	}
	first := seq[0]
	if len(first.Guards) == 0 || (!strict && len(seq) == 1) {
		return first.Value, nil
	}
	rest, err := Fold(seq[1:], strict)
	if err != nil {
		return nil, err
	}
	return tree.Mux(conjoin(first.Guards), first.Value, rest), nil
}
