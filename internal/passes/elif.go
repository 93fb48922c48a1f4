package passes

import (
	"github.com/gnolang/flatssa/internal/provenance"
	"github.com/gnolang/flatssa/internal/tree"
)

// ElifNormalizer rewrites `if a {} elif b {} else {}` chains into
// nested `if a {} else { if b {} else {} }`. It is the first stage, so
// it also rejects bodies holding constructs the grammar cannot express.
type ElifNormalizer struct{}

func (ElifNormalizer) Name() string { return "elif" }

func (p ElifNormalizer) Rewrite(u Unit) (Unit, error) {
	if bad := tree.FindUnsupported(u.Func.Body); bad != nil {
		return u, unsupported(bad.Construct, bad.Pos)
	}

	prov := provenance.New()
	body := normalizeBlock(u.Func.Body, prov)
	fn := u.Func.WithBody(body)
	prov.Track(u.Func, fn)

	u.Meta.Append(p.Name(), KeyProvenance, prov)
	return u.With(fn), nil
}

func normalizeBlock(stmts []tree.Stmt, prov *provenance.Map) []tree.Stmt {
	out := make([]tree.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = s
		if x, ok := s.(*tree.If); ok {
			out[i] = normalizeIf(x, x, prov)
		}
	}
	return out
}

// normalizeIf rewrites s and records the result as derived from origin,
// which is either s itself or the elif clause s was built from.
func normalizeIf(s *tree.If, origin tree.Node, prov *provenance.Map) *tree.If {
	var orElse []tree.Stmt
	if len(s.Elifs) > 0 {
		first := s.Elifs[0]
		nested := &tree.If{
			Test:  first.Test,
			Body:  first.Body,
			Elifs: s.Elifs[1:],
			Else:  s.Else,
			Pos:   first.Pos,
		}
		orElse = []tree.Stmt{normalizeIf(nested, first, prov)}
	} else {
		orElse = normalizeBlock(s.Else, prov)
	}

	out := &tree.If{
		Test: s.Test,
		Body: normalizeBlock(s.Body, prov),
		Else: orElse,
		Pos:  s.Pos,
	}
	prov.Track(origin, out)
	return out
}
