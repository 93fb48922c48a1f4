package passes

import (
	"github.com/gnolang/flatssa/internal/names"
	"github.com/gnolang/flatssa/internal/provenance"
	"github.com/gnolang/flatssa/internal/tree"
)

// GuardMaterializer binds each branch test to a fresh name assigned
// right before the branch, so every test is evaluated exactly once at
// its original point and later stages can refer to it by name.
type GuardMaterializer struct{}

func (GuardMaterializer) Name() string { return "guards" }

func (p GuardMaterializer) Rewrite(u Unit) (Unit, error) {
	prov := provenance.New()
	gen := names.NewGenerator(u.Func, u.Env)

	// tests that already name a guard are left alone
	done := make(map[string]bool)
	for _, name := range finalNames(u.Meta) {
		done[name] = true
	}

	m := &materializer{gen: gen, prov: prov, done: done}
	body, err := m.block(u.Func.Body)
	if err != nil {
		return u, err
	}
	fn := u.Func.WithBody(body)
	prov.Track(u.Func, fn)

	u.Meta.Append(p.Name(), KeyProvenance, prov)
	u.Meta.Append(p.Name(), KeyFinalNames, m.minted)
	origins := make(map[string]Origin, len(m.minted))
	for _, name := range m.minted {
		origins[name] = Origin{Kind: OriginGuard}
	}
	u.Meta.Append(p.Name(), KeyOrigins, origins)
	return u.With(fn), nil
}

type materializer struct {
	gen    *names.Generator
	prefix string
	prov   *provenance.Map
	done   map[string]bool
	minted []string
}

func (m *materializer) fresh() (string, error) {
	if m.prefix == "" {
		prefix, err := m.gen.FreePrefix("_cond_")
		if err != nil {
			return "", internalf("%v", err)
		}
		m.prefix = prefix
	}
	name, err := m.gen.FreeName(m.prefix)
	if err != nil {
		return "", internalf("%v", err)
	}
	m.minted = append(m.minted, name)
	return name, nil
}

func (m *materializer) block(stmts []tree.Stmt) ([]tree.Stmt, error) {
	out := make([]tree.Stmt, 0, len(stmts))
	for _, s := range stmts {
		x, ok := s.(*tree.If)
		if !ok {
			out = append(out, s)
			continue
		}
		test := x.Test
		if name, ok := test.(*tree.Name); !ok || !m.done[name.ID] {
			guard, err := m.fresh()
			if err != nil {
				return nil, err
			}
			assign := &tree.Assign{Target: tree.N(guard), Value: x.Test, Pos: tree.Span{Start: x.Pos.Start, End: x.Pos.Start}}
			m.prov.Track(x, assign)
			out = append(out, assign)
			test = tree.N(guard)
			m.prov.Track(x.Test, test)
		}

		body, err := m.block(x.Body)
		if err != nil {
			return nil, err
		}
		orElse, err := m.block(x.Else)
		if err != nil {
			return nil, err
		}

		n := &tree.If{Test: test, Body: body, Else: orElse, Pos: x.Pos}
		m.prov.Track(x, n)
		out = append(out, n)
	}
	return out, nil
}

// finalNames returns every name a stage minted as already
// single-assignment.
func finalNames(meta *Metadata) []string {
	var out []string
	for _, e := range meta.All(KeyFinalNames) {
		if minted, ok := e.Value.([]string); ok {
			out = append(out, minted...)
		}
	}
	return out
}
