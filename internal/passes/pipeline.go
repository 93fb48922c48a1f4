package passes

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gnolang/flatssa/internal/names"
	"github.com/gnolang/flatssa/internal/provenance"
	"github.com/gnolang/flatssa/internal/tree"
)

// Pipeline runs an ordered list of passes over one function.
type Pipeline struct {
	passes []Pass
	logger *zap.Logger
}

// NewPipeline creates a pipeline from passes, in order.
func NewPipeline(passes ...Pass) *Pipeline {
	return &Pipeline{passes: passes, logger: zap.NewNop()}
}

// SSA returns the full conversion pipeline.
func SSA(strict bool) *Pipeline {
	p := NewPipeline()
	for _, c := range stageConstructors {
		p.Then(c.new(strict))
	}
	return p
}

// stageConstructors builds each stage by name, in pipeline order.
var stageConstructors = []struct {
	name string
	new  func(strict bool) Pass
}{
	{"elif", func(bool) Pass { return ElifNormalizer{} }},
	{"attrs", func(bool) Pass { return AttributeHoister{} }},
	{"guards", func(bool) Pass { return GuardMaterializer{} }},
	{"returns", func(strict bool) Pass { return ReturnFlattener{Strict: strict} }},
	{"ssa", func(strict bool) Pass { return Renamer{Strict: strict} }},
	{"symtab", func(bool) Pass { return SymbolTableBuilder{} }},
}

// StageNames returns the names of every known stage in pipeline order.
func StageNames() []string {
	out := make([]string, len(stageConstructors))
	for i, c := range stageConstructors {
		out[i] = c.name
	}
	return out
}

// Build returns a pipeline running the named stages in the given order.
// No names means the full pipeline.
func Build(stages []string, strict bool) (*Pipeline, error) {
	if len(stages) == 0 {
		return SSA(strict), nil
	}
	p := NewPipeline()
	for _, name := range stages {
		found := false
		for _, c := range stageConstructors {
			if c.name == name {
				p.Then(c.new(strict))
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown stage %q", name)
		}
	}
	return p, nil
}

// WithLogger sets the logger used for per-stage debug output.
func (p *Pipeline) WithLogger(logger *zap.Logger) *Pipeline {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// Then appends a pass.
func (p *Pipeline) Then(pass Pass) *Pipeline {
	p.passes = append(p.passes, pass)
	return p
}

// Passes returns the stage names in order.
func (p *Pipeline) Passes() []string {
	out := make([]string, len(p.passes))
	for i, pass := range p.passes {
		out[i] = pass.Name()
	}
	return out
}

// Run applies every pass to fn. The original tree and its positions
// are recorded in the metadata before the first pass runs. On failure
// no partial result is returned.
func (p *Pipeline) Run(fn *tree.FuncDef, env *names.Table) (Unit, error) {
	if env == nil {
		env = names.NewTable()
	}
	u := Unit{Func: fn, Env: env, Meta: NewMetadata()}
	u.Meta.Append("input", KeyOriginal, fn)
	u.Meta.Append("input", KeyPositions, tree.Positions(fn))

	for _, pass := range p.passes {
		start := time.Now()
		next, err := pass.Rewrite(u)
		if err != nil {
			p.logger.Debug("stage failed",
				zap.String("func", fn.Name),
				zap.String("stage", pass.Name()),
				zap.Error(err))
			return Unit{}, fmt.Errorf("%s: %w", pass.Name(), err)
		}
		p.logger.Debug("stage done",
			zap.String("func", fn.Name),
			zap.String("stage", pass.Name()),
			zap.Duration("elapsed", time.Since(start)))
		u = next
	}
	return u, nil
}

// Trace composes every stage's provenance map into one map from the
// input tree to the final tree.
func Trace(meta *Metadata) *provenance.Map {
	out := provenance.New()
	for _, e := range meta.All(KeyProvenance) {
		if m, ok := e.Value.(*provenance.Map); ok {
			out = provenance.Compose(out, m)
		}
	}
	return out
}

// Original returns the input tree recorded by Run.
func Original(meta *Metadata) (*tree.FuncDef, bool) {
	fn, ok := meta.GetFrom("input", KeyOriginal)
	if !ok {
		return nil, false
	}
	def, ok := fn.(*tree.FuncDef)
	return def, ok
}
