package names

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gnolang/flatssa/internal/tree"
)

// ErrExhausted is returned when no free name can be found. With the
// search bound used here it is practically unreachable.
var ErrExhausted = errors.New("free name search space exhausted")

// maxAttempts bounds every free-name search.
const maxAttempts = 1 << 20

// Generator mints identifiers that collide neither with names used in
// the tree nor with names in the enclosing environment. Every minted
// name is recorded so later requests never return it again.
type Generator struct {
	used     map[string]struct{}
	env      Env
	prefixes []string
	counters map[string]int
}

// NewGenerator creates a generator for fn under env.
func NewGenerator(fn *tree.FuncDef, env Env) *Generator {
	if env == nil {
		env = Empty
	}
	return &Generator{
		used:     tree.UsedNames(fn),
		env:      env,
		counters: make(map[string]int),
	}
}

// IsFree reports whether name is neither used nor in the environment.
func (g *Generator) IsFree(name string) bool {
	if _, ok := g.used[name]; ok {
		return false
	}
	return !g.env.Has(name)
}

// Reserve marks name as used.
func (g *Generator) Reserve(name string) {
	g.used[name] = struct{}{}
}

// FreePrefix returns a prefix derived from base that no used name
// starts with and that does not overlap a prefix reserved earlier. The
// returned prefix is reserved.
func (g *Generator) FreePrefix(base string) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		candidate := base
		if i > 0 {
			candidate = "_" + strconv.Itoa(i) + base
		}
		if g.prefixFree(candidate) {
			g.prefixes = append(g.prefixes, candidate)
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: prefix %q", ErrExhausted, base)
}

func (g *Generator) prefixFree(p string) bool {
	for _, q := range g.prefixes {
		if strings.HasPrefix(p, q) || strings.HasPrefix(q, p) {
			return false
		}
	}
	for name := range g.used {
		if strings.HasPrefix(name, p) {
			return false
		}
	}
	return true
}

// FreeName returns prefix followed by the lowest counter value that
// yields a free name, and records it as used.
func (g *Generator) FreeName(prefix string) (string, error) {
	start := g.counters[prefix]
	for i := start; i < start+maxAttempts; i++ {
		candidate := prefix + strconv.Itoa(i)
		if g.IsFree(candidate) {
			g.counters[prefix] = i + 1
			g.Reserve(candidate)
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: name with prefix %q", ErrExhausted, prefix)
}

// Fresh returns base itself when it is free, otherwise a numbered
// variant of it. The result is recorded as used.
func (g *Generator) Fresh(base string) (string, error) {
	if g.IsFree(base) {
		g.Reserve(base)
		return base, nil
	}
	return g.FreeName(base + "_")
}
