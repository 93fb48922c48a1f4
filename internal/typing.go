package internal

import (
	"fmt"
	"go/ast"
	"go/types"

	"github.com/gnolang/flatssa/internal/frontend"
	"github.com/gnolang/flatssa/internal/passes"
	"github.com/gnolang/flatssa/internal/render"
)

// localTypes resolves the types of the locals of one converted function
// from what the type checker knows about the original. Pipeline names
// take the type of what they stand for.
type localTypes struct {
	types   *frontend.Types
	origins map[string]passes.Origin
}

func newLocalTypes(fn *frontend.Func, meta *passes.Metadata) render.Types {
	if fn.Types == nil || meta == nil {
		return nil
	}
	return &localTypes{types: fn.Types, origins: passes.NameOrigins(meta)}
}

func (l *localTypes) typeOf(name string) (types.Type, error) {
	// versions chain back to a source name in a few steps
	for i := 0; i <= len(l.origins); i++ {
		o, ok := l.origins[name]
		if !ok {
			break
		}
		switch o.Kind {
		case passes.OriginGuard:
			return types.Typ[types.Bool], nil
		case passes.OriginReturn:
			return l.result()
		case passes.OriginAttr:
			return l.field(o.Owner, o.Field)
		case passes.OriginVersion:
			name = o.Name
			continue
		}
		break
	}
	if t, ok := l.types.Var(name); ok {
		return t, nil
	}
	return nil, fmt.Errorf("%s has no single known type", name)
}

func (l *localTypes) result() (types.Type, error) {
	if t, ok := l.types.Result(); ok {
		return t, nil
	}
	return nil, fmt.Errorf("function has no single known result type")
}

func (l *localTypes) field(owner, field string) (types.Type, error) {
	if t, ok := l.types.Field(owner, field); ok {
		return t, nil
	}
	return nil, fmt.Errorf("%s.%s has no single known type", owner, field)
}

func (l *localTypes) Name(name string) (ast.Expr, error) {
	t, err := l.typeOf(name)
	if err != nil {
		return nil, err
	}
	return l.types.Expr(t)
}

func (l *localTypes) Result() (ast.Expr, error) {
	t, err := l.result()
	if err != nil {
		return nil, err
	}
	return l.types.Expr(t)
}

func (l *localTypes) Field(owner, field string) (ast.Expr, error) {
	t, err := l.field(owner, field)
	if err != nil {
		return nil, err
	}
	return l.types.Expr(t)
}
