package internal

import (
	"errors"
	"fmt"
	"go/token"
	"strings"

	"github.com/gnolang/flatssa/internal/analysis/lattice"
	"github.com/gnolang/flatssa/internal/analysis/reach"
	"github.com/gnolang/flatssa/internal/frontend"
	"github.com/gnolang/flatssa/internal/names"
	"github.com/gnolang/flatssa/internal/passes"
	"github.com/gnolang/flatssa/internal/tree"
	tt "github.com/gnolang/flatssa/internal/types"
)

// issueFromError turns a pipeline failure into an issue located at the
// offending statement, or at the whole function when the error carries
// no position.
func issueFromError(filename string, fn *frontend.Func, env names.Env, err error) *tt.Issue {
	issue := &tt.Issue{
		Filename: filename,
		Message:  err.Error(),
		Start:    fn.Start,
		End:      fn.End,
		Severity: tt.SeverityError,
	}

	var (
		unsupported *passes.UnsupportedError
		unprovable  *passes.UnprovableError
	)
	switch {
	case errors.As(err, &unsupported):
		issue.Rule = tt.RuleUnsupported
		issue.Category = "conversion"
		issue.Severity = tt.SeverityWarning
		issue.Message = "unsupported construct: " + unsupported.Construct
		issue.Suggestion = "mark the function with //flatssa:skip to leave it unconverted"
		locate(issue, fn, unsupported.Pos)
	case errors.As(err, &unprovable):
		issue.Rule = tt.RuleUnprovable
		issue.Category = "conversion"
		issue.Message = unprovable.Reason
		if unprovable.Name != "" {
			issue.Message += ": " + unprovable.Name
		}
		issue.Suggestion = "make every path return, or mark the function with //flatssa:nonstrict"
		issue.Note = unboundNote(fn.Def, env)
		locate(issue, fn, unprovable.Pos)
	case errors.Is(err, passes.ErrIncompleteGuard):
		issue.Rule = tt.RuleUnprovable
		issue.Category = "conversion"
		issue.Suggestion = "make every path return, or mark the function with //flatssa:nonstrict"
	default:
		issue.Rule = tt.RuleInternal
		issue.Note = "this is a bug in flatssa"
	}
	return issue
}

// locate narrows issue to the lines of span when it has any.
func locate(issue *tt.Issue, fn *frontend.Func, span tree.Span) {
	if !span.Valid() {
		return
	}
	issue.Start = token.Position{Filename: fn.Start.Filename, Line: span.Start, Column: 1}
	issue.End = token.Position{Filename: fn.Start.Filename, Line: span.End, Column: 1}
}

// unboundNote lists the reads that may see an unbound name.
func unboundNote(fn *tree.FuncDef, env names.Env) string {
	findings := reach.Undefined(fn, env)
	if len(findings) == 0 {
		return ""
	}
	parts := make([]string, 0, len(findings))
	for _, f := range findings {
		state := "possibly unbound"
		if f.Binding == lattice.Unbound {
			state = "unbound"
		}
		part := f.Name + " is " + state
		if pos := f.Stmt.Position(); pos.Valid() {
			part += fmt.Sprintf(" at line %d", pos.Start)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
