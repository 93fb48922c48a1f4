package internal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/flatssa/internal/frontend"
	"github.com/gnolang/flatssa/internal/passes"
	tt "github.com/gnolang/flatssa/internal/types"
)

const maybeSource = `package p

func Maybe(c bool) int {
	if c {
		y = 1
	}
	return y
}
`

func TestIssueFromError_Unbound(t *testing.T) {
	t.Parallel()

	file, err := frontend.ParseSource("maybe.go", []byte(maybeSource))
	require.NoError(t, err)
	fn, ok := file.Lookup("Maybe")
	require.True(t, ok)

	env := file.Globals.Clone()
	_, err = passes.SSA(true).Run(fn.Def, env)
	require.Error(t, err)

	issue := issueFromError("maybe.go", fn, env, err)
	assert.Equal(t, tt.RuleUnprovable, issue.Rule)
	assert.Equal(t, tt.SeverityError, issue.Severity)
	assert.Equal(t, "y is possibly unbound at line 7", issue.Note)
}

func TestIssueFromError_Internal(t *testing.T) {
	t.Parallel()

	file, err := frontend.ParseSource("maybe.go", []byte(maybeSource))
	require.NoError(t, err)
	fn, _ := file.Lookup("Maybe")

	issue := issueFromError("maybe.go", fn, file.Globals, errors.New("boom"))
	assert.Equal(t, tt.RuleInternal, issue.Rule)
	assert.Equal(t, "boom", issue.Message)
	assert.Equal(t, fn.Start, issue.Start)
}
