package formatter

import (
	"go/token"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/gnolang/flatssa/internal"
	tt "github.com/gnolang/flatssa/internal/types"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

var code = &internal.SourceCode{
	Lines: []string{
		"package main",
		"",
		"func main() {",
		"    x := 1",
		"    for i := 0; i < 3; i++ {}",
		"}",
	},
}

func TestGenerateFormattedIssue(t *testing.T) {
	issues := []tt.Issue{
		{
			Rule:     tt.RuleUnsupported,
			Filename: "test.go",
			Start:    token.Position{Line: 5, Column: 5},
			End:      token.Position{Line: 5, Column: 30},
			Message:  "unsupported construct: for loop",
			Severity: tt.SeverityWarning,
		},
		{
			Rule:       tt.RuleUnprovable,
			Filename:   "test.go",
			Start:      token.Position{Line: 3, Column: 1},
			End:        token.Position{Line: 6, Column: 2},
			Message:    "cannot prove function always returns",
			Suggestion: "add a final return",
			Note:       "strict mode",
			Severity:   tt.SeverityError,
		},
	}

	expected := `warning: unsupported-construct
 --> test.go:5:5
  |
5 | for i := 0; i < 3; i++ {}
  | ~~~~~~~~~~~~~~~~~~~~~~~~~~
  = unsupported construct: for loop

error: unprovable
 --> test.go:3:1
  |
3 | func main() {
4 |     x := 1
5 |     for i := 0; i < 3; i++ {}
6 | }
  = cannot prove function always returns
Suggestion:
  |
  | add a final return
  |
Note: strict mode

`
	assert.Equal(t, expected, GenerateFormattedIssue(issues, code))
}

func TestGenerateFormattedIssueWithoutSource(t *testing.T) {
	issues := []tt.Issue{{
		Rule:     tt.RuleInternal,
		Filename: "gone.go",
		Start:    token.Position{Line: 40, Column: 1},
		End:      token.Position{Line: 40, Column: 3},
		Message:  "internal error",
	}}

	expected := `error: internal-error
  --> gone.go:40:1
   |
   = internal error

`
	assert.Equal(t, expected, GenerateFormattedIssue(issues, nil))
}

func TestGenerateFormattedComplexityIssue(t *testing.T) {
	issues := []tt.Issue{{
		Rule:     tt.RuleComplexity,
		Filename: "test.go",
		Start:    token.Position{Line: 3, Column: 1},
		End:      token.Position{Line: 6, Column: 2},
		Message:  "function main has a cyclomatic complexity of 12 (threshold 10)",
		Severity: tt.SeverityWarning,
	}}

	expected := `warning: high-cyclomatic-complexity
 --> test.go:3:1
  |
3 | func main() {
  = Cyclomatic Complexity: main has a cyclomatic complexity of 12 (threshold 10)

`
	assert.Equal(t, expected, GenerateFormattedIssue(issues, code))
}

func TestFormatConversion(t *testing.T) {
	c := tt.Conversion{
		Filename: "a.go",
		Func:     "T.f",
		Start:    token.Position{Line: 7},
		Strict:   true,
		Output:   "func (t *T) f() {}",
		Verified: "Equivalent: all inputs agree (5 inputs)",
	}
	assert.Equal(t, "a.go:7 T.f converted (strict)\n  verify: Equivalent: all inputs agree (5 inputs)\n\nfunc (t *T) f() {}\n\n", FormatConversion(c))

	c.Strict = false
	c.Verified = ""
	assert.Equal(t, "a.go:7 T.f converted (non-strict)\n\nfunc (t *T) f() {}\n\n", FormatConversion(c))

	assert.Equal(t, "a.go:7 T.f skipped\n\nfunc (t *T) f() {}\n\n", FormatConversion(tt.Conversion{
		Filename: "a.go", Func: "T.f", Start: token.Position{Line: 7}, Skipped: true, Output: c.Output,
	}))

	failed := tt.Conversion{Filename: "a.go", Func: "g", Start: token.Position{Line: 9}, Issue: &tt.Issue{}}
	assert.Equal(t, "a.go:9 g not converted\n", FormatConversion(failed))
}

func TestFormatSymbols(t *testing.T) {
	table := map[int]map[string]string{
		12: {"a": "a_1"},
		4:  {"b": "b", "a": "a_0"},
	}
	assert.Equal(t, " 4 | a -> a_0, b -> b\n12 | a -> a_1\n", FormatSymbols(table))
	assert.Empty(t, FormatSymbols(nil))
}

func TestSummary(t *testing.T) {
	convs := []tt.Conversion{
		{Func: "a"},
		{Func: "b", Skipped: true},
		{Func: "c", Issue: &tt.Issue{}},
		{Func: "d"},
	}
	assert.Equal(t, "4 functions: 2 converted, 1 skipped, 1 not converted", Summary(convs))
	assert.Equal(t, "1 function: 1 converted, 0 skipped, 0 not converted", Summary(convs[:1]))
}

func TestFindCommonIndent(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"empty", nil, ""},
		{"spaces", []string{"    a", "      b", "", "    c"}, "    "},
		{"tabs", []string{"\t\tx", "\ty"}, "\t"},
		{"none", []string{"a", "  b"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findCommonIndent(tt.lines))
		})
	}
}

func TestCalculateVisualColumn(t *testing.T) {
	assert.Equal(t, 0, calculateVisualColumn("abc", 1))
	assert.Equal(t, 2, calculateVisualColumn("abc", 3))
	assert.Equal(t, 8, calculateVisualColumn("\tx", 2))
	assert.Equal(t, 0, calculateVisualColumn("x", -1))
}
