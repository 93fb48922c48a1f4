package formatter

import (
	"fmt"
	"sort"
	"strings"

	tt "github.com/gnolang/flatssa/internal/types"
)

var (
	convertedStyle = suggestionStyle
	skippedStyle   = warningStyle
)

// FormatConversion renders the header of a conversion followed by its
// output. Failed conversions render the header only; their issue is
// printed with GenerateFormattedIssue.
func FormatConversion(c tt.Conversion) string {
	var b strings.Builder
	b.WriteString(fileStyle.Sprintf("%s:%d", c.Filename, c.Start.Line))
	b.WriteString(" ")
	b.WriteString(ruleStyle.Sprint(c.Func))
	b.WriteString(" ")
	switch {
	case c.Skipped:
		b.WriteString(skippedStyle.Sprint("skipped"))
	case c.Failed():
		b.WriteString(errorStyle.Sprint("not converted"))
	default:
		mode := "strict"
		if !c.Strict {
			mode = "non-strict"
		}
		b.WriteString(convertedStyle.Sprintf("converted (%s)", mode))
	}
	b.WriteString("\n")

	if c.Verified != "" {
		b.WriteString(lineStyle.Sprint("  verify: "))
		b.WriteString(c.Verified)
		b.WriteString("\n")
	}
	if c.Output != "" && !c.Failed() {
		b.WriteString("\n")
		b.WriteString(c.Output)
		b.WriteString("\n\n")
	}
	return b.String()
}

// FormatSymbols renders a symbol table, one source line per row:
//
//	 4 | a -> a_0, b -> b
//	12 | a -> a_1
func FormatSymbols(table map[int]map[string]string) string {
	lines := make([]int, 0, len(table))
	maxLine := 0
	for line := range table {
		lines = append(lines, line)
		maxLine = max(maxLine, line)
	}
	sort.Ints(lines)
	width := calculateMaxLineNumWidth(maxLine)

	var b strings.Builder
	for _, line := range lines {
		names := make([]string, 0, len(table[line]))
		for name := range table[line] {
			names = append(names, name)
		}
		sort.Strings(names)

		pairs := make([]string, len(names))
		for i, name := range names {
			pairs[i] = name + " -> " + table[line][name]
		}
		b.WriteString(lineStyle.Sprintf("%*d | ", width, line))
		b.WriteString(strings.Join(pairs, ", "))
		b.WriteString("\n")
	}
	return b.String()
}

// Summary counts the outcomes of convs.
func Summary(convs []tt.Conversion) string {
	var converted, skipped, failed int
	for _, c := range convs {
		switch {
		case c.Skipped:
			skipped++
		case c.Failed():
			failed++
		default:
			converted++
		}
	}
	noun := "functions"
	if len(convs) == 1 {
		noun = "function"
	}
	return fmt.Sprintf("%d %s: %d converted, %d skipped, %d not converted",
		len(convs), noun, converted, skipped, failed)
}
