package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/gnolang/flatssa/formatter"
	"github.com/gnolang/flatssa/internal"
	tt "github.com/gnolang/flatssa/internal/types"
)

func groupByFile[T any](items []T, file func(T) string) ([]string, map[string][]T) {
	byFile := make(map[string][]T)
	for _, item := range items {
		byFile[file(item)] = append(byFile[file(item)], item)
	}
	files := make([]string, 0, len(byFile))
	for filename := range byFile {
		files = append(files, filename)
	}
	sort.Strings(files)
	return files, byFile
}

func printIssues(w io.Writer, issues []tt.Issue) {
	files, byFile := groupByFile(issues, func(i tt.Issue) string { return i.Filename })
	for _, filename := range files {
		sourceCode, err := internal.ReadSourceCode(filename)
		if err != nil {
			logger.Error("Error reading source file", zap.String("file", filename), zap.Error(err))
		}
		fmt.Fprint(w, formatter.GenerateFormattedIssue(byFile[filename], sourceCode))
	}
}

// printConversions writes each conversion followed by its issue, then a
// summary line.
func printConversions(w io.Writer, convs []tt.Conversion, showOutput bool) {
	files, byFile := groupByFile(convs, func(c tt.Conversion) string { return c.Filename })
	for _, filename := range files {
		sourceCode, _ := internal.ReadSourceCode(filename)
		for _, c := range byFile[filename] {
			if !showOutput {
				c.Output = ""
			}
			fmt.Fprint(w, formatter.FormatConversion(c))
			if c.Issue != nil {
				fmt.Fprint(w, formatter.GenerateFormattedIssue([]tt.Issue{*c.Issue}, sourceCode))
			}
		}
	}
	fmt.Fprintln(w, formatter.Summary(convs))
}

// writeJSON writes v grouped by file to path, or to w when path is empty.
func writeJSON(w io.Writer, v any, path string) error {
	d, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshalling JSON: %w", err)
	}
	if path == "" {
		_, err = fmt.Fprintln(w, string(d))
		return err
	}
	if err := os.WriteFile(path, d, 0o644); err != nil {
		return fmt.Errorf("error writing JSON output file: %w", err)
	}
	return nil
}

func conversionsByFile(convs []tt.Conversion) map[string][]tt.Conversion {
	_, byFile := groupByFile(convs, func(c tt.Conversion) string { return c.Filename })
	return byFile
}

func hasErrors(convs []tt.Conversion) bool {
	for _, c := range convs {
		if c.Issue != nil && c.Issue.Severity == tt.SeverityError {
			return true
		}
	}
	return false
}
