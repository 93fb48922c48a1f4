package formatter

import (
	"strings"
)

type CyclomaticComplexityFormatter struct{}

func (f *CyclomaticComplexityFormatter) IssueTemplate() string {
	return `{{header .Rule .Severity .MaxLineNumWidth .Filename .StartLine .StartColumn}}` +
		`{{snippet .SnippetLines .StartLine .StartLine .MaxLineNumWidth .CommonIndent .Padding}}` +
		`{{complexityInfo .Padding .Message}}` +
		`{{suggestion .Suggestion .Padding}}` +
		`{{note .Note}}` + "\n"
}

func complexityInfo(padding string, message string) string {
	info := "Cyclomatic Complexity: " + strings.TrimPrefix(message, "function ")
	return lineStyle.Sprintf("%s= ", padding) + messageStyle.Sprintf("%s\n", info)
}
