package types

import (
	"go/token"
	"strings"
)

// Severity is the level of an issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityOff
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	case SeverityInfo:
		return "INFO"
	case SeverityOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity reads a severity name, case-insensitively.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return SeverityError, true
	case "WARNING", "WARN":
		return SeverityWarning, true
	case "INFO":
		return SeverityInfo, true
	case "OFF":
		return SeverityOff, true
	}
	return SeverityError, false
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Rules attached to issues.
const (
	RuleUnsupported = "unsupported-construct"
	RuleUnprovable  = "unprovable"
	RuleInternal    = "internal-error"
	RuleRender      = "render-error"
	RuleEquivalence = "not-equivalent"
	RuleComplexity  = "high-cyclomatic-complexity"
)

// Issue represents a problem found while converting a function.
type Issue struct {
	Rule       string         `json:"rule"`
	Category   string         `json:"category,omitempty"`
	Filename   string         `json:"filename"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion,omitempty"`
	Note       string         `json:"note,omitempty"`
	Start      token.Position `json:"start"`
	End        token.Position `json:"end"`
	Severity   Severity       `json:"severity"`
}

// Conversion is the outcome for one function.
type Conversion struct {
	Filename   string         `json:"filename"`
	Func       string         `json:"func"`
	Start      token.Position `json:"start"`
	End        token.Position `json:"end"`
	Strict     bool           `json:"strict"`
	Skipped    bool           `json:"skipped,omitempty"`
	Complexity int            `json:"complexity"`
	Passes     []string       `json:"passes,omitempty"`
	// Output is the rendered Go declaration, empty on failure.
	Output string `json:"output,omitempty"`
	// Symbols maps source lines to the versioned name of each variable.
	Symbols map[int]map[string]string `json:"symbols,omitempty"`
	// Verified holds the equivalence report when verification ran.
	Verified string `json:"verified,omitempty"`
	Issue    *Issue `json:"issue,omitempty"`
}

// Failed reports whether conversion produced an issue.
func (c Conversion) Failed() bool {
	return c.Issue != nil
}
