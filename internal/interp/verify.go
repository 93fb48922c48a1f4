package interp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gnolang/flatssa/internal/tree"
)

// VerificationResult is the verdict of comparing two functions.
type VerificationResult int

const (
	_ VerificationResult = iota
	// Equivalent means every checked input gave the same outcome.
	Equivalent
	// NotEquivalent means some input gave different outcomes.
	NotEquivalent
	// Unknown means no input could be checked.
	Unknown
)

func (r VerificationResult) String() string {
	switch r {
	case Equivalent:
		return "Equivalent"
	case NotEquivalent:
		return "NotEquivalent"
	case Unknown:
		return "Unknown"
	default:
		return "?"
	}
}

// ReasonCode explains a verdict.
type ReasonCode int

const (
	ReasonNone ReasonCode = iota
	ReasonSameResult
	ReasonDifferentValue
	ReasonDifferentState
	ReasonDifferentFailure
	ReasonAllFailed
	ReasonArity
	ReasonDifferentEffects
)

func (r ReasonCode) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonSameResult:
		return "same result for all inputs"
	case ReasonDifferentValue:
		return "different return values"
	case ReasonDifferentState:
		return "different final object state"
	case ReasonDifferentFailure:
		return "only one of the functions failed"
	case ReasonAllFailed:
		return "both functions failed on every input"
	case ReasonArity:
		return "different parameter lists"
	case ReasonDifferentEffects:
		return "different calls made for effect"
	default:
		return "unknown"
	}
}

// VerificationReport describes the outcome of Verify.
type VerificationReport struct {
	Result  VerificationResult
	Reason  ReasonCode
	Detail  string
	Checked int
	// Input is the first input the functions disagreed on.
	Input []Value
	// Truncated is set when the input space was larger than MaxCases.
	Truncated bool
}

func (r VerificationReport) String() string {
	s := fmt.Sprintf("%s: %s (%d inputs)", r.Result, r.Reason, r.Checked)
	if r.Detail != "" {
		s += ": " + r.Detail
	}
	return s
}

// DefaultSamples are used when a verifier is given none.
var DefaultSamples = []Value{
	tree.BoolValue{Val: true},
	tree.BoolValue{Val: false},
	tree.IntValue{Val: 0},
	tree.IntValue{Val: 1},
	tree.IntValue{Val: -1},
}

// DefaultMaxCases bounds the number of inputs a verifier tries.
const DefaultMaxCases = 4096

// Verifier checks that a converted function behaves like its original.
//
// Each parameter ranges over the samples. A parameter used as the owner
// of an attribute is instead an object whose accessed fields each range
// over the samples. Both functions get their own copy of every input.
type Verifier struct {
	globals  *Env
	samples  []Value
	MaxCases int
}

// NewVerifier creates a verifier. Without samples DefaultSamples is used.
func NewVerifier(globals *Env, samples ...Value) *Verifier {
	if len(samples) == 0 {
		samples = DefaultSamples
	}
	return &Verifier{globals: globals, samples: samples, MaxCases: DefaultMaxCases}
}

// slot is one dimension of the input space: a parameter, or one field
// of an object parameter.
type slot struct {
	param int
	field string
}

// Verify runs both functions on every input and compares the outcomes.
func (v *Verifier) Verify(original, converted *tree.FuncDef) VerificationReport {
	if len(original.Params) != len(converted.Params) {
		return VerificationReport{Result: NotEquivalent, Reason: ReasonArity}
	}
	slots, objects := inputSlots(original)

	report := VerificationReport{}
	failedBoth := 0
	cases := 0
	eachCombination(len(slots), len(v.samples), func(choice []int) bool {
		if v.MaxCases > 0 && cases >= v.MaxCases {
			report.Truncated = true
			return false
		}
		cases++
		args := v.build(original, slots, objects, choice)

		outcome, detail := v.compare(original, converted, args)
		switch outcome {
		case ReasonSameResult:
			report.Checked++
		case ReasonAllFailed:
			failedBoth++
		default:
			report.Result = NotEquivalent
			report.Reason = outcome
			report.Detail = detail
			report.Input = args
			return false
		}
		return true
	})

	switch {
	case report.Result == NotEquivalent:
	case report.Checked == 0 && failedBoth > 0:
		report.Result, report.Reason = Unknown, ReasonAllFailed
	default:
		report.Result, report.Reason = Equivalent, ReasonSameResult
	}
	return report
}

func (v *Verifier) build(fn *tree.FuncDef, slots []slot, objects map[int]bool, choice []int) []Value {
	args := make([]Value, len(fn.Params))
	for i, p := range fn.Params {
		if objects[i] {
			args[i] = NewObject(p, nil)
		}
	}
	for i, s := range slots {
		value := v.samples[choice[i]]
		if s.field == "" {
			args[s.param] = value
			continue
		}
		args[s.param].(*Object).Set(s.field, value)
	}
	return args
}

func (v *Verifier) compare(original, converted *tree.FuncDef, args []Value) (ReasonCode, string) {
	origArgs, convArgs := copyArgs(args), copyArgs(args)
	want, werr := NewEvaluator(v.globals).Call(original, origArgs)
	got, gerr := NewEvaluator(v.globals).Call(converted, convArgs)

	switch {
	case werr != nil && gerr != nil:
		return ReasonAllFailed, ""
	case werr != nil:
		return ReasonDifferentFailure, fmt.Sprintf("original failed with %v, converted returned %s", werr, got.Value)
	case gerr != nil:
		return ReasonDifferentFailure, fmt.Sprintf("original returned %s, converted failed with %v", want.Value, gerr)
	case !Equal(want.Value, got.Value):
		return ReasonDifferentValue, fmt.Sprintf("original returned %s, converted returned %s", want.Value, got.Value)
	case !sameCalls(want.Effects, got.Effects):
		return ReasonDifferentEffects, fmt.Sprintf("original called %s, converted called %s",
			formatCalls(want.Effects), formatCalls(got.Effects))
	}
	for i := range origArgs {
		if !Equal(origArgs[i], convArgs[i]) {
			return ReasonDifferentState, fmt.Sprintf("%s: original left %s, converted left %s",
				original.Params[i], origArgs[i], convArgs[i])
		}
	}
	return ReasonSameResult, ""
}

func sameCalls(a, b []CallRecord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Func != b[i].Func || len(a[i].Args) != len(b[i].Args) {
			return false
		}
		for j := range a[i].Args {
			if !Equal(a[i].Args[j], b[i].Args[j]) {
				return false
			}
		}
	}
	return true
}

func formatCalls(calls []CallRecord) string {
	if len(calls) == 0 {
		return "nothing"
	}
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return strings.Join(out, "; ")
}

func copyArgs(args []Value) []Value {
	seen := make(map[*Object]*Object)
	out := make([]Value, len(args))
	for i, a := range args {
		out[i] = clone(a, seen)
	}
	return out
}

// inputSlots lists the dimensions of the input space of fn.
func inputSlots(fn *tree.FuncDef) ([]slot, map[int]bool) {
	fields := make(map[string]map[string]bool)
	tree.InspectBlock(fn.Body, func(n tree.Node) bool {
		if a, ok := n.(*tree.Attribute); ok {
			if owner, ok := a.Value.(*tree.Name); ok {
				if fields[owner.ID] == nil {
					fields[owner.ID] = make(map[string]bool)
				}
				fields[owner.ID][a.Field] = true
			}
		}
		return true
	})

	var slots []slot
	objects := make(map[int]bool)
	for i, p := range fn.Params {
		fs, ok := fields[p]
		if !ok {
			slots = append(slots, slot{param: i})
			continue
		}
		objects[i] = true
		sorted := make([]string, 0, len(fs))
		for f := range fs {
			sorted = append(sorted, f)
		}
		sort.Strings(sorted)
		for _, f := range sorted {
			slots = append(slots, slot{param: i, field: f})
		}
	}
	return slots, objects
}

// eachCombination calls fn with every choice of n indexes below k, in
// lexicographic order, until fn returns false.
func eachCombination(n, k int, fn func(choice []int) bool) {
	choice := make([]int, n)
	for {
		if !fn(choice) {
			return
		}
		i := n - 1
		for i >= 0 && choice[i] == k-1 {
			choice[i] = 0
			i--
		}
		if i < 0 {
			return
		}
		choice[i]++
	}
}

// FormatInput renders an input vector for reports.
func FormatInput(params []string, args []Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		name := "?"
		if i < len(params) {
			name = params[i]
		}
		parts[i] = name + "=" + a.String()
	}
	return strings.Join(parts, ", ")
}
