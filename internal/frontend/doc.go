// Package frontend parses Go source and lowers function declarations to
// the tree grammar the conversion passes work on.
//
// Lowering is syntactic. A method receiver becomes the first parameter,
// `x op= e`, `x++` and `var x T` become plain assignments, else-if chains
// become elif clauses and an expression switch becomes an if/elif chain
// with its default clause as the else arm. Anything else (loops, defer,
// multiple assignment, composite literals...) is kept as an Unsupported
// statement so the pipeline rejects the function with a position.
//
// A `//flatssa:skip` or `//flatssa:nonstrict` comment above a function,
// or above the package clause, controls how it is converted.
package frontend
