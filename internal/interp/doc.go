// Package interp evaluates functions of the tree grammar and checks a
// converted function against its original.
//
// The model covers what the grammar can express:
//   - scalars are the literal kinds (int, bool, string, nil)
//   - objects are mutable field maps shared by reference, so attribute
//     writes made by a function are visible to its caller
//   - builtins are Go functions bound in the global environment
//
// Conditional expressions and boolean operators short-circuit. A body
// that runs off its end returns nil.
//
// The verifier runs both functions over the Cartesian product of a set
// of sample values and compares returned values, failures, and the final
// state of every object argument.
package interp
