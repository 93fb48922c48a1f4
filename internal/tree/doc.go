// Package tree defines the statement and expression grammar consumed and
// produced by the conversion passes.
//
// Nodes are immutable pointers. A pass never edits a node in place; it
// builds new nodes and reuses unchanged subtrees, which lets callers
// track the provenance of every output node by identity.
//
// Structural comparison (Equal, Hasher) ignores source positions and is
// what guard simplification relies on.
package tree
