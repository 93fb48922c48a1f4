// Package passes implements the conversion pipeline that turns a
// branching function body into straight-line single-assignment form.
//
// Every stage consumes and produces a Unit (function tree, name
// environment, metadata). Stages run in a fixed order:
//
//   - ElifNormalizer: nests elif chains into plain if/else
//   - AttributeHoister: replaces written owner.field targets with locals
//   - GuardMaterializer: binds every branch test to a fresh name
//   - ReturnFlattener: turns returns into guarded values and folds them
//   - Renamer: versions every local write and multiplexes at joins
//   - SymbolTableBuilder: maps source lines to live versions
//
// Each stage records a provenance map in the metadata so the final tree
// can be traced back to the input.
package passes
