// Package internal provides the conversion engine behind flatssa.
//
// The Engine parses a Go file, lowers every function into the tree
// form, runs the configured pass pipeline over it and renders the
// straight-line result back to Go source. Each function yields one
// types.Conversion: the rendered output and symbol table on success, or
// an Issue describing why the function was left alone.
//
// Key components:
//
// Engine: runs the pipeline over files or sources, rewrites files in
// place (Rewrite) and checks results with the interpreter (Verify).
//
// Cache: keeps conversions of unchanged files between runs.
//
// Watching: StartWatching reconverts files as they change on disk.
//
// Usage:
//
//	engine, err := internal.NewEngine(config.Default(), logger)
//	if err != nil {
//	    // handle error
//	}
//
//	convs, err := engine.Run("path/to/file.go")
//	if err != nil {
//	    // handle error
//	}
//
//	for _, c := range convs {
//	    if c.Failed() {
//	        fmt.Printf("%s: %s\n", c.Func, c.Issue.Message)
//	    }
//	}
package internal
