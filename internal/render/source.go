package render

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/token"
	"sort"
	"strings"

	"github.com/gnolang/flatssa/internal/names"
	"github.com/gnolang/flatssa/internal/tree"
)

const helperTemplate = `
// %[1]s returns then when cond holds and orElse otherwise.
func %[1]s[T any](cond bool, then, orElse T) T {
	if cond {
		return then
	}
	return orElse
}
`

// HelperSource returns the declaration of the multiplexer helper.
func HelperSource(name string) string {
	return fmt.Sprintf(helperTemplate, name)
}

// ExistingHelper finds a helper declared by an earlier run in f.
func ExistingHelper(f *ast.File) (string, bool) {
	for _, decl := range f.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Recv != nil || !strings.HasPrefix(fd.Name.Name, DefaultHelper) {
			continue
		}
		if fd.Type.TypeParams.NumFields() == 1 && fd.Type.Params.NumFields() == 3 && fd.Type.Results.NumFields() == 1 {
			return fd.Name.Name, true
		}
	}
	return "", false
}

// ForFile returns a renderer for f: it reuses a helper f already
// declares, or picks a name free in env and in fns.
func ForFile(f *ast.File, env names.Env, fns ...*tree.FuncDef) *Renderer {
	if name, ok := ExistingHelper(f); ok {
		r := New(name)
		r.declared = true
		return r
	}
	return New(HelperName(env, fns...))
}

// Replacement is a converted function printed in place of the body of
// its declaration.
type Replacement struct {
	Decl *ast.FuncDecl
	Func *tree.FuncDef
	// Types spells out declared types; nil falls back to `:=`.
	Types Types
}

type edit struct {
	start, end int
	text       []byte
}

// Source rewrites src, the file fset parsed, replacing each
// declaration's body with its converted form. Comments inside replaced
// bodies are dropped; the rest of the file is kept. The helper is
// appended when a body calls it and the file does not declare it yet.
func (r *Renderer) Source(fset *token.FileSet, src []byte, repl []Replacement) ([]byte, error) {
	edits := make([]edit, 0, len(repl))
	for _, rp := range repl {
		text, err := r.block(rp.Func, rp.Types)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rp.Func.Name, err)
		}
		edits = append(edits, edit{
			start: fset.Position(rp.Decl.Body.Lbrace).Offset,
			end:   fset.Position(rp.Decl.Body.Rbrace).Offset + 1,
			text:  text,
		})
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })

	out := src
	for _, e := range edits {
		if e.start < 0 || e.end > len(out) || e.start >= e.end {
			return nil, fmt.Errorf("body offsets %d:%d out of range", e.start, e.end)
		}
		var buf bytes.Buffer
		buf.Grow(len(out) - (e.end - e.start) + len(e.text))
		buf.Write(out[:e.start])
		buf.Write(e.text)
		buf.Write(out[e.end:])
		out = buf.Bytes()
	}
	if r.used && !r.declared {
		out = append(out, HelperSource(r.helper)...)
		r.declared = true
	}

	formatted, err := format.Source(out)
	if err != nil {
		return nil, fmt.Errorf("error formatting output: %w", err)
	}
	return formatted, nil
}

// Func returns the formatted declaration of decl with the body of fn.
// src is the file decl was parsed from; typs may be nil.
func (r *Renderer) Func(fset *token.FileSet, src []byte, decl *ast.FuncDecl, fn *tree.FuncDef, typs Types) (string, error) {
	start := fset.Position(decl.Pos()).Offset
	lbrace := fset.Position(decl.Body.Lbrace).Offset
	if start < 0 || lbrace > len(src) || start > lbrace {
		return "", fmt.Errorf("declaration offsets %d:%d out of range", start, lbrace)
	}
	body, err := r.block(fn, typs)
	if err != nil {
		return "", err
	}
	text := append(append([]byte(nil), src[start:lbrace]...), body...)
	formatted, err := format.Source(text)
	if err != nil {
		return "", fmt.Errorf("error formatting %s: %w", fn.Name, err)
	}
	return strings.TrimSpace(string(formatted)), nil
}

func (r *Renderer) block(fn *tree.FuncDef, typs Types) ([]byte, error) {
	body, err := r.Body(fn, typs)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := format.Node(&buf, token.NewFileSet(), body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
