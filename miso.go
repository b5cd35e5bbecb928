// Package miso implements a server-side, Soy/Closure-Templates-style
// template language: parser, structural checks, and a streaming
// tree-walking renderer.
package miso

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/robfig/miso/ast"
	"github.com/robfig/miso/data"
	"github.com/robfig/miso/parse"
)

type namedSource struct{ name, text string }

// Bundle collects template source files and compile-time globals and
// compiles them into a render.Tofu. Discovering template files on disk and
// watching them for changes isn't Bundle's job (see miso/devwatch); Bundle
// only ever sees source text handed to it directly.
type Bundle struct {
	files          []namedSource
	globals        map[string]data.Value
	activePackages map[string]bool
	err            error
}

// NewBundle returns an empty Bundle, ready to accumulate template sources.
func NewBundle() *Bundle {
	return &Bundle{
		globals:        make(map[string]data.Value),
		activePackages: make(map[string]bool),
	}
}

// AddTemplateString adds one template file's source, identified by name in
// error messages and diagnostics (conventionally a filesystem path).
func (b *Bundle) AddTemplateString(name, text string) *Bundle {
	b.files = append(b.files, namedSource{name, text})
	return b
}

// WithGlobal registers a single compile-time global constant, resolved
// wherever the corresponding bare identifier appears in a template
// expression.
func (b *Bundle) WithGlobal(name string, value data.Value) *Bundle {
	if b.err == nil {
		if _, ok := b.globals[name]; ok {
			b.err = fmt.Errorf("global %q is already defined", name)
			return b
		}
		b.globals[name] = value
	}
	return b
}

// WithActivePackage marks a delpackage as active, making its {deltemplate}
// implementations eligible to win {delcall} priority dispatch.
func (b *Bundle) WithActivePackage(name string) *Bundle {
	b.activePackages[name] = true
	return b
}

// ParseGlobals reads "name = <literal>" lines from text — blank lines and
// lines starting with "//" are ignored, and <literal> must be a template
// expression literal for a primitive type (null, boolean, integer, float,
// or string) — registering each as a compile-time global.
func (b *Bundle) ParseGlobals(text string) *Bundle {
	if b.err != nil {
		return b
	}
	var scanner = bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		var line = strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		var eq = strings.Index(line, "=")
		if eq == -1 {
			b.err = fmt.Errorf("globals: no '=' on line: %q", line)
			return b
		}
		var name, expr = strings.TrimSpace(line[:eq]), strings.TrimSpace(line[eq+1:])
		node, err := parse.Expr(expr)
		if err != nil {
			b.err = fmt.Errorf("globals: %v", err)
			return b
		}
		val, err := evalConst(node)
		if err != nil {
			b.err = fmt.Errorf("globals: %s: %v", name, err)
			return b
		}
		b.WithGlobal(name, val)
	}
	if err := scanner.Err(); err != nil {
		b.err = err
	}
	return b
}

// evalConst evaluates a literal expression node (no data refs, no function
// calls) into a data.Value, for use by globals files where every value
// must be a compile-time constant.
func evalConst(node ast.Node) (data.Value, error) {
	switch node := node.(type) {
	case *ast.NullNode:
		return data.Null{}, nil
	case *ast.BoolNode:
		return data.Bool(node.True), nil
	case *ast.IntNode:
		return data.Int(node.Value), nil
	case *ast.FloatNode:
		return data.Float(node.Value), nil
	case *ast.StringNode:
		return data.String(node.Value), nil
	case *ast.NegateNode:
		switch arg := node.Arg.(type) {
		case *ast.IntNode:
			return data.Int(-arg.Value), nil
		case *ast.FloatNode:
			return data.Float(-arg.Value), nil
		}
	}
	return nil, fmt.Errorf("not a constant literal: %v", node)
}

// Render is a convenience wrapper around Compile+render.Tofu.Render for
// one-off renders of a single-file bundle.
func (b *Bundle) Render(wr io.Writer, name string, obj interface{}) error {
	tofu, err := b.Compile()
	if err != nil {
		return err
	}
	return tofu.Render(wr, name, obj)
}
