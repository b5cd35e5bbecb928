package render

import (
	"bufio"
	"errors"
	"io"

	"github.com/robfig/miso/ast"
	"github.com/robfig/miso/data"
	"github.com/robfig/miso/msg"
)

// ErrTemplateNotFound is returned by Execute when the renderer's named
// template isn't present in its registry.
var ErrTemplateNotFound = errors.New("template not found")

// Renderer provides parameters to a single template execution. At minimum a
// Tofu and a template name are required; Inject/WithMessages/WithOptions
// customize the rest.
type Renderer struct {
	tofu    *Tofu
	name    string
	ij      *data.Record
	msgs    msg.Bundle
	options Options
}

// Options controls renderer behavior beyond the template's own data.
type Options struct {
	// DebugInfo is carried into the render state of the template and of
	// every template it calls. The renderer emits no debug comments or
	// placeholder metadata from it; output is the same either way.
	DebugInfo bool

	// StrictUndefined, when true, makes a non-null-safe `.field`/`[key]`
	// access on an Undefined base raise an error instead of yielding
	// Undefined. Off by default, matching legacy permissive behavior.
	StrictUndefined bool
}

// Inject sets the given record as the $ij injected data available to every
// template invoked during this render, including delegate and called
// templates.
func (r *Renderer) Inject(ij *data.Record) *Renderer {
	r.ij = ij
	return r
}

// WithMessages provides a translated message bundle substituted for {msg}
// blocks during this render. Without one, {msg} blocks render their
// source-language body.
func (r *Renderer) WithMessages(bundle msg.Bundle) *Renderer {
	r.msgs = bundle
	return r
}

// WithOptions sets rendering options such as DebugInfo.
func (r *Renderer) WithOptions(options Options) *Renderer {
	r.options = options
	return r
}

// Execute applies the named template to obj and writes the result to wr.
// wr is wrapped in a buffered writer so that output produced before a
// not-yet-ready data.Provider is reached can be flushed prior to blocking
// on it.
func (r Renderer) Execute(wr io.Writer, obj *data.Record) (err error) {
	if r.tofu == nil || r.tofu.registry == nil {
		return errors.New("template registry required")
	}
	if r.name == "" {
		return errors.New("template name required")
	}

	var tmpl, ok = r.tofu.registry.Template(r.name)
	if !ok {
		return ErrTemplateNotFound
	}

	var autoescapeMode = tmpl.Namespace.Autoescape
	if autoescapeMode == ast.AutoescapeUnspecified {
		autoescapeMode = ast.AutoescapeOn
	}

	var initialScope = newScope(recordToMap(obj))
	initialScope.enter()

	var bw = bufio.NewWriter(wr)
	s := &state{
		tmpl:       tmpl,
		registry:   r.tofu.registry,
		namespace:  tmpl.Namespace.Name,
		autoescape: autoescapeMode,
		wr:         bw,
		context:    initialScope,
		ij:         r.ij,
		msgs:            r.msgs,
		debugInfo:       r.options.DebugInfo,
		strictUndefined: r.options.StrictUndefined,
	}
	defer s.errRecover(&err)
	s.walk(tmpl.TemplateNode)
	if flushErr := bw.Flush(); err == nil {
		err = flushErr
	}
	return
}
