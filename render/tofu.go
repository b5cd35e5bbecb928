package render

import (
	"fmt"
	"io"

	"github.com/robfig/miso/data"
	"github.com/robfig/miso/template"
)

// Tofu is a bundle of compiled templates, ready to render.
type Tofu struct {
	registry   *template.Registry
	funcs      map[string]Func           // functions by name
	directives map[string]PrintDirective // print directives by name
}

// NewTofu returns a new instance that is ready to render the given
// templates, seeded with the default functions and print directives.
func NewTofu(registry *template.Registry) *Tofu {
	return &Tofu{registry, Funcs, PrintDirectives}
}

// AddFuncs records funcs on this Tofu under the given names. The renderer
// resolves function names only in the package-level Funcs map, so functions
// added here are not visible to templates.
func (tofu *Tofu) AddFuncs(funcs map[string]Func) *Tofu {
	var newfuncs = make(map[string]Func, len(tofu.funcs)+len(funcs))
	for k, v := range tofu.funcs {
		newfuncs[k] = v
	}
	for k, v := range funcs {
		newfuncs[k] = v
	}
	tofu.funcs = newfuncs
	return tofu
}

// AddDirectives records print directives on this Tofu. The renderer and the
// autoescape pass read only the package-level PrintDirectives map, so
// directives added here are not applied.
func (tofu *Tofu) AddDirectives(directives map[string]PrintDirective) *Tofu {
	var newdirectives = make(map[string]PrintDirective, len(tofu.directives)+len(directives))
	for k, v := range tofu.directives {
		newdirectives[k] = v
	}
	for k, v := range directives {
		newdirectives[k] = v
	}
	tofu.directives = newdirectives
	return tofu
}

// Render is a convenience function that executes the named template, using
// obj (converted via data.New) as context, and writes the result to wr.
//
// Struct properties are converted to lowerCamel by default, following the
// language's naming convention; use NewRenderer directly to customize.
func (tofu Tofu) Render(wr io.Writer, name string, obj interface{}) error {
	var r *data.Record
	if obj != nil {
		var ok bool
		r, ok = data.New(obj).(*data.Record)
		if !ok {
			return fmt.Errorf("invalid data type: expected map/struct, got %T", obj)
		}
	}
	return tofu.NewRenderer(name).Execute(wr, r)
}

// NewRenderer returns a new Renderer for the named template.
func (tofu *Tofu) NewRenderer(name string) *Renderer {
	return &Renderer{tofu: tofu, name: name}
}
