package miso

import (
	"fmt"

	"github.com/robfig/miso/parse"
	"github.com/robfig/miso/parsepasses"
	"github.com/robfig/miso/render"
	"github.com/robfig/miso/template"
)

// Compile parses and structurally checks every template file added to b,
// returning a Tofu ready to render, or the first error encountered. The
// pipeline is: parse each file, rewrite its HTML-kind bodies into
// structural tag nodes, register it, then run the registry-wide passes
// (global substitution, data-ref validation, default autoescaping, message
// id assignment) across the whole set, so that cross-file {call}s and
// {deltemplate}s are checked consistently.
func (b *Bundle) Compile() (*render.Tofu, error) {
	if b.err != nil {
		return nil, b.err
	}

	var reg = &template.Registry{ActivePackages: b.activePackages}
	for _, f := range b.files {
		file, err := parse.File(f.name, f.text, b.globals)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", f.name, err)
		}
		parse.RewriteHTML(file)
		if err := reg.Add(file); err != nil {
			return nil, fmt.Errorf("%s: %v", f.name, err)
		}
	}

	if err := parsepasses.SetGlobals(reg, b.globals); err != nil {
		return nil, err
	}
	if err := parsepasses.CheckDataRefs(reg); err != nil {
		return nil, err
	}
	if err := parsepasses.Autoescape(reg); err != nil {
		return nil, err
	}
	parsepasses.ProcessMessages(reg)

	return render.NewTofu(reg), nil
}
