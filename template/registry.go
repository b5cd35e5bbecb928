// Package template provides convenient access to groups of parsed template
// files, including resolution of delegate templates by name, variant,
// package and priority.
package template

import (
	"fmt"
	"log"
	"strings"

	"github.com/robfig/miso/ast"
)

// Registry provides convenient access to a collection of parsed template
// files and the delegate templates they declare.
type Registry struct {
	Files     []*ast.FileNode
	Templates []Template

	// Delegates maps a delegate name to every implementation registered for
	// it, across all packages and variants.
	Delegates map[string][]Delegate

	// ActivePackages lists the delpackages that should be considered when
	// resolving a {delcall}. A delegate registered under a package not in
	// this set is never selected, regardless of its own declared priority.
	ActivePackages map[string]bool

	sourceByTemplateName map[string]string
	fileByTemplateName   map[string]string
}

// Add parses the given file node's templates and delegate templates into
// the registry.
func (r *Registry) Add(file *ast.FileNode) error {
	if r.sourceByTemplateName == nil {
		r.sourceByTemplateName = make(map[string]string)
		r.fileByTemplateName = make(map[string]string)
		r.Delegates = make(map[string][]Delegate)
	}

	var ns *ast.NamespaceNode
	for _, node := range file.Body {
		switch node := node.(type) {
		case *ast.DocNode:
			continue
		case *ast.DelPackageNode:
			continue
		case *ast.NamespaceNode:
			ns = node
		default:
			return fmt.Errorf("expected namespace, found %v", node)
		}
		break
	}
	if ns == nil {
		return fmt.Errorf("namespace required")
	}

	r.Files = append(r.Files, file)
	for i := 0; i < len(file.Body); i++ {
		switch tn := file.Body[i].(type) {
		case *ast.TemplateNode:
			var doc = precedingDoc(file.Body, i, tn.Pos)
			r.Templates = append(r.Templates, Template{doc, tn, ns})
			r.sourceByTemplateName[tn.Name] = file.Text
			r.fileByTemplateName[tn.Name] = file.Name
		case *ast.DelTemplateNode:
			var doc = precedingDoc(file.Body, i, tn.Pos)
			r.Delegates[tn.Name] = append(r.Delegates[tn.Name], Delegate{doc, tn, ns})
			r.sourceByTemplateName[tn.Name] = file.Text
			r.fileByTemplateName[tn.Name] = file.Name
		}
	}
	return nil
}

func precedingDoc(body []ast.Node, i int, pos ast.Pos) *ast.DocNode {
	if i == 0 {
		return &ast.DocNode{Pos: pos}
	}
	if doc, ok := body[i-1].(*ast.DocNode); ok {
		return doc
	}
	return &ast.DocNode{Pos: pos}
}

// Template allows lookup by (fully-qualified) template name.
func (r *Registry) Template(name string) (Template, bool) {
	for _, t := range r.Templates {
		if t.TemplateNode.Name == name {
			return t, true
		}
	}
	return Template{}, false
}

// SelectDelegate resolves a {delcall} to the delegate implementation with
// the highest priority among those registered for name and variant (falling
// back to the empty variant), restricted to active packages. Returns false
// if no implementation applies.
func (r *Registry) SelectDelegate(name, variant string) (Delegate, bool) {
	var candidates = r.Delegates[name]
	var best Delegate
	var bestPriority = -1
	var ambiguous []Delegate
	for _, d := range candidates {
		if d.Variant != variant && d.Variant != "" {
			continue
		}
		if d.Variant == "" && variant != "" && hasVariant(candidates, name, variant) {
			continue // a more specific variant exists elsewhere; prefer it
		}
		if d.Package != "" && !r.ActivePackages[d.Package] {
			continue
		}
		switch {
		case d.Priority > bestPriority:
			best, bestPriority = d, d.Priority
			ambiguous = ambiguous[:0]
		case d.Priority == bestPriority:
			ambiguous = append(ambiguous, d)
		}
	}
	if bestPriority == -1 {
		return Delegate{}, false
	}
	if len(ambiguous) > 0 {
		panic(fmt.Errorf("delegate %q: ambiguous priority %d among %d implementations",
			name, bestPriority, len(ambiguous)+1))
	}
	return best, true
}

func hasVariant(delegates []Delegate, name, variant string) bool {
	for _, d := range delegates {
		if d.Name == name && d.Variant == variant {
			return true
		}
	}
	return false
}

// LineNumber computes the line number in the input source for the given node
// within the given template.
func (r *Registry) LineNumber(templateName string, node ast.Node) int {
	var src, ok = r.sourceByTemplateName[templateName]
	if !ok {
		log.Println("template not found:", templateName)
		return 0
	}
	return 1 + strings.Count(src[:node.Position()], "\n")
}

// ColNumber computes the column number in the relevant line of input source
// for the given node within the given template.
func (r *Registry) ColNumber(templateName string, node ast.Node) int {
	var src, ok = r.sourceByTemplateName[templateName]
	if !ok {
		log.Println("template not found:", templateName)
		return 0
	}
	return 1 + int(node.Position()) - strings.LastIndex(src[:node.Position()], "\n")
}

// Filename identifies the filename containing the specified template.
func (r *Registry) Filename(templateName string) string {
	var f, ok = r.fileByTemplateName[templateName]
	if !ok {
		log.Println("template not found:", templateName)
		return ""
	}
	return f
}
