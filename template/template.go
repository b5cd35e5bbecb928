package template

import "github.com/robfig/miso/ast"

// Template is a template's parse tree, including its preceding doc comment.
type Template struct {
	*ast.DocNode     // this template's doc comment (may be synthesized empty)
	*ast.TemplateNode // this template's node

	Namespace *ast.NamespaceNode // this template's namespace
}

// Params returns the declared @param names for this template.
func (t Template) Params() []*ast.DocParamNode {
	if t.DocNode == nil {
		return nil
	}
	return t.DocNode.Params
}

// Delegate is a single implementation of a delegate template: one
// (name, variant, package, priority) combination.
type Delegate struct {
	*ast.DocNode
	*ast.DelTemplateNode

	Namespace *ast.NamespaceNode
}

// Params returns the declared @param names for this delegate.
func (d Delegate) Params() []*ast.DocParamNode {
	if d.DocNode == nil {
		return nil
	}
	return d.DocNode.Params
}
