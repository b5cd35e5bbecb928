package parsepasses

import (
	"fmt"

	"github.com/robfig/miso/ast"
	"github.com/robfig/miso/data"
	"github.com/robfig/miso/template"
)

// SetGlobals sets the value of all global nodes in the given registry.
// An error is returned if any globals were left undefined.
func SetGlobals(reg *template.Registry, globals map[string]data.Value) error {
	for _, t := range reg.Templates {
		if err := SetNodeGlobals(t.TemplateNode, globals); err != nil {
			return fmt.Errorf("template %v: %v", t.TemplateNode.Name, err)
		}
	}
	for _, list := range reg.Delegates {
		for _, d := range list {
			if err := SetNodeGlobals(d.DelTemplateNode, globals); err != nil {
				return fmt.Errorf("template %v: %v", d.Name, err)
			}
		}
	}
	return nil
}

// SetNodeGlobals sets global values on the given node and all children
// nodes, using the given value map. An error is returned if any global
// nodes were left undefined.
func SetNodeGlobals(node ast.Node, globals map[string]data.Value) error {
	switch node := node.(type) {
	case *ast.GlobalNode:
		if val, ok := globals[node.Name]; ok {
			node.Value = val
		} else {
			return fmt.Errorf("global %q is undefined", node.Name)
		}
	default:
		if parent, ok := node.(ast.ParentNode); ok {
			for _, child := range parent.Children() {
				if err := SetNodeGlobals(child, globals); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
