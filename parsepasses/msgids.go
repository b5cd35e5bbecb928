package parsepasses

import (
	"github.com/robfig/miso/ast"
	"github.com/robfig/miso/msg"
	"github.com/robfig/miso/template"
)

// ProcessMessages walks every template and delegate in the registry,
// wrapping the placeholders within each {msg} body and assigning message
// ids, so that the render package and msg backends can address translated
// content by a stable key.
func ProcessMessages(reg *template.Registry) {
	for _, t := range reg.Templates {
		processTemplateMsgs(t.TemplateNode)
	}
	for _, list := range reg.Delegates {
		for _, d := range list {
			processTemplateMsgs(d.DelTemplateNode)
		}
	}
}

func processTemplateMsgs(node ast.Node) {
	switch node := node.(type) {
	case *ast.MsgNode:
		msg.SetPlaceholdersAndID(node)
	default:
		if parent, ok := node.(ast.ParentNode); ok {
			for _, child := range parent.Children() {
				processTemplateMsgs(child)
			}
		}
	}
}
