package po

import (
	"bytes"
	"fmt"

	"github.com/robfig/miso/ast"
)

// Validate checks whether the given message is representable in a PO file.
// A MsgNode must be validated before trying to calculate its msgid or
// msgid_plural.
//
// Rules:
//   - If a message contains a {plural}, it must be the sole child.
//   - A plural must contain exactly a {case 1} and {default} (spec "other").
func Validate(n *ast.MsgNode) error {
	var children = bodyChildren(n.Body)
	for i, child := range children {
		if p, ok := child.(*ast.MsgPluralNode); ok {
			if i != 0 || len(children) != 1 {
				return fmt.Errorf("plural node must be the sole child")
			}
			if len(p.Cases) != 2 || !hasCase(p, "1") || !hasCase(p, "other") {
				return fmt.Errorf("PO requires exactly two plural cases [1, other], found %v", p.Cases)
			}
		}
	}
	return nil
}

func hasCase(p *ast.MsgPluralNode, spec string) bool {
	for _, c := range p.Cases {
		if c.Spec == spec {
			return true
		}
	}
	return false
}

// Msgid returns the msgid for the given msg node.
func Msgid(n *ast.MsgNode) string {
	return msgidn(n, true)
}

// MsgidPlural returns the msgid_plural for the given message, or "" if the
// message has no plural form.
func MsgidPlural(n *ast.MsgNode) string {
	return msgidn(n, false)
}

func msgidn(n *ast.MsgNode, singular bool) string {
	var children = bodyChildren(n.Body)
	if len(children) == 0 {
		return ""
	}
	if pluralNode, ok := children[0].(*ast.MsgPluralNode); ok {
		var spec = "other"
		if singular {
			spec = "1"
		}
		var found = false
		for _, c := range pluralNode.Cases {
			if c.Spec == spec {
				children = bodyChildren(c.Body)
				found = true
				break
			}
		}
		if !found {
			return ""
		}
	} else if !singular {
		return ""
	}
	var buf bytes.Buffer
	for _, child := range children {
		writeph(&buf, child)
	}
	return buf.String()
}

func bodyChildren(body ast.Node) []ast.Node {
	if list, ok := body.(*ast.ListNode); ok {
		return list.Nodes
	}
	if parent, ok := body.(ast.ParentNode); ok {
		return parent.Children()
	}
	return nil
}

// writeph writes the placeholder string for the given node to buf.
func writeph(buf *bytes.Buffer, child ast.Node) {
	switch child := child.(type) {
	case *ast.RawTextNode:
		buf.Write(child.Text)
	case *ast.MsgPlaceholderNode:
		buf.WriteString("{" + child.Name + "}")
	}
}
