package msg

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/robfig/miso/ast"
)

// SetPlaceholdersAndID wraps the print/call/html nodes within a {msg} body
// in MsgPlaceholderNode, assigns names to them (and to any {plural}
// nodes), and computes the message's content-based ID.
func SetPlaceholdersAndID(n *ast.MsgNode) {
	n.Body = wrapPlaceholders(n.Body)
	setPlaceholderNames(n)
	n.ID = CalcID(n)
}

// wrapPlaceholders rewrites body so that every node that stands in for
// translatable content external to the message (a print, a call, an html
// tag) is wrapped in a *ast.MsgPlaceholderNode. MsgPluralNode/MsgSelectNode
// are left as-is; their case bodies are recursively wrapped.
func wrapPlaceholders(body ast.Node) ast.Node {
	switch body := body.(type) {
	case *ast.ListNode:
		for i, child := range body.Nodes {
			if isPlaceholderCandidate(child) {
				body.Nodes[i] = &ast.MsgPlaceholderNode{Pos: child.Position(), Body: child}
				continue
			}
			body.Nodes[i] = wrapPlaceholders(child)
		}
		return body
	case *ast.MsgPluralNode:
		for _, c := range body.Cases {
			c.Body = wrapPlaceholders(c.Body)
		}
		return body
	case *ast.MsgSelectNode:
		for _, c := range body.Cases {
			c.Body = wrapPlaceholders(c.Body)
		}
		return body
	default:
		return body
	}
}

func isPlaceholderCandidate(node ast.Node) bool {
	switch node.(type) {
	case *ast.PrintNode, *ast.CallNode, *ast.CallDelNode,
		*ast.HTMLOpenTagNode, *ast.HTMLCloseTagNode, *ast.HTMLCommentNode:
		return true
	}
	return false
}

// setPlaceholderNames generates the placeholder names for all children of
// the given message node, setting the .Name (or .VarName) property on them.
func setPlaceholderNames(n *ast.MsgNode) {
	var (
		baseNameToRepNodes  = make(map[string][]ast.Node)
		equivNodeToRepNodes = make(map[ast.Node]ast.Node)
	)

	var nodeQueue = phNodes(n.Body)
	for len(nodeQueue) > 0 {
		var node = nodeQueue[0]
		nodeQueue = nodeQueue[1:]

		var baseName string
		switch node := node.(type) {
		case *ast.MsgPlaceholderNode:
			baseName = genBasePlaceholderName(node.Body, "XXX")
		case *ast.MsgPluralNode:
			for _, c := range node.Cases {
				nodeQueue = append(nodeQueue, phNodes(c.Body)...)
			}
			baseName = genBasePlaceholderName(node.Value, "NUM")
		default:
			panic("unexpected")
		}

		if nodes, ok := baseNameToRepNodes[baseName]; !ok {
			baseNameToRepNodes[baseName] = []ast.Node{node}
		} else {
			var isNew = true
			var str = node.String()
			for _, other := range nodes {
				if other.String() == str {
					equivNodeToRepNodes[node] = other
					isNew = false
					break
				}
			}
			if isNew {
				baseNameToRepNodes[baseName] = append(nodes, node)
			}
		}
	}

	var nameToRepNodes = make(map[string]ast.Node)
	for baseName, nodes := range baseNameToRepNodes {
		if len(nodes) == 1 {
			nameToRepNodes[baseName] = nodes[0]
			continue
		}
		var nextSuffix = 1
		for _, node := range nodes {
			for {
				var newName = baseName + "_" + strconv.Itoa(nextSuffix)
				if _, ok := nameToRepNodes[newName]; !ok {
					nameToRepNodes[newName] = node
					break
				}
				nextSuffix++
			}
		}
	}

	var nodeToName = make(map[ast.Node]string)
	for name, node := range nameToRepNodes {
		nodeToName[node] = name
	}
	for other, repNode := range equivNodeToRepNodes {
		nodeToName[other] = nodeToName[repNode]
	}

	for node, name := range nodeToName {
		switch node := node.(type) {
		case *ast.MsgPlaceholderNode:
			node.Name = name
		case *ast.MsgPluralNode:
			node.VarName = name
		default:
			panic("unexpected: " + node.String())
		}
	}
}

func phNodes(body ast.Node) []ast.Node {
	var nodeQueue []ast.Node
	list, ok := body.(*ast.ListNode)
	if !ok {
		return nodeQueue
	}
	for _, child := range list.Nodes {
		switch child.(type) {
		case *ast.MsgPlaceholderNode, *ast.MsgPluralNode:
			nodeQueue = append(nodeQueue, child)
		}
	}
	return nodeQueue
}

func genBasePlaceholderName(node ast.Node, defaultName string) string {
	switch part := node.(type) {
	case *ast.PrintNode:
		return genBasePlaceholderNameFromExpr(part.Arg, defaultName)
	case *ast.MsgPlaceholderNode:
		return genBasePlaceholderName(part.Body, defaultName)
	case *ast.HTMLOpenTagNode:
		return toUpperUnderscore(htmlTagDisplayName(part.Name) + "_START")
	case *ast.HTMLCloseTagNode:
		return toUpperUnderscore(htmlTagDisplayName(part.Name) + "_END")
	case *ast.HTMLCommentNode:
		return "COMMENT"
	case *ast.CallNode:
		return toUpperUnderscore(lastSegment(part.Name))
	case *ast.CallDelNode:
		return toUpperUnderscore(lastSegment(part.Name))
	case *ast.DataRefNode:
		return genBasePlaceholderNameFromExpr(node, defaultName)
	}
	return defaultName
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "."); i != -1 {
		return name[i+1:]
	}
	return name
}

func genBasePlaceholderNameFromExpr(expr ast.Node, defaultName string) string {
	switch expr := expr.(type) {
	case *ast.GlobalNode:
		return toUpperUnderscore(lastSegment(expr.Name))
	case *ast.DataRefNode:
		if len(expr.Access) == 0 {
			return toUpperUnderscore(expr.Key)
		}
		var lastChild = expr.Access[len(expr.Access)-1]
		if lastChild, ok := lastChild.(*ast.DataRefKeyNode); ok {
			return toUpperUnderscore(lastChild.Key)
		}
	case *ast.MethodCallNode:
		return toUpperUnderscore(expr.Name)
	}
	return defaultName
}

var htmlTagNames = map[string]string{
	"a":   "link",
	"br":  "break",
	"b":   "bold",
	"i":   "italic",
	"li":  "item",
	"ol":  "ordered_list",
	"ul":  "unordered_list",
	"p":   "paragraph",
	"img": "image",
	"em":  "emphasis",
}

func htmlTagDisplayName(tag string) string {
	if pretty, ok := htmlTagNames[strings.ToLower(tag)]; ok {
		return pretty
	}
	return tag
}

var (
	leadingOrTrailing_ = regexp.MustCompile("^_+|_+$")
	consecutive_       = regexp.MustCompile("__+")
	wordBoundary1      = regexp.MustCompile("([a-zA-Z])([A-Z][a-z])") // <letter>_<upper><lower>
	wordBoundary2      = regexp.MustCompile("([a-zA-Z])([0-9])")      // <letter>_<digit>
	wordBoundary3      = regexp.MustCompile("([0-9])([a-zA-Z])")      // <digit>_<letter>
)

func toUpperUnderscore(ident string) string {
	ident = leadingOrTrailing_.ReplaceAllString(ident, "")
	ident = consecutive_.ReplaceAllString(ident, "${1}_${2}")
	ident = wordBoundary1.ReplaceAllString(ident, "${1}_${2}")
	ident = wordBoundary2.ReplaceAllString(ident, "${1}_${2}")
	ident = wordBoundary3.ReplaceAllString(ident, "${1}_${2}")
	return strings.ToUpper(ident)
}
