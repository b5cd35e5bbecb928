package parse

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/robfig/miso/ast"
)

// sentinel is spliced into the byte stream handed to the HTML tokenizer in
// place of any non-text node (a {print}, {if}, {call}, ...), so that
// dynamic content interleaved with markup still tokenizes as ordinary text;
// splitSentinels then recovers the original nodes from the decoded text.
const sentinel = "\x00"

// RewriteHTML walks file's templates and replaces each RawTextNode run
// inside a kind="html" (the default) template or deltemplate body with
// HTMLOpenTagNode/HTMLCloseTagNode/HTMLAttributeNode/HTMLCommentNode nodes,
// so that later passes and the renderer see tag boundaries rather than
// opaque text. Templates of any other kind are left untouched.
func RewriteHTML(file *ast.FileNode) {
	for _, node := range file.Body {
		switch n := node.(type) {
		case *ast.TemplateNode:
			if isHTMLKind(n.Kind) {
				n.Body = rewriteList(n.Body)
			}
		case *ast.DelTemplateNode:
			n.Body = rewriteList(n.Body)
		}
	}
}

func isHTMLKind(kind string) bool {
	return kind == "" || kind == "html"
}

// rewriteNode recurses into the body of a control-flow or block node so
// that markup nested beneath it is rewritten before this level's own tags
// are tokenized. A tag can't be represented if it opens in one branch and
// closes in another, so each branch is rewritten independently.
func rewriteNode(n ast.Node) ast.Node {
	switch n := n.(type) {
	case *ast.ListNode:
		return rewriteList(n)
	case *ast.IfNode:
		for _, c := range n.Conds {
			c.Body = rewriteNode(c.Body)
		}
		return n
	case *ast.SwitchNode:
		for _, c := range n.Cases {
			c.Body = rewriteNode(c.Body)
		}
		return n
	case *ast.ForNode:
		n.Body = rewriteNode(n.Body)
		if n.IfEmpty != nil {
			n.IfEmpty = rewriteNode(n.IfEmpty)
		}
		return n
	case *ast.LetContentNode:
		if isHTMLKind(n.Kind) {
			n.Body = rewriteNode(n.Body)
		}
		return n
	case *ast.CallParamContentNode:
		if isHTMLKind(n.Kind) {
			n.Content = rewriteNode(n.Content)
		}
		return n
	case *ast.MsgNode:
		n.Body = rewriteNode(n.Body)
		return n
	default:
		return n
	}
}

// rewriteList tokenizes one ListNode's RawTextNode runs as HTML, splicing
// in its non-text siblings as opaque tokens so dynamic content survives the
// round trip.
func rewriteList(list *ast.ListNode) *ast.ListNode {
	if list == nil {
		return nil
	}
	for i, n := range list.Nodes {
		list.Nodes[i] = rewriteNode(n)
	}

	var src, byIndex = spliceSentinels(list.Nodes)
	var z = html.NewTokenizer(strings.NewReader(src))
	var out []ast.Node
	var pos = list.Pos

tokenLoop:
	for {
		switch z.Next() {
		case html.ErrorToken:
			break tokenLoop
		case html.TextToken:
			out = append(out, splitSentinels(string(z.Text()), byIndex, pos)...)
		case html.StartTagToken, html.SelfClosingTagToken:
			out = append(out, buildOpenTag(z.Token(), byIndex, pos))
		case html.EndTagToken:
			out = append(out, &ast.HTMLCloseTagNode{Pos: pos, Name: z.Token().Data})
		case html.CommentToken:
			out = append(out, &ast.HTMLCommentNode{Pos: pos, Text: z.Token().Data})
		case html.DoctypeToken:
			out = append(out, &ast.RawTextNode{Pos: pos, Text: []byte("<!DOCTYPE " + z.Token().Data + ">")})
		}
	}
	return &ast.ListNode{Pos: list.Pos, Nodes: out}
}

func buildOpenTag(tok html.Token, byIndex map[int]ast.Node, pos ast.Pos) *ast.HTMLOpenTagNode {
	var attrs = make([]*ast.HTMLAttributeNode, len(tok.Attr))
	for i, a := range tok.Attr {
		var attr = &ast.HTMLAttributeNode{Pos: pos, Name: a.Key}
		if a.Val != "" {
			attr.Value = &ast.HTMLAttributeValueNode{
				Pos:   pos,
				Quote: '"',
				Body:  &ast.ListNode{Pos: pos, Nodes: splitSentinels(a.Val, byIndex, pos)},
			}
		}
		attrs[i] = attr
	}
	return &ast.HTMLOpenTagNode{
		Pos:        pos,
		Name:       tok.Data,
		Attrs:      attrs,
		SelfClosed: tok.Type == html.SelfClosingTagToken,
	}
}

// spliceSentinels concatenates nodes' text into one source string, writing
// "\x00<index>\x00" for every non-RawTextNode sibling in place.
func spliceSentinels(nodes []ast.Node) (string, map[int]ast.Node) {
	var buf strings.Builder
	var byIndex = make(map[int]ast.Node)
	for i, n := range nodes {
		if rt, ok := n.(*ast.RawTextNode); ok {
			buf.Write(rt.Text)
			continue
		}
		byIndex[i] = n
		buf.WriteString(sentinel)
		buf.WriteString(strconv.Itoa(i))
		buf.WriteString(sentinel)
	}
	return buf.String(), byIndex
}

// splitSentinels reverses spliceSentinels over a (possibly tokenizer-decoded)
// substring, recovering the original interleaved nodes.
func splitSentinels(s string, byIndex map[int]ast.Node, pos ast.Pos) []ast.Node {
	var parts = strings.Split(s, sentinel)
	var out []ast.Node
	for i, part := range parts {
		if i%2 == 1 {
			if idx, err := strconv.Atoi(part); err == nil {
				if n, ok := byIndex[idx]; ok {
					out = append(out, n)
					continue
				}
			}
			out = append(out, &ast.RawTextNode{Pos: pos, Text: []byte(sentinel + part + sentinel)})
			continue
		}
		if part != "" {
			out = append(out, &ast.RawTextNode{Pos: pos, Text: []byte(part)})
		}
	}
	return out
}
