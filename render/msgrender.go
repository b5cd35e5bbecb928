package render

import (
	"io"
	"strconv"

	"github.com/robfig/miso/ast"
	"github.com/robfig/miso/data"
	"github.com/robfig/miso/msg"
)

// evalMsg renders a {msg} block: if a translation bundle is attached and
// holds a message for this node's id, its parts are rendered (substituting
// placeholders and plural cases back in from the original body); otherwise
// the source-language body is walked directly.
func (s *state) evalMsg(node *ast.MsgNode) {
	if s.msgs != nil {
		if m := s.msgs.Message(node.ID); m != nil {
			s.writeMsgParts(node, m.Parts)
			return
		}
	}
	s.walkMsgBody(node.Body)
}

func (s *state) writeMsgParts(node *ast.MsgNode, parts []msg.Part) {
	for _, part := range parts {
		switch part := part.(type) {
		case msg.RawTextPart:
			if _, err := io.WriteString(s.wr, part.Text); err != nil {
				s.errorf("%s", err)
			}
		case msg.PlaceholderPart:
			var ph = findPlaceholder(node.Body, part.Name)
			if ph == nil {
				s.errorf("failed to find placeholder %q in %v", part.Name, msg.PlaceholderString(node))
			}
			s.walk(ph.Body)
		case msg.PluralPart:
			var pn = findPlural(node.Body, part.VarName)
			if pn == nil {
				s.errorf("failed to find plural %q in %v", part.VarName, msg.PlaceholderString(node))
			}
			var n = s.pluralValue(pn)
			var idx = s.msgs.PluralCase(n - int(pn.Offset))
			if idx < 0 || idx >= len(part.Cases) {
				idx = len(part.Cases) - 1
			}
			s.pushPluralOffset(pn.Offset)
			s.writeMsgParts(node, part.Cases[idx].Parts)
			s.popPluralOffset()
		default:
			s.errorf("unrecognized message part: %T", part)
		}
	}
}

// walkMsgBody renders the source-language body of a message directly,
// choosing plural/select cases from the evaluated data rather than from a
// translation bundle.
func (s *state) walkMsgBody(body ast.Node) {
	switch body := body.(type) {
	case *ast.ListNode:
		for _, c := range body.Nodes {
			s.walkMsgBody(c)
		}
	case *ast.RawTextNode:
		s.walk(body)
	case *ast.MsgPlaceholderNode:
		s.walk(body.Body)
	case *ast.MsgPluralNode:
		var n = s.pluralValue(body)
		var c = selectPluralCase(body.Cases, n)
		if c == nil {
			s.errorf("plural %v has no matching or default case for %d", body, n)
		}
		s.pushPluralOffset(body.Offset)
		s.walkMsgBody(c.Body)
		s.popPluralOffset()
	case *ast.MsgSelectNode:
		var v = s.eval(body.Value).String()
		var c = selectSelectCase(body.Cases, v)
		if c == nil {
			s.errorf("select %v has no matching or default case for %q", body, v)
		}
		s.walkMsgBody(c.Body)
	default:
		s.errorf("unexpected node in message body: %T", body)
	}
}

// pluralValue returns the raw (not offset-adjusted) integer value of a
// {plural} node's expression. Explicit `{case N}` literals are matched
// against this raw value; only remainder() sees it with the offset
// subtracted.
func (s *state) pluralValue(pn *ast.MsgPluralNode) int {
	var v = s.evaldef(pn.Value)
	iv, ok := v.(data.Int)
	if !ok {
		s.errorf("plural value %q is not an integer", pn.Value.String())
	}
	return int(iv)
}

// selectPluralCase matches n, the raw plural value, against the explicit
// integer case literals, falling back to {default}.
func selectPluralCase(cases []*ast.MsgPluralCaseNode, n int) *ast.MsgPluralCaseNode {
	var other *ast.MsgPluralCaseNode
	for _, c := range cases {
		if c.Spec == strconv.Itoa(n) {
			return c
		}
		if c.Spec == "other" {
			other = c
		}
	}
	return other
}

// pushPluralOffset and popPluralOffset track the offset of the {plural}
// currently being rendered so remainder() can reach it without being
// passed through every intervening eval call.
func (s *state) pushPluralOffset(offset int64) {
	s.pluralOffsets = append(s.pluralOffsets, offset)
}

func (s *state) popPluralOffset() {
	s.pluralOffsets = s.pluralOffsets[:len(s.pluralOffsets)-1]
}

func (s *state) currentPluralOffset() (int64, bool) {
	if len(s.pluralOffsets) == 0 {
		return 0, false
	}
	return s.pluralOffsets[len(s.pluralOffsets)-1], true
}

func selectSelectCase(cases []*ast.MsgSelectCaseNode, v string) *ast.MsgSelectCaseNode {
	var def *ast.MsgSelectCaseNode
	for _, c := range cases {
		if c.Value == v {
			return c
		}
		if c.Value == "" {
			def = c
		}
	}
	return def
}

// findPlaceholder locates the MsgPlaceholderNode named name anywhere within
// body, descending into plural/select case bodies.
func findPlaceholder(body ast.Node, name string) *ast.MsgPlaceholderNode {
	switch body := body.(type) {
	case *ast.ListNode:
		for _, c := range body.Nodes {
			if ph, ok := c.(*ast.MsgPlaceholderNode); ok && ph.Name == name {
				return ph
			}
			if found := findPlaceholder(c, name); found != nil {
				return found
			}
		}
	case *ast.MsgPluralNode:
		for _, c := range body.Cases {
			if found := findPlaceholder(c.Body, name); found != nil {
				return found
			}
		}
	case *ast.MsgSelectNode:
		for _, c := range body.Cases {
			if found := findPlaceholder(c.Body, name); found != nil {
				return found
			}
		}
	}
	return nil
}

// findPlural locates the MsgPluralNode named name anywhere within body.
func findPlural(body ast.Node, name string) *ast.MsgPluralNode {
	switch body := body.(type) {
	case *ast.ListNode:
		for _, c := range body.Nodes {
			if pn, ok := c.(*ast.MsgPluralNode); ok && pn.VarName == name {
				return pn
			}
			if found := findPlural(c, name); found != nil {
				return found
			}
		}
	case *ast.MsgPluralNode:
		if body.VarName == name {
			return body
		}
		for _, c := range body.Cases {
			if found := findPlural(c.Body, name); found != nil {
				return found
			}
		}
	case *ast.MsgSelectNode:
		for _, c := range body.Cases {
			if found := findPlural(c.Body, name); found != nil {
				return found
			}
		}
	}
	return nil
}
