// Package parse converts a template file into its in-memory representation (AST).
package parse

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"unicode"

	"github.com/robfig/miso/ast"
	"github.com/robfig/miso/data"
)

// tree is the parsed representation of a single template file.
type tree struct {
	name       string                // name provided for the input
	root       *ast.ListNode         // top-level root of the tree
	text       string                // the full input text
	lex        *lexer                // lexer provides a sequence of tokens
	token      [2]item               // two-token lookahead
	peekCount  int                   // how many tokens have we backed up?
	namespace  string                // the current namespace, for fully-qualifying template names
	delpackage string                // the delpackage in effect for subsequent {deltemplate}s, "" if none
	aliases    map[string]string     // map from alias to namespace e.g. {"c": "a.b.c"}
	globals    map[string]data.Value // global (compile-time constants) values by name
}

// File parses the input into a FileNode (the AST).
func File(name, text string, globals map[string]data.Value) (node *ast.FileNode, err error) {
	var t = &tree{
		name:    name,
		text:    text,
		aliases: make(map[string]string),
		globals: globals,
		lex:     lex(name, text),
	}
	defer t.recover(&err)
	t.root = t.itemList(itemEOF)
	t.lex = nil
	return &ast.FileNode{
		Name: t.name,
		Text: t.text,
		Body: t.root.Nodes,
	}, nil
}

// Expr returns the parsed representation of the given expression.
// An expression is anything that may be placed inside a print tag: a
// string, list, record, or map literal, arithmetic, a boolean expression,
// a data reference, etc.
func Expr(str string) (node ast.Node, err error) {
	var t = &tree{lex: lexExpr("", str)}
	defer t.recover(&err)
	return t.parseExpr(0), err
}

// itemList:
//	textOrTag*
// Terminates when it comes across the given end tag.
func (t *tree) itemList(until ...itemType) *ast.ListNode {
	var list *ast.ListNode
	for {
		var token = t.next()
		if list == nil {
			list = &ast.ListNode{Pos: token.pos}
		}
		var node, halt = t.textOrTag(token, until)
		if halt {
			return list
		}
		if node != nil {
			list.Nodes = append(list.Nodes, node)
		}
	}
}

// textOrTag reads raw text or recognizes the start of tags until the end tag.
func (t *tree) textOrTag(token item, until []itemType) (node ast.Node, halt bool) {
	for token.typ == itemComment {
		token = t.next() // skip any comments
	}

	// Two ways to end a list:
	// 1. We found the until token (e.g. EOF)
	if isOneOf(token.typ, until) {
		return nil, true
	}

	// 2. The until token is a command, e.g. {else} {/template}
	var token2 = t.next()
	if token.typ == itemLeftDelim && isOneOf(token2.typ, until) {
		return nil, true
	}

	t.backup()
	switch token.typ {
	case itemText:
		var text = token.val
		for {
			var next = t.next()
			if next.typ != itemText {
				t.backup()
				break
			}
			text += next.val
		}
		var textvalue = rawtext(text)
		if len(textvalue) == 0 {
			return nil, false
		}
		return &ast.RawTextNode{Pos: token.pos, Text: textvalue}, false
	case itemLeftDelim:
		return t.beginTag(), false
	case itemDocStart:
		return t.parseDoc(token), false
	default:
		t.unexpected(token, "input")
	}
	return nil, false
}

var specialChars = map[itemType]string{
	itemNil:            "",
	itemSpace:          " ",
	itemTab:            "\t",
	itemNewline:        "\n",
	itemCarriageReturn: "\r",
	itemLeftBrace:      "{",
	itemRightBrace:     "}",
}

// beginTag parses the contents of a tag: a command, variable, function
// call, expression, etc. The opening "{" has already been read.
func (t *tree) beginTag() ast.Node {
	switch token := t.next(); token.typ {
	case itemNamespace:
		return t.parseNamespace(token)
	case itemTemplate:
		return t.parseTemplate(token)
	case itemDeltemplate:
		return t.parseDelTemplate(token)
	case itemDelpackage:
		return t.parseDelPackage(token)
	case itemIf:
		return t.parseIf(token)
	case itemMsg:
		return t.parseMsg(token)
	case itemPlural:
		return t.parseMsgPlural(token)
	case itemSelect:
		return t.parseMsgSelect(token)
	case itemFor:
		return t.parseFor(token)
	case itemSwitch:
		return t.parseSwitch(token)
	case itemCall:
		return t.parseCall(token)
	case itemDelcall:
		return t.parseDelCall(token)
	case itemLiteral:
		t.expect(itemRightDelim, "literal")
		literalText := t.expect(itemText, "literal")
		n := &ast.RawTextNode{Pos: literalText.pos, Text: []byte(literalText.val)}
		t.expect(itemLeftDelim, "literal")
		t.expect(itemLiteralEnd, "literal")
		t.expect(itemRightDelim, "literal")
		return n
	case itemCss:
		return t.parseCss(token)
	case itemXid:
		return t.parseXid(token)
	case itemLog:
		t.expect(itemRightDelim, "log")
		logBody := t.itemList(itemLogEnd)
		t.expect(itemRightDelim, "log")
		return &ast.LogNode{Pos: token.pos, Body: logBody}
	case itemDebugger:
		t.expect(itemRightDelim, "debugger")
		return &ast.DebuggerNode{Pos: token.pos}
	case itemLet:
		return t.parseLet(token)
	case itemAlias:
		t.parseAlias(token)
		return nil
	case itemNil, itemSpace, itemTab, itemNewline, itemCarriageReturn, itemLeftBrace, itemRightBrace:
		t.expect(itemRightDelim, "special char")
		return &ast.RawTextNode{Pos: token.pos, Text: []byte(specialChars[token.typ])}
	case itemIdent, itemDollarIdent, itemNull, itemBool, itemFloat, itemInteger, itemString, itemNegate, itemNot, itemLeftBracket:
		// print is implicit, so the tag may also begin with any value type or unary op.
		t.backup()
		fallthrough
	case itemPrint:
		return t.parsePrint(token)
	default:
		t.unexpected(token, "tag")
	}
	return nil
}

// print has just been read (or inferred)
func (t *tree) parsePrint(token item) ast.Node {
	var expr = t.parseExpr(0)
	var directives []*ast.PrintDirectiveNode
	for {
		switch tok := t.next(); tok.typ {
		case itemRightDelim:
			return &ast.PrintNode{Pos: token.pos, Arg: expr, Directives: directives}
		case itemPipe:
			var id = t.expect(itemIdent, "print directive")
			var args []ast.Node
			for {
				switch next := t.next(); next.typ {
				case itemColon, itemComma:
					args = append(args, t.parseExpr(0))
					continue
				default:
					t.backup()
				}
				break
			}
			directives = append(directives, &ast.PrintDirectiveNode{Pos: tok.pos, Name: id.val, Args: args})
		default:
			t.unexpected(tok, "print. (expected '|' or '}')")
		}
	}
}

// parseAlias updates the tree with the given alias. Aliases apply at parse
// time to names seen subsequently in the file.
// "alias" has just been read.
func (t *tree) parseAlias(token item) {
	var name = t.expect(itemIdent, "alias").val
	var lastSegment = name
	for {
		switch next := t.next(); next.typ {
		case itemDotIdent:
			name += next.val
			lastSegment = next.val[1:]
		case itemRightDelim:
			t.aliases[lastSegment] = name
			return
		default:
			t.unexpected(next, "alias. (expected '}')")
		}
	}
}

// "let" has just been read.
func (t *tree) parseLet(token item) ast.Node {
	var name = t.expect(itemDollarIdent, "let")
	if t.peek().typ == itemColon {
		t.next()
		var node = &ast.LetValueNode{Pos: token.pos, Name: name.val[1:], Expr: t.parseExpr(0)}
		t.expect(itemRightDelimEnd, "let")
		return node
	}
	var attrs = t.parseAttrs("kind")
	t.expect(itemRightDelim, "let")
	var node = &ast.LetContentNode{Pos: token.pos, Name: name.val[1:], Kind: attrs["kind"], Body: t.itemList(itemLetEnd)}
	t.expect(itemRightDelim, "let")
	return node
}

// "css" has just been read. The body is unquoted and may contain hyphens,
// so the lexer hands it back whole as a single itemText.
func (t *tree) parseCss(token item) ast.Node {
	var cmdText = t.expect(itemText, "css")
	t.expect(itemRightDelim, "css")
	var text = cmdText.val
	var lastComma = strings.LastIndex(text, ",")
	if lastComma == -1 {
		return &ast.CssNode{Pos: token.pos, Suffix: strings.TrimSpace(text)}
	}
	return &ast.CssNode{
		Pos:    token.pos,
		Expr:   t.parseQuotedExpr(strings.TrimSpace(text[:lastComma])),
		Suffix: strings.TrimSpace(text[lastComma+1:]),
	}
}

// "xid" has just been read.
func (t *tree) parseXid(token item) ast.Node {
	var cmdText = t.expect(itemText, "xid")
	t.expect(itemRightDelim, "xid")
	return &ast.XidNode{Pos: token.pos, Name: strings.TrimSpace(cmdText.val)}
}

// "call" has just been read.
func (t *tree) parseCall(token item) ast.Node {
	var templateName string
	switch tok := t.next(); tok.typ {
	case itemDotIdent:
		templateName = tok.val
	case itemIdent:
		switch tok2 := t.next(); tok2.typ {
		case itemDotIdent:
			templateName = tok.val + tok2.val
			for tokn := t.next(); tokn.typ == itemDotIdent; tokn = t.next() {
				templateName += tokn.val
			}
			t.backup()
		default:
			t.backup2(tok)
		}
	default:
		t.backup()
	}
	attrs := t.parseAttrs("name", "data")

	if templateName == "" {
		templateName = attrs["name"]
	}
	if templateName == "" {
		t.errorf("call: template name not found")
	}

	templateName = t.qualify(templateName)

	var allData = false
	var dataNode ast.Node
	if d, ok := attrs["data"]; ok {
		if d == "all" {
			allData = true
		} else {
			dataNode = t.parseQuotedExpr(d)
		}
	}

	switch tok := t.next(); tok.typ {
	case itemRightDelimEnd:
		return &ast.CallNode{Pos: token.pos, Name: templateName, AllData: allData, Data: dataNode}
	case itemRightDelim:
		body := t.parseCallParams(itemCallEnd)
		t.expect(itemLeftDelim, "call")
		t.expect(itemCallEnd, "call")
		t.expect(itemRightDelim, "call")
		return &ast.CallNode{Pos: token.pos, Name: templateName, AllData: allData, Data: dataNode, Params: body}
	default:
		t.unexpected(tok, "error scanning {call}")
	}
	panic("unreachable")
}

// "delcall" has just been read.
func (t *tree) parseDelCall(token item) ast.Node {
	var name string
	switch tok := t.next(); tok.typ {
	case itemIdent:
		name = tok.val
		for t.peek().typ == itemDotIdent {
			name += t.next().val
		}
	default:
		t.unexpected(tok, "delcall")
	}
	attrs := t.parseAttrs("variant", "data")

	var variant ast.Node
	if v, ok := attrs["variant"]; ok {
		variant = t.parseQuotedExpr(v)
	}
	var allData = false
	var dataNode ast.Node
	if d, ok := attrs["data"]; ok {
		if d == "all" {
			allData = true
		} else {
			dataNode = t.parseQuotedExpr(d)
		}
	}

	switch tok := t.next(); tok.typ {
	case itemRightDelimEnd:
		return &ast.CallDelNode{Pos: token.pos, Name: name, Variant: variant, AllData: allData, Data: dataNode}
	case itemRightDelim:
		body := t.parseCallParams(itemDelcallEnd)
		t.expect(itemLeftDelim, "delcall")
		t.expect(itemDelcallEnd, "delcall")
		t.expect(itemRightDelim, "delcall")
		return &ast.CallDelNode{Pos: token.pos, Name: name, Variant: variant, AllData: allData, Data: dataNode, Params: body}
	default:
		t.unexpected(tok, "error scanning {delcall}")
	}
	panic("unreachable")
}

// qualify resolves a possibly-relative template name against the current
// namespace and alias table.
func (t *tree) qualify(name string) string {
	if name[0] == '.' {
		return t.namespace + name
	}
	if dot := strings.Index(name, "."); dot != -1 {
		if alias, ok := t.aliases[name[:dot]]; ok {
			return alias + name[dot:]
		}
	}
	return name
}

// parseCallParams collects a list of call params. The closing delimiter of
// the opening {call}/{delcall} tag has just been read.
//
//	{param a: 'expr'/}
//	{param a}expr{/param}
//	{param key="a" value="'expr'"/}
//	{param key="a"}expr{/param}
func (t *tree) parseCallParams(endTok itemType) []ast.Node {
	var params []ast.Node
	for {
		var (
			key   string
			value ast.Node
		)

		var initial = t.nextNonComment()
		for initial.typ == itemText {
			// content is not allowed in between {param}s, but it's ok if it's
			// a comment; check what remains after stripping it as text.
			if text := rawtext(initial.val); len(text) != 0 {
				t.unexpected(initial, "{call}, in between {param}'s (orphan content)")
			}
			initial = t.nextNonComment()
		}
		if initial.typ != itemLeftDelim {
			t.unexpected(initial, "param list (expected '{')")
		}

		var cmd = t.next()
		if cmd.typ == endTok {
			t.backup2(initial)
			return params
		}
		if cmd.typ != itemParam {
			t.errorf("expected param declaration")
		}

		var firstIdent = t.expect(itemIdent, "param")
		switch tok := t.next(); tok.typ {
		case itemColon:
			key = firstIdent.val
			value = t.parseExpr(0)
			t.expect(itemRightDelimEnd, "param")
			params = append(params, &ast.CallParamValueNode{Pos: initial.pos, Key: key, Value: value})
			continue
		case itemRightDelim:
			key = firstIdent.val
			value = t.itemList(itemParamEnd)
			t.expect(itemRightDelim, "param")
			params = append(params, &ast.CallParamContentNode{Pos: initial.pos, Key: key, Content: value})
			continue
		case itemIdent:
			key = firstIdent.val
			t.backup()
		case itemEquals:
			t.backup2(firstIdent)
		default:
			t.unexpected(tok, "param. (expected ':', '}', or '=')")
		}

		attrs := t.parseAttrs("key", "value", "kind")
		var ok bool
		if key == "" {
			if key, ok = attrs["key"]; !ok {
				t.errorf("param key not found.  (attrs: %v)", attrs)
			}
		}
		var valueStr string
		if valueStr, ok = attrs["value"]; !ok {
			t.expect(itemRightDelim, "param")
			value = t.itemList(itemParamEnd)
			t.expect(itemRightDelim, "param")
			params = append(params, &ast.CallParamContentNode{Pos: initial.pos, Key: key, Kind: attrs["kind"], Content: value})
		} else {
			value = t.parseQuotedExpr(valueStr)
			t.expect(itemRightDelimEnd, "param")
			params = append(params, &ast.CallParamValueNode{Pos: initial.pos, Key: key, Value: value})
		}
	}
}

// "switch" has just been read.
func (t *tree) parseSwitch(token item) ast.Node {
	const ctx = "switch"
	var switchValue = t.parseExpr(0)
	t.expect(itemRightDelim, ctx)

	var cases []*ast.SwitchCaseNode
	for {
		switch tok := t.next(); tok.typ {
		case itemLeftDelim:
		case itemText:
			if allSpace(tok.val) {
				continue
			}
			t.unexpected(tok, "between switch cases")
		case itemCase, itemDefault:
			cases = append(cases, t.parseCase(tok))
		case itemSwitchEnd:
			t.expect(itemRightDelim, ctx)
			return &ast.SwitchNode{Pos: token.pos, Value: switchValue, Cases: cases}
		}
	}
}

// "case" or "default" has just been read.
func (t *tree) parseCase(token item) *ast.SwitchCaseNode {
	var values []ast.Node
	for {
		if token.typ != itemDefault {
			values = append(values, t.parseExpr(0))
		}
		switch tok := t.next(); tok.typ {
		case itemComma:
			continue
		case itemRightDelim:
			var body = t.itemList(itemCase, itemDefault, itemSwitchEnd)
			t.backup()
			return &ast.SwitchCaseNode{Pos: token.pos, Values: values, Body: body}
		default:
			t.unexpected(tok, "switch case")
		}
	}
}

// "plural" has just been read.
func (t *tree) parseMsgPlural(token item) ast.Node {
	const ctx = "plural"
	var value = t.parseExpr(0)
	var attrs = t.parseAttrs("offset")
	t.expect(itemRightDelim, ctx)

	var offset int64
	if v, ok := attrs["offset"]; ok {
		var err error
		offset, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			t.error(err)
		}
	}

	var cases []*ast.MsgPluralCaseNode
	for {
		switch tok := t.next(); tok.typ {
		case itemLeftDelim:
		case itemText:
			if allSpace(tok.val) {
				continue
			}
			t.unexpected(tok, "between plural cases")
		case itemCase:
			cases = append(cases, t.parsePluralCase(tok))
		case itemDefault:
			t.expect(itemRightDelim, "default")
			var body = t.itemList(itemCase, itemDefault, itemPluralEnd)
			t.backup()
			cases = append(cases, &ast.MsgPluralCaseNode{Pos: tok.pos, Spec: "other", Body: body})
		case itemPluralEnd:
			t.expect(itemRightDelim, ctx)
			return &ast.MsgPluralNode{Pos: token.pos, Value: value, Offset: offset, Cases: cases}
		default:
			t.unexpected(tok, ctx)
		}
	}
}

func (t *tree) parsePluralCase(token item) *ast.MsgPluralCaseNode {
	var spec string
	switch tok := t.next(); tok.typ {
	case itemInteger:
		spec = tok.val
	case itemIdent:
		if tok.val != "other" {
			t.unexpected(tok, "plural case (expected integer or 'other')")
		}
		spec = "other"
	default:
		t.unexpected(tok, "plural case")
	}
	t.expect(itemRightDelim, "case")
	var body = t.itemList(itemCase, itemDefault, itemPluralEnd)
	t.backup()
	return &ast.MsgPluralCaseNode{Pos: token.pos, Spec: spec, Body: body}
}

// "select" has just been read.
func (t *tree) parseMsgSelect(token item) ast.Node {
	const ctx = "select"
	var value = t.parseExpr(0)
	t.expect(itemRightDelim, ctx)

	var cases []*ast.MsgSelectCaseNode
	for {
		switch tok := t.next(); tok.typ {
		case itemLeftDelim:
		case itemText:
			if allSpace(tok.val) {
				continue
			}
			t.unexpected(tok, "between select cases")
		case itemCase:
			var strTok = t.expect(itemString, "select case")
			s, err := unquoteString(strTok.val)
			if err != nil {
				t.error(err)
			}
			t.expect(itemRightDelim, "case")
			var body = t.itemList(itemCase, itemDefault, itemSelectEnd)
			t.backup()
			cases = append(cases, &ast.MsgSelectCaseNode{Pos: tok.pos, Value: s, Body: body})
		case itemDefault:
			t.expect(itemRightDelim, "default")
			var body = t.itemList(itemCase, itemDefault, itemSelectEnd)
			t.backup()
			cases = append(cases, &ast.MsgSelectCaseNode{Pos: tok.pos, Body: body})
		case itemSelectEnd:
			t.expect(itemRightDelim, ctx)
			return &ast.MsgSelectNode{Pos: token.pos, Value: value, Cases: cases}
		default:
			t.unexpected(tok, ctx)
		}
	}
}

// "for" has just been read. The collection is either an arbitrary
// expression (iterating a List or Record) or a range(...) call, which is
// rewritten here into a ForRangeNode.
func (t *tree) parseFor(token item) ast.Node {
	const ctx = "for"
	var vartoken = t.expect(itemDollarIdent, ctx)
	var intoken = t.expect(itemIdent, ctx)
	if intoken.val != "in" {
		t.unexpected(intoken, "for loop (expected 'in')")
	}

	var collection = t.parseExpr(0)
	t.expect(itemRightDelim, ctx)
	if fn, ok := collection.(*ast.FunctionNode); ok && fn.Name == "range" {
		collection = t.rangeNode(fn)
	}

	var body = t.itemList(itemIfempty, itemForEnd)
	t.backup()
	var ifempty ast.Node
	if t.next().typ == itemIfempty {
		t.expect(itemRightDelim, "ifempty")
		ifempty = t.itemList(itemForEnd)
	}
	t.expect(itemRightDelim, "/for")
	return &ast.ForNode{Pos: token.pos, Var: vartoken.val[1:], List: collection, Body: body, IfEmpty: ifempty}
}

func (t *tree) rangeNode(fn *ast.FunctionNode) ast.Node {
	switch len(fn.Args) {
	case 1:
		return &ast.ForRangeNode{Pos: fn.Pos, End: fn.Args[0]}
	case 2:
		return &ast.ForRangeNode{Pos: fn.Pos, Start: fn.Args[0], End: fn.Args[1]}
	case 3:
		return &ast.ForRangeNode{Pos: fn.Pos, Start: fn.Args[0], End: fn.Args[1], Step: fn.Args[2]}
	default:
		t.errorf("range() takes 1 to 3 arguments, got %d", len(fn.Args))
	}
	panic("unreachable")
}

// "if" has just been read.
func (t *tree) parseIf(token item) ast.Node {
	var conds []*ast.IfCondNode
	var isElse = false
	for {
		var condExpr ast.Node
		if !isElse {
			condExpr = t.parseExpr(0)
		}
		t.expect(itemRightDelim, "if")
		var body = t.itemList(itemElseif, itemElse, itemIfEnd)
		conds = append(conds, &ast.IfCondNode{Pos: token.pos, Cond: condExpr, Body: body})
		t.backup()
		switch t.next().typ {
		case itemElseif:
			// continue
		case itemElse:
			isElse = true
		case itemIfEnd:
			t.expect(itemRightDelim, "/if")
			return &ast.IfNode{Pos: token.pos, Conds: conds}
		}
	}
}

func (t *tree) parseDoc(token item) ast.Node {
	var params []*ast.DocParamNode
	for {
		var optional = false
		switch next := t.next(); next.typ {
		case itemText:
			// ignore
		case itemDocOptParam:
			optional = true
			fallthrough
		case itemDocParam:
			var ident = t.expect(itemIdent, "doc comment param")
			params = append(params, &ast.DocParamNode{Pos: next.pos, Name: ident.val, Optional: optional})
		case itemDocEnd:
			return &ast.DocNode{Pos: token.pos, Params: params}
		default:
			t.unexpected(next, "doc comment")
		}
	}
}

func inStringSlice(item string, group []string) bool {
	for _, x := range group {
		if x == item {
			return true
		}
	}
	return false
}

func (t *tree) parseAttrs(allowedNames ...string) map[string]string {
	var result = make(map[string]string)
	for {
		switch tok := t.next(); tok.typ {
		case itemIdent:
			if !inStringSlice(tok.val, allowedNames) {
				t.unexpected(tok, fmt.Sprintf("attributes. allowed: %v", allowedNames))
			}
			t.expect(itemEquals, "attribute")
			var attrval = t.expect(itemString, "attribute")
			var err error
			result[tok.val], err = strconv.Unquote(attrval.val)
			if err != nil {
				t.error(err)
			}
		case itemRightDelim, itemRightDelimEnd:
			t.backup()
			return result
		default:
			t.unexpected(tok, "attributes")
		}
	}
}

// "msg" has just been read. {plural}/{select} nested within are parsed as
// ordinary tags within the body; the placeholder-naming pass assigns names
// to the print/call/html nodes found inside it.
func (t *tree) parseMsg(token item) ast.Node {
	const ctx = "msg"
	var attrs = t.parseAttrs("desc", "meaning", "hidden")
	if _, ok := attrs["desc"]; !ok {
		t.errorf("tag 'msg' must have a 'desc' attribute")
	}
	t.expect(itemRightDelim, ctx)
	var node = &ast.MsgNode{Pos: token.pos, Meaning: attrs["meaning"], Desc: attrs["desc"], Body: t.itemList(itemMsgEnd)}
	t.expect(itemRightDelim, ctx)
	return node
}

func (t *tree) parseNamespace(token item) ast.Node {
	if t.namespace != "" {
		t.errorf("file may have only one namespace declaration")
	}
	const ctx = "namespace"
	var name = t.expect(itemIdent, ctx).val
	for {
		switch part := t.next(); part.typ {
		case itemDotIdent:
			name += part.val
		default:
			t.backup()
			var autoescape = t.parseAutoescape(t.parseAttrs("autoescape"))
			t.expect(itemRightDelim, ctx)
			t.namespace = name
			return &ast.NamespaceNode{Pos: token.pos, Name: name, Autoescape: autoescape}
		}
	}
}

// parseAutoescape returns the specified autoescape selection, defaulting to
// AutoescapeUnspecified. Contextual escaping is not supported.
func (t *tree) parseAutoescape(attrs map[string]string) ast.AutoescapeType {
	switch val := attrs["autoescape"]; val {
	case "":
		return ast.AutoescapeUnspecified
	case "true":
		return ast.AutoescapeOn
	case "false":
		return ast.AutoescapeOff
	default:
		t.errorf(`expected "true" or "false" for autoescape, got %q`, val)
	}
	panic("unreachable")
}

func (t *tree) parseTemplate(token item) ast.Node {
	const ctx = "template tag"
	var id = t.expect(itemDotIdent, ctx)
	var attrs = t.parseAttrs("autoescape", "private", "kind")
	var autoescape = t.parseAutoescape(attrs)
	var private = t.boolAttr(attrs, "private", false)
	var kind = attrs["kind"]
	if kind == "" {
		kind = "html"
	}
	t.expect(itemRightDelim, ctx)
	tmpl := &ast.TemplateNode{
		Pos:        token.pos,
		Name:       t.namespace + id.val,
		Body:       t.itemList(itemTemplateEnd),
		Autoescape: autoescape,
		Private:    private,
		Kind:       kind,
	}
	t.expect(itemRightDelim, ctx)
	return tmpl
}

// "delpackage" has just been read.
func (t *tree) parseDelPackage(token item) ast.Node {
	const ctx = "delpackage"
	var name = t.expect(itemIdent, ctx).val
	for {
		switch part := t.next(); part.typ {
		case itemDotIdent:
			name += part.val
		default:
			t.backup()
			t.expect(itemRightDelim, ctx)
			t.delpackage = name
			return &ast.DelPackageNode{Pos: token.pos, Name: name}
		}
	}
}

// "deltemplate" has just been read.
func (t *tree) parseDelTemplate(token item) ast.Node {
	const ctx = "deltemplate tag"
	var name = t.expect(itemIdent, ctx).val
	for t.peek().typ == itemDotIdent {
		name += t.next().val
	}
	var attrs = t.parseAttrs("variant", "autoescape")
	var autoescape = t.parseAutoescape(attrs)
	t.expect(itemRightDelim, ctx)

	var priority int
	if t.delpackage != "" {
		priority = 1
	}
	tmpl := &ast.DelTemplateNode{
		Pos:        token.pos,
		Name:       name,
		Variant:    attrs["variant"],
		Package:    t.delpackage,
		Priority:   priority,
		Body:       t.itemList(itemDeltemplateEnd),
		Autoescape: autoescape,
	}
	t.expect(itemRightDelim, ctx)
	return tmpl
}

// Expressions ----------

// boolAttr returns a boolean value from the given attribute map.
func (t *tree) boolAttr(attrs map[string]string, key string, defaultValue bool) bool {
	switch str, ok := attrs[key]; {
	case !ok:
		return defaultValue
	case str == "true":
		return true
	case str == "false":
		return false
	default:
		t.errorf("expected 'true' or 'false', got %q", str)
	}
	panic("unreachable")
}

// parseQuotedExpr ignores the current lex/parse state and parses the given
// string as a standalone expression.
func (t *tree) parseQuotedExpr(str string) ast.Node {
	return (&tree{lex: lexExpr("", str)}).parseExpr(0)
}

var precedence = map[itemType]int{
	itemNot:    6,
	itemNegate: 6,
	itemMul:    5,
	itemDiv:    5,
	itemMod:    5,
	itemAdd:    4,
	itemSub:    4,
	itemEq:     3,
	itemNotEq:  3,
	itemGt:     3,
	itemGte:    3,
	itemLt:     3,
	itemLte:    3,
	itemOr:     2,
	itemAnd:    1,
	itemElvis:  0,
}

// parseExpr parses an arbitrary expression involving function applications
// and arithmetic.
//
// For handling binary operators, this uses the Precedence Climbing
// algorithm described in: http://www.engr.mun.ca/~theo/Misc/exp_parsing.htm
func (t *tree) parseExpr(prec int) ast.Node {
	n := t.parseExprFirstTerm()
	var tok item
	for {
		tok = t.next()
		q := precedence[tok.typ]
		if !isBinaryOp(tok.typ) || q < prec {
			break
		}
		q++
		n = newBinaryOpNode(tok, n, t.parseExpr(q))
	}
	if prec == 0 && tok.typ == itemTernIf {
		return t.parseTernary(n)
	}
	t.backup()
	return n
}

// Primary -> "(" Expr ")"
//          | u=UnaryOp PrecExpr(prec(u))
//          | FunctionCall | DataRef | Global | ListLiteral | Primitive
// Any primary may be followed by a trailing "!" non-null assertion.
func (t *tree) parseExprFirstTerm() ast.Node {
	var n ast.Node
	switch tok := t.next(); {
	case isUnaryOp(tok):
		n = newUnaryOpNode(tok, t.parseExpr(precedence[tok.typ]))
	case tok.typ == itemLeftParen:
		n = t.parseExpr(0)
		t.expect(itemRightParen, "expression")
	case isValue(tok):
		n = t.newValueNode(tok)
	default:
		t.unexpected(tok, "expression")
	}
	if t.peek().typ == itemBang {
		t.next()
		n = &ast.AssertNonNullNode{Pos: n.Position(), Arg: n}
	}
	return n
}

// DataRef -> ( "$ij." Ident | DollarIdent )
//            ( DotIdent | QuestionDotIdent | DotIndex | QuestionDotIndex
//            | "[" Expr "]" | "?[" Expr "]" )*
// A trailing DotIdent immediately followed by "(" is a method call, and
// terminates the access chain.
func (t *tree) parseDataRef(tok item) ast.Node {
	if tok.val == "$ij" {
		var keyTok = t.expect(itemDotIdent, "$ij reference")
		return t.parseDataRefAccess(&ast.DataRefNode{Pos: tok.pos, Key: keyTok.val[1:], Injected: true})
	}
	return t.parseDataRefAccess(&ast.DataRefNode{Pos: tok.pos, Key: tok.val[1:]})
}

func (t *tree) parseDataRefAccess(ref *ast.DataRefNode) ast.Node {
	for {
		switch tok := t.next(); tok.typ {
		case itemQuestionDotIdent, itemDotIdent:
			var nullsafe = tok.typ == itemQuestionDotIdent
			var off = 1
			if nullsafe {
				off = 2
			}
			var name = tok.val[off:]
			if t.peek().typ == itemLeftParen {
				t.next()
				return t.finishMethodCall(tok.pos, nullsafe, ref, name)
			}
			ref.Access = append(ref.Access, &ast.DataRefKeyNode{Pos: tok.pos, NullSafe: nullsafe, Key: name})
		case itemQuestionDotIndex, itemDotIndex:
			var nullsafe = tok.typ == itemQuestionDotIndex
			var off = 1
			if nullsafe {
				off = 2
			}
			index, err := strconv.ParseInt(tok.val[off:], 10, 0)
			if err != nil {
				t.error(err)
			}
			ref.Access = append(ref.Access, &ast.DataRefIndexNode{Pos: tok.pos, NullSafe: nullsafe, Index: int(index)})
		case itemQuestionKey, itemLeftBracket:
			var nullsafe = tok.typ == itemQuestionKey
			var expr = t.parseExpr(0)
			t.expect(itemRightBracket, "dataref")
			ref.Access = append(ref.Access, &ast.DataRefExprNode{Pos: tok.pos, NullSafe: nullsafe, Arg: expr})
		default:
			t.backup()
			return ref
		}
	}
}

// finishMethodCall parses a method call's arguments. "(" has just been read.
func (t *tree) finishMethodCall(pos ast.Pos, nullsafe bool, receiver ast.Node, name string) ast.Node {
	var args []ast.Node
	if t.peek().typ == itemRightParen {
		t.next()
		return &ast.MethodCallNode{Pos: pos, NullSafe: nullsafe, Receiver: receiver, Name: name, Args: args}
	}
	for {
		args = append(args, t.parseExpr(0))
		switch tok := t.next(); tok.typ {
		case itemComma:
			continue
		case itemRightParen:
			return &ast.MethodCallNode{Pos: pos, NullSafe: nullsafe, Receiver: receiver, Name: name, Args: args}
		default:
			t.unexpected(tok, "method call arguments")
		}
	}
}

// "[" has just been read. Lists are the only bracket literal; records and
// maps are constructed with the record(...) and map(...) call forms.
func (t *tree) parseListLiteral(token item) ast.Node {
	if t.peek().typ == itemRightBracket {
		t.next()
		return &ast.ListLiteralNode{Pos: token.pos}
	}
	var items []ast.Node
	for {
		items = append(items, t.parseExpr(0))
		switch tok := t.next(); tok.typ {
		case itemRightBracket:
			return &ast.ListLiteralNode{Pos: token.pos, Items: items}
		case itemComma:
			continue
		default:
			t.unexpected(tok, "list literal")
		}
	}
}

// parseTernary parses the ternary operator within an expression.
// itemTernIf has already been read, and the condition is provided.
func (t *tree) parseTernary(cond ast.Node) ast.Node {
	n1 := t.parseExpr(0)
	t.expect(itemColon, "ternary")
	n2 := t.parseExpr(0)
	result := &ast.TernNode{Pos: cond.Position(), Arg1: cond, Arg2: n1, Arg3: n2}
	if t.peek().typ == itemColon {
		t.next()
		return t.parseTernary(result)
	}
	return result
}

func isBinaryOp(typ itemType) bool {
	switch typ {
	case itemMul, itemDiv, itemMod,
		itemAdd, itemSub,
		itemEq, itemNotEq, itemGt, itemGte, itemLt, itemLte,
		itemOr, itemAnd, itemElvis:
		return true
	}
	return false
}

func isUnaryOp(t item) bool {
	switch t.typ {
	case itemNot, itemNegate:
		return true
	}
	return false
}

func isValue(t item) bool {
	switch t.typ {
	case itemNull, itemBool, itemInteger, itemFloat, itemDollarIdent, itemString:
		return true
	case itemIdent:
		return true // function call / global returns a value
	case itemLeftBracket:
		return true // list literal
	}
	return false
}

func op(n ast.BinaryOpNode, name string) ast.BinaryOpNode {
	n.Name = name
	return n
}

func newBinaryOpNode(t item, n1, n2 ast.Node) ast.Node {
	var bin = ast.BinaryOpNode{Pos: t.pos, Arg1: n1, Arg2: n2}
	switch t.typ {
	case itemMul:
		return &ast.MulNode{BinaryOpNode: op(bin, "*")}
	case itemDiv:
		return &ast.DivNode{BinaryOpNode: op(bin, "/")}
	case itemMod:
		return &ast.ModNode{BinaryOpNode: op(bin, "%")}
	case itemAdd:
		return &ast.AddNode{BinaryOpNode: op(bin, "+")}
	case itemSub:
		return &ast.SubNode{BinaryOpNode: op(bin, "-")}
	case itemEq:
		return &ast.EqNode{BinaryOpNode: op(bin, "==")}
	case itemNotEq:
		return &ast.NotEqNode{BinaryOpNode: op(bin, "!=")}
	case itemGt:
		return &ast.GtNode{BinaryOpNode: op(bin, ">")}
	case itemGte:
		return &ast.GteNode{BinaryOpNode: op(bin, ">=")}
	case itemLt:
		return &ast.LtNode{BinaryOpNode: op(bin, "<")}
	case itemLte:
		return &ast.LteNode{BinaryOpNode: op(bin, "<=")}
	case itemOr:
		return &ast.OrNode{BinaryOpNode: op(bin, "or")}
	case itemAnd:
		return &ast.AndNode{BinaryOpNode: op(bin, "and")}
	case itemElvis:
		return &ast.ElvisNode{BinaryOpNode: op(bin, "?:")}
	}
	panic("unimplemented")
}

func newUnaryOpNode(t item, n1 ast.Node) ast.Node {
	switch t.typ {
	case itemNot:
		return &ast.NotNode{Pos: t.pos, Arg: n1}
	case itemNegate:
		return &ast.NegateNode{Pos: t.pos, Arg: n1}
	}
	panic("unreachable")
}

func (t *tree) newValueNode(tok item) ast.Node {
	switch tok.typ {
	case itemNull:
		return &ast.NullNode{Pos: tok.pos}
	case itemBool:
		return &ast.BoolNode{Pos: tok.pos, True: tok.val == "true"}
	case itemInteger:
		var base = 10
		if strings.HasPrefix(tok.val, "0x") {
			base = 16
		}
		value, err := strconv.ParseInt(tok.val, base, 64)
		if err != nil {
			t.error(err)
		}
		return &ast.IntNode{Pos: tok.pos, Value: value}
	case itemFloat:
		value, err := strconv.ParseFloat(tok.val, 64)
		if err != nil {
			t.error(err)
		}
		return &ast.FloatNode{Pos: tok.pos, Value: value}
	case itemString:
		s, err := unquoteString(tok.val)
		if err != nil {
			t.errorf("error unquoting %s: %s", tok.val, err)
		}
		return &ast.StringNode{Pos: tok.pos, Quoted: tok.val, Value: s}
	case itemLeftBracket:
		return t.parseListLiteral(tok)
	case itemDollarIdent:
		return t.parseDataRef(tok)
	case itemIdent:
		next := t.next()
		if next.typ != itemLeftParen {
			return t.newGlobalNode(tok, next)
		}
		return t.newFunctionNode(tok)
	}
	panic("unreachable")
}

func (t *tree) newGlobalNode(tok, next item) ast.Node {
	var name = tok.val
	for next.typ == itemDotIdent {
		name += next.val
		next = t.next()
	}
	t.backup()
	if value, ok := t.globals[name]; ok {
		return &ast.GlobalNode{Pos: tok.pos, Name: name, Value: value}
	}
	t.errorf("global %q is undefined", name)
	return nil
}

// newFunctionNode parses a function call's arguments; "(" has just been
// read. record(...) and map(...) are special-cased into their own literal
// node types rather than generic function calls.
func (t *tree) newFunctionNode(tok item) ast.Node {
	switch tok.val {
	case "record":
		return t.parseRecordLiteral(tok)
	case "map":
		return t.parseMapLiteral(tok)
	}
	node := &ast.FunctionNode{Pos: tok.pos, Name: tok.val}
	if t.peek().typ == itemRightParen {
		t.next()
		return node
	}
	for {
		node.Args = append(node.Args, t.parseExpr(0))
		switch tok := t.next(); tok.typ {
		case itemComma:
			// continue to get the next arg
		case itemRightParen:
			return node // all done
		case eof:
			t.errorf("unexpected eof reading function params")
		default:
			t.unexpected(tok, "reading function params")
		}
	}
}

// "record(" has just been read. Record keys are bare identifiers.
func (t *tree) parseRecordLiteral(tok item) ast.Node {
	var n = &ast.RecordLiteralNode{Pos: tok.pos}
	if t.peek().typ == itemRightParen {
		t.next()
		return n
	}
	for {
		var key = t.expect(itemIdent, "record literal key")
		t.expect(itemColon, "record literal")
		n.Keys = append(n.Keys, key.val)
		n.Values = append(n.Values, t.parseExpr(0))
		switch next := t.next(); next.typ {
		case itemRightParen:
			return n
		case itemComma:
			continue
		default:
			t.unexpected(next, "record literal")
		}
	}
}

// "map(" has just been read. Map keys are arbitrary expressions.
func (t *tree) parseMapLiteral(tok item) ast.Node {
	var n = &ast.MapLiteralNode{Pos: tok.pos}
	if t.peek().typ == itemRightParen {
		t.next()
		return n
	}
	for {
		var key = t.parseExpr(0)
		t.expect(itemColon, "map literal")
		n.Keys = append(n.Keys, key)
		n.Values = append(n.Values, t.parseExpr(0))
		switch next := t.next(); next.typ {
		case itemRightParen:
			return n
		case itemComma:
			continue
		default:
			t.unexpected(next, "map literal")
		}
	}
}

// Helpers ----------

// next returns the next token.
func (t *tree) next() item {
	if t.peekCount > 0 {
		t.peekCount--
	} else {
		t.token[0] = t.lex.nextItem()
	}
	return t.token[t.peekCount]
}

func (t *tree) nextNonComment() item {
	for {
		if tok := t.next(); tok.typ != itemComment {
			return tok
		}
	}
}

// backup backs the input stream up one token.
func (t *tree) backup() {
	t.peekCount++
}

// backup2 backs the input stream up two tokens. The zeroth token is already there.
func (t *tree) backup2(t1 item) {
	t.token[1] = t1
	t.peekCount = 2
}

// peek returns but does not consume the next token.
func (t *tree) peek() item {
	if t.peekCount > 0 {
		return t.token[t.peekCount-1]
	}
	t.peekCount = 1
	t.token[0] = t.lex.nextItem()
	return t.token[0]
}

// recover turns panics into returns from the top level of Parse.
func (t *tree) recover(errp *error) {
	e := recover()
	if e == nil {
		return
	}
	if _, ok := e.(runtime.Error); ok {
		panic(e)
	}
	t.lex = nil
	if str, ok := e.(string); ok {
		*errp = errors.New(str)
	} else {
		*errp = e.(error)
	}
}

// expect consumes the next token and guarantees it has the required type.
func (t *tree) expect(expected itemType, context string) item {
	token := t.next()
	if token.typ != expected {
		t.unexpected(token, fmt.Sprintf("%v (expected %v)", context, expected.String()))
	}
	return token
}

// unexpected complains about the token and terminates processing.
func (t *tree) unexpected(token item, context string) {
	if token.typ == itemError {
		t.errorf("lexical error: %v", token)
	}
	t.errorf("unexpected %v in %s", token, context)
}

// errorf formats the error and terminates processing.
func (t *tree) errorf(format string, args ...interface{}) {
	var tok = t.token[0]
	if t.peekCount > 0 {
		tok = t.token[t.peekCount-1]
	}
	t.root = nil
	format = fmt.Sprintf("template %s:%d:%d: %s", t.name,
		t.lex.lineNumber(tok.pos), t.lex.columnNumber(tok.pos), format)
	panic(fmt.Errorf(format, args...))
}

// error terminates processing.
func (t *tree) error(err error) {
	t.errorf("%s", err)
}

func isOneOf(tocheck itemType, against []itemType) bool {
	for _, x := range against {
		if tocheck == x {
			return true
		}
	}
	return false
}

func allSpace(str string) bool {
	for _, ch := range str {
		if !unicode.IsSpace(ch) {
			return false
		}
	}
	return true
}
