package render

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"runtime"
	"runtime/debug"

	"github.com/robfig/miso/ast"
	"github.com/robfig/miso/data"
	"github.com/robfig/miso/msg"
	"github.com/robfig/miso/template"
)

// Logger collects output from {log} commands.
var Logger = log.New(log.Writer(), "", log.LstdFlags)

// state represents the state of a single render execution.
type state struct {
	namespace  string
	tmpl       template.Template
	wr         io.Writer
	node       ast.Node // current node, for errors
	registry   *template.Registry
	val        data.Value         // temp value for the expression being computed
	context    scope              // variable scope
	autoescape ast.AutoescapeType // escaping mode
	ij         *data.Record       // injected data available to all templates
	msgs       msg.Bundle         // replacement text for {msg} tags
	debugInfo  bool               // Options.DebugInfo; carried to callees, not read by walk

	// strictUndefined makes a non-null-safe `.field`/`[key]` access on an
	// Undefined base raise an error, matching Null's behavior. The default
	// (false) is permissive: such an access yields Undefined.
	strictUndefined bool

	// pluralOffsets tracks the offset of each {plural} currently being
	// evaluated, innermost last, so remainder() can reach it.
	pluralOffsets []int64
}

// at marks the state to be on node n, for error reporting.
func (s *state) at(node ast.Node) {
	s.node = node
}

// errorf formats the error and terminates processing.
func (s *state) errorf(format string, args ...interface{}) {
	format = fmt.Sprintf("template %s:%d: %s", s.tmpl.Name,
		s.registry.LineNumber(s.tmpl.Name, s.node), format)
	panic(fmt.Errorf(format, args...))
}

// errRecover turns panics into returns from the top level of Execute.
func (s *state) errRecover(errp *error) {
	if e := recover(); e != nil {
		switch e := e.(type) {
		case runtime.Error:
			*errp = fmt.Errorf("template %s:%d: %v\n%v", s.tmpl.Name,
				s.registry.LineNumber(s.tmpl.Name, s.node), e, string(debug.Stack()))
		case error:
			*errp = e
		default:
			*errp = fmt.Errorf("template %s:%d: %v", s.tmpl.Name,
				s.registry.LineNumber(s.tmpl.Name, s.node), e)
		}
	}
}

// walk recursively descends through node, writing output and evaluating
// expressions into s.val as it goes.
func (s *state) walk(node ast.Node) {
	s.val = data.Undefined{}
	s.at(node)
	switch node := node.(type) {
	case *ast.TemplateNode:
		if node.Autoescape != ast.AutoescapeUnspecified {
			s.autoescape = node.Autoescape
		}
		s.walk(node.Body)
	case *ast.DelTemplateNode:
		if node.Autoescape != ast.AutoescapeUnspecified {
			s.autoescape = node.Autoescape
		}
		s.walk(node.Body)
	case *ast.ListNode:
		for _, node := range node.Nodes {
			s.walk(node)
		}

		// Output nodes ----------
	case *ast.PrintNode:
		s.evalPrint(node)
	case *ast.RawTextNode:
		if _, err := s.wr.Write(node.Text); err != nil {
			s.errorf("%s", err)
		}
	case *ast.MsgNode:
		s.evalMsg(node)
	case *ast.CssNode:
		var prefix = ""
		if node.Expr != nil {
			prefix = s.eval(node.Expr).String() + "-"
		}
		if _, err := io.WriteString(s.wr, prefix+node.Suffix); err != nil {
			s.errorf("%s", err)
		}
	case *ast.XidNode:
		if _, err := io.WriteString(s.wr, node.Name); err != nil {
			s.errorf("%s", err)
		}
	case *ast.DebuggerNode:
		Logger.Printf("{debugger} at %s:%d", s.tmpl.Name, s.registry.LineNumber(s.tmpl.Name, node))
	case *ast.LogNode:
		Logger.Print(string(s.renderBlock(node.Body)))

		// HTML-aware nodes ----------
	case *ast.HTMLOpenTagNode:
		s.evalOpenTag(node)
	case *ast.HTMLCloseTagNode:
		if _, err := io.WriteString(s.wr, "</"+node.Name+">"); err != nil {
			s.errorf("%s", err)
		}
	case *ast.HTMLCommentNode:
		if _, err := io.WriteString(s.wr, "<!--"+node.Text+"-->"); err != nil {
			s.errorf("%s", err)
		}

		// Control flow ----------
	case *ast.IfNode:
		for _, cond := range node.Conds {
			if cond.Cond == nil || s.eval(cond.Cond).Truthy() {
				s.walk(cond.Body)
				break
			}
		}
	case *ast.ForNode:
		s.evalFor(node)
	case *ast.SwitchNode:
		var switchValue = s.eval(node.Value)
		for _, caseNode := range node.Cases {
			for _, caseValueNode := range caseNode.Values {
				if switchValue.Equals(s.eval(caseValueNode)) {
					s.walk(caseNode.Body)
					return
				}
			}
			if len(caseNode.Values) == 0 { // default/last case
				s.walk(caseNode.Body)
				return
			}
		}
	case *ast.CallNode:
		s.evalCall(node)
	case *ast.CallDelNode:
		s.evalCallDel(node)
	case *ast.LetValueNode:
		s.context.set(node.Name, s.eval(node.Expr))
	case *ast.LetContentNode:
		s.context.set(node.Name, data.String(s.renderBlock(node.Body)))

		// Values ----------
	case *ast.NullNode:
		s.val = data.Null{}
	case *ast.StringNode:
		s.val = data.String(node.Value)
	case *ast.IntNode:
		s.val = data.Int(node.Value)
	case *ast.FloatNode:
		s.val = data.Float(node.Value)
	case *ast.BoolNode:
		s.val = data.Bool(node.True)
	case *ast.GlobalNode:
		s.val = node.Value
	case *ast.ListLiteralNode:
		var items = make(data.List, len(node.Items))
		for i, item := range node.Items {
			items[i] = s.eval(item)
		}
		s.val = items
	case *ast.RecordLiteralNode:
		var r = data.NewRecord()
		for i, k := range node.Keys {
			r.Set(k, s.eval(node.Values[i]))
		}
		s.val = r
	case *ast.MapLiteralNode:
		var r = data.NewRecord()
		for i, k := range node.Keys {
			r.Set(s.eval(k).String(), s.eval(node.Values[i]))
		}
		s.val = r
	case *ast.ForRangeNode:
		s.val = s.evalRange(node)
	case *ast.FunctionNode:
		s.val = s.evalFunc(node)
	case *ast.MethodCallNode:
		s.val = s.evalMethodCall(node)
	case *ast.AssertNonNullNode:
		var v = s.eval(node.Arg)
		switch v.(type) {
		case data.Null, data.Undefined:
			s.errorf("assertion failed: %q is null or undefined", node.Arg.String())
		}
		s.val = v
	case *ast.DataRefNode:
		s.val = s.evalDataRef(node)

		// Arithmetic operators ----------
	case *ast.NegateNode:
		switch arg := s.evaldef(node.Arg).(type) {
		case data.Int:
			s.val = data.Int(-arg)
		case data.Float:
			s.val = data.Float(-arg)
		default:
			s.errorf("can not negate non-number: %q", arg.String())
		}
	case *ast.AddNode:
		var arg1, arg2 = s.eval2def(node.Arg1, node.Arg2)
		switch {
		case isInt(arg1) && isInt(arg2):
			s.val = data.Int(arg1.(data.Int) + arg2.(data.Int))
		case isString(arg1) || isString(arg2):
			s.val = data.String(arg1.String() + arg2.String())
		default:
			s.val = data.Float(toFloat(arg1) + toFloat(arg2))
		}
	case *ast.SubNode:
		var arg1, arg2 = s.eval2def(node.Arg1, node.Arg2)
		switch {
		case isInt(arg1) && isInt(arg2):
			s.val = data.Int(arg1.(data.Int) - arg2.(data.Int))
		default:
			s.val = data.Float(toFloat(arg1) - toFloat(arg2))
		}
	case *ast.DivNode:
		var arg1, arg2 = s.eval2def(node.Arg1, node.Arg2)
		s.val = data.Float(toFloat(arg1) / toFloat(arg2))
	case *ast.MulNode:
		var arg1, arg2 = s.eval2def(node.Arg1, node.Arg2)
		switch {
		case isInt(arg1) && isInt(arg2):
			s.val = data.Int(arg1.(data.Int) * arg2.(data.Int))
		default:
			s.val = data.Float(toFloat(arg1) * toFloat(arg2))
		}
	case *ast.ModNode:
		var arg1, arg2 = s.eval2def(node.Arg1, node.Arg2)
		s.val = data.Int(arg1.(data.Int) % arg2.(data.Int))

		// Arithmetic comparisons ----------
	case *ast.EqNode:
		s.val = data.Bool(s.eval(node.Arg1).Equals(s.eval(node.Arg2)))
	case *ast.NotEqNode:
		s.val = data.Bool(!s.eval(node.Arg1).Equals(s.eval(node.Arg2)))
	case *ast.LtNode:
		s.val = data.Bool(toFloat(s.evaldef(node.Arg1)) < toFloat(s.evaldef(node.Arg2)))
	case *ast.LteNode:
		s.val = data.Bool(toFloat(s.evaldef(node.Arg1)) <= toFloat(s.evaldef(node.Arg2)))
	case *ast.GtNode:
		s.val = data.Bool(toFloat(s.evaldef(node.Arg1)) > toFloat(s.evaldef(node.Arg2)))
	case *ast.GteNode:
		s.val = data.Bool(toFloat(s.evaldef(node.Arg1)) >= toFloat(s.evaldef(node.Arg2)))

		// Boolean operators ----------
	case *ast.NotNode:
		s.val = data.Bool(!s.eval(node.Arg).Truthy())
	case *ast.AndNode:
		s.val = data.Bool(s.eval(node.Arg1).Truthy() && s.eval(node.Arg2).Truthy())
	case *ast.OrNode:
		s.val = data.Bool(s.eval(node.Arg1).Truthy() || s.eval(node.Arg2).Truthy())
	case *ast.ElvisNode:
		var arg1 = s.eval(node.Arg1)
		switch arg1.(type) {
		case data.Null, data.Undefined:
			s.val = s.eval(node.Arg2)
		default:
			s.val = arg1
		}
	case *ast.TernNode:
		var arg1 = s.eval(node.Arg1)
		if arg1.Truthy() {
			s.val = s.eval(node.Arg2)
		} else {
			s.val = s.eval(node.Arg3)
		}

	default:
		s.errorf("unknown node: %T", node)
	}
}

func isInt(v data.Value) bool {
	_, ok := v.(data.Int)
	return ok
}

func isString(v data.Value) bool {
	_, ok := v.(data.String)
	return ok
}

func toFloat(v data.Value) float64 {
	switch v := v.(type) {
	case data.Int:
		return float64(v)
	case data.Float:
		return float64(v)
	case data.Undefined:
		panic("not a number: undefined")
	default:
		panic(fmt.Sprintf("not a number: %v (%T)", v, v))
	}
}

func (s *state) evalOpenTag(node *ast.HTMLOpenTagNode) {
	var buf bytes.Buffer
	buf.WriteString("<" + node.Name)
	for _, a := range node.Attrs {
		buf.WriteString(" " + a.Name)
		if a.Value != nil {
			var av = a.Value.(*ast.HTMLAttributeValueNode)
			var quote = ""
			if av.Quote != 0 {
				quote = string(av.Quote)
			}
			buf.WriteString("=" + quote)
			if _, err := s.wr.Write(buf.Bytes()); err != nil {
				s.errorf("%s", err)
			}
			buf.Reset()
			s.walk(av.Body)
			buf.WriteString(quote)
		}
	}
	if node.SelfClosed {
		buf.WriteString("/>")
	} else {
		buf.WriteString(">")
	}
	if _, err := s.wr.Write(buf.Bytes()); err != nil {
		s.errorf("%s", err)
	}
}

func (s *state) evalFor(node *ast.ForNode) {
	var list, ok = s.eval(node.List).(data.List)
	if !ok {
		s.errorf("in for loop %q, %q does not resolve to a list.",
			node.String(), node.List.String())
	}
	if len(list) == 0 {
		if node.IfEmpty != nil {
			s.walk(node.IfEmpty)
		}
		return
	}
	s.context.push()
	for i, item := range list {
		s.context.set(node.Var, item)
		s.context.set(node.Var+"__index", data.Int(i))
		s.context.set(node.Var+"__lastIndex", data.Int(len(list)-1))
		s.walk(node.Body)
	}
	s.context.pop()
}

func (s *state) evalRange(node *ast.ForRangeNode) data.Value {
	var init, limit, increment int64 = 0, 0, 1
	if node.Start != nil {
		init = int64(s.evaldef(node.Start).(data.Int))
	}
	limit = int64(s.evaldef(node.End).(data.Int))
	if node.Step != nil {
		increment = int64(s.evaldef(node.Step).(data.Int))
	}
	var indices data.List
	for index := init; index < limit; index += increment {
		indices = append(indices, data.Int(index))
	}
	return indices
}

func (s *state) evalPrint(node *ast.PrintNode) {
	var result = s.eval(node.Arg)
	if _, ok := result.(data.Undefined); ok {
		s.errorf("in 'print' tag, expression %q evaluates to undefined.", node.Arg.String())
	}
	var escapeHtml = s.autoescape != ast.AutoescapeOff
	for _, directiveNode := range node.Directives {
		var directive, ok = PrintDirectives[directiveNode.Name]
		if !ok {
			s.errorf("print directive %q does not exist", directiveNode.Name)
		}

		if !checkNumArgs(directive.ValidArgLengths, len(directiveNode.Args)) {
			s.errorf("print directive %q called with %v args, expected one of: %v",
				directiveNode.Name, len(directiveNode.Args), directive.ValidArgLengths)
		}

		var args = make([]data.Value, len(directiveNode.Args))
		for i, arg := range directiveNode.Args {
			args[i] = s.eval(arg)
		}
		func() {
			defer func() {
				if err := recover(); err != nil {
					s.errorf("panic in %v: %v\nexecuted: %v(%q, %v)\n%v",
						directiveNode, err,
						directiveNode.Name, result, args,
						string(debug.Stack()))
				}
			}()
			result = directive.Apply(result, args)
		}()
		if directive.CancelAutoescape {
			escapeHtml = false
		}
	}

	var resultStr = result.String()
	if escapeHtml {
		htmlEscapeString(s.wr, resultStr)
	} else {
		if _, err := io.WriteString(s.wr, resultStr); err != nil {
			s.errorf("%s", err)
		}
	}
}

func (s *state) evalCall(node *ast.CallNode) {
	var calledTmpl, ok = s.registry.Template(node.Name)
	if !ok {
		s.errorf("failed to find template: %s", node.Name)
	}
	var callData = s.buildCallScope(node.AllData, node.Data, node.Params, node.String())
	var child = &state{
		tmpl:       calledTmpl,
		registry:   s.registry,
		namespace:  calledTmpl.Namespace.Name,
		autoescape: calledTmpl.Namespace.Autoescape,
		wr:         s.wr,
		context:    callData,
		ij:         s.ij,
		msgs:       s.msgs,
		debugInfo:  s.debugInfo,

		strictUndefined: s.strictUndefined,
	}
	child.walk(calledTmpl.TemplateNode)
}

func (s *state) evalCallDel(node *ast.CallDelNode) {
	var variant string
	if node.Variant != nil {
		variant = s.eval(node.Variant).String()
	}
	var del, ok = s.registry.SelectDelegate(node.Name, variant)
	if !ok {
		return // no implementation registered; delegate calls are optional
	}
	var callData = s.buildCallScope(node.AllData, node.Data, node.Params, node.String())
	var child = &state{
		tmpl:       template.Template{DocNode: del.DocNode, TemplateNode: &ast.TemplateNode{Pos: del.DelTemplateNode.Pos, Name: del.Name, Body: del.Body, Autoescape: del.Autoescape}, Namespace: del.Namespace},
		registry:   s.registry,
		namespace:  del.Namespace.Name,
		autoescape: del.Namespace.Autoescape,
		wr:         s.wr,
		context:    callData,
		ij:         s.ij,
		msgs:       s.msgs,
		debugInfo:  s.debugInfo,

		strictUndefined: s.strictUndefined,
	}
	child.walk(child.tmpl.TemplateNode)
}

// buildCallScope resolves the data/params of a {call} or {delcall} into a
// fresh scope for the callee.
func (s *state) buildCallScope(allData bool, dataExpr ast.Node, params []ast.Node, desc string) scope {
	var callData scope
	switch {
	case allData:
		callData = s.context.alldata()
		callData.push()
	case dataExpr != nil:
		result, ok := s.eval(dataExpr).(*data.Record)
		if !ok {
			s.errorf("in call %q, the data reference %q does not resolve to a record.",
				desc, dataExpr.String())
		}
		callData = newScope(recordToMap(result))
	default:
		callData = newScope(nil)
	}

	for _, param := range params {
		switch param := param.(type) {
		case *ast.CallParamValueNode:
			callData.set(param.Key, s.eval(param.Value))
		case *ast.CallParamContentNode:
			callData.set(param.Key, data.String(s.renderBlock(param.Content)))
		default:
			s.errorf("unexpected call param type: %T", param)
		}
	}
	callData.enter()
	return callData
}

func recordToMap(r *data.Record) map[string]data.Value {
	if r == nil {
		return nil
	}
	var m = make(map[string]data.Value, r.Len())
	for _, k := range r.Keys() {
		m[k] = r.Key(k)
	}
	return m
}

// renderBlock renders node to a temporary buffer and returns the result;
// nothing is written to the main output.
func (s *state) renderBlock(node ast.Node) []byte {
	var buf bytes.Buffer
	var origWriter = s.wr
	s.wr = &buf
	s.walk(node)
	s.wr = origWriter
	return buf.Bytes()
}

func checkNumArgs(allowedNumArgs []int, numArgs int) bool {
	for _, length := range allowedNumArgs {
		if numArgs == length {
			return true
		}
	}
	return false
}

func (s *state) evalFunc(node *ast.FunctionNode) data.Value {
	if fn, ok := loopFuncs[node.Name]; ok {
		return fn(s, node.Args[0].(*ast.DataRefNode).Key)
	}
	if fn, ok := pluralFuncs[node.Name]; ok {
		return fn(s, s.evaldef(node.Args[0]))
	}
	if fn, ok := Funcs[node.Name]; ok {
		if !checkNumArgs(fn.ValidArgLengths, len(node.Args)) {
			s.errorf("function %q called with %v args, expected: %v",
				node.Name, len(node.Args), fn.ValidArgLengths)
		}

		var args = make([]data.Value, len(node.Args))
		for i, arg := range node.Args {
			args[i] = s.eval(arg)
		}
		return s.applyFunc(node.Name, args, fn.Apply)
	}
	s.errorf("unrecognized function name: %s", node.Name)
	panic("unreachable")
}

func (s *state) applyFunc(name string, args []data.Value, apply func([]data.Value) data.Value) (result data.Value) {
	defer func() {
		if err := recover(); err != nil {
			s.errorf("panic in %s(%v): %v\n%v", name, args, err, string(debug.Stack()))
		}
	}()
	result = apply(args)
	if result == nil {
		return data.Null{}
	}
	return result
}

// evalMethodCall evaluates $receiver.name(args), dispatching to the same
// Funcs table as an ordinary call with the receiver prepended as the first
// argument; this is dot-call sugar, not a distinct namespace of methods.
func (s *state) evalMethodCall(node *ast.MethodCallNode) data.Value {
	var recv = s.eval(node.Receiver)
	switch recv.(type) {
	case data.Null, data.Undefined:
		if node.NullSafe {
			return data.Null{}
		}
		s.errorf("%q is null or undefined", node.Receiver.String())
	}
	fn, ok := Funcs[node.Name]
	if !ok {
		s.errorf("unrecognized method name: %s", node.Name)
	}
	var args = make([]data.Value, len(node.Args)+1)
	args[0] = recv
	for i, arg := range node.Args {
		args[i+1] = s.eval(arg)
	}
	if !checkNumArgs(fn.ValidArgLengths, len(args)) {
		s.errorf("method %q called with %v args, expected: %v",
			node.Name, len(args), fn.ValidArgLengths)
	}
	return s.applyFunc(node.Name, args, fn.Apply)
}

func (s *state) evalDataRef(node *ast.DataRefNode) data.Value {
	var ref data.Value
	if node.Injected {
		if s.ij == nil {
			s.errorf("injected data not provided, yet referenced: %q", node.String())
		}
		ref = s.ij.Key(node.Key)
	} else {
		ref = s.context.lookup(node.Key)
	}
	if len(node.Access) == 0 {
		return ref
	}

	for i, accessNode := range node.Access {
		var (
			index = -1
			key   string
		)
		switch accessN := accessNode.(type) {
		case *ast.DataRefIndexNode:
			index = accessN.Index
		case *ast.DataRefKeyNode:
			key = accessN.Key
		case *ast.DataRefExprNode:
			switch keyRef := s.eval(accessN.Arg).(type) {
			case data.Int:
				index = int(keyRef)
			default:
				key = keyRef.String()
			}
		default:
			s.errorf("unexpected access node: %T", accessNode)
		}

		switch obj := ref.(type) {
		case data.Null:
			if isNullSafeAccess(accessNode) {
				return data.Null{}
			}
			s.errorf("%q is null", partialRef(node, i))
		case data.Undefined:
			if isNullSafeAccess(accessNode) {
				return data.Null{}
			}
			if s.strictUndefined {
				s.errorf("%q is undefined", partialRef(node, i))
			}
			return data.Undefined{}
		case data.List:
			if index == -1 {
				s.errorf("%q is a list, but was accessed with a non-integer index", partialRef(node, i))
			}
			ref = obj.Index(index)
		case *data.Record:
			if key == "" {
				s.errorf("%q is a record, and requires a string key to access", partialRef(node, i))
			}
			ref = obj.Key(key)
		default:
			s.errorf("while evaluating %q, encountered a non-collection just before accessing %q.",
				node.String(), accessNode.String())
		}
	}

	return ref
}

func partialRef(node *ast.DataRefNode, upTo int) string {
	return (&ast.DataRefNode{Pos: node.Pos, Key: node.Key, Injected: node.Injected, Access: node.Access[:upTo]}).String()
}

// isNullSafeAccess returns true if the data ref access node is a nullsafe
// access.
func isNullSafeAccess(n ast.Node) bool {
	switch node := n.(type) {
	case *ast.DataRefIndexNode:
		return node.NullSafe
	case *ast.DataRefKeyNode:
		return node.NullSafe
	case *ast.DataRefExprNode:
		return node.NullSafe
	}
	panic("unexpected")
}

// eval2def evaluates the two given nodes for a binary arithmetic operator.
// A Null or Undefined result coerces to zero when its counterpart is
// numeric (e.g. `1 + $undefinedVar` is `1`). An operand that is still
// Undefined after that is an error; a Null beside a non-number is returned
// unchanged.
func (s *state) eval2def(n1, n2 ast.Node) (data.Value, data.Value) {
	var raw1, raw2 = s.eval(n1), s.eval(n2)
	var arg1 = coerceZero(raw1, raw2)
	var arg2 = coerceZero(raw2, raw1)
	if _, ok := arg1.(data.Undefined); ok {
		s.errorf("%v is undefined", n1)
	}
	if _, ok := arg2.(data.Undefined); ok {
		s.errorf("%v is undefined", n2)
	}
	return arg1, arg2
}

// coerceZero returns data.Int(0) in place of v if v is Null or Undefined
// and other is a number, per the arithmetic zero-coercion rule; otherwise
// it returns v unchanged.
func coerceZero(v, other data.Value) data.Value {
	switch v.(type) {
	case data.Null, data.Undefined:
		if isInt(other) || isFloat(other) {
			return data.Int(0)
		}
	}
	return v
}

func isFloat(v data.Value) bool {
	_, ok := v.(data.Float)
	return ok
}

func (s *state) eval(n ast.Node) data.Value {
	var prev = s.node
	s.walk(n)
	s.node = prev
	return s.resolveProvider(s.val)
}

func (s *state) evaldef(n ast.Node) data.Value {
	var val = s.eval(n)
	if _, ok := val.(data.Undefined); ok {
		s.errorf("%v is undefined", n)
	}
	return val
}

var (
	htmlQuot = []byte("&#34;") // shorter than "&quot;"
	htmlApos = []byte("&#39;") // shorter than "&apos;" and apos was not in HTML until HTML5
	htmlAmp  = []byte("&amp;")
	htmlLt   = []byte("&lt;")
	htmlGt   = []byte("&gt;")
)

// htmlEscapeString is a modified version of the stdlib HTMLEscape routine;
// it escapes a string without making copies.
func htmlEscapeString(w io.Writer, str string) {
	last := 0
	for i := 0; i < len(str); i++ {
		var html []byte
		switch str[i] {
		case '"':
			html = htmlQuot
		case '\'':
			html = htmlApos
		case '&':
			html = htmlAmp
		case '<':
			html = htmlLt
		case '>':
			html = htmlGt
		default:
			continue
		}
		io.WriteString(w, str[last:i])
		w.Write(html)
		last = i + 1
	}
	io.WriteString(w, str[last:])
}
