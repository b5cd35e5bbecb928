package parsepasses

import (
	"fmt"

	"github.com/robfig/miso/ast"
	"github.com/robfig/miso/template"
)

// CheckDataRefs validates that:
//  1. all data references are provided by @param declarations or {let} nodes
//  2. any data declared as a @param is used by the template (or passed via {call})
//  3. all {call}/{delcall} params are declared as @params in the called template's doc
//  4. a called template is passed all required @params, or a data="$var"/data="all"
//  5. a {call}'d template actually exists in the registry
//  6. any variable created by {let} is used somewhere
func CheckDataRefs(reg *template.Registry) (err error) {
	var currentTemplate string
	defer func() {
		if err2 := recover(); err2 != nil {
			err = fmt.Errorf("template %v: %v", currentTemplate, err2)
		}
	}()

	for _, t := range reg.Templates {
		currentTemplate = t.TemplateNode.Name
		tc := newTemplateChecker(reg, t.Params())
		tc.checkTemplate(t.Body)

		for _, param := range tc.params {
			if !contains(tc.usedKeys, param) {
				panic(fmt.Errorf("param %q is unused", param))
			}
		}
	}
	for _, d := range flattenDelegates(reg.Delegates) {
		currentTemplate = d.Name
		tc := newTemplateChecker(reg, d.Params())
		tc.checkTemplate(d.Body)
		for _, param := range tc.params {
			if !contains(tc.usedKeys, param) {
				panic(fmt.Errorf("param %q is unused", param))
			}
		}
	}
	return nil
}

func flattenDelegates(m map[string][]template.Delegate) []template.Delegate {
	var out []template.Delegate
	for _, list := range m {
		out = append(out, list...)
	}
	return out
}

type templateChecker struct {
	registry *template.Registry
	params   []string
	letVars  []string
	usedKeys []string
}

func newTemplateChecker(reg *template.Registry, params []*ast.DocParamNode) *templateChecker {
	var paramNames []string
	for _, param := range params {
		paramNames = append(paramNames, param.Name)
	}
	return &templateChecker{reg, paramNames, nil, nil}
}

func (tc *templateChecker) checkTemplate(node ast.Node) {
	switch node := node.(type) {
	case *ast.LetValueNode:
		tc.letVars = append(tc.letVars, node.Name)
	case *ast.LetContentNode:
		tc.letVars = append(tc.letVars, node.Name)
	case *ast.ForNode:
		tc.recurseWithLoopVar(node)
		return
	case *ast.CallNode:
		tc.checkCall(node)
	case *ast.CallDelNode:
		tc.checkDelCall(node)
	case *ast.DataRefNode:
		if !node.Injected {
			tc.visitKey(node.Key)
		}
	}
	if parent, ok := node.(ast.ParentNode); ok {
		tc.recurse(parent)
	}
}

// recurseWithLoopVar treats the {for} loop variable like a {let} binding
// scoped to the loop body and ifempty clause.
func (tc *templateChecker) recurseWithLoopVar(node *ast.ForNode) {
	if node.List != nil {
		tc.checkTemplate(node.List)
	}
	var initialLetVars = len(tc.letVars)
	tc.letVars = append(tc.letVars, node.Var)
	tc.checkTemplate(node.Body)
	tc.popLetVars(initialLetVars)
	if node.IfEmpty != nil {
		tc.checkTemplate(node.IfEmpty)
	}
}

func (tc *templateChecker) checkCall(node *ast.CallNode) {
	var callee, ok = tc.registry.Template(node.Name)
	if !ok {
		panic(fmt.Errorf("{call}: template %q not found", node.Name))
	}
	tc.checkCallParams(callee.Params(), node.AllData, node.Data, node.Params)
}

func (tc *templateChecker) checkDelCall(node *ast.CallDelNode) {
	// Delegate callees may not exist yet at check time (another package may
	// provide the implementation at render time), so missing delegates are
	// not treated as an error. Still validate params against whatever
	// implementations are registered under this name.
	var delegates = tc.registry.Delegates[node.Name]
	for _, d := range delegates {
		tc.checkCallParams(d.Params(), node.AllData, node.Data, node.Params)
	}
}

func (tc *templateChecker) checkCallParams(calleeParams []*ast.DocParamNode, allData bool, data ast.Node, callParams []ast.Node) {
	var allCalleeParamNames, requiredCalleeParamNames []string
	for _, param := range calleeParams {
		allCalleeParamNames = append(allCalleeParamNames, param.Name)
		if !param.Optional {
			requiredCalleeParamNames = append(requiredCalleeParamNames, param.Name)
		}
	}

	var callerParamNames []string
	if allData {
		for _, param := range tc.params {
			if contains(allCalleeParamNames, param) {
				tc.usedKeys = append(tc.usedKeys, param)
				callerParamNames = append(callerParamNames, param)
			}
		}
	}
	for _, callParam := range callParams {
		switch callParam := callParam.(type) {
		case *ast.CallParamValueNode:
			callerParamNames = append(callerParamNames, callParam.Key)
		case *ast.CallParamContentNode:
			callerParamNames = append(callerParamNames, callParam.Key)
		default:
			panic("unexpected call param type")
		}
	}

	for _, callParamName := range callerParamNames {
		if !contains(allCalleeParamNames, callParamName) {
			panic(fmt.Errorf("param %q is not declared by the callee", callParamName))
		}
	}

	if data != nil {
		return
	}
	for _, requiredCalleeParam := range requiredCalleeParamNames {
		if !contains(callerParamNames, requiredCalleeParam) {
			panic(fmt.Errorf("required param %q is not passed by the call", requiredCalleeParam))
		}
	}
}

func (tc *templateChecker) recurse(parent ast.ParentNode) {
	var initialLetVars = len(tc.letVars)
	for _, child := range parent.Children() {
		tc.checkTemplate(child)
	}
	tc.popLetVars(initialLetVars)
}

// popLetVars removes {let} bindings that are going out of scope, verifying
// that each one was used somewhere within its scope.
func (tc *templateChecker) popLetVars(initialLetVars int) {
	if initialLetVars == len(tc.letVars) {
		return
	}
	var letVarsGoingOutOfScope = tc.letVars[initialLetVars:]
	var usedKeysToKeep, usedLets []string
	for _, key := range tc.usedKeys {
		if contains(letVarsGoingOutOfScope, key) {
			usedLets = append(usedLets, key)
		} else {
			usedKeysToKeep = append(usedKeysToKeep, key)
		}
	}
	for _, letVar := range letVarsGoingOutOfScope {
		if !contains(usedLets, letVar) {
			panic(fmt.Errorf("{let}/{for} variable %q is not used", letVar))
		}
	}
	tc.usedKeys = usedKeysToKeep
	tc.letVars = tc.letVars[:initialLetVars]
}

func (tc *templateChecker) visitKey(key string) {
	tc.usedKeys = append(tc.usedKeys, key)
	if !tc.checkKey(key) {
		panic(fmt.Errorf("data ref %q not found. params: %v, let variables: %v",
			key, tc.params, tc.letVars))
	}
}

func (tc *templateChecker) checkKey(key string) bool {
	for _, param := range tc.params {
		if param == key {
			return true
		}
	}
	for _, varName := range tc.letVars {
		if varName == key {
			return true
		}
	}
	return false
}

func contains(slice []string, item string) bool {
	for _, candidate := range slice {
		if candidate == item {
			return true
		}
	}
	return false
}
