package render

import (
	"strings"
	"testing"

	"github.com/andreyvit/diff"
	"github.com/google/go-cmp/cmp"

	"github.com/robfig/miso/parse"
	"github.com/robfig/miso/parsepasses"
	"github.com/robfig/miso/template"
)

// compile is a small test helper that parses, registers, and runs the
// structural passes on a single-file template set, without depending on
// the root miso package (which itself depends on render).
func compile(t *testing.T, src string) *Tofu {
	t.Helper()
	file, err := parse.File("test.soy", src, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	parse.RewriteHTML(file)
	var reg = &template.Registry{}
	if err := reg.Add(file); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := parsepasses.CheckDataRefs(reg); err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := parsepasses.Autoescape(reg); err != nil {
		t.Fatalf("autoescape: %v", err)
	}
	parsepasses.ProcessMessages(reg)
	return NewTofu(reg)
}

func render(t *testing.T, tofu *Tofu, name string, obj interface{}) string {
	t.Helper()
	var buf strings.Builder
	if err := tofu.Render(&buf, name, obj); err != nil {
		t.Fatalf("render %s: %v", name, err)
	}
	return buf.String()
}

func TestExecIfElse(t *testing.T) {
	var tofu = compile(t, `
{namespace test}
/** @param cond */
{template .t}
{if $cond}yes{else}no{/if}
{/template}
`)
	if got := strings.TrimSpace(render(t, tofu, "test.t", map[string]interface{}{"cond": true})); got != "yes" {
		t.Errorf("got %q", got)
	}
	if got := strings.TrimSpace(render(t, tofu, "test.t", map[string]interface{}{"cond": false})); got != "no" {
		t.Errorf("got %q", got)
	}
}

func TestExecForLoopWithLoopFuncs(t *testing.T) {
	var tofu = compile(t, `
{namespace test}
/** @param items */
{template .t}
{for $x in $items}{if isFirst($x)}[{/if}{$x}{if not isLast($x)},{else}]{/if}{/for}
{/template}
`)
	var got = strings.TrimSpace(render(t, tofu, "test.t", map[string]interface{}{
		"items": []interface{}{"a", "b", "c"},
	}))
	if want := "[a,b,c]"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExecForIfEmpty(t *testing.T) {
	var tofu = compile(t, `
{namespace test}
/** @param items */
{template .t}
{for $x in $items}{$x}{ifempty}empty{/for}
{/template}
`)
	if got := strings.TrimSpace(render(t, tofu, "test.t", map[string]interface{}{"items": []interface{}{}})); got != "empty" {
		t.Errorf("got %q", got)
	}
}

func TestExecSwitch(t *testing.T) {
	var tofu = compile(t, `
{namespace test}
/** @param n */
{template .t}
{switch $n}
  {case 1}one
  {case 2, 3}two-or-three
  {default}other
{/switch}
{/template}
`)
	for n, want := range map[int]string{1: "one", 2: "two-or-three", 3: "two-or-three", 4: "other"} {
		if got := strings.TrimSpace(render(t, tofu, "test.t", map[string]interface{}{"n": n})); got != want {
			t.Errorf("n=%d:\n%v", n, diff.LineDiff(want, got))
		}
	}
}

func TestExecCallWithParams(t *testing.T) {
	var tofu = compile(t, `
{namespace test}
/** @param name */
{template .greet}
Hello, {$name}!
{/template}

{template .main}
{call .greet}{param name: 'World'/}{/call}
{/template}
`)
	if got := strings.TrimSpace(render(t, tofu, "test.main", nil)); got != "Hello, World!" {
		t.Errorf("got %q", got)
	}
}

func TestExecCallDataAll(t *testing.T) {
	var tofu = compile(t, `
{namespace test}
/** @param name */
{template .greet}
Hello, {$name}!
{/template}

/** @param name */
{template .main}
{call .greet data="all"/}
{/template}
`)
	var got = strings.TrimSpace(render(t, tofu, "test.main", map[string]interface{}{"name": "Dolly"}))
	if got != "Hello, Dolly!" {
		t.Errorf("got %q", got)
	}
}

func TestExecLetValueAndContent(t *testing.T) {
	var tofu = compile(t, `
{namespace test}
{template .t}
{let $x: 1 + 2/}
{let $y}computed{/let}
{$x} {$y}
{/template}
`)
	if got := strings.TrimSpace(render(t, tofu, "test.t", nil)); got != "3 computed" {
		t.Errorf("got %q", got)
	}
}

func TestExecAutoescapeEscapesHTML(t *testing.T) {
	var tofu = compile(t, `
{namespace test}
/** @param html */
{template .t}
{$html}
{/template}
`)
	var got = strings.TrimSpace(render(t, tofu, "test.t", map[string]interface{}{"html": "<b>hi</b>"}))
	if got != "&lt;b&gt;hi&lt;/b&gt;" {
		t.Errorf("got %q", got)
	}
}

func TestExecNoAutoescapeDirective(t *testing.T) {
	var tofu = compile(t, `
{namespace test}
/** @param html */
{template .t}
{$html |noAutoescape}
{/template}
`)
	var got = strings.TrimSpace(render(t, tofu, "test.t", map[string]interface{}{"html": "<b>hi</b>"}))
	if got != "<b>hi</b>" {
		t.Errorf("got %q", got)
	}
}

func TestExecBuiltinFuncs(t *testing.T) {
	var tofu = compile(t, `
{namespace test}
/** @param items */
{template .t}
{length($items)} {max(3, 5)} {min(3, 5)} {round(3.6)}
{/template}
`)
	var got = strings.Fields(render(t, tofu, "test.t", map[string]interface{}{
		"items": []interface{}{"a", "b"},
	}))
	var want = []string{"2", "5", "3", "4"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("builtin function results differ (-want +got):\n%s", diff)
	}
}

func TestExecElvisHandlesUncomparableTypes(t *testing.T) {
	var tofu = compile(t, `
{namespace test}
/** @param? items */
{template .t}
{length($items ?: [])}
{/template}
`)
	var got = strings.TrimSpace(render(t, tofu, "test.t", nil))
	if got != "0" {
		t.Errorf("got %q", got)
	}
}

func TestExecMsgPluralOffsetAndRemainder(t *testing.T) {
	var tofu = compile(t, `
{namespace test}
/**
 * @param n
 * @param p
 */
{template .t}
{msg desc=""}{plural $n offset="1"}{case 0}zero{case 1}only{$p}{default}{$p} and {remainder($n)} more{/plural}{/msg}
{/template}
`)
	var tests = []struct {
		n    int
		p    string
		want string
	}{
		{0, "Bob", "zero"},
		{1, "Bob", "onlyBob"},
		{10, "Bob", "Bob and 9 more"},
	}
	for _, test := range tests {
		var got = strings.TrimSpace(render(t, tofu, "test.t", map[string]interface{}{"n": test.n, "p": test.p}))
		if got != test.want {
			t.Errorf("n=%d: got %q, want %q", test.n, got, test.want)
		}
	}
}

func TestExecDelCallUnregisteredRendersNothing(t *testing.T) {
	var tofu = compile(t, `
{namespace test}
{template .t}
before[{delcall test.missing/}]after
{/template}
`)
	var got = strings.TrimSpace(render(t, tofu, "test.t", nil))
	if got != "before[]after" {
		t.Errorf("got %q", got)
	}
}

func TestExecDelCallDispatchesHighestPriority(t *testing.T) {
	var reg = &template.Registry{ActivePackages: map[string]bool{"pkg2": true}}

	var main, err = parse.File("main.soy", `
{namespace test}
{template .main}
[{delcall test.widget/}]
{/template}

{deltemplate test.widget}
default
{/deltemplate}
`, nil)
	if err != nil {
		t.Fatalf("parse main: %v", err)
	}
	parse.RewriteHTML(main)
	if err := reg.Add(main); err != nil {
		t.Fatalf("add main: %v", err)
	}

	var override, err2 = parse.File("override.soy", `
{delpackage pkg2}
{namespace test2}
{deltemplate test.widget}
override
{/deltemplate}
`, nil)
	if err2 != nil {
		t.Fatalf("parse override: %v", err2)
	}
	parse.RewriteHTML(override)
	if err := reg.Add(override); err != nil {
		t.Fatalf("add override: %v", err)
	}

	if err := parsepasses.CheckDataRefs(reg); err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := parsepasses.Autoescape(reg); err != nil {
		t.Fatalf("autoescape: %v", err)
	}
	parsepasses.ProcessMessages(reg)

	var tofu = NewTofu(reg)
	var got = strings.TrimSpace(render(t, tofu, "test.main", nil))
	if got != "[override]" {
		t.Errorf("got %q", got)
	}
}
