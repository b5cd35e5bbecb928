package msg

import (
	"reflect"
	"testing"

	"github.com/robfig/miso/ast"
	"github.com/robfig/miso/parse"
	"github.com/robfig/miso/template"
)

func TestParts(t *testing.T) {
	var got = Parts("Hello {NAME}, you have {COUNT} messages.")
	var want = []Part{
		RawTextPart{"Hello "},
		PlaceholderPart{"NAME"},
		RawTextPart{", you have "},
		PlaceholderPart{"COUNT"},
		RawTextPart{" messages."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestPartsNoPlaceholders(t *testing.T) {
	var got = Parts("plain text")
	var want = []Part{RawTextPart{"plain text"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestCalcIDStableAndSensitiveToText(t *testing.T) {
	var a = findMsgNode(t, `{msg desc="greeting"}Hello world{/msg}`)
	var b = findMsgNode(t, `{msg desc="greeting"}Hello world{/msg}`)
	var c = findMsgNode(t, `{msg desc="greeting"}Goodbye world{/msg}`)

	var idA, idB, idC = CalcID(a), CalcID(b), CalcID(c)
	if idA != idB {
		t.Errorf("same text should produce the same id: %d != %d", idA, idB)
	}
	if idA == idC {
		t.Errorf("different text should produce different ids")
	}
}

func TestSetPlaceholdersAndID(t *testing.T) {
	var n = findMsgNode(t, `{msg desc="greeting"}Hello {$name}!{/msg}`)
	SetPlaceholdersAndID(n)

	if n.ID == 0 {
		t.Error("expected a nonzero message id")
	}
	if got, want := PlaceholderString(n), "Hello {NAME}!"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSetPlaceholdersAndIDDedupesEquivalentPlaceholders(t *testing.T) {
	var n = findMsgNode(t, `{msg desc="d"}{$name} said hello to {$name}{/msg}`)
	SetPlaceholdersAndID(n)

	var list = n.Body.(*ast.ListNode)
	var ph1 = list.Nodes[0].(*ast.MsgPlaceholderNode)
	var ph2 = list.Nodes[2].(*ast.MsgPlaceholderNode)
	if ph1.Name != ph2.Name {
		t.Errorf("two references to the same data ref should share a placeholder name, got %q and %q", ph1.Name, ph2.Name)
	}
}

func findMsgNode(t *testing.T, msgSrc string) *ast.MsgNode {
	t.Helper()
	var file, err = parse.File("test.soy", "{namespace test}\n{template .t}\n"+msgSrc+"\n{/template}\n", nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var reg template.Registry
	if err := reg.Add(file); err != nil {
		t.Fatalf("register: %v", err)
	}
	var tmpl, ok = reg.Template("test.t")
	if !ok {
		t.Fatal("template not found")
	}
	var body = tmpl.TemplateNode.Body
	for _, n := range body.Nodes {
		if m, ok := n.(*ast.MsgNode); ok {
			return m
		}
	}
	t.Fatal("no {msg} node found")
	return nil
}
