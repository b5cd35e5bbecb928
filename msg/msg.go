// Package msg defines the translated-message bundle interfaces and the
// placeholder/plural representation shared by every message backend (po,
// or a hand-rolled in-memory provider).
package msg

import (
	"bytes"
	"regexp"

	"github.com/robfig/miso/ast"
)

// Provider provides access to message bundles by locale.
type Provider interface {
	// Bundle returns messages for the given locale, which is in the form
	// [language_territory]. If no locale-specific messages could be found,
	// nil is returned; rendering with a nil bundle uses the source text for
	// all messages.
	Bundle(locale string) Bundle
}

// Bundle is the set of messages available in a particular locale.
type Bundle interface {
	// Locale returns the locale of the bundle.
	Locale() string

	// Message returns the message with the given id, or nil if none was found.
	Message(id uint64) *Message

	// PluralCase returns the index of the case to use for the given plural value.
	PluralCase(n int) int
}

// Message is a (possibly) translated message.
type Message struct {
	ID    uint64 // ID is a content-based identifier for this message
	Parts []Part // Parts are the sequence of message parts that form the content.
}

// Part is an element of a Message. Its concrete type is one of
// RawTextPart, PlaceholderPart, or PluralPart.
type Part interface{}

// RawTextPart is a segment of a message that displays the contained text.
type RawTextPart struct {
	Text string
}

// PlaceholderPart is a segment of a message that stands in for another node.
type PlaceholderPart struct {
	Name string
}

// PluralPart is a segment of a message that has multiple forms depending on a value.
type PluralPart struct {
	VarName string
	Cases   []PluralCase
}

// PluralCase is one version of the message, for a particular plural case.
type PluralCase struct {
	Spec  PluralSpec
	Parts []Part
}

// PluralSpec is a description of a particular plural case.
type PluralSpec struct {
	Type          PluralSpecType
	ExplicitValue int // only set if Type == PluralSpecExplicit
}

// PluralSpecType is the CLDR plural class.
type PluralSpecType int

const (
	PluralSpecExplicit PluralSpecType = iota
	PluralSpecZero
	PluralSpecOne
	PluralSpecTwo
	PluralSpecFew
	PluralSpecMany
	PluralSpecOther
)

// NewMessage returns a new message, given its ID and placeholder string.
func NewMessage(id uint64, phstr string) Message {
	return Message{id, Parts(phstr)}
}

// PlaceholderString returns a string representation of the message
// containing braced placeholders for variables, e.g. "Hello {NAME}".
func PlaceholderString(n *ast.MsgNode) string {
	var buf bytes.Buffer
	writeFingerprint(&buf, n.Body, true)
	return buf.String()
}

var phRegex = regexp.MustCompile(`{[A-Z0-9_]+}`)

// Parts returns the sequence of raw text and placeholders for the given
// message placeholder string.
func Parts(str string) []Part {
	var pos = 0
	var parts []Part
	for _, loc := range phRegex.FindAllStringIndex(str, -1) {
		var start, end = loc[0], loc[1]
		if start > pos {
			parts = append(parts, RawTextPart{str[pos:start]})
		}
		parts = append(parts, PlaceholderPart{str[start+1 : end-1]})
		pos = end
	}
	if pos < len(str) {
		parts = append(parts, RawTextPart{str[pos:]})
	}
	return parts
}

// writeFingerprint writes a human/translator-facing rendering of node,
// substituting {PLACEHOLDER} for each MsgPlaceholderNode. When expandPlural
// is set, a {plural} is written as {VARNAME} and a {select} as the body of
// its first case; otherwise both are omitted.
func writeFingerprint(buf *bytes.Buffer, node ast.Node, expandPlural bool) {
	switch node := node.(type) {
	case *ast.ListNode:
		for _, n := range node.Nodes {
			writeFingerprint(buf, n, expandPlural)
		}
	case *ast.RawTextNode:
		buf.Write(node.Text)
	case *ast.MsgPlaceholderNode:
		buf.WriteString("{" + node.Name + "}")
	case *ast.MsgPluralNode:
		if !expandPlural {
			break
		}
		buf.WriteString("{" + node.VarName + "}")
	case *ast.MsgSelectNode:
		if !expandPlural {
			break
		}
		for _, c := range node.Cases {
			writeFingerprint(buf, c.Body, expandPlural)
			return
		}
	}
}
