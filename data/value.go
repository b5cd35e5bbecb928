package data

import (
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Value represents a template data value, which may be one of the enumerated
// types below. The zero value represents an Undefined value.
type Value interface {
	// Truthy returns true according to the language's definition of truthy and
	// falsy values.
	Truthy() bool

	// String formats this value for display in a template.
	String() string

	// Equals returns true if the two values are equal. Primitives compare by
	// value, with Int/Float/numeric-String mutually coercible. Null and
	// Undefined are equal to each other and to themselves. List and Record
	// compare by identity (same underlying storage), matching the
	// language's reference-type semantics for aggregates.
	Equals(other Value) bool
}

// Value types.
type (
	Undefined struct{}
	Null      struct{}
	Bool      bool
	Int       int64
	Float     float64
	String    string
	List      []Value
)

// Index retrieves a value from this list, or Undefined if out of bounds.
func (v List) Index(i int) Value {
	if !(0 <= i && i < len(v)) {
		return Undefined{}
	}
	return v[i]
}

// Kind identifies the content kind of a SanitizedContent value.
type Kind int

const (
	KindText Kind = iota
	KindHTML
	KindAttributes
	KindCSS
	KindURI
	KindTrustedResourceURI
	KindJS
)

func (k Kind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindAttributes:
		return "attributes"
	case KindCSS:
		return "css"
	case KindURI:
		return "uri"
	case KindTrustedResourceURI:
		return "trustedResourceUri"
	case KindJS:
		return "js"
	default:
		return "text"
	}
}

// SanitizedContent wraps a string that is already safe for a given output
// context, so the print-directive pipeline can skip re-escaping it (and, for
// a mismatched context, escape it anyway instead of trusting blindly).
type SanitizedContent struct {
	Text string
	Kind Kind
}

func (v SanitizedContent) Truthy() bool { return v.Text != "" }
func (v SanitizedContent) String() string {
	return v.Text
}
func (v SanitizedContent) Equals(other Value) bool {
	if o, ok := other.(SanitizedContent); ok {
		return v.Kind == o.Kind && v.Text == o.Text
	}
	return false
}

// Truthy ----------

func (v Undefined) Truthy() bool { return false }
func (v Null) Truthy() bool      { return false }
func (v Bool) Truthy() bool      { return bool(v) }
func (v Int) Truthy() bool       { return v != 0 }
func (v Float) Truthy() bool     { return v != 0.0 && !math.IsNaN(float64(v)) }
func (v String) Truthy() bool    { return v != "" }
func (v List) Truthy() bool      { return true }

// String ----------

func (v Undefined) String() string { panic("attempted to coerce an undefined value into a string") }
func (v Null) String() string      { return "null" }
func (v Bool) String() string      { return strconv.FormatBool(bool(v)) }
func (v Int) String() string       { return strconv.FormatInt(int64(v), 10) }
func (v Float) String() string     { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v String) String() string    { return string(v) }

func (v List) String() string {
	var items = make([]string, len(v))
	for i, item := range v {
		items[i] = item.String()
	}
	return "[" + strings.Join(items, ", ") + "]"
}

// Equals ----------

// Undefined and Null are considered equal to each other; a template should
// rarely need to distinguish "never supplied" from "explicitly null".
func (v Undefined) Equals(other Value) bool {
	switch other.(type) {
	case Undefined, Null:
		return true
	}
	return false
}

func (v Null) Equals(other Value) bool {
	switch other.(type) {
	case Undefined, Null:
		return true
	}
	return false
}

func (v Bool) Equals(other Value) bool {
	if o, ok := other.(Bool); ok {
		return bool(v) == bool(o)
	}
	return false
}

// String equality coerces against Int/Float so that `$x == '3'` behaves the
// same whether $x arrived as a number or a string.
func (v String) Equals(other Value) bool {
	switch o := other.(type) {
	case String:
		return string(v) == string(o)
	case Int:
		n, err := strconv.ParseInt(string(v), 10, 64)
		return err == nil && Int(n) == o
	case Float:
		f, err := strconv.ParseFloat(string(v), 64)
		return err == nil && Float(f) == o
	}
	return false
}

func (v List) Equals(other Value) bool {
	if o, ok := other.(List); ok {
		return reflect.ValueOf([]Value(v)).Pointer() == reflect.ValueOf([]Value(o)).Pointer()
	}
	return false
}

func (v Int) Equals(other Value) bool {
	switch o := other.(type) {
	case Int:
		return v == o
	case Float:
		return float64(v) == float64(o)
	case String:
		return o.Equals(v)
	}
	return false
}

func (v Float) Equals(other Value) bool {
	switch o := other.(type) {
	case Int:
		return float64(v) == float64(o)
	case Float:
		return v == o
	case String:
		return o.Equals(v)
	}
	return false
}
