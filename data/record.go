package data

import (
	"reflect"
	"strings"
)

// Record is an order-preserving string-keyed value, used for both the
// `record(...)` literal and `map(...)` literal (map keys need not be known at
// compile time, so they're stored the same way). Iteration and `keys()` walk
// entries in insertion order; JSON-directive output goes through a Go map,
// so encoding/json writes the keys sorted.
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord builds an empty, ready-to-append Record.
func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// Set inserts or overwrites k. Overwriting an existing key does not change
// its position in iteration order, matching JavaScript object semantics.
func (r *Record) Set(k string, v Value) {
	if _, ok := r.values[k]; !ok {
		r.keys = append(r.keys, k)
	}
	r.values[k] = v
}

// Key retrieves a value under the named key, or Undefined if absent.
func (r *Record) Key(k string) Value {
	if v, ok := r.values[k]; ok {
		return v
	}
	return Undefined{}
}

// Has reports whether k is present.
func (r *Record) Has(k string) bool {
	_, ok := r.values[k]
	return ok
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of entries.
func (r *Record) Len() int { return len(r.keys) }

func (v *Record) Truthy() bool { return true }

func (v *Record) String() string {
	var items = make([]string, 0, len(v.keys))
	for _, k := range v.keys {
		items = append(items, k+": "+v.values[k].String())
	}
	return "{" + strings.Join(items, ", ") + "}"
}

func (v *Record) Equals(other Value) bool {
	if o, ok := other.(*Record); ok {
		return reflect.ValueOf(v).Pointer() == reflect.ValueOf(o).Pointer()
	}
	return false
}
