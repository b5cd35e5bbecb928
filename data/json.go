package data

import "encoding/json"

// MarshalJSON renders Undefined as JSON null, matching the language's
// treatment of undefined and null as interchangeable in output contexts.
func (v Undefined) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

func (v Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// MarshalJSON renders a Record as a JSON object, preserving insertion order
// is not possible in encoding/json's object model, but entries are still
// visited in that order while building the map to marshal.
func (v *Record) MarshalJSON() ([]byte, error) {
	var m = make(map[string]Value, len(v.keys))
	for _, k := range v.keys {
		m[k] = v.values[k]
	}
	return json.Marshal(m)
}

func (v SanitizedContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Text)
}
