package render

import "github.com/robfig/miso/data"

// scope handles variable assignment and lookup within a template.
// It is a stack of variable frames; assignments made deeper in the stack
// take precedence over earlier ones.
type scope []scopeframe

// scopeframe is a single piece of the overall variable assignment.
type scopeframe struct {
	vars    map[string]data.Value
	entered bool // true if this was the initial frame for a template
}

func newScope(m map[string]data.Value) scope {
	if m == nil {
		m = make(map[string]data.Value)
	}
	return scope{{vars: m}}
}

// push creates a new scope frame.
func (s *scope) push() {
	*s = append(*s, scopeframe{vars: make(map[string]data.Value)})
}

// pop discards the last scope frame pushed.
func (s *scope) pop() {
	*s = (*s)[:len(*s)-1]
}

// set adds a new binding to the deepest scope frame.
func (s scope) set(k string, v data.Value) {
	s[len(s)-1].vars[k] = v
}

// lookup checks the variable scopes, deepest first, for the given key.
func (s scope) lookup(k string) data.Value {
	for i := range s {
		var elem = s[len(s)-i-1].vars
		if val, ok := elem[k]; ok {
			return val
		}
	}
	return data.Undefined{}
}

// alldata returns the prefix of the scope up through the most recent
// entered frame, for use when a call passes data="all".
func (s scope) alldata() scope {
	for i := range s {
		var ri = len(s) - i - 1
		if s[ri].entered {
			return s[: ri+1 : ri+1]
		}
	}
	panic("render: no entered scope frame")
}

// enter marks the current frame as a template-entry point. Only frames up
// to here are carried forward by a subsequent data="all" call.
func (s *scope) enter() {
	(*s)[len(*s)-1].entered = true
}

// recordFrom flattens every frame of a scope into a Record, later frames
// overriding earlier ones. A data="all" call does not use it; it passes
// the frames themselves via alldata.
func recordFrom(s scope) *data.Record {
	var r = data.NewRecord()
	for _, frame := range s {
		for k, v := range frame.vars {
			r.Set(k, v)
		}
	}
	return r
}
